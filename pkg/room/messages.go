package room

// Wire messages exchanged with the signaling transport. Field names
// follow the signaling protocol: mid is the sending participant id,
// rid the room id.

type lockMessage struct {
	Type     string `json:"type"`
	SenderID string `json:"mid"`
	RoomID   string `json:"rid"`
	Lock     bool   `json:"lock"`
}

type updateUserMessage struct {
	Type     string `json:"type"`
	SenderID string `json:"mid"`
	RoomID   string `json:"rid"`
	UserData any    `json:"userData"`
}

type descriptionMessage struct {
	Type     string `json:"type"`
	SDP      string `json:"sdp"`
	SenderID string `json:"mid"`
	RoomID   string `json:"rid"`
	Target   string `json:"target,omitempty"`
}

// Inbound messages routed by the message handler.

type iceServerEntry struct {
	URL        string   `json:"url,omitempty"`
	URLs       []string `json:"urls,omitempty"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

type inRoomMessage struct {
	Type     string `json:"type"`
	SID      string `json:"sid"`
	RoomID   string `json:"rid"`
	PCConfig struct {
		ICEServers []iceServerEntry `json:"iceServers"`
	} `json:"pc_config"`
}

type enterMessage struct {
	Type     string `json:"type"`
	SenderID string `json:"mid"`
	UserData any    `json:"userData"`
}

type byeMessage struct {
	Type     string `json:"type"`
	SenderID string `json:"mid"`
}

type roomLockMessage struct {
	Type     string `json:"type"`
	SenderID string `json:"mid"`
	RoomID   string `json:"rid"`
	Lock     bool   `json:"lock"`
}

type updateUserEventMessage struct {
	Type     string `json:"type"`
	SenderID string `json:"mid"`
	UserData any    `json:"userData"`
}

type redirectMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Info   string `json:"info"`
}
