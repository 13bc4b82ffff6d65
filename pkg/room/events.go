package room

// Notification names carried on the event bus and forwarded to the
// host listener. Consumers know the payload shape per name; the typed
// payloads below are what this core emits.
const (
	EventRoomStart        = "room:start"
	EventRoomJoin         = "room:join"
	EventRoomLock         = "room:lock"
	EventRoomUnlock       = "room:unlock"
	EventRoomWarn         = "room:warn"
	EventRoomKick         = "room:kick"
	EventRoomLeave        = "room:leave"
	EventReadyStateChange = "room:readystatechange"

	EventSelfUpdate       = "self:update"
	EventSelfAddStream    = "self:addstreamconnection"
	EventSelfRemoveStream = "self:removestreamconnection"

	EventUserEnter        = "user:enter"
	EventUserLeave        = "user:leave"
	EventUserUpdate       = "user:update"
	EventUserRemoveStream = "user:removestreamconnection"

	// EventMessageEnter is delivered per remote user when a new local
	// stream connection is announced to them.
	EventMessageEnter = "message:enter"

	EventError = "trigger:error"
)

// StartData accompanies EventRoomStart.
type StartData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ErrorData accompanies EventError. State is always -1: bootstrap
// failure is terminal at this layer.
type ErrorData struct {
	Error error `json:"error"`
	State int   `json:"state"`
}

// LockData names the participant whose action changed the lock state.
type LockData struct {
	UserID string `json:"userId"`
}

// JoinData accompanies EventRoomJoin once the handshake assigned a
// local participant id.
type JoinData struct {
	UserID string `json:"userId"`
}

// UpdateData accompanies EventSelfUpdate and EventUserUpdate.
type UpdateData struct {
	UserID string `json:"userId"`
	Data   any    `json:"data"`
}

// StreamData accompanies stream-connection additions.
type StreamData struct {
	UserID       string      `json:"userId"`
	ConnectionID string      `json:"connectionId"`
	Stream       MediaStream `json:"-"`
}

// RemoveData accompanies stream-connection removals.
type RemoveData struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

// UserData accompanies EventUserEnter and EventUserLeave.
type UserData struct {
	UserID string `json:"userId"`
	Data   any    `json:"data,omitempty"`
}

// RedirectData accompanies EventRoomWarn and EventRoomKick.
type RedirectData struct {
	Reason string `json:"reason"`
}

// StateData accompanies EventReadyStateChange.
type StateData struct {
	State ReadyState `json:"state"`
}
