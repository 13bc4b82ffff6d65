package room

import (
	"encoding/json"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// installRouter wires the message-routing collaborator onto the
// transport: inbound signaling messages mutate the session model and
// come back out as notifications, and the transport close drives the
// disconnect cleanup.
func (r *Room) installRouter() {
	r.transport.OnMessage(r.route)
	r.transport.OnClose(r.onTransportClosed)
}

func (r *Room) route(data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "room.router").Msg("bad json")
		return
	}

	switch env.Type {
	case "inRoom":
		r.handleInRoom(data)
	case "enter":
		r.handleEnter(data)
	case "bye":
		r.handleBye(data)
	case "roomLockEvent":
		r.handleRoomLock(data)
	case "updateUserEvent":
		r.handleUpdateUser(data)
	case "redirect":
		r.handleRedirect(data)
	default:
		log.Warn().Str("module", "room.router").Str("type", env.Type).Msg("unknown message")
	}
}

// handleInRoom completes the handshake: the server assigns the local
// participant id and the ICE servers the peer connections should use.
func (r *Room) handleInRoom(data []byte) {
	var m inRoomMessage
	if err := json.Unmarshal(data, &m); err != nil {
		log.Error().Err(err).Str("module", "room.router").Msg("bad inRoom payload")
		return
	}

	r.self.ID = m.SID

	servers := make([]webrtc.ICEServer, 0, len(m.PCConfig.ICEServers))
	for _, e := range m.PCConfig.ICEServers {
		urls := e.URLs
		if len(urls) == 0 && e.URL != "" {
			urls = []string{e.URL}
		}
		if len(urls) == 0 {
			continue
		}
		servers = append(servers, webrtc.ICEServer{
			URLs:       urls,
			Username:   e.Username,
			Credential: e.Credential,
		})
	}
	r.mu.Lock()
	r.iceServers = servers
	r.mu.Unlock()

	r.setReadyState(StateOpen)
	log.Info().Str("module", "room.router").Str("sid", m.SID).Int("ice_servers", len(servers)).Msg("in room")
	r.handler(EventRoomJoin, JoinData{UserID: m.SID})
}

func (r *Room) handleEnter(data []byte) {
	var m enterMessage
	if err := json.Unmarshal(data, &m); err != nil {
		log.Error().Err(err).Str("module", "room.router").Msg("bad enter payload")
		return
	}
	if _, known := r.User(m.SenderID); known {
		return
	}
	u, err := NewUser(m.SenderID, m.UserData)
	if err != nil {
		log.Warn().Err(err).Str("module", "room.router").Str("mid", m.SenderID).Msg("rejecting peer")
		return
	}
	// Per-user fan-out relays through the room's notification layer.
	u.Handler = r.handler
	r.AddUser(u)
	r.handler(EventUserEnter, UserData{UserID: u.ID, Data: u.Data})
}

func (r *Room) handleBye(data []byte) {
	var m byeMessage
	if err := json.Unmarshal(data, &m); err != nil {
		log.Error().Err(err).Str("module", "room.router").Msg("bad bye payload")
		return
	}
	if _, known := r.User(m.SenderID); !known {
		return
	}
	r.RemoveUser(m.SenderID)
	r.handler(EventUserLeave, UserData{UserID: m.SenderID})
}

// handleRoomLock reconciles the authoritative lock state; the local
// actor already applied its own change optimistically.
func (r *Room) handleRoomLock(data []byte) {
	var m roomLockMessage
	if err := json.Unmarshal(data, &m); err != nil {
		log.Error().Err(err).Str("module", "room.router").Msg("bad roomLockEvent payload")
		return
	}
	r.applyLock(m.Lock, m.SenderID)
}

func (r *Room) handleUpdateUser(data []byte) {
	var m updateUserEventMessage
	if err := json.Unmarshal(data, &m); err != nil {
		log.Error().Err(err).Str("module", "room.router").Msg("bad updateUserEvent payload")
		return
	}
	u, known := r.User(m.SenderID)
	if !known {
		return
	}
	u.Data = m.UserData
	r.handler(EventUserUpdate, UpdateData{UserID: u.ID, Data: u.Data})
}

func (r *Room) handleRedirect(data []byte) {
	var m redirectMessage
	if err := json.Unmarshal(data, &m); err != nil {
		log.Error().Err(err).Str("module", "room.router").Msg("bad redirect payload")
		return
	}
	switch m.Action {
	case "warning":
		r.handler(EventRoomWarn, RedirectData{Reason: m.Info})
	case "reject":
		r.handler(EventRoomKick, RedirectData{Reason: m.Info})
		if err := r.Leave(); err != nil {
			log.Error().Err(err).Str("module", "room.router").Msg("disconnect after reject")
		}
	default:
		log.Warn().Str("module", "room.router").Str("action", m.Action).Msg("unknown redirect action")
	}
}

// onTransportClosed tears the session down: remote registries are
// cleared, the disconnect hooks fire and the room goes Closed for
// good.
func (r *Room) onTransportClosed(err error) {
	if err != nil {
		log.Warn().Err(err).Str("module", "room.router").Str("room", r.Name).Msg("transport closed")
	} else {
		log.Info().Str("module", "room.router").Str("room", r.Name).Msg("transport closed")
	}

	r.mu.Lock()
	r.users = make(map[string]*User)
	r.components = make(map[string]*Component)
	r.mu.Unlock()

	if r.self != nil && r.self.OnDisconnect != nil {
		r.self.OnDisconnect()
	}
	r.handler(EventRoomLeave, nil)
	r.setReadyState(StateClosed)
}
