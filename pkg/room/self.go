package room

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/telemeet/roomcore/pkg/sdp"
)

// StreamConnection is a named binding between a participant and one
// media stream. A nil/empty TargetUsers set means the connection is
// announced to every participant; otherwise fan-out is restricted to
// exactly that subset.
type StreamConnection struct {
	ID     string
	Stream MediaStream
	Source Source

	mu          sync.RWMutex
	targetUsers map[string]struct{}
}

// Target restricts removal fan-out for this connection to the given
// participant ids, replacing any earlier restriction.
func (c *StreamConnection) Target(userIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targetUsers = make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		c.targetUsers[id] = struct{}{}
	}
}

// Targets returns the restriction set, nil when unrestricted.
func (c *StreamConnection) Targets() map[string]struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.targetUsers) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(c.targetUsers))
	for id := range c.targetUsers {
		out[id] = struct{}{}
	}
	return out
}

func (c *StreamConnection) dropTarget(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.targetUsers, userID)
}

// Self is the local participant: its identity, negotiation settings and
// the stream connections it owns. It holds a non-owning back-reference
// to its Room for notification delivery and transport access.
type Self struct {
	room *Room

	// ID is assigned by the handshake; empty until then.
	ID          string
	DisplayName string
	Data        any
	Token       string
	TimeStamp   string
	Agent       Agent
	Bandwidth   sdp.Bandwidth

	mu      sync.RWMutex
	streams map[string]*StreamConnection

	// Single-slot lifecycle hooks, nil when absent. Setting one
	// replaces any earlier registration silently.
	OnUpdate                 func(data any)
	OnAddStreamConnection    func(conn *StreamConnection)
	OnRemoveStreamConnection func(conn *StreamConnection)
	OnDisconnect             func()
}

func newSelf(r *Room, desc *Descriptor, opts Options) *Self {
	return &Self{
		room:        r,
		DisplayName: desc.Username,
		Data:        opts.UserData,
		Token:       desc.UserCred,
		TimeStamp:   desc.TimeStamp,
		Agent:       opts.Agent,
		streams:     make(map[string]*StreamConnection),
	}
}

// Update replaces the custom user data, announces it to the transport
// and raises self:update. Optimistic-first: the local notification
// fires before any authoritative acknowledgement arrives.
func (s *Self) Update(data any) error {
	s.Data = data
	if err := s.room.send(updateUserMessage{
		Type:     "updateUserEvent",
		SenderID: s.ID,
		RoomID:   s.room.ID,
		UserData: data,
	}); err != nil {
		return err
	}
	if s.OnUpdate != nil {
		s.OnUpdate(data)
	}
	s.room.handler(EventSelfUpdate, UpdateData{UserID: s.ID, Data: data})
	return nil
}

// AddStreamConnection registers stream under connectionID, marking its
// source local. The reserved "main" id, like any other, may exist only
// once.
func (s *Self) AddStreamConnection(stream MediaStream, connectionID string) error {
	s.mu.Lock()
	if _, exists := s.streams[connectionID]; exists {
		s.mu.Unlock()
		return ErrConnectionExists
	}
	conn := &StreamConnection{ID: connectionID, Stream: stream, Source: SourceLocal}
	s.streams[connectionID] = conn
	s.mu.Unlock()

	log.Info().Str("module", "room.self").Str("connection", connectionID).Msg("stream connection added")

	if s.OnAddStreamConnection != nil {
		s.OnAddStreamConnection(conn)
	}
	s.room.handler(EventSelfAddStream, StreamData{UserID: s.ID, ConnectionID: connectionID, Stream: stream})
	return nil
}

// RemoveStreamConnection stops the underlying stream and withdraws the
// connection from the participants it was announced to. The reserved
// "main" entry is never erased from the registry; its media may stop
// while the participant stays in the room.
func (s *Self) RemoveStreamConnection(connectionID string) error {
	s.mu.RLock()
	conn, ok := s.streams[connectionID]
	s.mu.RUnlock()
	if !ok {
		return NotFoundError{Kind: "stream connection", ID: connectionID}
	}

	conn.Stream.Stop()

	if connectionID != MainConnectionID {
		targets := conn.Targets()
		if targets == nil {
			for _, u := range s.room.Users() {
				u.RemoveConnection(connectionID)
			}
		} else {
			for id := range targets {
				// Skip participants that already left the room.
				if u, present := s.room.User(id); present {
					u.RemoveConnection(connectionID)
				}
			}
		}
	}

	if s.OnRemoveStreamConnection != nil {
		s.OnRemoveStreamConnection(conn)
	}
	s.room.handler(EventSelfRemoveStream, RemoveData{UserID: s.ID, ConnectionID: connectionID})

	if connectionID != MainConnectionID {
		s.mu.Lock()
		delete(s.streams, connectionID)
		s.mu.Unlock()
	}
	log.Info().Str("module", "room.self").Str("connection", connectionID).Msg("stream connection removed")
	return nil
}

// Connection returns an owned stream connection.
func (s *Self) Connection(connectionID string) (*StreamConnection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.streams[connectionID]
	return conn, ok
}

// Connections snapshots the owned registry.
func (s *Self) Connections() map[string]*StreamConnection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*StreamConnection, len(s.streams))
	for id, conn := range s.streams {
		out[id] = conn
	}
	return out
}

// StreamSettings is the per-connection view reported by Info and
// ConnectionInfo.
type StreamSettings struct {
	Audio       bool          `json:"audio"`
	Video       bool          `json:"video"`
	Bandwidth   sdp.Bandwidth `json:"bandwidth"`
	MediaStatus MediaStatus   `json:"mediaStatus"`
}

// Info is the local participant summary handed to peers.
type Info struct {
	UserData any                       `json:"userData"`
	Agent    Agent                     `json:"agent"`
	Settings map[string]StreamSettings `json:"settings"`
}

// ConnectionInfo is the single-connection variant of Info.
type ConnectionInfo struct {
	UserData any            `json:"userData"`
	Agent    Agent          `json:"agent"`
	Settings StreamSettings `json:"settings"`
}

func (s *Self) settingsFor(conn *StreamConnection) StreamSettings {
	if conn == nil || conn.Stream == nil {
		// Disabled placeholder for a connection with no stream yet.
		return StreamSettings{
			Bandwidth:   s.Bandwidth,
			MediaStatus: MediaStatus{AudioMuted: true, VideoMuted: true},
		}
	}
	return StreamSettings{
		Audio:       conn.Stream.AudioEnabled(),
		Video:       conn.Stream.VideoEnabled(),
		Bandwidth:   s.Bandwidth,
		MediaStatus: conn.Stream.Status(),
	}
}

// Info reports the user data, agent descriptor and the settings of
// every known connection.
func (s *Self) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := make(map[string]StreamSettings, len(s.streams))
	for id, conn := range s.streams {
		settings[id] = s.settingsFor(conn)
	}
	return Info{UserData: s.Data, Agent: s.Agent, Settings: settings}
}

// ConnectionInfo reports the settings of one connection, substituting
// the disabled placeholder when the id is unknown or has no stream.
func (s *Self) ConnectionInfo(connectionID string) ConnectionInfo {
	s.mu.RLock()
	conn := s.streams[connectionID]
	s.mu.RUnlock()
	return ConnectionInfo{UserData: s.Data, Agent: s.Agent, Settings: s.settingsFor(conn)}
}
