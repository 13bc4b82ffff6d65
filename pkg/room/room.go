package room

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/telemeet/roomcore/pkg/event"
	"github.com/telemeet/roomcore/pkg/sdp"
)

// Room is one signaling session: the registries of remote participants
// and components, the owning reference to Self and the transport
// handle, and the event sink used for lifecycle notifications.
type Room struct {
	Name          string
	ID            string
	Key           string
	Token         string
	StartDateTime string
	Duration      int
	APIPath       string
	Owner         string
	Credentials   *Credentials

	opts     Options
	listener Listener
	events   *event.Dispatcher

	mu         sync.RWMutex
	readyState ReadyState
	locked     bool
	iceServers []webrtc.ICEServer
	users      map[string]*User
	components map[string]*Component
	self       *Self
	transport  Transport

	// Single-slot lifecycle hooks, nil when absent. Distinct from the
	// many-subscriber event bus.
	OnReadyStateChange func(state ReadyState)
	OnJoin             func()
	OnKick             func(reason string)
	OnWarn             func(reason string)
	OnLock             func(userID string)
	OnUnlock           func(userID string)
	OnLeave            func()
}

// apiPath builds the bootstrap request path for a room name.
func apiPath(opts Options, name string) string {
	path := "/api/" + opts.APIKey + "/" + name
	if opts.Credentials != nil {
		path += "/" + opts.Credentials.StartDateTime + "/" +
			strconv.Itoa(opts.Credentials.Duration) + "?&cred=" + opts.Credentials.Hash
	}
	if opts.Region != "" {
		sep := "?&"
		if strings.Contains(path, "?&") {
			sep = "&"
		}
		path += sep + "rg=" + opts.Region
	}
	return path
}

// Bootstrap resolves the room metadata through the loader, builds the
// session model around it and announces room:start to the listener.
// Failure is terminal at this layer: a single trigger:error with
// state -1 is raised and the error returned; retry policy belongs to
// the transport collaborator.
func Bootstrap(ctx context.Context, name string, opts Options, listener Listener) (*Room, error) {
	r := &Room{
		Name:        name,
		Credentials: opts.Credentials,
		opts:        opts,
		listener:    listener,
		events:      event.NewDispatcher(),
		users:       make(map[string]*User),
		components:  make(map[string]*Component),
	}

	path := apiPath(opts, name)
	desc, err := opts.Loader.Load(ctx, path)
	if err != nil {
		log.Error().Err(err).Str("module", "room").Str("room", name).Msg("bootstrap failed")
		r.handler(EventError, ErrorData{Error: err, State: -1})
		return nil, fmt.Errorf("bootstrap room %q: %w", name, err)
	}

	r.APIPath = path
	r.Key = desc.Key
	r.ID = desc.ID
	r.Token = desc.Token
	r.StartDateTime = desc.StartDateTime
	r.Duration = desc.Duration
	r.Owner = desc.Owner

	r.self = newSelf(r, desc, opts)
	r.transport = opts.NewTransport(desc)
	r.installRouter()

	r.setReadyState(StateBootstrapped)
	log.Info().Str("module", "room").Str("room", name).Str("id", r.ID).Msg("room started")
	if listener != nil {
		listener(EventRoomStart, StartData{ID: r.ID, Name: r.Name})
	}
	return r, nil
}

// handler relays one notification to the hooks, the event bus and the
// host listener, in that order.
func (r *Room) handler(name string, data any) {
	log.Debug().Str("module", "room").Str("event", name).Msg("notify")
	r.fireHook(name, data)
	r.events.Dispatch(name, data)
	if r.listener != nil {
		r.listener(name, data)
	}
}

func (r *Room) fireHook(name string, data any) {
	switch name {
	case EventReadyStateChange:
		if r.OnReadyStateChange != nil {
			r.OnReadyStateChange(data.(StateData).State)
		}
	case EventRoomJoin:
		if r.OnJoin != nil {
			r.OnJoin()
		}
	case EventRoomKick:
		if r.OnKick != nil {
			r.OnKick(data.(RedirectData).Reason)
		}
	case EventRoomWarn:
		if r.OnWarn != nil {
			r.OnWarn(data.(RedirectData).Reason)
		}
	case EventRoomLock:
		if r.OnLock != nil {
			r.OnLock(data.(LockData).UserID)
		}
	case EventRoomUnlock:
		if r.OnUnlock != nil {
			r.OnUnlock(data.(LockData).UserID)
		}
	case EventRoomLeave:
		if r.OnLeave != nil {
			r.OnLeave()
		}
	}
}

// Events exposes the many-subscriber bus for message-routing
// collaborators and other listeners.
func (r *Room) Events() *event.Dispatcher { return r.events }

// Self returns the local participant. Nil only before bootstrap
// completed, which no caller of a constructed Room can observe.
func (r *Room) Self() *Self {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.self
}

// State reports the current lifecycle state.
func (r *Room) State() ReadyState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readyState
}

// Locked reports the last applied lock state, optimistic or
// authoritative.
func (r *Room) Locked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked
}

// ICEConfiguration assembles the pion configuration the external
// peer-connection collaborator should dial with.
func (r *Room) ICEConfiguration() webrtc.Configuration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return webrtc.Configuration{ICEServers: append([]webrtc.ICEServer(nil), r.iceServers...)}
}

// setReadyState advances the lifecycle. Transitions are monotonic:
// anything not strictly forward is ignored.
func (r *Room) setReadyState(next ReadyState) {
	r.mu.Lock()
	if next <= r.readyState {
		r.mu.Unlock()
		return
	}
	r.readyState = next
	r.mu.Unlock()
	log.Info().Str("module", "room").Str("room", r.Name).Str("state", next.String()).Msg("ready state")
	r.handler(EventReadyStateChange, StateData{State: next})
}

func (r *Room) send(v any) error {
	r.mu.RLock()
	t := r.transport
	r.mu.RUnlock()
	if t == nil {
		return ErrNoTransport
	}
	return t.Send(v)
}

// Join parses the join settings, attaches the local stream (when
// given) as the reserved "main" connection and asks the transport to
// open. Calling Join again once connecting is an error.
func (r *Room) Join(stream MediaStream, cfg JoinConfig) error {
	switch st := r.State(); {
	case st == StateClosed:
		return ErrRoomClosed
	case st < StateBootstrapped:
		return ErrNotReady
	case st >= StateConnecting:
		return ErrAlreadyJoined
	}

	r.self.Bandwidth = ParseBandwidth(cfg.Bandwidth)
	if cfg.UserData != nil {
		r.self.Data = cfg.UserData
	}

	if stream != nil {
		if err := r.self.AddStreamConnection(stream, MainConnectionID); err != nil {
			return err
		}
	}

	r.setReadyState(StateConnecting)
	log.Info().Str("module", "room").Str("room", r.Name).Msg("joining")
	return r.transport.Connect()
}

// Leave requests the transport disconnect. Registry cleanup runs when
// the router observes the close acknowledgement, not here.
func (r *Room) Leave() error {
	r.mu.RLock()
	t := r.transport
	r.mu.RUnlock()
	if t == nil {
		return ErrNoTransport
	}
	log.Info().Str("module", "room").Str("room", r.Name).Msg("leaving")
	return t.Disconnect()
}

// Lock announces the room as locked. Optimistic-first: the local
// notification fires right after the send; authoritative
// reconciliation arrives later through the message router.
func (r *Room) Lock() error {
	return r.sendLock(true)
}

// Unlock reverses Lock with the same optimistic-first pattern.
func (r *Room) Unlock() error {
	return r.sendLock(false)
}

func (r *Room) sendLock(lock bool) error {
	if err := r.send(lockMessage{
		Type:     "roomLockEvent",
		SenderID: r.self.ID,
		RoomID:   r.ID,
		Lock:     lock,
	}); err != nil {
		return err
	}
	r.applyLock(lock, r.self.ID)
	return nil
}

// applyLock records a lock-state change and raises the matching
// notification, for both the optimistic local path and the
// authoritative one from the router.
func (r *Room) applyLock(lock bool, userID string) {
	r.mu.Lock()
	r.locked = lock
	r.mu.Unlock()
	name := EventRoomUnlock
	if lock {
		name = EventRoomLock
	}
	r.handler(name, LockData{UserID: userID})
}

// AddStreamConnection opens an additional local stream connection
// under a generated id, tags the stream with this room's notification
// handler and announces it to every currently known remote user, one
// notification per user.
func (r *Room) AddStreamConnection(stream MediaStream) (*StreamConnection, error) {
	connectionID := uuid.NewString()
	if err := r.self.AddStreamConnection(stream, connectionID); err != nil {
		return nil, err
	}
	stream.Bind(r.handler)

	conn, _ := r.self.Connection(connectionID)
	for _, u := range r.Users() {
		u.Notify(EventMessageEnter, StreamData{UserID: r.self.ID, ConnectionID: connectionID, Stream: stream})
	}
	return conn, nil
}

// SendDescription rewrites a local session description with the
// session's negotiation config and forwards it to the transport for
// the given target participant.
func (r *Room) SendDescription(desc webrtc.SessionDescription, target string) error {
	cfg := sdp.Config{
		Stereo:      r.opts.Stereo,
		Bandwidth:   r.self.Bandwidth,
		DataChannel: r.opts.DataChannel,
	}
	transformed := sdp.Configure(desc.SDP, cfg)
	log.Debug().Str("module", "room").Str("type", desc.Type.String()).Str("target", target).Msg("sending description")
	return r.send(descriptionMessage{
		Type:     desc.Type.String(),
		SDP:      transformed,
		SenderID: r.self.ID,
		RoomID:   r.ID,
		Target:   target,
	})
}

// AddUser registers a remote participant.
func (r *Room) AddUser(u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

// User looks up a remote participant.
func (r *Room) User(id string) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	return u, ok
}

// Users snapshots the remote participant registry.
func (r *Room) Users() []*User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out
}

// RemoveUser deletes a remote participant and scrubs every stream
// connection that still references it.
func (r *Room) RemoveUser(id string) {
	r.mu.Lock()
	_, ok := r.users[id]
	delete(r.users, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	for _, conn := range r.self.Connections() {
		conn.dropTarget(id)
	}
	log.Info().Str("module", "room").Str("user", id).Msg("user removed")
}

// AddComponent registers a non-participant endpoint such as an MCU.
func (r *Room) AddComponent(c *Component) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[c.ID] = c
}

// Component looks up a registered component.
func (r *Room) Component(id string) (*Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[id]
	return c, ok
}

// RemoveComponent deletes a registered component.
func (r *Room) RemoveComponent(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.components, id)
}
