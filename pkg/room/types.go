// Package room implements the client-side session model of a signaling
// room: local and remote participant state, stream-connection
// registries, lifecycle notification fan-out, and the rewrite of local
// session descriptions before they leave for the transport.
//
// The model assumes a single mutator at a time per Room; a concurrent
// host must funnel all mutation of one Room through one goroutine.
package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/telemeet/roomcore/pkg/sdp"
)

// MainConnectionID is the reserved id of the primary local stream
// connection. It is created at most once per Self and its registry
// entry is never erased while the participant remains in the room.
const MainConnectionID = "main"

// ReadyState tracks the room lifecycle. Transitions are monotonic; the
// only way back is constructing a new Room.
type ReadyState int

const (
	StateInit ReadyState = iota
	StateBootstrapped
	StateConnecting
	StateOpen
	StateClosed
)

func (s ReadyState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateBootstrapped:
		return "bootstrapped"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("readystate(%d)", int(s))
	}
}

var (
	ErrNotReady         = errors.New("room not bootstrapped")
	ErrRoomClosed       = errors.New("room closed")
	ErrAlreadyJoined    = errors.New("join already in progress or completed")
	ErrConnectionExists = errors.New("stream connection id already registered")
	ErrUserIDEmpty      = errors.New("user id empty")
	ErrUserIDTooLong    = errors.New("user id too long")
	ErrNoTransport      = errors.New("transport not attached")
)

// NotFoundError reports a lookup of an id this core does not know,
// instead of letting the fault propagate as a nil dereference.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Handler receives a notification name and its payload.
type Handler func(event string, data any)

// Listener is the host-facing notification sink installed at bootstrap.
type Listener func(event string, data any)

// Credentials is the persistent-mode credential window supplied by the
// host and echoed into the bootstrap path.
type Credentials struct {
	StartDateTime string
	Duration      int
	Hash          string
}

// Descriptor is the room metadata resolved by the bootstrap loader.
type Descriptor struct {
	Key           string `json:"cid"`
	ID            string `json:"room_key"`
	Token         string `json:"roomCred"`
	StartDateTime string `json:"start"`
	Duration      int    `json:"len"`
	Owner         string `json:"apiOwner"`
	Username      string `json:"username"`
	UserCred      string `json:"userCred"`
	TimeStamp     string `json:"timeStamp"`
	SignalServer  string `json:"ipSigserver"`
	HTTPPorts     []int  `json:"httpPortList"`
	HTTPSPorts    []int  `json:"httpsPortList"`
}

// Loader fetches a room descriptor from the bootstrap API.
// Owned by the host; this core only issues the request path.
type Loader interface {
	Load(ctx context.Context, path string) (*Descriptor, error)
}

// Transport is the bidirectional signaling connection. Owned by the
// adapter that built it; this core drives Connect/Disconnect and Send
// and consumes its callbacks.
type Transport interface {
	Connect() error
	Disconnect() error
	Send(v any) error
	// OnMessage sets the sink for inbound signaling payloads.
	OnMessage(fn func(data []byte))
	// OnClose sets the callback fired once the connection is gone.
	OnClose(fn func(err error))
}

// TransportFactory builds the signaling transport for a resolved room.
type TransportFactory func(desc *Descriptor) Transport

// MediaStatus mirrors the mute flags of an attached stream.
type MediaStatus struct {
	AudioMuted bool `json:"audioMuted"`
	VideoMuted bool `json:"videoMuted"`
}

// MediaStream is the opaque handle of a captured media stream. The
// capture subsystem owns it; this core only stops it and reads its
// settings.
type MediaStream interface {
	Stop()
	AudioEnabled() bool
	VideoEnabled() bool
	Status() MediaStatus
	// Bind tags the stream with the room's notification handler so the
	// capture subsystem can delegate stream events back through it.
	Bind(h Handler)
}

// Agent describes the local user agent taking part in negotiation.
type Agent struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Type    string `json:"webRTCType"`
}

// Source marks which side a stream connection originated on.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// JoinConfig carries the per-join settings parsed by Room.Join.
type JoinConfig struct {
	UserData  any
	Bandwidth sdp.Bandwidth
}

// ParseBandwidth normalizes a host-supplied bandwidth spec: negative
// values mean unset.
func ParseBandwidth(bw sdp.Bandwidth) sdp.Bandwidth {
	if bw.Audio < 0 {
		bw.Audio = 0
	}
	if bw.Video < 0 {
		bw.Video = 0
	}
	if bw.Data < 0 {
		bw.Data = 0
	}
	return bw
}

// Options configures bootstrap and the session-long negotiation knobs.
type Options struct {
	APIKey      string
	Region      string
	Credentials *Credentials
	UserData    any
	Agent       Agent
	Stereo      bool
	DataChannel bool

	Loader       Loader
	NewTransport TransportFactory
}
