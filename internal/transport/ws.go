// Package transport provides the websocket signaling transport the
// session model drives. Connection fallback across the descriptor's
// port lists and reconnection backoff live with the server deployment,
// not here: this dialer takes the first advertised port.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/telemeet/roomcore/pkg/room"
)

var ErrBackpressure = errors.New("backpressure")

const (
	writeDeadline = 5 * time.Second
	sendBuffer    = 32
)

// WS is a gorilla/websocket implementation of room.Transport.
type WS struct {
	url string

	mu     sync.RWMutex
	conn   *websocket.Conn
	send   chan []byte
	closed bool

	onMessage func(data []byte)
	onClose   func(err error)
}

// New builds the transport for a resolved room descriptor.
func New(desc *room.Descriptor) *WS {
	scheme, port := "ws", 80
	if len(desc.HTTPSPorts) > 0 {
		scheme, port = "wss", desc.HTTPSPorts[0]
	} else if len(desc.HTTPPorts) > 0 {
		port = desc.HTTPPorts[0]
	}
	return &WS{
		url: fmt.Sprintf("%s://%s/", scheme, desc.SignalServer+":"+strconv.Itoa(port)),
	}
}

// NewFactory adapts New to the room.TransportFactory signature.
func NewFactory() room.TransportFactory {
	return func(desc *room.Descriptor) room.Transport {
		return New(desc)
	}
}

func (w *WS) OnMessage(fn func(data []byte)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onMessage = fn
}

func (w *WS) OnClose(fn func(err error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onClose = fn
}

func (w *WS) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(w.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", w.url, err)
	}

	w.mu.Lock()
	w.conn = conn
	w.send = make(chan []byte, sendBuffer)
	w.closed = false
	w.mu.Unlock()

	log.Info().Str("module", "transport").Str("url", w.url).Msg("connected")
	go w.writePump()
	go w.readPump()
	return nil
}

// Send marshals v and queues it on the write pump. A full buffer is a
// backpressure error rather than a blocked session model.
func (w *WS) Send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed || w.conn == nil {
		return errors.New("connection closed")
	}
	select {
	case w.send <- b:
		return nil
	default:
		return ErrBackpressure
	}
}

func (w *WS) Disconnect() error {
	w.close(nil)
	return nil
}

func (w *WS) close(err error) {
	w.mu.Lock()
	if w.closed || w.conn == nil {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.send)
	_ = w.conn.Close()
	onClose := w.onClose
	w.mu.Unlock()

	log.Info().Str("module", "transport").Str("url", w.url).Msg("closed")
	if onClose != nil {
		onClose(err)
	}
}

func (w *WS) writePump() {
	w.mu.RLock()
	conn, send := w.conn, w.send
	w.mu.RUnlock()

	for data := range send {
		if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
			log.Error().Err(err).Str("module", "transport").Msg("writePump set deadline")
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Error().Err(err).Str("module", "transport").Msg("writePump write error")
			return
		}
	}
}

func (w *WS) readPump() {
	w.mu.RLock()
	conn, onMessage := w.conn, w.onMessage
	w.mu.RUnlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = nil
			}
			w.close(err)
			return
		}
		if onMessage != nil {
			onMessage(data)
		}
	}
}
