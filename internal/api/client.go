// Package api implements the bootstrap loader against the room API.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/telemeet/roomcore/pkg/room"
)

// Client fetches room descriptors over HTTP. It implements room.Loader.
type Client struct {
	base string
	http *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		base: base,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Load(ctx context.Context, path string) (*room.Descriptor, error) {
	url := c.base + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build bootstrap request: %w", err)
	}

	log.Debug().Str("module", "api").Str("url", url).Msg("loading room descriptor")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bootstrap request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("bootstrap request: unexpected status %s", resp.Status)
	}

	var desc room.Descriptor
	if err := json.NewDecoder(resp.Body).Decode(&desc); err != nil {
		return nil, fmt.Errorf("decode room descriptor: %w", err)
	}
	log.Info().Str("module", "api").Str("room_key", desc.ID).Str("sigserver", desc.SignalServer).Msg("room descriptor loaded")
	return &desc, nil
}
