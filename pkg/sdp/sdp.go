// Package sdp rewrites session descriptions line by line before they
// are handed to the signaling transport. Each rewrite operates in place
// on the CRLF-split lines of an SDP body and preserves the relative
// order of every line it does not touch. A description missing
// an expected line makes the corresponding step a silent no-op, never
// an error, so a session keeps functioning against non-conforming
// peers.
package sdp

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

const lineBreak = "\r\n"

// firefoxH264Line is a known-bad H.264 fallback advertisement some
// agents emit; other agents cannot negotiate it.
const firefoxH264Line = "a=fmtp:0 profile-level-id=0x42e00c;packetization-mode=1"

// Bandwidth holds b=AS values in kbit/s. Zero means unset.
type Bandwidth struct {
	Audio int `json:"audio,omitempty"`
	Video int `json:"video,omitempty"`
	Data  int `json:"data,omitempty"`
}

func (b Bandwidth) isZero() bool {
	return b.Audio == 0 && b.Video == 0 && b.Data == 0
}

// Resolution constrains the receiving video size via fmtp parameters.
// Zero fields fall back to 50 fps at 640x480.
type Resolution struct {
	FrameRate int
	Width     int
	Height    int
}

// Config selects which rewrites Configure applies.
type Config struct {
	// Stereo requests the Opus stereo fmtp flag.
	Stereo bool
	// Bandwidth inserts b=AS lines per media section when set.
	Bandwidth Bandwidth
	// DataChannel gates the data bandwidth line; without data channels
	// an application media section gets no limit.
	DataChannel bool
}

// Split breaks a raw description into its wire-format lines.
func Split(raw string) []string {
	return strings.Split(raw, lineBreak)
}

// Join reassembles lines into a raw description.
func Join(lines []string) string {
	return strings.Join(lines, lineBreak)
}

// Find scans lines from the start and returns the first line whose text
// begins with any of the given prefixes, in line order.
func Find(lines []string, prefixes []string) (int, string, bool) {
	for i, line := range lines {
		for _, p := range prefixes {
			if strings.HasPrefix(line, p) {
				return i, line, true
			}
		}
	}
	return -1, "", false
}

// RemoveH264Support deletes the known-bad H.264 fallback line when
// present verbatim. All other lines keep their order.
func RemoveH264Support(lines []string) []string {
	for i, line := range lines {
		if line == firefoxH264Line {
			log.Debug().Str("module", "sdp").Int("line", i).Msg("dropping invalid H264 pref")
			return append(lines[:i], lines[i+1:]...)
		}
	}
	return lines
}

// AddStereo appends "; stereo=1" to the fmtp line of the Opus payload
// advertised at 48000 Hz. No-op when Opus or its fmtp line is absent.
func AddStereo(lines []string) []string {
	payload := ""
	for _, line := range lines {
		if !strings.HasPrefix(line, "a=rtpmap:") {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		if len(fields) == 2 && strings.HasPrefix(fields[1], "opus/48000/") {
			payload = strings.TrimPrefix(fields[0], "a=rtpmap:")
			break
		}
	}
	if payload == "" {
		return lines
	}
	i, line, ok := Find(lines, []string{"a=fmtp:" + payload})
	if !ok {
		return lines
	}
	lines[i] = line + "; stereo=1"
	return lines
}

// insertAfter keeps the matched line and places a new one right behind
// it, a one-to-two expansion.
func insertAfter(lines []string, i int, line string) []string {
	lines = append(lines, "")
	copy(lines[i+2:], lines[i+1:])
	lines[i+1] = line
	return lines
}

// SetBitrate inserts a b=AS:<value> line after the audio, video and
// application media lines for each bandwidth value that is set. The
// description must carry at least one media/attribute line and one
// connection line, otherwise nothing is touched. The data limit is
// only applied when data channels are enabled for the session.
func SetBitrate(lines []string, bw Bandwidth, dataChannel bool) []string {
	_, _, maFound := Find(lines, []string{"m=", "a="})
	_, _, cFound := Find(lines, []string{"c="})
	if !maFound || !cFound {
		return lines
	}

	if bw.Audio > 0 {
		if i, _, ok := Find(lines, []string{"a=audio", "m=audio"}); ok {
			lines = insertAfter(lines, i, fmt.Sprintf("b=AS:%d", bw.Audio))
		}
	}
	if bw.Video > 0 {
		if i, _, ok := Find(lines, []string{"a=video", "m=video"}); ok {
			lines = insertAfter(lines, i, fmt.Sprintf("b=AS:%d", bw.Video))
		}
	}
	if bw.Data > 0 && dataChannel {
		if i, _, ok := Find(lines, []string{"a=application", "m=application"}); ok {
			lines = insertAfter(lines, i, fmt.Sprintf("b=AS:%d", bw.Data))
		}
	}
	return lines
}

// SetResolution appends receive-side frame rate and size constraints to
// the first fmtp line. Not part of the default Configure pipeline.
func SetResolution(lines []string, res Resolution) []string {
	if res.FrameRate <= 0 {
		res.FrameRate = 50
	}
	if res.Width <= 0 {
		res.Width = 640
	}
	if res.Height <= 0 {
		res.Height = 480
	}
	i, line, ok := Find(lines, []string{"a=fmtp:"})
	if !ok {
		return lines
	}
	lines[i] = fmt.Sprintf("%s;max-fr=%d;max-recv-width=%d;max-recv-height=%d",
		line, res.FrameRate, res.Width, res.Height)
	return lines
}

// Configure applies the default rewrite pipeline to a raw local
// description: H.264 fallback removal, then stereo when requested, then
// bandwidth limits when any value is set.
func Configure(raw string, cfg Config) string {
	lines := Split(raw)

	lines = RemoveH264Support(lines)

	if cfg.Stereo {
		lines = AddStereo(lines)
	}
	if !cfg.Bandwidth.isZero() {
		lines = SetBitrate(lines, cfg.Bandwidth, cfg.DataChannel)
	}

	return Join(lines)
}
