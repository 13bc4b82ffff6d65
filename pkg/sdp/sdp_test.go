package sdp_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/telemeet/roomcore/pkg/sdp"
)

func lines(ls ...string) []string {
	return append([]string(nil), ls...)
}

// --- Find ---

func TestFind(t *testing.T) {
	ls := lines("v=0", "o=- 0 0 IN IP4 127.0.0.1", "m=audio 9 RTP/AVP 111", "a=rtpmap:111 opus/48000/2")

	i, line, ok := sdp.Find(ls, []string{"a=audio", "m=audio"})
	if !ok || i != 2 || line != "m=audio 9 RTP/AVP 111" {
		t.Errorf("Find audio: got (%d, %q, %v)", i, line, ok)
	}

	if _, _, ok := sdp.Find(ls, []string{"m=video"}); ok {
		t.Error("Find reported a match for an absent prefix")
	}
}

// --- AddStereo ---

func TestAddStereo(t *testing.T) {
	ls := lines(
		"v=0",
		"a=rtpmap:111 opus/48000/2",
		"a=fmtp:111 minptime=10",
		"a=rtpmap:0 PCMU/8000",
	)

	got := sdp.AddStereo(ls)

	if got[2] != "a=fmtp:111 minptime=10; stereo=1" {
		t.Errorf("fmtp line: got %q", got[2])
	}
	if len(got) != 4 {
		t.Errorf("line count changed: got %d, want 4", len(got))
	}
	if got[0] != "v=0" || got[1] != "a=rtpmap:111 opus/48000/2" || got[3] != "a=rtpmap:0 PCMU/8000" {
		t.Errorf("untouched lines changed: %v", got)
	}
}

func TestAddStereoSkipsNonOpusRtpmap(t *testing.T) {
	// The Opus rtpmap is not the first one; it must still be found.
	ls := lines(
		"a=rtpmap:0 PCMU/8000",
		"a=rtpmap:111 opus/48000/2",
		"a=fmtp:111 minptime=10",
	)
	got := sdp.AddStereo(ls)
	if got[2] != "a=fmtp:111 minptime=10; stereo=1" {
		t.Errorf("fmtp line: got %q", got[2])
	}
}

func TestAddStereoNoOpus(t *testing.T) {
	ls := lines("a=rtpmap:0 PCMU/8000", "a=fmtp:0 something")
	got := sdp.AddStereo(append([]string(nil), ls...))
	if !reflect.DeepEqual(got, ls) {
		t.Errorf("no-op expected: got %v", got)
	}
}

func TestAddStereoNoFmtp(t *testing.T) {
	ls := lines("a=rtpmap:111 opus/48000/2")
	got := sdp.AddStereo(append([]string(nil), ls...))
	if !reflect.DeepEqual(got, ls) {
		t.Errorf("no-op expected without fmtp: got %v", got)
	}
}

// --- RemoveH264Support ---

func TestRemoveH264Support(t *testing.T) {
	bad := "a=fmtp:0 profile-level-id=0x42e00c;packetization-mode=1"
	ls := lines("v=0", bad, "a=rtpmap:0 PCMU/8000")

	got := sdp.RemoveH264Support(ls)

	if len(got) != 2 {
		t.Fatalf("line count: got %d, want 2", len(got))
	}
	if got[0] != "v=0" || got[1] != "a=rtpmap:0 PCMU/8000" {
		t.Errorf("wrong line removed: %v", got)
	}
}

func TestRemoveH264SupportAbsent(t *testing.T) {
	ls := lines("v=0", "a=rtpmap:0 PCMU/8000")
	got := sdp.RemoveH264Support(append([]string(nil), ls...))
	if !reflect.DeepEqual(got, ls) {
		t.Errorf("output must equal input when the line is absent: got %v", got)
	}
}

// --- SetBitrate ---

func TestSetBitrateAudio(t *testing.T) {
	ls := lines(
		"v=0",
		"c=IN IP4 0.0.0.0",
		"m=audio 9 RTP/AVP 111",
		"a=rtpmap:111 opus/48000/2",
	)

	got := sdp.SetBitrate(ls, sdp.Bandwidth{Audio: 50}, false)

	if len(got) != 5 {
		t.Fatalf("line count: got %d, want 5", len(got))
	}
	if got[2] != "m=audio 9 RTP/AVP 111" {
		t.Errorf("media line replaced: got %q", got[2])
	}
	if got[3] != "b=AS:50" {
		t.Errorf("bandwidth line: got %q, want b=AS:50", got[3])
	}
	for _, line := range got {
		if strings.HasPrefix(line, "b=AS:") && line != "b=AS:50" {
			t.Errorf("unexpected bandwidth line %q", line)
		}
	}
}

func TestSetBitrateDataRequiresDataChannel(t *testing.T) {
	ls := lines(
		"c=IN IP4 0.0.0.0",
		"m=application 9 UDP/DTLS/SCTP webrtc-datachannel",
	)

	got := sdp.SetBitrate(append([]string(nil), ls...), sdp.Bandwidth{Data: 200}, false)
	if len(got) != 2 {
		t.Errorf("data limit applied without data channels: %v", got)
	}

	got = sdp.SetBitrate(append([]string(nil), ls...), sdp.Bandwidth{Data: 200}, true)
	if len(got) != 3 || got[2] != "b=AS:200" {
		t.Errorf("data limit missing: %v", got)
	}
}

func TestSetBitrateNeedsConnectionLine(t *testing.T) {
	ls := lines("m=audio 9 RTP/AVP 111")
	got := sdp.SetBitrate(append([]string(nil), ls...), sdp.Bandwidth{Audio: 50}, false)
	if len(got) != 1 {
		t.Errorf("bitrate applied without a c= line: %v", got)
	}
}

// --- SetResolution ---

func TestSetResolutionDefaults(t *testing.T) {
	ls := lines("a=fmtp:111 minptime=10")
	got := sdp.SetResolution(ls, sdp.Resolution{})
	want := "a=fmtp:111 minptime=10;max-fr=50;max-recv-width=640;max-recv-height=480"
	if got[0] != want {
		t.Errorf("got %q, want %q", got[0], want)
	}
}

func TestSetResolutionConfigured(t *testing.T) {
	ls := lines("a=fmtp:111 minptime=10")
	got := sdp.SetResolution(ls, sdp.Resolution{FrameRate: 30, Width: 1280, Height: 720})
	want := "a=fmtp:111 minptime=10;max-fr=30;max-recv-width=1280;max-recv-height=720"
	if got[0] != want {
		t.Errorf("got %q, want %q", got[0], want)
	}
}

// --- Configure ---

func TestConfigurePipeline(t *testing.T) {
	raw := strings.Join([]string{
		"v=0",
		"c=IN IP4 0.0.0.0",
		"m=audio 9 RTP/AVP 111",
		"a=rtpmap:111 opus/48000/2",
		"a=fmtp:111 minptime=10",
		"a=fmtp:0 profile-level-id=0x42e00c;packetization-mode=1",
	}, "\r\n")

	got := sdp.Configure(raw, sdp.Config{
		Stereo:    true,
		Bandwidth: sdp.Bandwidth{Audio: 50},
	})

	want := strings.Join([]string{
		"v=0",
		"c=IN IP4 0.0.0.0",
		"m=audio 9 RTP/AVP 111",
		"b=AS:50",
		"a=rtpmap:111 opus/48000/2",
		"a=fmtp:111 minptime=10; stereo=1",
	}, "\r\n")

	if got != want {
		t.Errorf("pipeline output:\n%q\nwant:\n%q", got, want)
	}
}

func TestConfigureNoChanges(t *testing.T) {
	raw := "v=0\r\nm=audio 9 RTP/AVP 0\r\na=rtpmap:0 PCMU/8000"
	got := sdp.Configure(raw, sdp.Config{})
	if got != raw {
		t.Errorf("default config must leave the description alone:\n%q", got)
	}
}
