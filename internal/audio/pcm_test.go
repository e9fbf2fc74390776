package audio

import (
	"bytes"
	"testing"

	"github.com/go-audio/wav"
)

func TestEncodeWAV(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0x10, 0x00, 0xf0, 0xff, 0xff, 0x7f}

	data, err := EncodeWAV(pcm, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		t.Fatal("expected a valid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if dec.SampleRate != 16000 {
		t.Errorf("expected sample rate 16000, got %d", dec.SampleRate)
	}

	want := []int{0, 16, -16, 32767}
	if len(buf.Data) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(buf.Data))
	}
	for i, v := range want {
		if buf.Data[i] != v {
			t.Errorf("sample %d: expected %d, got %d", i, v, buf.Data[i])
		}
	}
}

func TestPCMSampleRate(t *testing.T) {
	tests := []struct {
		mimeType string
		want     int
	}{
		{"audio/pcm", DefaultSampleRate},
		{"audio/pcm;rate=48000", 48000},
		{"audio/pcm;rate=bogus", DefaultSampleRate},
	}
	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			if got := pcmSampleRate(tt.mimeType); got != tt.want {
				t.Errorf("pcmSampleRate(%q) = %d, want %d", tt.mimeType, got, tt.want)
			}
		})
	}
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		wantMIME string
		wantWAV  bool
	}{
		{name: "webm kept", mimeType: "audio/webm;codecs=opus", wantMIME: "audio/webm;codecs=opus"},
		{name: "pcm wrapped", mimeType: "audio/pcm;rate=8000", wantMIME: "audio/wav", wantWAV: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Finalize([]byte{0x01, 0x00, 0x02, 0x00}, tt.mimeType)
			if err != nil {
				t.Fatalf("Finalize: %v", err)
			}
			if a.MIMEType != tt.wantMIME {
				t.Errorf("expected %s, got %s", tt.wantMIME, a.MIMEType)
			}
			if got := bytes.HasPrefix(a.Data, []byte("RIFF")); got != tt.wantWAV {
				t.Errorf("RIFF header = %v, want %v", got, tt.wantWAV)
			}
		})
	}
}
