package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"mime"
	"strconv"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

const (
	DefaultSampleRate = 16000
	pcmBitDepth       = 16
	pcmChannels       = 1
	wavFormatPCM      = 1
)

// pcmSampleRate returns the sample rate declared by an audio/pcm MIME type,
// e.g. "audio/pcm;rate=48000".
func pcmSampleRate(mimeType string) int {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return DefaultSampleRate
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return DefaultSampleRate
	}
	return rate
}

func pcmToInts(pcm []byte) []int {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return samples
}

// Finalize turns captured bytes into an artifact. Raw audio/pcm is wrapped
// in a WAV container; every other type is kept as is.
func Finalize(data []byte, mimeType string) (*Artifact, error) {
	if BaseType(mimeType) != "audio/pcm" {
		return NewArtifact(data, mimeType), nil
	}
	encoded, err := EncodeWAV(data, pcmSampleRate(mimeType))
	if err != nil {
		return nil, err
	}
	return &Artifact{Data: encoded, MIMEType: "audio/wav"}, nil
}

// EncodeWAV wraps 16-bit little-endian mono PCM in a WAV container.
func EncodeWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}

	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: pcmChannels,
			SampleRate:  sampleRate,
		},
		Data:           pcmToInts(pcm),
		SourceBitDepth: pcmBitDepth,
	}

	out := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(out, sampleRate, pcmBitDepth, pcmChannels, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close wav encoder: %w", err)
	}

	return io.ReadAll(out.Reader())
}
