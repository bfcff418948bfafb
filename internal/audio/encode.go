package audio

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"
)

// Silence returns a mono clip of d at sampleRate with every sample zero.
func Silence(d time.Duration, sampleRate int) Clip {
	n := int(d * time.Duration(sampleRate) / time.Second)
	return Clip{Samples: make([]float32, n), SampleRate: sampleRate, Channels: 1}
}

// EncodeWAV encodes a clip as 16-bit PCM WAV. A zero sample rate or channel
// count falls back to the pocket-tts output format.
func EncodeWAV(c Clip) ([]byte, error) {
	rate := c.SampleRate
	if rate == 0 {
		rate = ExpectedSampleRate
	}
	chans := c.Channels
	if chans == 0 {
		chans = ExpectedChannels
	}

	sw := &seekBuffer{}
	enc := wav.NewEncoder(sw, rate, ExpectedBitDepth, chans, 1) // 1 = PCM

	pcm := &goaudio.Float32Buffer{
		Data:           c.Samples,
		Format:         &goaudio.Format{SampleRate: rate, NumChannels: chans},
		SourceBitDepth: ExpectedBitDepth,
	}
	if err := enc.Write(pcm); err != nil {
		return nil, fmt.Errorf("writing PCM: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing encoder: %w", err)
	}

	return sw.buf.Bytes(), nil
}

// seekBuffer is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch chunk sizes on Close.
type seekBuffer struct {
	buf bytes.Buffer
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if s.pos == s.buf.Len() {
		n, err := s.buf.Write(p)
		s.pos += n
		return n, err
	}
	data := s.buf.Bytes()
	n := copy(data[s.pos:], p)
	if n < len(p) {
		s.buf.Write(p[n:])
	}
	s.pos += len(p)
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = s.pos + int(offset)
	case io.SeekEnd:
		next = s.buf.Len() + int(offset)
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 || next > s.buf.Len() {
		return 0, fmt.Errorf("seek to %d outside buffer", next)
	}
	s.pos = next
	return int64(next), nil
}
