package testutil

import (
	"testing"

	"github.com/example/kumou/internal/audio"
)

// AssertValidWAV checks that data decodes as a pocket-tts style WAV (24 kHz
// mono 16-bit PCM) with at least one sample.
func AssertValidWAV(tb testing.TB, data []byte) audio.Clip {
	tb.Helper()

	clip, err := audio.DecodeWAV(data)
	if err != nil {
		tb.Fatalf("WAV: %v", err)
	}
	if clip.SampleRate != audio.ExpectedSampleRate {
		tb.Fatalf("WAV: expected sample rate %d, got %d", audio.ExpectedSampleRate, clip.SampleRate)
	}
	if clip.Channels != audio.ExpectedChannels {
		tb.Fatalf("WAV: expected %d channel(s), got %d", audio.ExpectedChannels, clip.Channels)
	}
	if clip.Frames() == 0 {
		tb.Fatal("WAV: data chunk contains zero samples")
	}
	return clip
}

// AssertWAVDurationApprox asserts that the WAV audio duration falls within
// [minSec, maxSec].
func AssertWAVDurationApprox(tb testing.TB, data []byte, minSec, maxSec float64) {
	tb.Helper()

	clip, err := audio.DecodeWAV(data)
	if err != nil {
		tb.Fatalf("WAV duration check: %v", err)
	}

	durationSec := clip.Duration().Seconds()
	if durationSec < minSec || durationSec > maxSec {
		tb.Fatalf("WAV duration %.3fs out of expected range [%.3fs, %.3fs]", durationSec, minSec, maxSec)
	}
}
