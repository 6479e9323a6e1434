package audio

import (
	"encoding/binary"
	"math"
)

// Level is a coarse input-level reading for UI feedback.
type Level struct {
	Percent  int
	Clipping bool
}

// MeasureLevel computes the RMS level of 16-bit little-endian PCM, scaled
// to 0-100, and whether any sample hit full scale.
func MeasureLevel(pcm []byte) Level {
	if len(pcm) < 2 {
		return Level{}
	}

	var sum float64
	clipping := false
	count := len(pcm) / 2

	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		v := float64(sample)
		sum += v * v
		if sample == math.MaxInt16 || sample == math.MinInt16 {
			clipping = true
		}
	}

	rms := math.Sqrt(sum / float64(count))
	if rms == 0 {
		return Level{Clipping: clipping}
	}

	// Map -60..-10 dBFS onto 0..100.
	db := 20 * math.Log10(rms/32768.0)
	scaled := (db + 60) * (100.0 / 50.0)
	if clipping {
		scaled = math.Max(scaled, 95)
	}
	if scaled < 0 {
		scaled = 0
	} else if scaled > 100 {
		scaled = 100
	}

	return Level{Percent: int(scaled), Clipping: clipping}
}
