package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pcmFromSamples(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

func TestMeasureLevelSilence(t *testing.T) {
	level := MeasureLevel(pcmFromSamples(make([]int16, 160)))
	assert.Equal(t, 0, level.Percent)
	assert.False(t, level.Clipping)
}

func TestMeasureLevelEmpty(t *testing.T) {
	assert.Equal(t, Level{}, MeasureLevel(nil))
	assert.Equal(t, Level{}, MeasureLevel([]byte{0x01}))
}

func TestMeasureLevelFullScaleClips(t *testing.T) {
	samples := make([]int16, 160)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = math.MaxInt16
		} else {
			samples[i] = math.MinInt16
		}
	}

	level := MeasureLevel(pcmFromSamples(samples))
	assert.True(t, level.Clipping)
	assert.GreaterOrEqual(t, level.Percent, 95)
	assert.LessOrEqual(t, level.Percent, 100)
}

func TestMeasureLevelMonotonic(t *testing.T) {
	quiet := make([]int16, 160)
	loud := make([]int16, 160)
	for i := range quiet {
		quiet[i] = 200
		loud[i] = 8000
	}

	q := MeasureLevel(pcmFromSamples(quiet))
	l := MeasureLevel(pcmFromSamples(loud))
	assert.Less(t, q.Percent, l.Percent)
}
