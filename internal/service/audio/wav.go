package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// PCM моно-сэмплы PCM16 с частотой дискретизации.
type PCM struct {
	Samples    []int16
	SampleRate int
}

// DecodeWAV читает WAV и возвращает моно PCM16. Многоканальный звук усредняется.
func DecodeWAV(r io.ReadSeeker) (PCM, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return PCM{}, errors.New("wav: неверный или неподдерживаемый файл")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("wav: read pcm: %w", err)
	}
	chans := int(dec.NumChans)
	if chans <= 0 {
		chans = 1
	}
	shift := int(dec.BitDepth) - 16

	frames := len(buf.Data) / chans
	out := make([]int16, frames)
	for i := range frames {
		sum := 0
		for c := range chans {
			sum += buf.Data[i*chans+c]
		}
		v := sum / chans
		if dec.BitDepth == 8 {
			v -= 128 // 8-битный WAV беззнаковый
		}
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			v <<= -shift
		}
		out[i] = int16(max(-32768, min(32767, v)))
	}
	return PCM{Samples: out, SampleRate: int(dec.SampleRate)}, nil
}
