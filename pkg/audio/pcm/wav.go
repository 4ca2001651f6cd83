package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Int16Bytes converts the clip back to little-endian 16-bit PCM,
// clipping samples outside [-1, 1].
func (c Clip) Int16Bytes() []byte {
	out := make([]byte, 2*len(c.Samples))
	for i, s := range c.Samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(math.Round(s * 32767))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}

// EncodeWAV wraps the clip in a mono 16-bit WAV container for upload to
// services that require a file format rather than raw PCM.
func EncodeWAV(c Clip) []byte {
	data := c.Int16Bytes()
	rate := c.SampleRate
	if rate == 0 {
		rate = SampleRate
	}

	buf := make([]byte, 44+len(data))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+len(data)))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:], uint32(rate))
	binary.LittleEndian.PutUint32(buf[28:], uint32(rate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:], 2)              // block align
	binary.LittleEndian.PutUint16(buf[34:], 16)             // bits per sample

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(len(data)))
	copy(buf[44:], data)

	return buf
}

// ErrBadWAV is returned by DecodeWAV for data that is not mono 16-bit
// PCM WAV.
var ErrBadWAV = errors.New("pcm: not a mono 16-bit PCM WAV")

// DecodeWAV parses a mono 16-bit PCM WAV file produced by EncodeWAV or
// an equivalent encoder. Other formats are rejected.
func DecodeWAV(data []byte, origin Source) (Clip, error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, ErrBadWAV
	}

	var rate int
	var samples []byte

	// Walk chunks; fmt and data can be separated by extension chunks.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			return Clip{}, fmt.Errorf("%w: truncated %s chunk", ErrBadWAV, id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Clip{}, ErrBadWAV
			}
			format := binary.LittleEndian.Uint16(data[body:])
			channels := binary.LittleEndian.Uint16(data[body+2:])
			bits := binary.LittleEndian.Uint16(data[body+14:])
			if format != 1 || channels != 1 || bits != 16 {
				return Clip{}, ErrBadWAV
			}
			rate = int(binary.LittleEndian.Uint32(data[body+4:]))
		case "data":
			samples = data[body : body+size]
		}

		off = body + size
		if size%2 == 1 {
			off++ // chunks are word aligned
		}
	}

	if rate == 0 || samples == nil {
		return Clip{}, ErrBadWAV
	}
	return FromInt16(samples, rate, origin), nil
}
