package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Minimal RIFF/WAVE codec. Supports the PCM encodings uploads actually use
// (16-bit, 32-bit int, 32-bit float); everything else goes through ffmpeg.

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

var errNotWAV = errors.New("not a RIFF/WAVE stream")

func isWAV(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WAVE"
}

// decodeWAV returns interleaved float32 samples plus the sample rate and
// channel count declared by the fmt chunk.
func decodeWAV(data []byte) ([]float32, int, int, error) {
	if !isWAV(data) {
		return nil, 0, 0, errNotWAV
	}

	var (
		format     uint16
		channels   uint16
		rate       uint32
		bits       uint16
		haveFormat bool
	)

	// Walk chunks after the 12-byte RIFF header.
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, 0, errors.New("wav: short fmt chunk")
			}
			format = binary.LittleEndian.Uint16(data[body : body+2])
			channels = binary.LittleEndian.Uint16(data[body+2 : body+4])
			rate = binary.LittleEndian.Uint32(data[body+4 : body+8])
			bits = binary.LittleEndian.Uint16(data[body+14 : body+16])
			haveFormat = true
		case "data":
			if !haveFormat {
				return nil, 0, 0, errors.New("wav: data chunk before fmt")
			}
			samples, err := decodePCM(data[body:body+size], format, bits)
			if err != nil {
				return nil, 0, 0, err
			}
			if channels == 0 || rate == 0 {
				return nil, 0, 0, errors.New("wav: invalid fmt chunk")
			}
			return samples, int(rate), int(channels), nil
		}

		// Chunks are word-aligned.
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}
	return nil, 0, 0, errors.New("wav: no data chunk")
}

func decodePCM(raw []byte, format, bits uint16) ([]float32, error) {
	switch {
	case format == wavFormatPCM && bits == 16:
		n := len(raw) / 2
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
			out[i] = float32(v) / 32768.0
		}
		return out, nil
	case format == wavFormatPCM && bits == 32:
		n := len(raw) / 4
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := int32(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
			out[i] = float32(float64(v) / 2147483648.0)
		}
		return out, nil
	case format == wavFormatFloat && bits == 32:
		n := len(raw) / 4
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("wav: unsupported encoding (format=%d bits=%d)", format, bits)
	}
}

// EncodeWAV serializes mono float32 samples as a 16-bit PCM WAV file.
// Used to hand sample windows to transcription backends that take files.
func EncodeWAV(samples []float32, rate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(rate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(rate*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], 2)              // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)             // bits per sample

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.LittleEndian.PutUint16(buf[44+i*2:46+i*2], uint16(int16(s*32767)))
	}
	return buf
}
