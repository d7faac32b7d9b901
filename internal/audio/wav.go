package audio

import (
	"bytes"
	"encoding/binary"
)

// Synthesized speech is raw PCM with these fixed properties.
const (
	Channels      = 1
	SampleRate    = 24000
	BitsPerSample = 16
)

const wavHeaderSize = 44

// EncodeWAV wraps little-endian 16-bit PCM samples in a RIFF/WAVE container.
func EncodeWAV(pcm []byte) []byte {
	blockAlign := Channels * BitsPerSample / 8
	byteRate := SampleRate * blockAlign
	dataLen := len(pcm)

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+dataLen))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16)) // PCM chunk size
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM format
	_ = binary.Write(buf, binary.LittleEndian, uint16(Channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(SampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(BitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)
	return buf.Bytes()
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}
