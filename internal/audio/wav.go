package audio

import (
	"bytes"
	"encoding/binary"
	"time"
)

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
		audioFormat   = 1 // PCM
	)
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	dataSize := uint32(len(pcm))
	byteRate := uint32(sampleRate * numChannels * bitsPerSample / 8)
	blockAlign := uint16(numChannels * bitsPerSample / 8)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binaryWrite(&buf, uint32(36)+dataSize)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binaryWrite(&buf, uint32(16))
	binaryWrite(&buf, uint16(audioFormat))
	binaryWrite(&buf, uint16(numChannels))
	binaryWrite(&buf, uint32(sampleRate))
	binaryWrite(&buf, byteRate)
	binaryWrite(&buf, blockAlign)
	binaryWrite(&buf, uint16(bitsPerSample))

	buf.WriteString("data")
	binaryWrite(&buf, dataSize)
	buf.Write(pcm)
	return buf.Bytes()
}

// SilencePCM16LE returns d worth of silent PCM16LE mono samples.
func SilencePCM16LE(d time.Duration, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	samples := int(float64(sampleRate) * d.Seconds())
	if samples < 0 {
		samples = 0
	}
	return make([]byte, samples*2)
}

func binaryWrite(buf *bytes.Buffer, v any) {
	// bytes.Buffer writes never fail.
	_ = binary.Write(buf, binary.LittleEndian, v)
}
