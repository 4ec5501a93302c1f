package beat

import "encoding/binary"

// WAV container layout constants.
const (
	wavHeaderSize  = 44
	fmtChunkSize   = 16
	pcmFormat      = 1
	bitsPerSample  = 16
	bytesPerSample = 2
	riffOverhead   = 36
)

// EncodeWAV wraps interleaved 16-bit PCM samples in a canonical uncompressed
// WAV container: a RIFF header, a 16-byte PCM "fmt " chunk, and a "data"
// chunk with the little-endian samples.
func EncodeWAV(samples []int16, sampleRate, channels int) []byte {
	dataSize := len(samples) * bytesPerSample
	byteRate := sampleRate * channels * bytesPerSample
	blockAlign := channels * bytesPerSample

	buf := make([]byte, 0, wavHeaderSize+dataSize)

	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(riffOverhead+dataSize))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, fmtChunkSize)
	buf = binary.LittleEndian.AppendUint16(buf, pcmFormat)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(byteRate))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, bitsPerSample)

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))

	for _, sample := range samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(sample))
	}

	return buf
}
