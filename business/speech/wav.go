package speech

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"
)

const (
	wavSampleRate    = 16000
	wavChannels      = 1
	wavBitsPerSample = 16
	wavHeaderSize    = 44
)

// writeSilence writes d of silent 16 kHz mono 16-bit PCM to path as a WAV
// file and returns the file size.
func writeSilence(path string, d time.Duration) (int64, error) {
	samples := int(d.Seconds() * wavSampleRate)
	blockAlign := wavChannels * wavBitsPerSample / 8
	dataSize := samples * blockAlign

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	w := bufio.NewWriter(f)
	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(wavHeaderSize - 8 + dataSize),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16), // PCM fmt chunk size
		uint16(1),  // PCM
		uint16(wavChannels),
		uint32(wavSampleRate),
		uint32(wavSampleRate * blockAlign),
		uint16(blockAlign),
		uint16(wavBitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		uint32(dataSize),
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			f.Close()
			return 0, err
		}
	}
	if _, err := w.Write(make([]byte, dataSize)); err != nil {
		f.Close()
		return 0, err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}

	return int64(wavHeaderSize + dataSize), nil
}
