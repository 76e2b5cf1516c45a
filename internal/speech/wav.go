package speech

import (
	"encoding/binary"
	"errors"
)

var (
	errWavShort  = errors.New("speech: wav shorter than its header")
	errWavHeader = errors.New("speech: missing RIFF/WAVE signature")
	errWavNoData = errors.New("speech: wav has no data chunk")
)

const riffHeaderLen = 12

// extractPCM returns the payload of the first "data" chunk. Azure's riff
// formats put fmt first, but LIST and other chunks may precede data.
func extractPCM(wav []byte) ([]byte, error) {
	if len(wav) < 44 {
		return nil, errWavShort
	}
	if string(wav[:4]) != "RIFF" || string(wav[8:riffHeaderLen]) != "WAVE" {
		return nil, errWavHeader
	}

	for off := riffHeaderLen; off+8 <= len(wav); {
		id := string(wav[off : off+4])
		size := int(binary.LittleEndian.Uint32(wav[off+4 : off+8]))
		body := off + 8
		if id == "data" {
			return wav[body:min(body+size, len(wav))], nil
		}
		// odd sizes carry one pad byte
		off = body + size + size&1
	}
	return nil, errWavNoData
}
