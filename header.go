package ws2md

import (
	"bytes"
	"fmt"
)

// HeaderSize is the size of the binary preamble written by WordStar 5 and later
const HeaderSize = 128

var headerSignature = []byte{0x1D, 0x7D}

type HeaderMode int

const (
	// HeaderAuto skips the preamble only when the file starts with the WordStar 5+ signature
	HeaderAuto HeaderMode = iota
	// HeaderFixed always skips HeaderSize bytes
	HeaderFixed
	// HeaderNone treats the whole input as content (WordStar 3 and 4 files)
	HeaderNone
)

var headerModeNames = map[HeaderMode]string{
	HeaderAuto:  "auto",
	HeaderFixed: "fixed",
	HeaderNone:  "none",
}

func (m HeaderMode) String() string {
	if s, ok := headerModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("HeaderMode(%d)", int(m))
}

// ParseHeaderMode maps a config value onto a HeaderMode
func ParseHeaderMode(s string) (HeaderMode, error) {
	for m, name := range headerModeNames {
		if name == s {
			return m, nil
		}
	}
	return HeaderAuto, fmt.Errorf("unknown header mode %q (want auto, fixed or none)", s)
}

// SkipHeader returns the document content that follows the preamble, and the
// number of bytes skipped
func SkipHeader(raw []byte, mode HeaderMode) ([]byte, int, error) {
	switch mode {
	case HeaderNone:
		return raw, 0, nil
	case HeaderFixed:
		if len(raw) < HeaderSize {
			return nil, 0, fmt.Errorf("input is %d bytes, shorter than the %d byte header", len(raw), HeaderSize)
		}
		return raw[HeaderSize:], HeaderSize, nil
	case HeaderAuto:
		if len(raw) >= HeaderSize && bytes.HasPrefix(raw, headerSignature) {
			return raw[HeaderSize:], HeaderSize, nil
		}
		return raw, 0, nil
	default:
		return nil, 0, fmt.Errorf("unknown header mode %d", mode)
	}
}
