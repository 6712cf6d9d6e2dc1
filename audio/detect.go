package audio

import (
	"bytes"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// HeaderSize is the number of leading bytes read for detection.
const HeaderSize = 64

// mimeFormats maps detected MIME types to formats. Detection walks up the
// MIME hierarchy, so ftyp brands without an entry land on video/mp4 and
// codec-specific ogg types land on application/ogg.
var mimeFormats = map[string]Format{
	"audio/wav":       FormatWAV,
	"audio/flac":      FormatFLAC,
	"application/ogg": FormatOGG,
	"audio/mpeg":      FormatMP3,
	"audio/x-m4a":     FormatM4A,
	"video/mp4":       FormatMP4,
}

// m4aBrands are iTunes audio brands mimetype files under audio/mp4.
var m4aBrands = [][]byte{[]byte("M4B "), []byte("M4P ")}

// DetectBytes identifies the container format from the first bytes of the
// content. It returns false, not an error, when no signature matches.
func DetectBytes(header []byte) (Format, bool) {
	for m := mimetype.Detect(header); m != nil; m = m.Parent() {
		f, ok := mimeFormats[m.String()]
		if !ok {
			continue
		}
		if f == FormatMP4 && hasBrand(header, m4aBrands) {
			return FormatM4A, true
		}
		return f, true
	}
	// A STREAMINFO block flagged as the last metadata block.
	if bytes.HasPrefix(header, []byte("fLaC\x80")) {
		return FormatFLAC, true
	}
	return FormatUnknown, false
}

func hasBrand(header []byte, brands [][]byte) bool {
	if len(header) < 12 {
		return false
	}
	for _, b := range brands {
		if bytes.Equal(header[8:12], b) {
			return true
		}
	}
	return false
}

// DetectReader reads up to HeaderSize bytes from r and detects their format.
func DetectReader(r io.Reader) (Format, bool, error) {
	header := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, false, err
	}
	f, ok := DetectBytes(header[:n])
	return f, ok, nil
}
