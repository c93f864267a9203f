// MODUL: formats
// ZWECK: Bildformat-Erkennung anhand von Magic-Bytes
// INPUT: Bild-Bytes
// OUTPUT: ImageFormat, Fehler bei unbekanntem Format
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: keine
// HINWEISE: JPEG, PNG, WebP, BMP, TIFF (beide Byte-Orders) und GIF

package vision

import (
	"bytes"
	"errors"
)

// ImageFormat ist ein erkanntes Bildformat
type ImageFormat string

const (
	FormatJPEG    ImageFormat = "jpeg"
	FormatPNG     ImageFormat = "png"
	FormatWebP    ImageFormat = "webp"
	FormatBMP     ImageFormat = "bmp"
	FormatTIFF    ImageFormat = "tiff"
	FormatGIF     ImageFormat = "gif"
	FormatUnknown ImageFormat = "unknown"
)

// ErrUnknownFormat wird zurueckgegeben wenn keine Signatur passt
var ErrUnknownFormat = errors.New("vision: unbekanntes Bildformat")

type signature struct {
	format ImageFormat
	magic  []byte
}

var signatures = []signature{
	{FormatJPEG, []byte{0xFF, 0xD8, 0xFF}},
	{FormatPNG, []byte{0x89, 'P', 'N', 'G'}},
	{FormatGIF, []byte("GIF8")},
	{FormatBMP, []byte("BM")},
	{FormatTIFF, []byte{'I', 'I', 0x2A, 0x00}},
	{FormatTIFF, []byte{'M', 'M', 0x00, 0x2A}},
}

// DetectFormat erkennt das Bildformat anhand der ersten Bytes
func DetectFormat(data []byte) ImageFormat {
	if len(data) < 4 {
		return FormatUnknown
	}

	for _, s := range signatures {
		if bytes.HasPrefix(data, s.magic) {
			return s.format
		}
	}

	// RIFF....WEBP
	if len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return FormatWebP
	}

	return FormatUnknown
}

// MimeType gibt den MIME-Type fuer ein Format zurueck
func (f ImageFormat) MimeType() string {
	switch f {
	case FormatUnknown:
		return "application/octet-stream"
	default:
		return "image/" + string(f)
	}
}

func (f ImageFormat) String() string {
	return string(f)
}
