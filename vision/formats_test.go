package vision

import (
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected ImageFormat
	}{
		{"JPEG", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}, FormatJPEG},
		{"PNG", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}, FormatPNG},
		{"WebP", []byte{'R', 'I', 'F', 'F', 0, 0, 0, 0, 'W', 'E', 'B', 'P'}, FormatWebP},
		{"RIFF ohne WEBP", []byte{'R', 'I', 'F', 'F', 0, 0, 0, 0, 'W', 'A', 'V', 'E'}, FormatUnknown},
		{"BMP", []byte{'B', 'M', 0x36, 0x00, 0x00, 0x00}, FormatBMP},
		{"TIFF little endian", []byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00}, FormatTIFF},
		{"TIFF big endian", []byte{'M', 'M', 0x00, 0x2A, 0x00, 0x08}, FormatTIFF},
		{"GIF", []byte("GIF89a"), FormatGIF},
		{"Zu kurze Daten", []byte{0xFF, 0xD8}, FormatUnknown},
		{"Unbekanntes Format", []byte{0, 0, 0, 0, 0, 0}, FormatUnknown},
		{"Leere Daten", nil, FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.data); got != tt.expected {
				t.Errorf("DetectFormat() = %v, erwartet %v", got, tt.expected)
			}
		})
	}
}

func TestMimeType(t *testing.T) {
	tests := map[ImageFormat]string{
		FormatJPEG:    "image/jpeg",
		FormatPNG:     "image/png",
		FormatTIFF:    "image/tiff",
		FormatUnknown: "application/octet-stream",
	}

	for format, want := range tests {
		if got := format.MimeType(); got != want {
			t.Errorf("%s.MimeType() = %q, erwartet %q", format, got, want)
		}
	}
}
