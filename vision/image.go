// MODUL: image
// ZWECK: Bilder laden und auf die Eingabegroesse des Modells bringen
// INPUT: Dateipfad, Bytes oder io.Reader
// OUTPUT: ImageInput mit RGBA-Bild
// NEBENEFFEKTE: Dateisystem-Lesezugriff bei LoadImage
// ABHAENGIGKEITEN: golang.org/x/image (draw, webp, bmp, tiff)
// HINWEISE: Alle Bilder werden nach RGBA konvertiert

package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInput ist ein dekodiertes Bild
type ImageInput struct {
	Image  *image.RGBA
	Format ImageFormat
}

// Width gibt die Breite in Pixeln zurueck
func (img *ImageInput) Width() int {
	return img.Image.Bounds().Dx()
}

// Height gibt die Hoehe in Pixeln zurueck
func (img *ImageInput) Height() int {
	return img.Image.Bounds().Dy()
}

// LoadImage laedt ein Bild von einem Dateipfad
func LoadImage(path string) (*ImageInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("datei lesen fehlgeschlagen: %w", err)
	}
	return Decode(data)
}

// DecodeReader liest alle Daten aus r und dekodiert sie
func DecodeReader(r io.Reader) (*ImageInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("daten lesen fehlgeschlagen: %w", err)
	}
	return Decode(data)
}

// Decode erkennt das Format und dekodiert die Bytes
func Decode(data []byte) (*ImageInput, error) {
	format := DetectFormat(data)
	if format == FormatUnknown {
		return nil, ErrUnknownFormat
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("bild dekodieren fehlgeschlagen (%s): %w", format, err)
	}

	return &ImageInput{Image: toRGBA(img), Format: format}, nil
}

// FromImage umhuellt ein bereits dekodiertes Bild
func FromImage(img image.Image) *ImageInput {
	return &ImageInput{Image: toRGBA(img), Format: FormatUnknown}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}

	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// Composite legt das Bild auf einen einfarbigen Hintergrund und entfernt so Transparenz
func (img *ImageInput) Composite(bg color.Color) *ImageInput {
	dst := image.NewRGBA(img.Image.Bounds())
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img.Image, image.Point{}, draw.Over)
	return &ImageInput{Image: dst, Format: img.Format}
}

// Resize skaliert bilinear auf width x height
func (img *ImageInput) Resize(width, height int) (*ImageInput, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("ungueltige Groesse: %dx%d", width, height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img.Image, img.Image.Bounds(), draw.Src, nil)
	return &ImageInput{Image: dst, Format: img.Format}, nil
}

// CenterCrop schneidet einen zentrierten Bereich aus
func (img *ImageInput) CenterCrop(width, height int) (*ImageInput, error) {
	if width > img.Width() || height > img.Height() {
		return nil, fmt.Errorf("crop groesser als bild: %dx%d > %dx%d", width, height, img.Width(), img.Height())
	}

	x := (img.Width() - width) / 2
	y := (img.Height() - height) / 2

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), img.Image, image.Pt(x, y), draw.Src)
	return &ImageInput{Image: dst, Format: img.Format}, nil
}

// Square skaliert die kuerzere Kante auf size und schneidet mittig size x size aus
func (img *ImageInput) Square(size int) (*ImageInput, error) {
	if size <= 0 {
		return nil, fmt.Errorf("ungueltige Groesse: %d", size)
	}

	w, h := img.Width(), img.Height()
	if w == size && h == size {
		return img, nil
	}

	newW, newH := shortestEdge(w, h, size)
	resized, err := img.Resize(newW, newH)
	if err != nil {
		return nil, err
	}
	return resized.CenterCrop(size, size)
}

// shortestEdge berechnet die Zielgroesse, bei der die kuerzere Kante size ist
func shortestEdge(w, h, size int) (int, int) {
	if w <= h {
		return size, max(size, (h*size+w/2)/w)
	}
	return max(size, (w*size+h/2)/h), size
}
