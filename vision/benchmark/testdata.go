// MODUL: testdata
// ZWECK: Synthetische Eingaben fuer Benchmarks
// INPUT: Bildgroesse, Batch-Anzahl, Seed
// OUTPUT: JPEG-Bytes oder Pixel-Daten im (B, C, H, W) Layout
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: image, image/jpeg, math/rand/v2
// HINWEISE: Gradienten-Muster mit Rauschen fuer realistische Kompression

package benchmark

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand/v2"
)

// GenerateBatch erzeugt standardnormalverteilte Pixel fuer (batch, channels, size, size)
func GenerateBatch(seed int64, batch, channels, size int) []float32 {
	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	data := make([]float32, batch*channels*size*size)
	for i := range data {
		data[i] = float32(rng.NormFloat64())
	}
	return data
}

// GenerateTestImage generiert ein JPEG-kodiertes Testbild
func GenerateTestImage(width, height int, seed int64) []byte {
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, gradientImage(width, height, seed), &jpeg.Options{Quality: 85})
	return buf.Bytes()
}

// GenerateTestBatch generiert count Testbilder mit unterschiedlichen Seeds
func GenerateTestBatch(width, height, count int) [][]byte {
	batch := make([][]byte, count)
	for i := range batch {
		batch[i] = GenerateTestImage(width, height, int64(i*1000))
	}
	return batch
}

// gradientImage erstellt ein Bild mit Farbgradient und Rauschen
func gradientImage(width, height int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewPCG(uint64(seed), 1))
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := range height {
		for x := range width {
			nx := float64(x) / float64(width)
			ny := float64(y) / float64(height)
			noise := rng.IntN(21) - 10

			img.SetRGBA(x, y, color.RGBA{
				R: clampUint8(int(nx*255) + noise),
				G: clampUint8(int(ny*255) + noise),
				B: clampUint8(int((nx+ny)/2*255) + noise),
				A: 255,
			})
		}
	}

	return img
}

func clampUint8(v int) uint8 {
	return uint8(min(max(v, 0), 255))
}
