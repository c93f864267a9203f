// Package api - Request- und Response-Typen der vit REST API.
// Enthaelt: StatusError, ClassifyRequest/Response, ShowResponse, VersionResponse
package api

import (
	"fmt"
	"time"

	"github.com/ollama/vit/model"
)

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`

	// Code ist der maschinenlesbare Fehler-Code des Servers (z.B. INVALID_IMAGE)
	Code string `json:"code"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the vit server logs for details"
	}
}

// VersionResponse ist die Antwort von GET /api/version
type VersionResponse struct {
	Version string `json:"version"`
}

// ClassifyRequest - Anfrage fuer die Klassifikation eines Bild-Batches.
// Endpoint: POST /api/classify
//
// Genau eines von Images und Pixels muss gesetzt sein.
type ClassifyRequest struct {
	// Images sind Base64-kodierte Bilder (optional mit data: URL Praefix)
	Images []string `json:"images,omitempty"`

	// Pixels sind bereits normalisierte Bilder im CHW Layout,
	// je Bild channels*image_size*image_size Werte
	Pixels [][]float32 `json:"pixels,omitempty"`

	// TopK ist die Anzahl zurueckgegebener Klassen pro Bild (Default 5)
	TopK int `json:"top_k,omitempty"`

	// Logits gibt zusaetzlich den vollstaendigen Logit-Vektor zurueck
	Logits bool `json:"logits,omitempty"`
}

// Prediction ist eine Klasse mit Logit und Wahrscheinlichkeit
type Prediction struct {
	Index       int     `json:"index"`
	Label       string  `json:"label,omitempty"`
	Logit       float32 `json:"logit"`
	Probability float32 `json:"probability"`
}

// Classification ist das Ergebnis fuer ein einzelnes Bild
type Classification struct {
	Top    []Prediction `json:"top"`
	Logits []float32    `json:"logits,omitempty"`
}

// ClassifyResponse ist die Antwort von POST /api/classify
type ClassifyResponse struct {
	Results       []Classification `json:"results"`
	TotalDuration time.Duration    `json:"total_duration"`
}

// TensorInfo beschreibt einen Parameter-Tensor
type TensorInfo struct {
	Name     string `json:"name"`
	Shape    []int  `json:"shape"`
	Elements int    `json:"elements"`
}

// ShowResponse ist die Antwort von GET /api/show
type ShowResponse struct {
	Architecture  string       `json:"architecture"`
	Backend       string       `json:"backend"`
	Config        model.Config `json:"config"`
	Parameters    int          `json:"parameters"`
	ParameterSize string       `json:"parameter_size"`
	NumPatches    int          `json:"num_patches"`
	SeqLen        int          `json:"seq_len"`
	Labels        int          `json:"labels,omitempty"`
	Tensors       []TensorInfo `json:"tensors,omitempty"`
}
