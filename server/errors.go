// MODUL: errors
// ZWECK: Fehler-Definitionen und Fehler-Responses der vit API
// INPUT: Fehler aus Handlern, Preprocessing und Forward-Pass
// OUTPUT: JSON-Fehler mit Code und HTTP-Status
// NEBENEFFEKTE: Schreibt HTTP-Responses
// ABHAENGIGKEITEN: gin-gonic/gin, model (ErrShapeMismatch)
// HINWEISE: Codes sind Teil der API und werden von api.StatusError gelesen
package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ollama/vit/model"
)

// ============================================================================
// Fehler-Definitionen
// ============================================================================

var (
	// ErrInvalidImage wird geworfen wenn ein Bild nicht dekodiert werden kann
	ErrInvalidImage = errors.New("invalid image data")

	// ErrInvalidBase64 wird geworfen bei ungueltiger Base64-Kodierung
	ErrInvalidBase64 = errors.New("invalid base64 encoding")

	// ErrBatchTooLarge wird geworfen wenn der Batch VIT_MAX_BATCH ueberschreitet
	ErrBatchTooLarge = errors.New("batch size exceeds limit")

	// ErrInvalidRequest wird geworfen bei fehlerhaftem Request-Body oder Parametern
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInferenceFailed wird geworfen wenn der Forward-Pass fehlschlaegt
	ErrInferenceFailed = errors.New("inference failed")
)

// ============================================================================
// Fehler-Code Mapping
// ============================================================================

const (
	CodeInvalidImage    = "INVALID_IMAGE"
	CodeInvalidBase64   = "INVALID_BASE64"
	CodeShapeMismatch   = "SHAPE_MISMATCH"
	CodeBatchTooLarge   = "BATCH_TOO_LARGE"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeInferenceFailed = "INFERENCE_FAILED"
)

type errorMapping struct {
	err    error
	code   string
	status int
}

// errorCodes in Pruefreihenfolge. Shape-Fehler stehen vorn, weil sie
// auch in anderen Fehlern eingebettet sein koennen.
var errorCodes = []errorMapping{
	{model.ErrShapeMismatch, CodeShapeMismatch, http.StatusBadRequest},
	{ErrInvalidBase64, CodeInvalidBase64, http.StatusBadRequest},
	{ErrInvalidImage, CodeInvalidImage, http.StatusBadRequest},
	{ErrBatchTooLarge, CodeBatchTooLarge, http.StatusRequestEntityTooLarge},
	{ErrInvalidRequest, CodeInvalidRequest, http.StatusBadRequest},
	{ErrInferenceFailed, CodeInferenceFailed, http.StatusInternalServerError},
}

// errorCode gibt API-Code und HTTP-Status fuer einen Fehler zurueck
func errorCode(err error) (string, int) {
	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			return m.code, m.status
		}
	}
	return CodeInferenceFailed, http.StatusInternalServerError
}

// abortWithError schreibt den Fehler als JSON Response und bricht ab
func abortWithError(c *gin.Context, err error) {
	code, status := errorCode(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "request_id", c.GetString(requestIDKey), "code", code, "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": code})
}
