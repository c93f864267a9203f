// backend.go - Registriert alle eingebauten Compute-Backends
package backend

import (
	_ "github.com/ollama/vit/ml/backend/cpu"
)
