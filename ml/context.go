// context.go - Context und Tensor Interfaces fuer ML-Operationen
// Dieses Modul definiert die Schnittstellen fuer Tensor-Operationen und Compute-Kontexte.
//
// Shapes sind row-major mit der aeussersten Dimension zuerst, also
// (batch, channels, height, width) fuer Bilder und (batch, seq, dim) fuer Sequenzen.
package ml

// Context represents an execution context for tensor operations.
//
// Ein Context gehoert genau einem Forward-Aufruf. Er traegt den
// Trainings-Modus und den Zufallsgenerator fuer Dropout, deshalb darf er
// nicht zwischen gleichzeitigen Aufrufen geteilt werden.
type Context interface {
	Empty(dtype DType, shape ...int) Tensor
	Zeros(dtype DType, shape ...int) Tensor
	FromFloats(s []float32, shape ...int) Tensor

	// Training meldet, ob Dropout aktiv ist
	Training() bool

	Close()
}

// Tensor represents a multi-dimensional array with various operations.
//
// Operationen geben neue Tensoren zurueck und veraendern den Empfaenger nicht.
// Inkompatible Shapes fuehren zu einem panic; Komponenten pruefen Shapes
// an ihren Grenzen bevor sie Operationen aufrufen.
type Tensor interface {
	Dim(n int) int
	Shape() []int
	DType() DType
	Cast(ctx Context, dtype DType) Tensor

	// Len gibt die Anzahl Elemente zurueck
	Len() int
	Floats() []float32
	FromFloats([]float32)

	// Add addiert t2 elementweise. t2 darf ein Suffix der Shape von t haben
	// und wird dann ueber die fuehrenden Dimensionen gebroadcastet.
	Add(ctx Context, t2 Tensor) Tensor
	Mul(ctx Context, t2 Tensor) Tensor
	Scale(ctx Context, s float64) Tensor

	// Mulmat berechnet t · t2ᵀ ueber die letzten beiden Dimensionen:
	// (..., m, k) x (..., n, k) -> (..., m, n). Ist t2 zweidimensional,
	// wird es fuer alle fuehrenden Dimensionen von t verwendet.
	Mulmat(ctx Context, t2 Tensor) Tensor

	// Softmax normalisiert ueber die letzte Dimension (numerisch stabil)
	Softmax(ctx Context) Tensor
	LayerNorm(ctx Context, weight, bias Tensor, eps float32) Tensor
	GELU(ctx Context) Tensor

	// Dropout setzt im Trainings-Modus Elemente mit Wahrscheinlichkeit p
	// auf null und skaliert den Rest mit 1/(1-p). Ausserhalb des
	// Trainings-Modus ist es die Identitaet.
	Dropout(ctx Context, p float32) Tensor

	Reshape(ctx Context, shape ...int) Tensor
	Permute(ctx Context, order ...int) Tensor
	Concat(ctx Context, t2 Tensor, dim int) Tensor
	Repeat(ctx Context, dim, n int) Tensor
	Slice(ctx Context, dim, low, high int) Tensor

	// Mean mittelt ueber dim und entfernt die Dimension
	Mean(ctx Context, dim int) Tensor
}
