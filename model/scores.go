// scores.go - Auswertung der Logits eines Bildes
package model

import (
	"cmp"
	"math"
	"slices"
)

// Score ist eine Klasse mit ihrem Logit und der Softmax-Wahrscheinlichkeit
type Score struct {
	Index       int     `json:"index"`
	Logit       float32 `json:"logit"`
	Probability float32 `json:"probability"`
}

// TopK gibt die k Klassen mit den hoechsten Logits absteigend zurueck.
// Die Wahrscheinlichkeiten beziehen sich auf alle Logits, nicht nur auf die k besten.
// Bei gleichem Logit gewinnt der kleinere Index.
func TopK(logits []float32, k int) []Score {
	if len(logits) == 0 || k <= 0 {
		return nil
	}
	k = min(k, len(logits))

	maxLogit := float64(slices.Max(logits))
	var sum float64
	for _, l := range logits {
		sum += math.Exp(float64(l) - maxLogit)
	}

	scores := make([]Score, len(logits))
	for i, l := range logits {
		scores[i] = Score{
			Index:       i,
			Logit:       l,
			Probability: float32(math.Exp(float64(l)-maxLogit) / sum),
		}
	}

	slices.SortStableFunc(scores, func(a, b Score) int {
		return cmp.Compare(b.Logit, a.Logit)
	})
	return scores[:k]
}
