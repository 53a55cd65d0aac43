package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"unicode"
)

// Engine hashes each token into a signed bucket and L2-normalizes the sum. Identical text always yields
// an identical unit vector, and texts sharing words land close together.
type Engine struct {
	EmbeddingDims int
}

func New(dims int) *Engine {
	if dims <= 0 {
		dims = 8
	}
	return &Engine{EmbeddingDims: dims}
}

func (e *Engine) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(model, s)
	}
	return out, nil
}

func (e *Engine) vector(model, text string) []float32 {
	acc := make([]float64, e.EmbeddingDims)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		tokens = []string{""}
	}
	for _, tok := range tokens {
		h := sha256.Sum256([]byte(model + "\n" + tok))
		bucket := binary.LittleEndian.Uint32(h[0:4]) % uint32(e.EmbeddingDims)
		sign := 1.0
		if h[4]&1 == 1 {
			sign = -1.0
		}
		acc[bucket] += sign
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	vec := make([]float32, e.EmbeddingDims)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
