package engine

import "context"

// Engine turns text into vectors. Implementations must return exactly one vector per input, in order.
type Engine interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float32, error)
}
