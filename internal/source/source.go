// Package source defines where raw frames come from.
package source

import (
	"context"

	"firestige.xyz/canframe/internal/core"
)

// Source yields raw frames one at a time. Next returns io.EOF when the
// source is exhausted.
type Source interface {
	Next(ctx context.Context) (core.RawFrame, error)
	Close() error
}
