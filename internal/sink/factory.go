package sink

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"firestige.xyz/canframe/internal/config"
)

// Factory builds a sink for an output configuration. out is the process
// output stream; network sinks ignore it.
type Factory func(cfg config.OutputConfig, out io.Writer) (Sink, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a sink available under format. Sink packages call it from
// init; registering a name twice panics.
func Register(format string, fn Factory) {
	if format == "" {
		panic("sink: empty format name")
	}
	if fn == nil {
		panic("sink: nil factory for " + format)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[format]; exists {
		panic("sink: duplicate registration for " + format)
	}
	factories[format] = fn
}

// New builds the sink registered for cfg.Format.
func New(cfg config.OutputConfig, out io.Writer) (Sink, error) {
	mu.RLock()
	fn, ok := factories[cfg.Format]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sink %q not registered (available: %v)", cfg.Format, Formats())
	}
	return fn(cfg, out)
}

// Formats lists registered formats in sorted order.
func Formats() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
