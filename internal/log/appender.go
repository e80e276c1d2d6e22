package log

import (
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/mapstructure"
)

const (
	AppenderConsole = "console"
	AppenderFile    = "file"
)

type MultiWriter struct {
	writers []io.Writer
}

// Write fans p out to every writer and reports the last error seen.
func (m *MultiWriter) Write(p []byte) (n int, err error) {
	for _, w := range m.writers {
		_, e := w.Write(p)
		if e != nil {
			err = e
		}
	}
	return len(p), err
}

func (m *MultiWriter) Add(writer io.Writer) *MultiWriter {
	m.writers = append(m.writers, writer)
	return m
}

func (m *MultiWriter) Len() int {
	return len(m.writers)
}

func NewMultiWriter() *MultiWriter {
	return &MultiWriter{writers: make([]io.Writer, 0)}
}

type ConsoleAppenderOpt struct {
	Target string `mapstructure:"target"` // stdout / stderr
}

func (m *MultiWriter) AddConsoleAppender(options ConsoleAppenderOpt) (*MultiWriter, error) {
	switch options.Target {
	case "", "stderr":
		return m.Add(os.Stderr), nil
	case "stdout":
		return m.Add(os.Stdout), nil
	default:
		return m, fmt.Errorf("unknown console target %q (must be stdout/stderr)", options.Target)
	}
}

// buildWriter assembles the appenders of cfg. No appenders means stderr.
func buildWriter(appenders []AppenderConfig) (*MultiWriter, error) {
	w := NewMultiWriter()
	for i, a := range appenders {
		var err error
		switch a.Type {
		case AppenderConsole:
			var opt ConsoleAppenderOpt
			if err = mapstructure.Decode(a.Options, &opt); err == nil {
				_, err = w.AddConsoleAppender(opt)
			}
		case AppenderFile:
			var opt FileAppenderOpt
			if err = mapstructure.WeakDecode(a.Options, &opt); err == nil {
				_, err = w.AddFileAppender(opt)
			}
		default:
			err = fmt.Errorf("unknown appender type %q", a.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("appender %d: %w", i, err)
		}
	}
	if w.Len() == 0 {
		w.Add(os.Stderr)
	}
	return w, nil
}
