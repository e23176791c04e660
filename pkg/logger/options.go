package logger

import (
	"io"
	"log/slog"
)

// Option configures a Logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug. False restores Info.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithPretty routes records through charmbracelet/log for terminals.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON emits one JSON object per record. Ignored when pretty is set.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter replaces the destination, os.Stdout by default.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters fans output to every non-nil writer.
func WithWriters(ws ...io.Writer) Option {
	return func(c *config) {
		c.writers = nil
		for _, w := range ws {
			if w != nil {
				c.writers = append(c.writers, w)
			}
		}
	}
}

// WithSource adds file:line to each record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

// WithComponent tags every record with component=name, e.g. "serve" or
// "watch", so interleaved output from one process can be told apart.
func WithComponent(name string) Option {
	return func(c *config) {
		c.component = name
	}
}
