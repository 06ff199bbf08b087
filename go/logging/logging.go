package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"

	FormatJSON = "json"
	FormatText = "text"
	FormatRaw  = "raw"
)

// Opts holds logging configuration options.
type Opts struct {
	Fields    []string `long:"field" env:"FIELD" env-delim:"," description:"Attach a static field to every record, as key:value"`
	Level     string   `long:"level" env:"LEVEL" description:"Minimum level" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	Format    string   `long:"format" env:"FORMAT" description:"Output format" choice:"json" choice:"text" choice:"raw" default:"json"`
	FilePath  string   `long:"file" env:"FILE" description:"Append to this file instead of stderr"`
	AddSource bool     `long:"add-source" env:"ADD_SOURCE" description:"Record the source file and line of each call"`
}

// Init builds a logger from opts and installs it as the slog default.
func Init(opts *Opts) error {
	logger, err := NewLogger(opts)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// NewLogger returns a logger for opts. Records logged with a context carry the fields set by ContextWithFields.
func NewLogger(opts *Opts) (*slog.Logger, error) {
	writer := io.Writer(os.Stderr)
	if opts.FilePath != "" {
		file, err := os.OpenFile(opts.FilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		writer = file
	}
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level), AddSource: opts.AddSource}
	handler, err := newHandler(writer, opts.Format, handlerOpts)
	if err != nil {
		return nil, err
	}

	attrs := make([]any, 0, 2*len(opts.Fields))
	for _, field := range opts.Fields {
		key, value, ok := strings.Cut(field, ":")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field format: %s", field)
		}
		attrs = append(attrs, key, value)
	}
	return slog.New(NewContextHandler(handler, FieldsFromContext)).With(attrs...), nil
}

func newHandler(writer io.Writer, format string, handlerOpts *slog.HandlerOptions) (slog.Handler, error) {
	switch format {
	case FormatJSON, "":
		return slog.NewJSONHandler(writer, handlerOpts), nil
	case FormatText:
		return slog.NewTextHandler(writer, handlerOpts), nil
	case FormatRaw:
		return NewRawHandler(writer, handlerOpts), nil
	default:
		return nil, fmt.Errorf("unrecognized format: %s", format)
	}
}

// parseLevel falls back to info for unknown levels.
func parseLevel(level string) slog.Level {
	var parsed slog.Level
	if err := parsed.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return parsed
}
