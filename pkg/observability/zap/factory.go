package zap

import (
	"strings"

	"github.com/theory-cloud/statictheory/pkg/observability"
)

// Factory builds loggers sharing the same options, such as output and error notifications.
type Factory struct {
	options []Option
}

var _ observability.LoggerFactory = (*Factory)(nil)

func NewZapLoggerFactory(options ...Option) *Factory {
	return &Factory{options: append([]Option(nil), options...)}
}

// CreateConsoleLogger always uses the console encoder regardless of config.Format.
func (f *Factory) CreateConsoleLogger(config observability.LoggerConfig) (observability.StructuredLogger, error) {
	config.Format = "console"
	return NewZapLogger(config, f.options...)
}

// CreateCommandLogger builds the logger used by the command-line tools. An empty format means console.
func (f *Factory) CreateCommandLogger(level, format string) (observability.StructuredLogger, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "console"
	}
	return NewZapLogger(observability.LoggerConfig{Format: format, Level: level}, f.options...)
}

func (f *Factory) CreateTestLogger() observability.StructuredLogger {
	return observability.NewTestLogger()
}

func (f *Factory) CreateNoOpLogger() observability.StructuredLogger {
	return observability.NewNoOpLogger()
}
