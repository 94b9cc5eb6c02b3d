package mylog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MarcGrol/dobmilano/lib/mycontext"
)

type structuredLogger struct {
	componentName string
	logger        *slog.Logger
}

func newGcloudLogger(componentName string) Logger {
	return newGcloudLoggerTo(os.Stdout, componentName)
}

// Cloud Logging picks up "severity", "message" and the trace field from JSON lines on stdout.
func newGcloudLoggerTo(w io.Writer, componentName string) Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.MessageKey:
				a.Key = "message"
			case slog.LevelKey:
				a.Key = "severity"
				if level, ok := a.Value.Any().(slog.Level); ok && level == slog.LevelWarn {
					a.Value = slog.StringValue("WARNING")
				}
			case slog.TimeKey:
				return slog.Attr{}
			}
			return a
		},
	})
	return structuredLogger{
		componentName: componentName,
		logger:        slog.New(handler),
	}
}

func (l structuredLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...interface{}) {
	attrs := []any{slog.String("component", l.componentName)}
	if traceLabel != "" {
		attrs = append(attrs, slog.Group("logging.googleapis.com/labels", slog.String("aggregate", traceLabel)))
	}
	if trace := mycontext.TraceFromContext(ctx); trace != "" {
		attrs = append(attrs, slog.String("logging.googleapis.com/trace", trace))
	}
	l.logger.Log(context.WithoutCancel(ctx), severity.level(), l.componentName+":"+fmt.Sprintf(format, a...), attrs...)
}
