package mylog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MarcGrol/dobmilano/lib/mycontext"
)

type standardLogger struct {
	componentName string
	logger        *slog.Logger
}

func newStandardLogger(componentName string) Logger {
	return newStandardLoggerTo(os.Stderr, componentName)
}

func newStandardLoggerTo(w io.Writer, componentName string) Logger {
	return standardLogger{
		componentName: componentName,
		logger:        slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func (l standardLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...interface{}) {
	attrs := []any{slog.String("component", l.componentName)}
	if traceLabel != "" {
		attrs = append(attrs, slog.String("aggregate", traceLabel))
	}
	if requestID := mycontext.RequestIDFromContext(ctx); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	l.logger.Log(context.WithoutCancel(ctx), severity.level(), fmt.Sprintf(format, a...), attrs...)
}
