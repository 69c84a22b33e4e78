package grpcwire

import (
	"context"

	"go.uber.org/zap"
)

// ConnLogger reports connection-level failures that happen after a
// response is already underway (write errors, malformed trailers) and
// thus can't be returned to a caller through the normal error path.
type ConnLogger interface {
	Errorf(ctx context.Context, format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Errorf(context.Context, string, ...any) {}

// ZapLogger adapts a *zap.SugaredLogger to ConnLogger.
type ZapLogger struct {
	Sugar *zap.SugaredLogger
}

// NewZapLogger wraps a *zap.Logger, matching the zap configuration
// convention the rest of the retrieval pack (which imports go.uber.org/zap
// directly) uses for structured logging.
func NewZapLogger(logger *zap.Logger) ZapLogger {
	return ZapLogger{Sugar: logger.Sugar()}
}

func (z ZapLogger) Errorf(ctx context.Context, format string, args ...any) {
	z.Sugar.Errorf(format, args...)
}
