package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

// Logger wraps a logrus entry that carries the service name on every line.
type Logger struct {
	*logrus.Entry
}

// NewLogger creates a JSON logger writing to stdout at the LOG_LEVEL level.
func NewLogger(serviceName string) *Logger {
	return New(serviceName, os.Stdout, os.Getenv("LOG_LEVEL"))
}

// New creates a logger with an explicit output and level name.
func New(serviceName string, out io.Writer, level string) *Logger {
	log := logrus.New()

	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)
	log.SetLevel(parseLevel(level))

	return &Logger{Entry: log.WithField("service", serviceName)}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return New("test", io.Discard, "error")
}

func parseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

type requestIDKey struct{}

// ContextWithRequestID stores a request ID for downstream log lines.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request ID stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// WithRequestID adds request ID to logger
func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.WithField("request_id", requestID)
}

// UnaryServerInterceptor logs failed calls at error level and the rest at debug.
func UnaryServerInterceptor(logger *Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		logger.logRPC(ctx, info.FullMethod, "unary", err)
		return resp, err
	}
}

// StreamServerInterceptor is the streaming counterpart of UnaryServerInterceptor.
func StreamServerInterceptor(logger *Logger) grpc.StreamServerInterceptor {
	return func(srv interface{}, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		err := handler(srv, stream)
		logger.logRPC(stream.Context(), info.FullMethod, "stream", err)
		return err
	}
}

func (l *Logger) logRPC(ctx context.Context, method, kind string, err error) {
	entry := l.WithFields(logrus.Fields{"method": method, "type": kind})
	if id, ok := RequestIDFromContext(ctx); ok {
		entry = entry.WithField("request_id", id)
	}

	if err != nil {
		entry.WithField("error", err.Error()).Error("gRPC request failed")
		return
	}
	entry.Debug("gRPC request completed")
}
