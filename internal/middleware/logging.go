package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/auth"
)

// RPCObserver records RPC latency, typically into a histogram.
type RPCObserver interface {
	ObserveRPC(procedure, code string, d time.Duration)
}

const callerSlotKey contextKey = "caller_slot"

// callerSlot lets an outer interceptor see the identity an inner one resolved.
// A unary call runs on one goroutine, so no locking is needed.
type callerSlot struct {
	userID string
	role   auth.Role
}

// LoggingInterceptor logs every RPC with its outcome and the caller that
// RequireAuth or StaticCaller resolved further down the chain. Internal
// failures log at error level, other failures at warn. observer may be nil.
func LoggingInterceptor(logger *slog.Logger, observer RPCObserver) connect.UnaryInterceptorFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			slot := &callerSlot{userID: GetUserID(ctx), role: GetRole(ctx)}
			procedure := req.Spec().Procedure
			start := time.Now()

			resp, err := next(context.WithValue(ctx, callerSlotKey, slot), req)
			elapsed := time.Since(start)

			attrs := []any{
				"procedure", procedure,
				"user_id", slot.userID,
				"role", string(slot.role),
				"duration_ms", elapsed.Milliseconds(),
			}
			code, level, msg := "ok", slog.LevelInfo, "RPC ok"

			var connectErr *connect.Error
			switch {
			case err == nil:
			case errors.As(err, &connectErr):
				code, msg = connectErr.Code().String(), "RPC error"
				level = slog.LevelWarn
				if connectErr.Code() == connect.CodeInternal || connectErr.Code() == connect.CodeUnknown {
					level = slog.LevelError
				}
				attrs = append(attrs, "code", code, "error", connectErr.Message())
			default:
				code, msg = connect.CodeUnknown.String(), "RPC error"
				level = slog.LevelError
				attrs = append(attrs, "code", code, "error", err)
			}
			logger.Log(ctx, level, msg, attrs...)

			if observer != nil {
				observer.ObserveRPC(procedure, code, elapsed)
			}
			return resp, err
		}
	}
}
