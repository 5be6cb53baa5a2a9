package service

import (
	"errors"

	"connectrpc.com/connect"

	"github.com/Collenkays/Vehicle-Stokvel-Tracker-sub001/internal/models"
)

// connectCode maps an engine error kind to the RPC status a client sees.
func connectCode(err error) connect.Code {
	switch {
	case errors.Is(err, models.ErrValidation):
		return connect.CodeInvalidArgument
	case errors.Is(err, models.ErrNotFound):
		return connect.CodeNotFound
	case errors.Is(err, models.ErrAlreadyDecided),
		errors.Is(err, models.ErrAlreadyProcessed),
		errors.Is(err, models.ErrAlreadySettled),
		errors.Is(err, models.ErrNotReady),
		errors.Is(err, models.ErrInsufficientBalance):
		return connect.CodeFailedPrecondition
	case errors.Is(err, models.ErrConflict):
		return connect.CodeAborted
	default:
		return connect.CodeInternal
	}
}

// ErrorKind recovers the engine error kind from an RPC error returned by a
// StokvelService client. Clients use it to tell AlreadySettled from
// NotReady, which share a connect code.
func ErrorKind(err error) string {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return models.ErrorKind(err)
	}
	if kind := connectErr.Meta().Get(errorKindHeader); kind != "" {
		return kind
	}
	return "internal"
}

const errorKindHeader = "Stokvel-Error-Kind"
