package errors

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GRPCStatus lets grpc-go map an *Err onto a status.Status when it is returned
// from a handler.
func (e *Err) GRPCStatus() *status.Status {
	return status.New(e.Info().Kind.GRPCCode(), e.Error())
}

// GRPCCode maps the Kind onto the closest gRPC code.
func (k Kind) GRPCCode() codes.Code {
	switch k {
	case Parameter:
		return codes.InvalidArgument
	case NotFound:
		return codes.NotFound
	case Auth:
		return codes.Unauthenticated
	case Conflict:
		return codes.AlreadyExists
	case State:
		return codes.FailedPrecondition
	case Timeouts:
		return codes.DeadlineExceeded
	case Internal:
		return codes.Internal
	default:
		return codes.Unknown
	}
}
