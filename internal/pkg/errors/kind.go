package errors

import "net/http"

// Kind specifies the kind of error (unknown, parameter, not found, etc).
type Kind uint32

const (
	Other Kind = iota
	Parameter
	NotFound
	Auth
	Conflict
	State
	Timeouts
	Internal
)

func (e Kind) String() string {
	return map[Kind]string{
		Other:     "unknown",
		Parameter: "parameter violation",
		NotFound:  "not found",
		Auth:      "authentication",
		Conflict:  "conflict",
		State:     "state violation",
		Timeouts:  "timeout",
		Internal:  "internal",
	}[e]
}

// HTTPStatus maps the Kind onto the status code used by the REST facade.
func (e Kind) HTTPStatus() int {
	switch e {
	case Parameter:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Auth:
		return http.StatusUnauthorized
	case Conflict, State:
		return http.StatusConflict
	case Timeouts:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
