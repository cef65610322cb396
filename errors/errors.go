// Package errors holds the OAuth2 wire-level error vocabulary. The error
// strings are the protocol contract and must stay bit-exact.
package errors

import (
	"errors"
	"net/http"
)

// New returns an error that formats as the given text.
var New = errors.New

// Is reports whether any error in err's chain matches target.
var Is = errors.Is

// Protocol errors per RFC 6749.
var (
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
	ErrInvalidScope         = errors.New("invalid_scope")
	ErrServerError          = errors.New("server_error")
)

// Internal errors surfaced by token parsing.
var (
	ErrInvalidAccessToken = errors.New("invalid access token")
)

// Descriptions error description
var Descriptions = map[error]string{
	ErrInvalidRequest:       "The request is missing a required parameter or is otherwise malformed",
	ErrInvalidClient:        "Client authentication failed",
	ErrInvalidGrant:         "The provided authorization grant is invalid, expired or revoked",
	ErrUnsupportedGrantType: "The authorization grant type is not supported by the authorization server",
	ErrInvalidScope:         "The requested scope is invalid, unknown, or malformed",
	ErrServerError:          "The authorization server encountered an unexpected condition",
}

// StatusCodes response error HTTP status code
var StatusCodes = map[error]int{
	ErrInvalidRequest:       http.StatusBadRequest,
	ErrInvalidClient:        http.StatusUnauthorized,
	ErrInvalidGrant:         http.StatusUnauthorized,
	ErrUnsupportedGrantType: http.StatusBadRequest,
	ErrInvalidScope:         http.StatusBadRequest,
	ErrServerError:          http.StatusInternalServerError,
}

// Response carries a protocol error plus the optional human-readable
// description returned to the client.
type Response struct {
	Err         error
	Description string
	StatusCode  int
}

func (r *Response) Error() string { return r.Err.Error() }

// NewResponse builds a Response for err, filling description and status from
// the standard tables when not overridden.
func NewResponse(err error, description string) *Response {
	if description == "" {
		description = Descriptions[err]
	}
	status, ok := StatusCodes[err]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &Response{Err: err, Description: description, StatusCode: status}
}
