package lookup

import (
	"errors"
	"fmt"
)

// Messages surfaced in Result.Error.
const (
	MsgRateLimited  = "rate limit exceeded"
	MsgFallback     = "using cached data due to API error"
	MsgUnverified   = "unable to verify provider"
	MsgQueryMissing = "query is required"
	MsgInvalidNPI   = "provider identifier must be a 10-digit number"
)

var (
	// ErrRateLimited means the registry's window is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrNoLiveClient is returned by registries that have no live endpoint.
	ErrNoLiveClient = errors.New("no live client for registry")
	// ErrProviderUnverified means the provider registry could not be reached
	// or read.
	ErrProviderUnverified = errors.New("unable to verify provider")
	// ErrInvalidQuery means the caller input failed validation.
	ErrInvalidQuery = errors.New("invalid query")
)

// TransportError is a connection failure or non-2xx response from a registry.
type TransportError struct {
	Registry   Registry
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Registry, e.StatusCode)
	}
	return fmt.Sprintf("%s: transport: %v", e.Registry, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is a malformed response body from a registry.
type ParseError struct {
	Registry Registry
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse response: %v", e.Registry, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
