package ai

import (
	"errors"
	"fmt"
)

// ProviderError wraps any failure from a single provider attempt:
// missing credentials, request build, network, non-2xx status, body decode.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("provider %s: %v", e.Provider, e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }

// UnknownProviderError is returned when a pinned provider name is not recognized.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string { return fmt.Sprintf("unknown ai provider: %s", e.Name) }

// AllProvidersFailedError aggregates an exhausted auto-fallback chain,
// keeping only the last per-provider cause.
type AllProvidersFailedError struct {
	Last error
}

func (e *AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all ai providers failed: %v", e.Last)
}
func (e *AllProvidersFailedError) Unwrap() error { return e.Last }

// ErrUnknownFormat marks a raw response matching neither known shape.
var ErrUnknownFormat = errors.New("unknown model response format")

// ContractError marks assistant text that does not decode into the
// {reply, actions} contract.
type ContractError struct {
	Reason string
	Err    error
}

func (e *ContractError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model contract: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("model contract: %s", e.Reason)
}
func (e *ContractError) Unwrap() error { return e.Err }
