package types

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared across layers
var (
	// ErrAuthentication indicates an invalid or expired credential. It is
	// fatal to the polling loop and must be surfaced, not retried.
	ErrAuthentication = goerr.New("authentication failed")

	// ErrLLMExhausted indicates that all retry attempts against the LLM
	// backend failed. The channel is skipped for this cycle.
	ErrLLMExhausted = goerr.New("LLM retry attempts exhausted")

	// ErrNotFound indicates a missing record such as an absent summary file
	ErrNotFound = goerr.New("not found")

	// ErrInvalidConfig indicates a configuration error, fatal at startup
	ErrInvalidConfig = goerr.New("invalid configuration")
)

// Context keys for error values
const (
	ChannelIDKey   = "channel_id"
	ChannelNameKey = "channel_name"
	PostIDKey      = "post_id"
)
