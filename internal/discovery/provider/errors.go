package provider

import "errors"

var (
	// ErrRateLimited is returned when a provider's own rate limiting rejects the request.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrProviderUnavailable is returned when a provider blocks or fails the request outright.
	ErrProviderUnavailable = errors.New("search provider is currently unavailable")
)
