package monmi

import "fmt"

// ConfigError means the gateway is not configured well enough to call the
// provider at all. Terminal, never retried.
type ConfigError struct {
	Code    string
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// TransportError wraps a network-level failure reaching the provider.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "monmi: transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a provider response outside the 2xx range.
type HTTPError struct {
	Status  int
	RawBody string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("monmi: provider returned HTTP %d", e.Status)
}

// DecodeError means the provider answered 2xx with a body that is not JSON.
type DecodeError struct {
	Err     error
	RawBody string
}

func (e *DecodeError) Error() string { return "monmi: decode response: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }
