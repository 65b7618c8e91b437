package gnews

import "time"

// Logger is the structured logging surface the client writes to.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

// Observer receives one notification per dispatched request.
// outcome is one of the Outcome constants.
type Observer interface {
	ObserveRequest(endpoint, outcome string, d time.Duration)
}

// Request outcomes reported to an Observer.
const (
	OutcomeSuccess      = "success"
	OutcomeTimeout      = "timeout"
	OutcomeNetworkError = "network_error"
	OutcomeAPIError     = "api_error"
)

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}

type noopObserver struct{}

func (noopObserver) ObserveRequest(string, string, time.Duration) {}
