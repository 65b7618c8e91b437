package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP GETs so callers can inject mocks or different transports.
// Implementations must honour ctx cancellation and deadlines.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
