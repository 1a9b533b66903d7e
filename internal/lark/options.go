package lark

import (
	"net/http"
	"time"
)

// DefaultBaseURL is the Lark international open platform host.
const DefaultBaseURL = "https://open.larksuite.com"

const defaultHTTPTimeout = 10 * time.Second

type options struct {
	httpClient *http.Client
	now        func() time.Time
}

// Option customises clients built by this package.
type Option func(*options)

// WithHTTPClient overrides the HTTP client used for outbound calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithClock overrides the time source used for webhook timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
