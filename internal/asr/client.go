package asr

import (
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// newHTTPClient builds the inference client. HTTP/2 is negotiated when the
// server supports it; plain HTTP/1.1 otherwise.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		// Fall back to HTTP/1.1 on configuration failure.
		transport = &http.Transport{
			MaxIdleConns:    4,
			IdleConnTimeout: 90 * time.Second,
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
