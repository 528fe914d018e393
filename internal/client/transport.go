// internal/client/transport.go
package client

import (
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RoundTripperFunc is a function that implements http.RoundTripper
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Middleware wraps an http.RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// Wrap applies middlewares in order, so the first one is the outermost.
func Wrap(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}
	return base
}

// DefaultTransport returns a transport tuned for a single backend host.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// LogRoundTrips logs each backend round trip. The API key header is never logged.
func LogRoundTrips(logger *zap.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			duration := time.Since(start)

			if err != nil {
				logger.Warn("backend request failed",
					zap.String("method", req.Method),
					zap.String("path", req.URL.Path),
					zap.String("query", req.URL.RawQuery),
					zap.Duration("duration", duration),
					zap.Error(err),
				)
				return resp, err
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("query", req.URL.RawQuery),
				zap.Int("status", resp.StatusCode),
				zap.Duration("duration", duration),
			}
			switch {
			case resp.StatusCode >= 500:
				logger.Error("backend response", fields...)
			case resp.StatusCode >= 400:
				logger.Warn("backend response", fields...)
			default:
				logger.Debug("backend response", fields...)
			}
			return resp, nil
		})
	}
}

// UpstreamRecorder receives one observation per backend round trip.
type UpstreamRecorder interface {
	RecordUpstream(path string, status int, duration float64)
}

// RecordRoundTrips reports round trips to rec; status 0 marks a transport error.
func RecordRoundTrips(rec UpstreamRecorder) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)

			status := 0
			if err == nil {
				status = resp.StatusCode
			}
			rec.RecordUpstream(req.URL.Path, status, time.Since(start).Seconds())
			return resp, err
		})
	}
}
