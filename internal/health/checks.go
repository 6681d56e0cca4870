package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
)

// ErrorCheck adapts an error-returning probe into a CheckFunc. A nil error
// is healthy; anything else is unhealthy with the error as message.
func ErrorCheck(fn func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		if err := fn(ctx); err != nil {
			return Check{Status: StatusUnhealthy, Message: err.Error()}
		}
		return Check{Status: StatusHealthy}
	}
}

// TCPCheck reports healthy when a TCP connection to address succeeds.
func TCPCheck(address string) CheckFunc {
	return ErrorCheck(func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", address)
		if err != nil {
			return fmt.Errorf("dial %s: %w", address, err)
		}
		return conn.Close()
	})
}

// HTTPCheck reports healthy when a GET to url answers with a 2xx.
func HTTPCheck(url string) CheckFunc {
	return ErrorCheck(func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return fmt.Errorf("get %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%s answered %d", url, resp.StatusCode)
		}
		return nil
	})
}
