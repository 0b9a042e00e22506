package admin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// URLVerifier HEADs public URLs through a client that refuses private,
// loopback and metadata addresses.
type URLVerifier struct {
	client *http.Client
}

// NewURLVerifier builds a verifier limited to http/https on ports 80 and 443.
func NewURLVerifier(timeout time.Duration) *URLVerifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return &URLVerifier{client: safeurl.Client(cfg).Client}
}

// Check returns the status code of a HEAD request against rawURL.
func (v *URLVerifier) Check(ctx context.Context, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
