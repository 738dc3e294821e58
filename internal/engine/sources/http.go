package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/anatolykoptev/go_quiz/internal/engine"
)

// maxBody caps every upstream response read.
const maxBody = 6 * 1024 * 1024

// statusError is a non-2xx upstream response with a short body snippet.
type statusError struct {
	StatusCode int
	Snippet    string
}

func (e *statusError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Snippet)
}

func clientOr(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	if engine.Cfg.HTTPClient != nil {
		return engine.Cfg.HTTPClient
	}
	return http.DefaultClient
}

// doRequest sends req and returns the body of a 2xx response.
// Non-2xx responses return the full body together with a *statusError.
func doRequest(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := clientOr(client).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &statusError{StatusCode: resp.StatusCode, Snippet: engine.Truncate(string(body), 200)}
	}
	return body, nil
}

// getBody GETs targetURL with the given headers under ctx.
func getBody(ctx context.Context, client *http.Client, targetURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doRequest(client, req)
}
