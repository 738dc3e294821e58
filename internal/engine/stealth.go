package engine

import (
	"context"
	"fmt"
	"net/http"

	stealth "github.com/anatolykoptev/go-stealth"
)

// Re-export stealth types and functions for engine consumers.
type BrowserClient = stealth.BrowserClient

func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }
func RandomUserAgent() string          { return stealth.RandomUserAgent() }

// BrowserGet performs a GET through the TLS-fingerprinted browser client.
// The client takes no context, so the call runs in a goroutine and is
// abandoned when ctx expires; the client's own timeout bounds the socket.
func BrowserGet(ctx context.Context, bc *BrowserClient, targetURL string, headers map[string]string) ([]byte, error) {
	type result struct {
		data   []byte
		status int
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		data, _, status, err := bc.Do(http.MethodGet, targetURL, headers, nil)
		ch <- result{data, status, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.status < 200 || r.status >= 300 {
			return nil, fmt.Errorf("HTTP %d", r.status)
		}
		return r.data, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
