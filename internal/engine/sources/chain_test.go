package sources

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/acquire"
)

func names(ss []acquire.Strategy) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Name()
	}
	return out
}

func TestDefaultChainsOrder(t *testing.T) {
	prev := *engine.Cfg
	t.Cleanup(func() { engine.Init(prev) })

	engine.Init(engine.Config{})
	c := DefaultChains()
	assert.Equal(t, []string{"page_scrape", "innertube"}, names(c.Video))
	assert.Equal(t, []string{"direct_fetch", "proxied_fetch"}, names(c.Document))

	engine.Init(engine.Config{
		TranscriptServiceURL: "http://transcripts.internal",
		CaptionsAPIURL:       "https://captions.example/v1",
		WhisperURL:           "http://whisper.internal",
		StrategyTimeout:      9 * time.Second,
	})
	c = DefaultChains()
	assert.Equal(t,
		[]string{"managed", "captions_api", "page_scrape", "innertube", "speech_to_text"},
		names(c.Video))
	assert.Equal(t, 9*time.Second, c.Runner.DefaultTimeout)
}

func TestAcquireRoutesByKind(t *testing.T) {
	var videoID, docID string
	c := Chains{
		Video: []acquire.Strategy{
			acquire.Func{ID: "broken", Fn: func(context.Context, string) (string, error) {
				return "", errors.New("HTTP 503")
			}},
			acquire.Func{ID: "works", Official: true, Fn: func(_ context.Context, id string) (string, error) {
				videoID = id
				return "[00:00] video text", nil
			}},
		},
		Document: []acquire.Strategy{
			acquire.Func{ID: "doc", Fn: func(_ context.Context, id string) (string, error) {
				docID = id
				return "document text", nil
			}},
		},
	}

	out, err := c.Acquire(context.Background(), "https://youtu.be/"+testVideoID+"?t=10", true)
	require.NoError(t, err)
	assert.Equal(t, "video", out.Kind)
	assert.Equal(t, "works", out.Source)
	assert.True(t, out.Authoritative)
	assert.Equal(t, testVideoID, videoID)

	out, err = c.Acquire(context.Background(), "https://en.wikipedia.org/wiki/Mitosis", true)
	require.NoError(t, err)
	assert.Equal(t, "document", out.Kind)
	assert.Equal(t, "doc", out.Source)
	assert.False(t, out.Authoritative)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Mitosis", docID)
}

func TestAcquireCarriesPageTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, articlePage)
	}))
	defer srv.Close()

	c := Chains{Document: []acquire.Strategy{&DirectFetch{Client: srv.Client(), Budget: 5000}}}
	out, err := c.Acquire(context.Background(), srv.URL+"/photosynthesis", true)
	require.NoError(t, err)
	assert.Equal(t, "direct_fetch", out.Source)
	assert.Equal(t, "Photosynthesis explained", out.Title)
}

func TestAcquireRejectsInvalidURL(t *testing.T) {
	for _, in := range []string{"", "not a url", "ftp://files.example/a", "/relative/path"} {
		_, err := Chains{}.Acquire(context.Background(), in, true)
		assert.True(t, errors.Is(err, ErrInvalidURL), "input %q", in)
	}
}

func TestAcquireExhausted(t *testing.T) {
	c := Chains{Document: []acquire.Strategy{
		acquire.Func{ID: "direct_fetch", Fn: func(context.Context, string) (string, error) { return "", errors.New("HTTP 403") }},
		acquire.Func{ID: "proxied_fetch", Fn: func(context.Context, string) (string, error) { return "", errors.New("HTTP 502") }},
	}}
	_, err := c.Acquire(context.Background(), "https://paywalled.example/story", true)
	var ex *acquire.ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, "all sources failed: direct_fetch: HTTP 403; proxied_fetch: HTTP 502", err.Error())
}

func TestAcquireUsesCache(t *testing.T) {
	engine.InitCache("", time.Minute, 100, time.Minute)

	var calls atomic.Int32
	c := Chains{Document: []acquire.Strategy{
		acquire.Func{ID: "direct_fetch", Official: true, Fn: func(context.Context, string) (string, error) {
			calls.Add(1)
			return "cached body", nil
		}},
	}}
	const u = "https://cache.example/lesson-1"

	first, err := c.Acquire(context.Background(), u, false)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.Acquire(context.Background(), u, false)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Acquire(context.Background(), u, true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
