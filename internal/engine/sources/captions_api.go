package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anatolykoptev/go_quiz/internal/engine/acquire"
	"github.com/anatolykoptev/go_quiz/internal/engine/transcript"
)

// CaptionsAPI queries a paid third-party captions API:
// GET {BaseURL}?url=<watch url>&text=true[&lang=xx].
type CaptionsAPI struct {
	BaseURL string
	APIKey  string
	Lang    string // language used for the single retry
	Client  *http.Client
}

var _ acquire.Strategy = (*CaptionsAPI)(nil)

func (c *CaptionsAPI) Name() string           { return "captions_api" }
func (c *CaptionsAPI) Timeout() time.Duration { return 20 * time.Second }

// captionsPayload is the decoded content field. Exactly one variant is set.
type captionsPayload struct {
	kind     payloadKind
	plain    string
	segments []apiSegment
}

type payloadKind int

const (
	payloadUnrecognized payloadKind = iota
	payloadPlainText
	payloadSegments
)

type apiSegment struct {
	Text     string  `json:"text"`
	Offset   float64 `json:"offset"`   // ms
	Duration float64 `json:"duration"` // ms
	Lang     string  `json:"lang,omitempty"`
}

// decodeCaptions classifies a response body as plain text, segment array,
// or unrecognized. Unrecognized bodies are never an error at this layer.
func decodeCaptions(body []byte) captionsPayload {
	var env struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return captionsPayload{}
	}
	raw := bytes.TrimSpace(env.Content)
	if len(raw) == 0 {
		return captionsPayload{}
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return captionsPayload{kind: payloadPlainText, plain: s}
		}
	case '[':
		var segs []apiSegment
		if json.Unmarshal(raw, &segs) == nil {
			return captionsPayload{kind: payloadSegments, segments: segs}
		}
	}
	return captionsPayload{}
}

// segmentsFromAPI converts API segments (ms offsets) to transcript segments.
// When every offset is zero the API carried no timing, so pseudo-timestamps are used.
func segmentsFromAPI(in []apiSegment) []transcript.Segment {
	timed := false
	for _, s := range in {
		if s.Offset != 0 {
			timed = true
			break
		}
	}
	out := make([]transcript.Segment, 0, len(in))
	for i, s := range in {
		seg := transcript.Segment{
			Start:    s.Offset / 1000,
			Duration: s.Duration / 1000,
			Text:     transcript.CleanCaption(s.Text),
		}
		if !timed {
			seg.Start = float64(i) * transcript.PseudoStep
			seg.Duration = transcript.PseudoStep
		}
		out = append(out, seg)
	}
	return out
}

func (c *CaptionsAPI) Attempt(ctx context.Context, videoID string) (acquire.Outcome, error) {
	if c.BaseURL == "" {
		return acquire.Outcome{}, errors.New("captions API not configured")
	}
	watch := "https://www.youtube.com/watch?v=" + videoID

	body, err := c.fetchWithLangRetry(ctx, watch, true)
	if err != nil {
		return acquire.Outcome{}, err
	}

	p := decodeCaptions(body)
	if p.kind == payloadPlainText && strings.TrimSpace(p.plain) == "" {
		slog.Debug("captions_api: empty plain text, requesting segments", slog.String("id", videoID))
		body, err = c.fetchWithLangRetry(ctx, watch, false)
		if err != nil {
			return acquire.Outcome{}, fmt.Errorf("structured retry: %w", err)
		}
		p = decodeCaptions(body)
	}

	var segs []transcript.Segment
	switch p.kind {
	case payloadPlainText:
		segs = transcript.Lines(p.plain)
	case payloadSegments:
		segs = segmentsFromAPI(p.segments)
	default:
		return acquire.Outcome{}, errors.New("unrecognized captions API response")
	}
	if !transcript.NonEmpty(segs) {
		return acquire.Outcome{}, acquire.ErrEmptyContent
	}
	return acquire.Outcome{Text: transcript.Format(segs), Authoritative: true}, nil
}

// fetchWithLangRetry performs the request and retries once with an explicit
// language when the API answers 404 or complains about language.
func (c *CaptionsAPI) fetchWithLangRetry(ctx context.Context, watchURL string, text bool) ([]byte, error) {
	body, err := c.get(ctx, watchURL, text, "")
	if err == nil && !mentionsLanguage(body) {
		return body, nil
	}
	if err != nil && !needsLangRetry(err, body) {
		return nil, fmt.Errorf("captions API: %w", err)
	}

	lang := c.Lang
	if lang == "" {
		lang = "en"
	}
	body, err = c.get(ctx, watchURL, text, lang)
	if err != nil {
		return nil, fmt.Errorf("captions API (lang=%s): %w", lang, err)
	}
	return body, nil
}

func (c *CaptionsAPI) get(ctx context.Context, watchURL string, text bool, lang string) ([]byte, error) {
	q := url.Values{}
	q.Set("url", watchURL)
	q.Set("text", fmt.Sprintf("%t", text))
	if lang != "" {
		q.Set("lang", lang)
	}
	sep := "?"
	if strings.Contains(c.BaseURL, "?") {
		sep = "&"
	}
	headers := map[string]string{"Accept": "application/json"}
	if c.APIKey != "" {
		headers["x-api-key"] = c.APIKey
		headers["Authorization"] = "Bearer " + c.APIKey
	}
	return getBody(ctx, c.Client, c.BaseURL+sep+q.Encode(), headers)
}

// needsLangRetry inspects the whole error body; the language complaint can
// sit past the snippet kept in the error message.
func needsLangRetry(err error, body []byte) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == http.StatusNotFound || bytes.Contains(bytes.ToLower(body), []byte("language"))
}

// mentionsLanguage reports a 2xx body that is a language complaint rather
// than captions, e.g. {"error":"No transcript in requested language"}.
func mentionsLanguage(body []byte) bool {
	if decodeCaptions(body).kind != payloadUnrecognized {
		return false
	}
	return bytes.Contains(bytes.ToLower(body), []byte("language"))
}
