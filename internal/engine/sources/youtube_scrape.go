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
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/acquire"
	"github.com/anatolykoptev/go_quiz/internal/engine/subject"
	"github.com/anatolykoptev/go_quiz/internal/engine/transcript"
)

const (
	// DefaultProbeTimeout bounds each individual caption probe.
	DefaultProbeTimeout = 8 * time.Second

	ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

	// consentCookie skips the EU consent interstitial.
	consentCookie = "CONSENT=YES+cb.20210328-17-p0.en+FX+100; SOCS=CAI"
)

// captionsDisabledMarkers appear on watch pages of videos whose owner
// turned captions off.
var captionsDisabledMarkers = []string{
	"subtitles are disabled for this video",
	"captions are disabled for this video",
	"transcript is disabled",
}

var timedTextRE = regexp.MustCompile(`https?:[^"'\s<>]*?api(?:\\?/)+timedtext[^"'\s<>]*`)

// PageScrape scrapes the public watch page for caption-track URLs and probes them.
type PageScrape struct {
	Client       *http.Client
	BaseURL      string // "" = https://www.youtube.com
	Langs        []string
	ProbeTimeout time.Duration
	// Limiter paces probes against the caption origin. nil = 4 probes/s, burst 2.
	Limiter *rate.Limiter
}

var _ acquire.Strategy = (*PageScrape)(nil)

func (p *PageScrape) Name() string           { return "page_scrape" }
func (p *PageScrape) Timeout() time.Duration { return 30 * time.Second }

func (p *PageScrape) base() string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	return ytBaseURL
}

func (p *PageScrape) Attempt(ctx context.Context, videoID string) (acquire.Outcome, error) {
	headers := engine.BrowserHeaders()
	headers["Cookie"] = consentCookie
	page, err := getBody(ctx, p.Client, p.base()+"/watch?v="+url.QueryEscape(videoID), headers)
	if err != nil {
		return acquire.Outcome{}, fmt.Errorf("watch page: %w", err)
	}
	if captionsDisabled(page) {
		return acquire.Outcome{}, acquire.ErrCaptionsDisabled
	}

	captionURL, how := p.findCaptionURL(page, videoID)
	slog.Debug("page_scrape: caption url",
		slog.String("id", videoID), slog.String("via", how), slog.String("url", captionURL))

	segs, err := p.probe(ctx, videoID, captionURL)
	if err != nil {
		return acquire.Outcome{}, err
	}
	return acquire.Outcome{Text: transcript.Format(segs), Authoritative: true, Title: subject.TitleFromHTML(string(page))}, nil
}

func captionsDisabled(page []byte) bool {
	lower := bytes.ToLower(page)
	for _, m := range captionsDisabledMarkers {
		if bytes.Contains(lower, []byte(m)) {
			return true
		}
	}
	return false
}

// findCaptionURL tries, in order: a direct timedtext regex, the
// ytInitialPlayerResponse blob, a recursive captionTracks scan of every
// embedded JSON object, and finally a constructed timedtext URL.
func (p *PageScrape) findCaptionURL(page []byte, videoID string) (string, string) {
	if m := timedTextRE.Find(page); m != nil {
		return unescapeJSONURL(string(m)), "regex"
	}
	if u := p.fromPlayerResponse(page); u != "" {
		return u, "player_response"
	}
	if tracks := scanCaptionTracks(page); len(tracks) > 0 {
		if t, ok := pickBestTrack(tracks, p.Langs); ok {
			return t.BaseURL, "json_scan"
		}
	}
	return p.constructedURL(videoID, p.firstLang()), "constructed"
}

func (p *PageScrape) fromPlayerResponse(page []byte) string {
	idx := bytes.Index(page, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return ""
	}
	blob := extractJSON(page[idx+len(ytInitialPlayerResponseMarker):])
	if blob == nil {
		return ""
	}
	var player playerResponse
	if err := json.Unmarshal(blob, &player); err != nil {
		return ""
	}
	if t, ok := pickBestTrack(player.tracks(), p.Langs); ok {
		return t.BaseURL
	}
	return ""
}

func (p *PageScrape) firstLang() string {
	if len(p.Langs) > 0 {
		return p.Langs[0]
	}
	return "en"
}

func (p *PageScrape) constructedURL(videoID, lang string) string {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)
	return p.base() + "/api/timedtext?" + q.Encode()
}

// unescapeJSONURL undoes JSON string escaping of a URL found in raw HTML.
func unescapeJSONURL(s string) string {
	s = strings.TrimRight(s, `\`)
	s = strings.ReplaceAll(s, `\u0026`, "&")
	s = strings.ReplaceAll(s, `\/`, "/")
	s = strings.ReplaceAll(s, `&amp;`, "&")
	return s
}

// scanCaptionTracks walks every JSON object embedded in the page's scripts,
// descending into string values that are themselves JSON.
func scanCaptionTracks(page []byte) []captionTrack {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil
	}
	var tracks []captionTrack
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, blob := range jsonBlobs([]byte(s.Text())) {
			var v any
			if json.Unmarshal(blob, &v) == nil {
				walkCaptionTracks(v, &tracks, 0)
			}
		}
		return len(tracks) == 0
	})
	return tracks
}

// jsonBlobs returns every balanced object that is a whole script body or
// follows an assignment.
func jsonBlobs(script []byte) [][]byte {
	var out [][]byte
	trimmed := bytes.TrimSpace(script)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if b := extractJSON(trimmed); b != nil {
			out = append(out, b)
		}
	}
	rest := script
	for {
		i := bytes.Index(rest, []byte("= {"))
		if i < 0 {
			return out
		}
		rest = rest[i+2:]
		if b := extractJSON(rest); b != nil {
			out = append(out, b)
			rest = rest[len(b):]
		}
	}
}

const maxScanDepth = 64

func walkCaptionTracks(v any, out *[]captionTrack, depth int) {
	if depth > maxScanDepth {
		return
	}
	switch x := v.(type) {
	case map[string]any:
		if raw, ok := x["captionTracks"]; ok {
			if b, err := json.Marshal(raw); err == nil {
				var tracks []captionTrack
				if json.Unmarshal(b, &tracks) == nil {
					*out = append(*out, tracks...)
				}
			}
		}
		for _, child := range x {
			walkCaptionTracks(child, out, depth+1)
		}
	case []any:
		for _, child := range x {
			walkCaptionTracks(child, out, depth+1)
		}
	case string:
		s := strings.TrimSpace(x)
		if len(s) > 1 && (s[0] == '{' || s[0] == '[') && strings.Contains(s, "captionTracks") {
			var nested any
			if json.Unmarshal([]byte(s), &nested) == nil {
				walkCaptionTracks(nested, out, depth+1)
			}
		}
	}
}

// probe tries json3, then XML, then a raw API request, then a language
// sweep. Each probe has its own timeout; the first with text wins.
func (p *PageScrape) probe(ctx context.Context, videoID, captionURL string) ([]transcript.Segment, error) {
	limiter := p.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(250*time.Millisecond), 2)
	}
	timeout := p.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	candidates := []string{
		withFormat(captionURL, "json3"),
		withFormat(captionURL, ""),
		withFormat(p.constructedURL(videoID, p.firstLang()), "json3"),
	}
	for _, lang := range p.Langs {
		candidates = append(candidates, p.constructedURL(videoID, lang))
	}

	seen := make(map[string]bool, len(candidates))
	var lastErr error
	for _, u := range candidates {
		if seen[u] {
			continue
		}
		seen[u] = true
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		segs, err := p.probeOne(ctx, u, timeout)
		if err == nil {
			return segs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		slog.Debug("page_scrape: probe failed", slog.String("url", u), slog.Any("err", err))
	}
	if lastErr == nil {
		lastErr = errors.New("no caption probes")
	}
	return nil, fmt.Errorf("caption probes exhausted: %w", lastErr)
}

func (p *PageScrape) probeOne(ctx context.Context, u string, timeout time.Duration) ([]transcript.Segment, error) {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	body, err := getBody(pctx, p.Client, u, map[string]string{
		"User-Agent": engine.UserAgentChrome,
		"Cookie":     consentCookie,
	})
	if err != nil {
		return nil, err
	}
	segs, err := parseCaptionBody(body)
	if err != nil {
		return nil, err
	}
	if !transcript.NonEmpty(segs) {
		return nil, transcript.ErrNoSegments
	}
	return segs, nil
}

// withFormat sets (or with "" removes) the fmt query parameter.
func withFormat(raw, format string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if format == "" {
		q.Del("fmt")
	} else {
		q.Set("fmt", format)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// extractJSON returns the balanced JSON object starting at b[0] == '{'.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr, escaped := false, false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
