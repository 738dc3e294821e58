package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/acquire"
)

// Chains holds the ordered strategy lists for each source kind.
type Chains struct {
	Video    []acquire.Strategy
	Document []acquire.Strategy
	Runner   acquire.Orchestrator
}

// DefaultChains assembles both chains from engine.Cfg. Services without
// configuration are left out rather than failing on every call.
//
// Video:    managed → captions_api → page_scrape → innertube → speech_to_text
// Document: direct_fetch → proxied_fetch → llm_extract
func DefaultChains() Chains {
	c := engine.Cfg
	var video []acquire.Strategy
	if c.TranscriptServiceURL != "" {
		video = append(video, &ManagedService{BaseURL: c.TranscriptServiceURL, APIKey: c.TranscriptServiceKey})
	}
	if c.CaptionsAPIURL != "" {
		video = append(video, &CaptionsAPI{BaseURL: c.CaptionsAPIURL, APIKey: c.CaptionsAPIKey, Lang: c.CaptionsLang})
	}
	video = append(video,
		&PageScrape{Langs: c.CaptionLangs},
		&Library{Fetcher: &InnertubeFetcher{Langs: c.CaptionLangs}},
	)
	if c.WhisperURL != "" {
		video = append(video, &SpeechToText{
			Downloader:  YTDLP{Path: c.YTDLPPath},
			Transcriber: &WhisperClient{BaseURL: c.WhisperURL, Token: c.WhisperToken, Model: c.WhisperModel},
			TempRoot:    c.STTTempDir,
		})
	}

	document := []acquire.Strategy{
		&DirectFetch{Browser: c.BrowserClient},
		&ProxiedFetch{Template: c.ProxyURLTemplate},
	}
	if c.LLMClient != nil {
		document = append(document, &LLMExtract{})
	}

	return Chains{
		Video:    video,
		Document: document,
		Runner:   acquire.Orchestrator{DefaultTimeout: c.StrategyTimeout},
	}
}

// ErrInvalidURL rejects input that is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("url must be an absolute http(s) URL")

func validateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

// Acquire classifies rawURL, runs the matching chain and caches the outcome.
func (c Chains) Acquire(ctx context.Context, rawURL string, noCache bool) (engine.ContentFetchOutput, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := validateURL(rawURL); err != nil {
		return engine.ContentFetchOutput{}, err
	}

	key := engine.CacheKey("acquire", rawURL)
	if !noCache {
		if cached, ok := engine.CacheLoadJSON[engine.ContentFetchOutput](ctx, key); ok {
			cached.Cached = true
			return cached, nil
		}
	}

	kind := acquire.Classify(rawURL)
	strategies, id := c.Document, rawURL
	if kind == acquire.KindVideo {
		strategies, id = c.Video, acquire.VideoID(rawURL)
	}

	out, err := c.Runner.Run(ctx, strategies, id)
	if err != nil {
		return engine.ContentFetchOutput{}, err
	}

	result := engine.ContentFetchOutput{
		URL:           rawURL,
		Kind:          string(kind),
		Source:        out.SourceID,
		Authoritative: out.Authoritative,
		Text:          out.Text,
		Title:         out.Title,
	}
	engine.CacheStoreJSON(ctx, key, result)
	return result, nil
}

// Acquire runs DefaultChains for rawURL.
func Acquire(ctx context.Context, rawURL string, noCache bool) (engine.ContentFetchOutput, error) {
	return DefaultChains().Acquire(ctx, rawURL, noCache)
}
