package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/acquire"
	"github.com/anatolykoptev/go_quiz/internal/engine/subject"
	"github.com/anatolykoptev/go_quiz/internal/engine/transcript"
)

// DefaultProxyTemplate is a public CORS proxy returning the raw page.
const DefaultProxyTemplate = "https://api.allorigins.win/raw?url=%s"

func budgetOr(n int) int {
	if n > 0 {
		return n
	}
	return engine.Cfg.MaxContentChars
}

// extractArticle runs readability over the page and normalizes its main
// content. When readability finds nothing usable the whole page is used.
func extractArticle(page []byte, pageURL string, budget int) (string, error) {
	u, _ := url.Parse(pageURL)
	if article, err := readability.FromReader(bytes.NewReader(page), u); err == nil && article.Content != "" {
		if text, err := transcript.ArticleText(article.Content, budget); err == nil {
			return text, nil
		}
	}
	return transcript.ArticleText(string(page), budget)
}

// DirectFetch GETs the document with browser headers.
type DirectFetch struct {
	Client  *http.Client
	Browser *engine.BrowserClient // nil = Client
	Budget  int
}

var _ acquire.Strategy = (*DirectFetch)(nil)

func (d *DirectFetch) Name() string           { return "direct_fetch" }
func (d *DirectFetch) Timeout() time.Duration {
	if engine.Cfg.FetchTimeout > 0 {
		return engine.Cfg.FetchTimeout
	}
	return 15 * time.Second
}

func (d *DirectFetch) Attempt(ctx context.Context, rawURL string) (acquire.Outcome, error) {
	var (
		page []byte
		err  error
	)
	if d.Browser != nil {
		page, err = engine.BrowserGet(ctx, d.Browser, rawURL, engine.ChromeHeaders())
	} else {
		page, err = getBody(ctx, d.Client, rawURL, engine.BrowserHeaders())
	}
	if err != nil {
		return acquire.Outcome{}, fmt.Errorf("fetch: %w", err)
	}
	text, err := extractArticle(page, rawURL, budgetOr(d.Budget))
	if err != nil {
		return acquire.Outcome{}, err
	}
	return acquire.Outcome{Text: text, Authoritative: true, Title: subject.TitleFromHTML(string(page))}, nil
}

// ProxiedFetch retrieves the document through a proxy URL template.
type ProxiedFetch struct {
	Template string // %s receives the query-escaped target URL
	Client   *http.Client
	Budget   int
}

var _ acquire.Strategy = (*ProxiedFetch)(nil)

func (p *ProxiedFetch) Name() string           { return "proxied_fetch" }
func (p *ProxiedFetch) Timeout() time.Duration { return 20 * time.Second }

func (p *ProxiedFetch) Attempt(ctx context.Context, rawURL string) (acquire.Outcome, error) {
	tmpl := p.Template
	if tmpl == "" {
		tmpl = DefaultProxyTemplate
	}
	if !strings.Contains(tmpl, "%s") {
		return acquire.Outcome{}, errors.New("proxy template has no %s placeholder")
	}
	page, err := getBody(ctx, p.Client, fmt.Sprintf(tmpl, url.QueryEscape(rawURL)), engine.BrowserHeaders())
	if err != nil {
		return acquire.Outcome{}, fmt.Errorf("proxy fetch: %w", err)
	}
	text, err := extractArticle(page, rawURL, budgetOr(p.Budget))
	if err != nil {
		return acquire.Outcome{}, err
	}
	return acquire.Outcome{Text: text, Authoritative: true, Title: subject.TitleFromHTML(string(page))}, nil
}

// LLMExtract asks the model to reproduce the document. The model may
// fabricate, so the outcome is not authoritative.
type LLMExtract struct {
	Complete engine.CompleteFunc
	Budget   int
}

var _ acquire.Strategy = (*LLMExtract)(nil)

func (l *LLMExtract) Name() string           { return "llm_extract" }
func (l *LLMExtract) Timeout() time.Duration { return 30 * time.Second }

func (l *LLMExtract) Attempt(ctx context.Context, rawURL string) (acquire.Outcome, error) {
	complete := l.Complete
	if complete == nil {
		complete = engine.Complete
	}
	resp, err := complete(ctx, engine.ExtractSystemPrompt, fmt.Sprintf(engine.ExtractUserPrompt, rawURL))
	if err != nil {
		return acquire.Outcome{}, fmt.Errorf("llm: %w", err)
	}
	if strings.Contains(resp, engine.ContentUnavailable) {
		return acquire.Outcome{}, acquire.ErrNoRealContent
	}
	text, err := transcript.PlainText(resp, budgetOr(l.Budget))
	if err != nil {
		return acquire.Outcome{}, err
	}
	return acquire.Outcome{Text: text, Authoritative: false}, nil
}
