// Package subject derives a short subject title for a piece of material.
package subject

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/anatolykoptev/go_quiz/internal/engine"
)

// Untitled is returned when every source of a title is exhausted.
const Untitled = "Untitled"

const (
	maxTitleRunes    = 80
	heuristicRunes   = 60
	llmMaterialRunes = 2000
)

// platformSuffixes are stripped from page titles.
var platformSuffixes = []string{
	" - YouTube",
	" - Wikipedia",
	" | Medium",
	" | Coursera",
	" | Khan Academy",
	" - Khan Academy",
}

var (
	stampRe    = regexp.MustCompile(`\[\d{2,}:\d{2}\]\s*`)
	sentenceRe = regexp.MustCompile(`[.!?](\s|$)`)
)

// Input is what is known about the material. The page title comes from
// acquisition; nothing here touches the network.
type Input struct {
	PageTitle string
	HTML      string
	Content   string // normalized text, used by the model and the heuristic
}

// Extractor tries the page title, then the model, then a heuristic.
type Extractor struct {
	Complete engine.CompleteFunc // nil = engine.CompleteShort
}

// Extract never fails; it falls back to Untitled.
func (e *Extractor) Extract(ctx context.Context, in Input) string {
	if t := pageTitle(in); t != "" {
		return t
	}
	if t := e.fromModel(ctx, in.Content); t != "" {
		return t
	}
	if t := Heuristic(in.Content); t != "" {
		return t
	}
	return Untitled
}

func pageTitle(in Input) string {
	if t := CleanTitle(in.PageTitle); t != "" {
		return t
	}
	if in.HTML != "" {
		return TitleFromHTML(in.HTML)
	}
	return ""
}

func (e *Extractor) fromModel(ctx context.Context, content string) string {
	content = strings.TrimSpace(stampRe.ReplaceAllString(content, ""))
	if content == "" {
		return ""
	}
	complete := e.Complete
	if complete == nil {
		complete = engine.CompleteShort
	}
	resp, err := complete(ctx, engine.SubjectSystemPrompt,
		fmt.Sprintf(engine.SubjectUserPrompt, "(none)", engine.TruncateRunes(content, llmMaterialRunes, "")))
	if err != nil {
		slog.Debug("subject: llm failed", slog.Any("err", err))
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(resp), "\n")
	return CleanTitle(strings.Trim(line, "\"'`*#.: "))
}

// TitleFromHTML prefers og:title over <title>.
func TitleFromHTML(doc string) string {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(doc)))
	if err != nil {
		return ""
	}
	if og, ok := d.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t := CleanTitle(og); t != "" {
			return t
		}
	}
	return CleanTitle(d.Find("title").First().Text())
}

// CleanTitle collapses whitespace, removes platform suffixes and caps length.
func CleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	for _, suf := range platformSuffixes {
		s = strings.TrimSuffix(s, suf)
	}
	if s == "" || strings.EqualFold(s, "youtube") {
		return ""
	}
	return strings.TrimSuffix(engine.TruncateAtWord(s, maxTitleRunes), "...")
}

// Heuristic takes the first sentence of the content, cut at a word boundary.
func Heuristic(content string) string {
	text := strings.Join(strings.Fields(stampRe.ReplaceAllString(content, "")), " ")
	if text == "" {
		return ""
	}
	if loc := sentenceRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	text = strings.TrimSuffix(engine.TruncateAtWord(text, heuristicRunes), "...")
	text = strings.TrimRightFunc(text, func(r rune) bool { return unicode.IsPunct(r) || unicode.IsSpace(r) })
	return text
}
