package subject

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func noModel(t *testing.T) func(context.Context, string, string) (string, error) {
	return func(context.Context, string, string) (string, error) {
		t.Error("model should not be called")
		return "", errors.New("unexpected")
	}
}

func TestTitleFromHTML(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"og title wins", `<html><head><title>Ignored</title><meta property="og:title" content="Krebs cycle in 5 minutes"></head></html>`, "Krebs cycle in 5 minutes"},
		{"title with platform suffix", `<html><head><title>  Newton's laws
			explained - YouTube</title></head></html>`, "Newton's laws explained"},
		{"bare platform name", `<title>YouTube</title>`, ""},
		{"no title", `<p>text</p>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TitleFromHTML(tt.doc))
		})
	}
}

func TestExtractPrefersPageTitle(t *testing.T) {
	e := &Extractor{Complete: noModel(t)}
	got := e.Extract(context.Background(), Input{PageTitle: "Photosynthesis - Wikipedia", Content: "whatever"})
	assert.Equal(t, "Photosynthesis", got)
}

func TestExtractReadsHTMLTitle(t *testing.T) {
	e := &Extractor{Complete: noModel(t)}
	got := e.Extract(context.Background(), Input{HTML: `<html><head><title>Cell division - YouTube</title></head><body></body></html>`})
	assert.Equal(t, "Cell division", got)
}

func TestExtractFallsBackToModel(t *testing.T) {
	var gotUser string
	e := &Extractor{
		Complete: func(_ context.Context, _, user string) (string, error) {
			gotUser = user
			return "\"Cell Division Basics.\"\nBecause the text is about mitosis.", nil
		},
	}
	got := e.Extract(context.Background(), Input{PageTitle: "YouTube", Content: "[00:00] Mitosis splits one cell into two."})
	assert.Equal(t, "Cell Division Basics", got)
	assert.Contains(t, gotUser, "Mitosis splits one cell into two.")
	assert.NotContains(t, gotUser, "[00:00]")
}

func TestExtractFallsBackToHeuristic(t *testing.T) {
	e := &Extractor{Complete: func(context.Context, string, string) (string, error) {
		return "", errors.New("llm: client not configured")
	}}
	got := e.Extract(context.Background(), Input{Content: "[00:00] Mitosis is how cells divide. [00:05] It has four phases."})
	assert.Equal(t, "Mitosis is how cells divide", got)
}

func TestExtractUntitled(t *testing.T) {
	e := &Extractor{Complete: noModel(t)}
	assert.Equal(t, Untitled, e.Extract(context.Background(), Input{}))
}

func TestHeuristicTruncatesAtWord(t *testing.T) {
	content := strings.Repeat("photosynthesis ", 20)
	got := Heuristic(content)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len([]rune(got)), 60)
	assert.True(t, strings.HasPrefix(got, "photosynthesis"))
	assert.False(t, strings.HasSuffix(got, " "))
	for _, w := range strings.Fields(got) {
		assert.Equal(t, "photosynthesis", w)
	}
}
