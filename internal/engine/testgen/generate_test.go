package testgen

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/archive"
	"github.com/anatolykoptev/go_quiz/internal/engine/subject"
	"github.com/anatolykoptev/go_quiz/internal/engine/testparse"
)

const modelTest = `Title: Photosynthesis check
Questions:
1) Which pigment absorbs light?
A) Chlorophyll
B) Keratin
C) Melanin
D) Hemoglobin
2) Plants release oxygen. (True/False)
3) Describe the Calvin cycle.
---
Answers:
1) A
2) True
3) Carbon fixation into sugars`

const pageURL = "https://en.wikipedia.org/wiki/Photosynthesis"

func stubAcquire(out engine.ContentFetchOutput, err error) AcquireFunc {
	return func(context.Context, string, bool) (engine.ContentFetchOutput, error) {
		return out, err
	}
}

func TestGenerateHappyPath(t *testing.T) {
	var gotSystem, gotUser string
	g := &Generator{
		Acquire: stubAcquire(engine.ContentFetchOutput{
			URL: pageURL, Kind: "document", Source: "direct_fetch", Authoritative: true,
			Title: "Photosynthesis - Wikipedia",
			Text:  "Photosynthesis converts light into chemical energy.",
		}, nil),
		Complete: func(_ context.Context, system, user string) (string, error) {
			gotSystem, gotUser = system, user
			return modelTest, nil
		},
	}

	res, err := g.Generate(context.Background(), engine.TestGenerateInput{URL: pageURL, Questions: 3, Difficulty: "Hard"})
	require.NoError(t, err)

	assert.Equal(t, engine.TestSystemPrompt, gotSystem)
	assert.Contains(t, gotUser, "Write 3 questions of hard difficulty.")
	assert.Contains(t, gotUser, "multiple-choice, true-false, open-ended")
	assert.Contains(t, gotUser, "Subject: Photosynthesis")
	assert.Contains(t, gotUser, "converts light into chemical energy")

	assert.Equal(t, "Photosynthesis check", res.Title)
	assert.Equal(t, "Photosynthesis", res.Subject)
	assert.Equal(t, "direct_fetch", res.Source)
	assert.True(t, res.Authoritative)
	assert.Equal(t, modelTest, res.Raw)
	require.Len(t, res.Questions, 3)
	assert.Equal(t, testparse.MultipleChoice, res.Questions[0].Type)
	assert.Equal(t, "a", res.Questions[0].Answer.String())
	assert.Equal(t, testparse.TrueFalse, res.Questions[1].Type)
	assert.Equal(t, testparse.OpenEnded, res.Questions[2].Type)
	assert.Equal(t, []int{3}, res.NeedsReview)
	assert.Zero(t, res.ID)
}

func TestGenerateSaves(t *testing.T) {
	store, err := archive.OpenSQLite(filepath.Join(t.TempDir(), "a.db"))
	require.NoError(t, err)
	defer store.Close()

	g := &Generator{
		Acquire:  stubAcquire(engine.ContentFetchOutput{URL: pageURL, Source: "direct_fetch", Title: "Photosynthesis - Wikipedia", Text: "text"}, nil),
		Complete: func(context.Context, string, string) (string, error) { return modelTest, nil },
		Archive:  store,
	}
	res, err := g.Generate(context.Background(), engine.TestGenerateInput{URL: pageURL, Save: true})
	require.NoError(t, err)
	require.Positive(t, res.ID)

	rec, err := store.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis", rec.Subject)
	assert.Len(t, rec.Questions, 3)
}

func TestGenerateNamesSubjectFromAcquiredTitle(t *testing.T) {
	var calls int
	g := &Generator{
		Acquire: stubAcquire(engine.ContentFetchOutput{
			URL: "https://www.youtube.com/watch?v=abc123def45", Kind: "video", Source: "page_scrape",
			Title: "Krebs cycle explained - YouTube", Text: "[00:00] The Krebs cycle oxidizes acetyl-CoA.",
		}, nil),
		Subject: &subject.Extractor{Complete: func(context.Context, string, string) (string, error) {
			calls++
			return "", errors.New("unexpected")
		}},
		Complete: func(context.Context, string, string) (string, error) { return modelTest, nil },
	}
	res, err := g.Generate(context.Background(), engine.TestGenerateInput{URL: "https://youtu.be/abc123def45"})
	require.NoError(t, err)
	assert.Equal(t, "Krebs cycle explained", res.Subject)
	assert.Zero(t, calls)
}

func TestGenerateDefaultsAndClamp(t *testing.T) {
	o, err := normalize(engine.TestGenerateInput{})
	require.NoError(t, err)
	assert.Equal(t, DefaultQuestions, o.count)
	assert.Equal(t, DefaultDifficulty, o.difficulty)
	assert.Len(t, o.kinds, 3)

	o, err = normalize(engine.TestGenerateInput{Questions: 500, Kinds: []string{"True-False", "true-false"}})
	require.NoError(t, err)
	assert.Equal(t, MaxQuestions, o.count)
	assert.Equal(t, []string{"true-false"}, o.kinds)
}

func TestGenerateRejectsBadOptions(t *testing.T) {
	g := &Generator{Acquire: func(context.Context, string, bool) (engine.ContentFetchOutput, error) {
		t.Error("acquire should not run")
		return engine.ContentFetchOutput{}, nil
	}}
	_, err := g.Generate(context.Background(), engine.TestGenerateInput{URL: "https://x.test", Difficulty: "insane"})
	assert.ErrorIs(t, err, ErrBadOption)
	_, err = g.Generate(context.Background(), engine.TestGenerateInput{URL: "https://x.test", Kinds: []string{"essay"}})
	assert.ErrorIs(t, err, ErrBadOption)
}

func TestGenerateErrors(t *testing.T) {
	acqErr := errors.New("all sources failed: direct_fetch: HTTP 403")
	g := &Generator{Acquire: stubAcquire(engine.ContentFetchOutput{}, acqErr)}
	_, err := g.Generate(context.Background(), engine.TestGenerateInput{URL: "https://x.test"})
	assert.ErrorIs(t, err, acqErr)

	g = &Generator{
		Acquire:  stubAcquire(engine.ContentFetchOutput{URL: pageURL, Title: "Photosynthesis", Text: "t"}, nil),
		Complete: func(context.Context, string, string) (string, error) { return "", engine.ErrLLMDisabled },
	}
	_, err = g.Generate(context.Background(), engine.TestGenerateInput{URL: pageURL})
	assert.ErrorIs(t, err, engine.ErrLLMDisabled)
}

func TestTitleLine(t *testing.T) {
	assert.Equal(t, "Cells", titleLine("\n  Title: Cells \nQuestions:"))
	assert.Empty(t, titleLine("Questions:\nTitle: late"))
	assert.Empty(t, titleLine(""))
}
