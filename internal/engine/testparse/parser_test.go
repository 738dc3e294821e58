package testparse

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleOne = `Questions:
1) What is the capital of France?
A) Berlin
B) Paris
C) Madrid
D) Rome
2) The sky is blue. (True/False)
---
Answers:
1) B
2) True`

func TestParseExampleOne(t *testing.T) {
	qs := Parse(exampleOne)
	require.Len(t, qs, 2)

	assert.Equal(t, Question{
		Type:    MultipleChoice,
		Text:    "What is the capital of France?",
		Options: []string{"Berlin", "Paris", "Madrid", "Rome"},
		Answer:  Choice("b"),
	}, qs[0])
	assert.Equal(t, Question{
		Type:   TrueFalse,
		Text:   "The sky is blue. (True/False)",
		Answer: Bool(true),
	}, qs[1])

	data, err := json.Marshal(qs)
	require.NoError(t, err)
	assert.Equal(t,
		`[{"type":"multiple-choice","text":"What is the capital of France?","options":["Berlin","Paris","Madrid","Rome"],"answer":"b"},{"type":"true-false","text":"The sky is blue. (True/False)","answer":true}]`,
		string(data))
}

func TestParseExampleTwoIgnoresUnknownOrdinal(t *testing.T) {
	text := `Title: Cells
Questions:
1) Which organelle produces ATP?
A) Nucleus
B) Ribosome
C) Mitochondrion
D) Golgi body
2) True or false: plant cells have a cell wall.
3) Which molecule carries genetic information?
A) DNA
B) Glucose
C) Lipid
---
Answers:
1) C
2) true
3) A
5) C`

	var qs []Question
	require.NotPanics(t, func() { qs = Parse(text) })
	require.Len(t, qs, 3)

	letter, ok := qs[0].Answer.Letter()
	require.True(t, ok)
	assert.Equal(t, "c", letter)
	assert.Len(t, qs[0].Options, 4)

	truth, ok := qs[1].Answer.Truth()
	require.True(t, ok)
	assert.True(t, truth)
	assert.Equal(t, TrueFalse, qs[1].Type)

	assert.Equal(t, MultipleChoice, qs[2].Type)
	assert.Equal(t, []string{"DNA", "Glucose", "Lipid"}, qs[2].Options)
	assert.Equal(t, "a", qs[2].Answer.String())
	assert.Empty(t, Review(qs))
}

func TestRetroactivePromotion(t *testing.T) {
	qs := Parse("1) Pick the prime number\nA) 4\n")
	require.Len(t, qs, 1)
	assert.Equal(t, MultipleChoice, qs[0].Type)
	assert.Equal(t, []string{"4"}, qs[0].Options)

	b := NewBuilder("Pick one")
	assert.Equal(t, OpenEnded, b.Type())
	b.AddOption("x")
	assert.Equal(t, MultipleChoice, b.Type())
}

func TestTrueFalsePromotedByOptions(t *testing.T) {
	qs := Parse("1) True or false: water boils at 100C.\nA) True\nB) False\n---\n1) A")
	require.Len(t, qs, 1)
	assert.Equal(t, MultipleChoice, qs[0].Type)
	assert.Equal(t, "a", qs[0].Answer.String())
}

func TestPromoteTransitionTable(t *testing.T) {
	tests := []struct {
		from, to Type
		want     bool
	}{
		{OpenEnded, TrueFalse, true},
		{OpenEnded, MultipleChoice, true},
		{TrueFalse, MultipleChoice, true},
		{TrueFalse, OpenEnded, false},
		{MultipleChoice, OpenEnded, false},
		{MultipleChoice, TrueFalse, false},
		{OpenEnded, OpenEnded, false},
	}
	for _, tt := range tests {
		b := &Builder{q: Question{Type: tt.from}}
		got := b.Promote(tt.to)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
		if tt.want {
			assert.Equal(t, tt.to, b.Type())
		} else {
			assert.Equal(t, tt.from, b.Type())
		}
	}
	assert.Empty(t, Transitions(MultipleChoice))
	assert.Equal(t, []Type{TrueFalse, MultipleChoice}, Transitions(OpenEnded))
}

func TestAnswersHeaderIsDivider(t *testing.T) {
	qs := Parse("1) Is 2 even? (true/false)\nANSWERS:\n1) FALSE")
	require.Len(t, qs, 1)
	truth, ok := qs[0].Answer.Truth()
	require.True(t, ok)
	assert.False(t, truth)
}

func TestQuestionLinesAfterDividerAreNotQuestions(t *testing.T) {
	qs := Parse("1) First?\nA) yes\nB) no\n---\n1) B\n2) Second question that should not appear?")
	require.Len(t, qs, 1)
	assert.Equal(t, "b", qs[0].Answer.String())
}

func TestAnswerLetterNeedsBoundary(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"word starting with B", "1) Because of scattering", ""},
		{"letter with paren", "1) B) y", "b"},
		{"letter with period", "1) B.", "b"},
		{"bare letter", "1) B", "b"},
		{"lowercase letter is prose", "1) b", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qs := Parse("1) Pick\nA) x\nB) y\n---\n" + tt.key)
			require.Len(t, qs, 1)
			if tt.want == "" {
				assert.Nil(t, qs[0].Answer)
				return
			}
			assert.Equal(t, tt.want, qs[0].Answer.String())
		})
	}
}

func TestOpenEndedAnswerStaysUnset(t *testing.T) {
	qs := Parse(`1) Explain osmosis.
2) Name the powerhouse of the cell.
A) Mitochondrion
B) Nucleus
---
1) Water moves across a membrane
2) A`)
	require.Len(t, qs, 2)
	assert.Equal(t, OpenEnded, qs[0].Type)
	assert.Nil(t, qs[0].Answer)
	assert.Empty(t, qs[0].Reference)
	assert.Equal(t, "a", qs[1].Answer.String())
	assert.Equal(t, []int{1}, Review(qs))
}

func TestAnswerShapeFollowsKeyLine(t *testing.T) {
	qs := Parse("1) The sky is blue.\n2) Pick one\nA) x\nB) y\n---\n1) True\n2) false")
	require.Len(t, qs, 2)
	assert.Equal(t, OpenEnded, qs[0].Type)
	assert.Equal(t, MultipleChoice, qs[1].Type)

	truth, ok := qs[0].Answer.Truth()
	require.True(t, ok)
	assert.True(t, truth)
	truth, ok = qs[1].Answer.Truth()
	require.True(t, ok)
	assert.False(t, truth)

	qs = Parse("1) The Earth is flat. (True/False)\n---\n1) C")
	require.Len(t, qs, 1)
	assert.Equal(t, TrueFalse, qs[0].Type)
	assert.Equal(t, "c", qs[0].Answer.String())
	assert.Empty(t, Review(qs))
}

func TestParseToleratesNoise(t *testing.T) {
	inputs := []string{
		"",
		"---",
		"Answers:\n1) B",
		"A) orphan option\nB) another",
		"random prose\n\n\n1)\n0) zero?\n---\n0) A\n-1) B\n99999999999999999999) C",
		strings.Repeat("1) q\n", 50),
	}
	for _, in := range inputs {
		require.NotPanics(t, func() { Parse(in) }, "input %q", in)
	}
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("A) orphan option"))
	assert.Len(t, Parse(strings.Repeat("1) q\n", 50)), 50)
}

func TestParseCRLF(t *testing.T) {
	qs := Parse(strings.ReplaceAll(exampleOne, "\n", "\r\n"))
	require.Len(t, qs, 2)
	assert.Equal(t, "b", qs[0].Answer.String())
	assert.Equal(t, "Paris", qs[0].Options[1])
}

func TestAnswerUnmarshal(t *testing.T) {
	var qs []Question
	require.NoError(t, json.Unmarshal([]byte(`[{"type":"true-false","text":"t","answer":false},{"type":"multiple-choice","text":"m","options":["x"],"answer":"A"}]`), &qs))
	truth, ok := qs[0].Answer.Truth()
	assert.True(t, ok)
	assert.False(t, truth)
	assert.Equal(t, "a", qs[1].Answer.String())

	var a Answer
	assert.Error(t, json.Unmarshal([]byte(`42`), &a))
}
