package testparse

import (
	"regexp"
	"strconv"
	"strings"
)

type state int

const (
	stateQuestions state = iota
	stateAnswers
)

var (
	questionRE      = regexp.MustCompile(`^(\d+)\)\s*(.+)$`)
	optionRE        = regexp.MustCompile(`^([A-D])\)\s*(.*)$`)
	answersHeaderRE = regexp.MustCompile(`(?i)^answers?\s*:?$`)

	// The letter must end its token: "1) Because ..." is not a B.
	choiceAnswerRE = regexp.MustCompile(`^(\d+)\)\s*([A-D])(?:[).:,\s]|$)`)
	boolAnswerRE   = regexp.MustCompile(`(?i)^(\d+)\)\s*(true|false)\b`)
)

// Parse reads a generated test. It never fails: lines that match no rule
// are skipped, and questions whose key line is missing or unusable keep a
// nil Answer.
func Parse(text string) []Question {
	var (
		out []Question
		cur *Builder
		st  = stateQuestions
	)
	flush := func() {
		if cur != nil {
			out = append(out, cur.Build())
			cur = nil
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		switch st {
		case stateQuestions:
			if line == "---" || answersHeaderRE.MatchString(line) {
				flush()
				st = stateAnswers
				continue
			}
			if m := questionRE.FindStringSubmatch(line); m != nil {
				flush()
				cur = NewBuilder(strings.TrimSpace(m[2]))
				continue
			}
			if m := optionRE.FindStringSubmatch(line); m != nil && cur != nil {
				cur.AddOption(strings.TrimSpace(m[2]))
			}

		case stateAnswers:
			applyAnswer(out, line)
		}
	}
	if st == stateQuestions {
		flush()
	}
	return out
}

// applyAnswer sets the answer of the question at the line's ordinal. The
// answer shape comes from the key line alone, whatever the question type:
// a letter becomes a choice and true/false a boolean. Anything else leaves
// the question unanswered.
func applyAnswer(qs []Question, line string) {
	if m := choiceAnswerRE.FindStringSubmatch(line); m != nil {
		if q := at(qs, m[1]); q != nil {
			q.Answer = Choice(m[2])
		}
		return
	}
	if m := boolAnswerRE.FindStringSubmatch(line); m != nil {
		if q := at(qs, m[1]); q != nil {
			q.Answer = Bool(strings.EqualFold(m[2], "true"))
		}
	}
}

// at returns the question with the given 1-based ordinal, or nil.
func at(qs []Question, ordinal string) *Question {
	n, err := strconv.Atoi(ordinal)
	if err != nil || n < 1 || n > len(qs) {
		return nil
	}
	return &qs[n-1]
}

// Review returns the 1-based ordinals of questions that need manual review.
func Review(qs []Question) []int {
	var out []int
	for i, q := range qs {
		if q.Answer == nil {
			out = append(out, i+1)
		}
	}
	return out
}
