// Package testparse turns a model-written test (numbered questions, lettered
// options, a divider and an answer key) into typed Question records.
package testparse

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type is the kind of a question.
type Type string

const (
	MultipleChoice Type = "multiple-choice"
	OpenEnded      Type = "open-ended"
	TrueFalse      Type = "true-false"
)

// Question is one parsed test item. Its position in the parser output is
// its ordinal minus one.
type Question struct {
	Type    Type     `json:"type"`
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"` // multiple-choice only
	// Answer is nil when the key had no usable line: the question needs manual review.
	Answer *Answer `json:"answer,omitempty"`
	// Reference is optional supporting material; Parse never sets it.
	Reference string `json:"reference,omitempty"`
}

// Answer is either a lowercase choice letter or a boolean.
type Answer struct {
	letter string
	truth  bool
	isBool bool
}

// Choice returns a letter answer ("a".."d").
func Choice(letter string) *Answer {
	return &Answer{letter: strings.ToLower(letter)}
}

// Bool returns a true/false answer.
func Bool(v bool) *Answer {
	return &Answer{truth: v, isBool: true}
}

// Letter returns the choice letter, if this is a letter answer.
func (a *Answer) Letter() (string, bool) {
	if a == nil || a.isBool {
		return "", false
	}
	return a.letter, true
}

// Truth returns the boolean value, if this is a true/false answer.
func (a *Answer) Truth() (bool, bool) {
	if a == nil || !a.isBool {
		return false, false
	}
	return a.truth, true
}

func (a *Answer) String() string {
	if a == nil {
		return ""
	}
	if a.isBool {
		return fmt.Sprintf("%t", a.truth)
	}
	return a.letter
}

// MarshalJSON emits "b" or true/false.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.isBool {
		return json.Marshal(a.truth)
	}
	return json.Marshal(a.letter)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*a = Answer{truth: b, isBool: true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("answer must be a letter or a boolean: %w", err)
	}
	*a = Answer{letter: strings.ToLower(s)}
	return nil
}

// transitions lists the legal type promotions. Types only ever move
// toward more structure; multiple-choice is final.
var transitions = map[Type][]Type{
	OpenEnded: {TrueFalse, MultipleChoice},
	TrueFalse: {MultipleChoice},
}

// Transitions returns the types a question of type from may be promoted to.
func Transitions(from Type) []Type {
	return append([]Type(nil), transitions[from]...)
}

// Builder accumulates one question while its lines are being read.
type Builder struct {
	q Question
}

// NewBuilder starts an open-ended question, or a true-false one when the
// text carries a true/false phrase.
func NewBuilder(text string) *Builder {
	b := &Builder{q: Question{Type: OpenEnded, Text: text}}
	if isTrueFalsePhrase(text) {
		b.Promote(TrueFalse)
	}
	return b
}

// Type reports the current type.
func (b *Builder) Type() Type { return b.q.Type }

// Promote moves the question to type to when the transition table allows it.
func (b *Builder) Promote(to Type) bool {
	for _, t := range transitions[b.q.Type] {
		if t == to {
			b.q.Type = to
			return true
		}
	}
	return false
}

// AddOption appends a lettered option. The first option promotes the
// question to multiple-choice.
func (b *Builder) AddOption(text string) {
	if len(b.q.Options) == 0 {
		b.Promote(MultipleChoice)
	}
	b.q.Options = append(b.q.Options, text)
}

// Build returns the finished question.
func (b *Builder) Build() Question {
	q := b.q
	q.Options = append([]string(nil), b.q.Options...)
	if len(q.Options) == 0 {
		q.Options = nil
	}
	return q
}

func isTrueFalsePhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range []string{"true or false", "true/false", "true / false"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
