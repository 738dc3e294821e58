// Package transcript turns every native caption or page payload into one
// normalized "[mm:ss] text [mm:ss] text" representation.
package transcript

import (
	"fmt"
	"sort"
	"strings"
)

// Segment is one timed caption line. Start and Duration are in seconds.
type Segment struct {
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
	Text     string  `json:"text"`
}

// PseudoStep is the spacing of synthetic timestamps for untimed text.
// The markers only keep the format uniform; they say nothing about real timing.
const PseudoStep = 5.0

// FormatTimestamp renders seconds as zero-padded mm:ss. Minutes are not
// wrapped into hours, so a 75-minute mark reads 75:00.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// Sorted returns a copy of segs ordered by start time. Equal starts keep
// their input order.
func Sorted(segs []Segment) []Segment {
	out := make([]Segment, len(segs))
	copy(out, segs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Format normalizes segments into "[mm:ss] text [mm:ss] text ...".
// Blank segments are dropped.
func Format(segs []Segment) string {
	var sb strings.Builder
	for _, s := range Sorted(segs) {
		text := collapseSpace(s.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString("[" + FormatTimestamp(s.Start) + "] ")
		sb.WriteString(text)
	}
	return sb.String()
}

// Lines splits untimed text into one segment per non-blank line with
// pseudo-timestamps 0, 5, 10, ... seconds.
func Lines(text string) []Segment {
	var segs []Segment
	for _, line := range strings.Split(text, "\n") {
		line = collapseSpace(line)
		if line == "" {
			continue
		}
		segs = append(segs, Segment{
			Start:    float64(len(segs)) * PseudoStep,
			Duration: PseudoStep,
			Text:     line,
		})
	}
	return segs
}

// NonEmpty reports whether at least one segment carries text.
func NonEmpty(segs []Segment) bool {
	for _, s := range segs {
		if strings.TrimSpace(s.Text) != "" {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
