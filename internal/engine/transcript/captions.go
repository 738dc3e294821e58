package transcript

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var tagRe = regexp.MustCompile(`<[^>]+>`)

// ErrNoSegments is returned when a caption payload parses but holds no text.
var ErrNoSegments = errors.New("no caption segments")

// --- Timedtext XML: <transcript><text start dur> (srv1) and <timedtext><body><p t d> (srv3) ---

type timedTextDoc struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Inner string `xml:",innerxml"`
	} `xml:"text"`
	Paragraphs []struct {
		T     string `xml:"t,attr"`
		D     string `xml:"d,attr"`
		Inner string `xml:",innerxml"`
	} `xml:"body>p"`
}

// ParseXML decodes timedtext XML into segments, decoding HTML entities
// (including YouTube's double-encoded ones) and stripping inline tags.
func ParseXML(data []byte) ([]Segment, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNoSegments
	}
	var doc timedTextDoc
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	segs := make([]Segment, 0, len(doc.Texts)+len(doc.Paragraphs))
	for _, t := range doc.Texts {
		segs = append(segs, Segment{
			Start:    parseFloat(t.Start),
			Duration: parseFloat(t.Dur),
			Text:     CleanCaption(t.Inner),
		})
	}
	for _, p := range doc.Paragraphs {
		segs = append(segs, Segment{
			Start:    parseFloat(p.T) / 1000,
			Duration: parseFloat(p.D) / 1000,
			Text:     CleanCaption(p.Inner),
		})
	}
	if !NonEmpty(segs) {
		return nil, ErrNoSegments
	}
	return segs, nil
}

// --- json3 captions ---

type json3Doc struct {
	Events []struct {
		TStartMs    float64 `json:"tStartMs"`
		DDurationMs float64 `json:"dDurationMs"`
		Segs        []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// ParseJSON3 decodes YouTube fmt=json3 captions.
func ParseJSON3(data []byte) ([]Segment, error) {
	var doc json3Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse json3: %w", err)
	}
	var segs []Segment
	for _, ev := range doc.Events {
		if len(ev.Segs) == 0 {
			continue
		}
		var sb strings.Builder
		for _, s := range ev.Segs {
			sb.WriteString(s.UTF8)
		}
		text := CleanCaption(sb.String())
		if text == "" {
			continue
		}
		segs = append(segs, Segment{
			Start:    ev.TStartMs / 1000,
			Duration: ev.DDurationMs / 1000,
			Text:     text,
		})
	}
	if len(segs) == 0 {
		return nil, ErrNoSegments
	}
	return segs, nil
}

// CleanCaption decodes entities until stable, strips tags and collapses whitespace.
func CleanCaption(s string) string {
	for range 3 {
		u := html.UnescapeString(s)
		if u == s {
			break
		}
		s = u
	}
	s = tagRe.ReplaceAllString(s, " ")
	return collapseSpace(s)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
