package acquire

import (
	"regexp"
	"strings"
)

// Kind tells which strategy chain serves a URL.
type Kind string

const (
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

var videoIDRE = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|shorts/|embed/|live/|v/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// VideoID pulls the 11-char video ID from any YouTube URL format.
func VideoID(rawURL string) string {
	m := videoIDRE.FindStringSubmatch(strings.TrimSpace(rawURL))
	if len(m) >= 2 {
		return m[1]
	}
	return ""
}

// Classify reports whether rawURL is a video or a generic document.
func Classify(rawURL string) Kind {
	if VideoID(rawURL) != "" {
		return KindVideo
	}
	return KindDocument
}
