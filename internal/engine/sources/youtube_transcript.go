package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/acquire"
	"github.com/anatolykoptev/go_quiz/internal/engine/transcript"
)

// TranscriptFetcher is an opaque caption library: given a video id it
// returns timed segments.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) ([]transcript.Segment, error)
}

// Library wraps a TranscriptFetcher as the "innertube" strategy.
type Library struct {
	Fetcher TranscriptFetcher
}

var _ acquire.Strategy = (*Library)(nil)

func (l *Library) Name() string           { return "innertube" }
func (l *Library) Timeout() time.Duration { return 20 * time.Second }

func (l *Library) Attempt(ctx context.Context, videoID string) (acquire.Outcome, error) {
	if l.Fetcher == nil {
		return acquire.Outcome{}, errors.New("no transcript fetcher")
	}
	segs, err := l.Fetcher.Fetch(ctx, videoID)
	if err != nil {
		return acquire.Outcome{}, err
	}
	if !transcript.NonEmpty(segs) {
		return acquire.Outcome{}, acquire.ErrEmptyContent
	}
	return acquire.Outcome{Text: transcript.Format(segs), Authoritative: true}, nil
}

// InnertubeFetcher talks to YouTube's internal API.
// Primary:  /next → engagement panel → /get_transcript (works from datacenter IPs)
// Fallback: ANDROID /player → captionTracks → timedtext XML
type InnertubeFetcher struct {
	Client  *http.Client
	BaseURL string // "" = https://www.youtube.com
	Langs   []string
}

var _ TranscriptFetcher = (*InnertubeFetcher)(nil)

func (f *InnertubeFetcher) base() string {
	if f.BaseURL != "" {
		return f.BaseURL
	}
	return ytBaseURL
}

func (f *InnertubeFetcher) Fetch(ctx context.Context, videoID string) ([]transcript.Segment, error) {
	segs, err := f.viaEngagementPanel(ctx, videoID)
	if err == nil {
		return segs, nil
	}
	slog.Debug("innertube: engagement panel failed, trying player",
		slog.String("id", videoID), slog.Any("err", err))

	segs, perr := f.viaPlayer(ctx, videoID)
	if perr != nil {
		return nil, fmt.Errorf("engagement panel: %v; player: %w", err, perr)
	}
	return segs, nil
}

var getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

func extractTranscriptToken(data []byte) (string, error) {
	m := getTranscriptRE.FindSubmatch(data)
	if len(m) < 2 {
		return "", errors.New("getTranscriptEndpoint not found in engagement panels")
	}
	// /next returns the params URL-encoded; /get_transcript wants raw base64.
	if decoded, err := url.QueryUnescape(string(m[1])); err == nil {
		return decoded, nil
	}
	return string(m[1]), nil
}

func (f *InnertubeFetcher) viaEngagementPanel(ctx context.Context, videoID string) ([]transcript.Segment, error) {
	visitor := generateVisitorData()

	nextData, err := innertubeCall{
		client: f.Client,
		base:   f.base(),
		path:   ytNextPath,
		payload: map[string]any{
			"videoId": videoID,
			"context": innertubeCtx{Client: webClient(visitor)},
		},
		headers: webHeaders(visitor),
	}.do(ctx)
	if err != nil {
		return nil, err
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return nil, err
	}

	data, err := innertubeCall{
		client: f.Client,
		base:   f.base(),
		path:   ytGetTranscriptPath,
		payload: map[string]any{
			"params":  token,
			"context": innertubeCtx{Client: webClient(visitor)},
		},
		headers: webHeaders(visitor),
	}.do(ctx)
	if err != nil {
		return nil, err
	}

	var resp getTranscriptResp
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	segs := panelSegments(resp)
	if !transcript.NonEmpty(segs) {
		return nil, errors.New("empty transcript segments")
	}
	return segs, nil
}

func panelSegments(resp getTranscriptResp) []transcript.Segment {
	var segs []transcript.Segment
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		list := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, item := range list {
			r := item.TranscriptSegmentRenderer
			if r == nil {
				continue
			}
			var sb strings.Builder
			for _, run := range r.Snippet.Runs {
				sb.WriteString(run.Text)
			}
			start, _ := strconv.ParseFloat(r.StartMs, 64)
			end, _ := strconv.ParseFloat(r.EndMs, 64)
			seg := transcript.Segment{
				Start: start / 1000,
				Text:  transcript.CleanCaption(sb.String()),
			}
			if end > start {
				seg.Duration = (end - start) / 1000
			}
			segs = append(segs, seg)
		}
	}
	return segs
}

func (f *InnertubeFetcher) viaPlayer(ctx context.Context, videoID string) ([]transcript.Segment, error) {
	data, err := innertubeCall{
		client: f.Client,
		base:   f.base(),
		path:   ytPlayerPath,
		payload: innertubeReq{
			VideoID: videoID,
			Context: innertubeCtx{Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			}},
			RacyCheckOk:    true,
			ContentCheckOk: true,
		},
		headers: androidHeaders(),
	}.do(ctx)
	if err != nil {
		return nil, err
	}

	var player playerResponse
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	tracks := player.tracks()
	if len(tracks) == 0 {
		if player.PlayabilityStatus != nil && player.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("captions unavailable: %s", player.PlayabilityStatus.Reason)
		}
		return nil, errors.New("no caption tracks in player response")
	}
	track, ok := pickBestTrack(tracks, f.Langs)
	if !ok {
		return nil, errors.New("all caption tracks require PoToken")
	}
	body, err := getBody(ctx, f.Client, track.BaseURL, map[string]string{"User-Agent": engine.UserAgentBot})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	return parseCaptionBody(body)
}

// parseCaptionBody sniffs json3 vs timedtext XML.
func parseCaptionBody(body []byte) ([]transcript.Segment, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return transcript.ParseJSON3(trimmed)
	}
	return transcript.ParseXML(trimmed)
}

// needsPoToken reports whether a caption track requires a browser PoToken.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack prefers a manual track in a preferred language, then an
// auto-generated one, then any English track. PoToken tracks are skipped.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}
