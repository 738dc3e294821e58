package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/acquire"
	"github.com/anatolykoptev/go_quiz/internal/engine/transcript"
)

// AudioDownloader saves a video's audio track into dir and returns the file path.
type AudioDownloader interface {
	Download(ctx context.Context, videoID, dir string) (string, error)
}

// Transcriber turns a local audio file into timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]transcript.Segment, error)
}

// SpeechToText is the last-resort video strategy: download audio, transcribe it.
// The result is a reconstruction, so it is never authoritative.
type SpeechToText struct {
	Downloader  AudioDownloader
	Transcriber Transcriber
	TempRoot    string // "" = os.TempDir()
}

var _ acquire.Strategy = (*SpeechToText)(nil)

func (s *SpeechToText) Name() string           { return "speech_to_text" }
func (s *SpeechToText) Timeout() time.Duration { return 120 * time.Second }

func (s *SpeechToText) Attempt(ctx context.Context, videoID string) (acquire.Outcome, error) {
	if s.Downloader == nil || s.Transcriber == nil {
		return acquire.Outcome{}, errors.New("speech-to-text not configured")
	}
	dir, err := os.MkdirTemp(s.TempRoot, "stt-*")
	if err != nil {
		return acquire.Outcome{}, fmt.Errorf("temp dir: %w", err)
	}
	// Removed on every exit path, panics included.
	defer func() {
		if rerr := os.RemoveAll(dir); rerr != nil {
			slog.Warn("speech_to_text: temp cleanup failed", slog.String("dir", dir), slog.Any("err", rerr))
		}
	}()

	audio, err := s.Downloader.Download(ctx, videoID, dir)
	if err != nil {
		return acquire.Outcome{}, fmt.Errorf("download audio: %w", err)
	}
	info, err := os.Stat(audio)
	if err != nil {
		return acquire.Outcome{}, fmt.Errorf("audio file missing: %w", err)
	}
	if info.Size() == 0 {
		return acquire.Outcome{}, errors.New("audio file is empty")
	}

	segs, err := s.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		return acquire.Outcome{}, fmt.Errorf("transcribe: %w", err)
	}
	if !transcript.NonEmpty(segs) {
		return acquire.Outcome{}, acquire.ErrEmptyContent
	}
	return acquire.Outcome{Text: transcript.Format(segs), Authoritative: false}, nil
}

// YTDLP downloads audio with the yt-dlp binary.
type YTDLP struct {
	Path string // "" = "yt-dlp" from PATH
}

func (y YTDLP) Download(ctx context.Context, videoID, dir string) (string, error) {
	bin := y.Path
	if bin == "" {
		bin = "yt-dlp"
	}
	cmd := exec.CommandContext(ctx, bin,
		"--no-playlist", "--quiet", "--no-warnings",
		"-f", "bestaudio",
		"-o", filepath.Join(dir, "audio.%(ext)s"),
		"https://www.youtube.com/watch?v="+videoID,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp: %w: %s", err, engine.Truncate(strings.TrimSpace(stderr.String()), 300))
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "audio.*"))
	if len(matches) == 0 {
		return "", errors.New("yt-dlp produced no audio file")
	}
	return matches[0], nil
}

// WhisperClient calls an OpenAI-compatible /v1/audio/transcriptions endpoint.
type WhisperClient struct {
	BaseURL string
	Token   string
	Model   string // "" = whisper-1
	Client  *http.Client
}

type whisperResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (w *WhisperClient) Transcribe(ctx context.Context, audioPath string) ([]transcript.Segment, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	model := w.Model
	if model == "" {
		model = "whisper-1"
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.WriteField("model", model)
		}
		if err == nil {
			err = mw.WriteField("response_format", "verbose_json")
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(w.BaseURL, "/")+"/v1/audio/transcriptions", pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if w.Token != "" {
		req.Header.Set("Authorization", "Bearer "+w.Token)
	}

	body, err := doRequest(w.Client, req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("whisper: %w", err)
	}

	var resp whisperResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}
	if len(resp.Segments) == 0 {
		return transcript.Lines(resp.Text), nil
	}
	segs := make([]transcript.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segs = append(segs, transcript.Segment{
			Start:    s.Start,
			Duration: s.End - s.Start,
			Text:     strings.TrimSpace(s.Text),
		})
	}
	return segs, nil
}
