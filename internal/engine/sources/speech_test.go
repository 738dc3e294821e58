package sources

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_quiz/internal/engine/transcript"
)

type fakeDownloader struct {
	write bool
	err   error
}

func (f fakeDownloader) Download(_ context.Context, _, dir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(dir, "audio.m4a")
	if f.write {
		if err := os.WriteFile(path, []byte("fake audio"), 0o600); err != nil {
			return "", err
		}
	}
	return path, nil
}

type transcribeFunc func(ctx context.Context, path string) ([]transcript.Segment, error)

func (f transcribeFunc) Transcribe(ctx context.Context, path string) ([]transcript.Segment, error) {
	return f(ctx, path)
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files left behind")
}

func TestSpeechToTextSuccessCleansUp(t *testing.T) {
	root := t.TempDir()
	var seen string
	s := &SpeechToText{
		Downloader: fakeDownloader{write: true},
		Transcriber: transcribeFunc(func(_ context.Context, path string) ([]transcript.Segment, error) {
			seen = path
			_, err := os.Stat(path)
			require.NoError(t, err)
			return []transcript.Segment{{Start: 7, Text: "spoken words"}}, nil
		}),
		TempRoot: root,
	}

	out, err := s.Attempt(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, "[00:07] spoken words", out.Text)
	assert.False(t, out.Authoritative)
	assert.True(t, strings.HasPrefix(seen, root))
	assertEmptyDir(t, root)
}

func TestSpeechToTextNetworkFailureCleansUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	root := t.TempDir()
	s := &SpeechToText{
		Downloader:  fakeDownloader{write: true},
		Transcriber: &WhisperClient{BaseURL: srv.URL, Client: srv.Client()},
		TempRoot:    root,
	}
	_, err := s.Attempt(context.Background(), testVideoID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
	assertEmptyDir(t, root)
}

func TestSpeechToTextMissingFileCleansUp(t *testing.T) {
	root := t.TempDir()
	called := false
	s := &SpeechToText{
		Downloader: fakeDownloader{write: false},
		Transcriber: transcribeFunc(func(context.Context, string) ([]transcript.Segment, error) {
			called = true
			return nil, nil
		}),
		TempRoot: root,
	}
	_, err := s.Attempt(context.Background(), testVideoID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio file missing")
	assert.False(t, called)
	assertEmptyDir(t, root)
}

func TestSpeechToTextDownloadErrorCleansUp(t *testing.T) {
	root := t.TempDir()
	s := &SpeechToText{
		Downloader:  fakeDownloader{err: errors.New("yt-dlp: exit status 1")},
		Transcriber: transcribeFunc(func(context.Context, string) ([]transcript.Segment, error) { return nil, nil }),
		TempRoot:    root,
	}
	_, err := s.Attempt(context.Background(), testVideoID)
	require.Error(t, err)
	assertEmptyDir(t, root)
}

func TestSpeechToTextPanicCleansUp(t *testing.T) {
	root := t.TempDir()
	s := &SpeechToText{
		Downloader: fakeDownloader{write: true},
		Transcriber: transcribeFunc(func(context.Context, string) ([]transcript.Segment, error) {
			panic("decoder crashed")
		}),
		TempRoot: root,
	}
	assert.Panics(t, func() { _, _ = s.Attempt(context.Background(), testVideoID) })
	assertEmptyDir(t, root)
}

func TestWhisperClientVerboseJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper-large", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "clip.mp3", hdr.Filename)
		assert.Equal(t, "fake audio", string(data))
		_, _ = io.WriteString(w, `{"text":"a b","segments":[{"start":65.2,"end":67,"text":" second"},{"start":0,"end":2,"text":" first"}]}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "clip.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake audio"), 0o600))

	w := &WhisperClient{BaseURL: srv.URL, Token: "tok", Model: "whisper-large", Client: srv.Client()}
	segs, err := w.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "[00:00] first [01:05] second", transcript.Format(segs))
}

func TestWhisperClientPlainTextResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = io.WriteString(w, `{"text":"only text"}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "a.mp3")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	w := &WhisperClient{BaseURL: srv.URL, Client: srv.Client()}
	segs, err := w.Transcribe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "[00:00] only text", transcript.Format(segs))
}
