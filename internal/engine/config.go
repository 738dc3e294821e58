package engine

import (
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMClient          *llm.Client

	FetchTimeout    time.Duration // direct_fetch budget
	StrategyTimeout time.Duration // baseline per-strategy budget when a strategy declares none
	MaxContentChars int           // excerpt budget for long documents

	// Managed transcript microservice (POST /api/transcript).
	TranscriptServiceURL string
	TranscriptServiceKey string

	// Third-party captions API.
	CaptionsAPIURL string
	CaptionsAPIKey string
	CaptionsLang   string

	CaptionLangs []string // language sweep for the page scraper, in preference order

	// Speech-to-text fallback.
	WhisperURL   string
	WhisperToken string
	WhisperModel string
	YTDLPPath    string
	STTTempDir   string // "" = os.TempDir()

	ProxyURLTemplate string // %s receives the escaped target URL

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	DatabaseURL string // PostgreSQL archive; "" = SQLite at ArchivePath
	ArchivePath string

	HTTPClient    *http.Client
	BrowserClient *BrowserClient // nil = direct fetch uses HTTPClient
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, testgen).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.StrategyTimeout <= 0 {
		c.StrategyTimeout = 15 * time.Second
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = 12000
	}
	if c.CaptionsLang == "" {
		c.CaptionsLang = "en"
	}
	c.CaptionLangs = nonEmpty(c.CaptionLangs)
	if len(c.CaptionLangs) == 0 {
		c.CaptionLangs = DefaultCaptionLangs
	}
	cfg = c
	Cfg = &cfg
}

// DefaultCaptionLangs is the language sweep used when CAPTION_LANGS is unset.
var DefaultCaptionLangs = []string{"en", "en-US", "en-GB", "ru", "es", "de", "fr", "pt", "it", "uk", "ja", "ko"}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
