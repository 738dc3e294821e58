// go_quiz: content acquisition and test generation MCP server.
//
// Exposes four MCP tools: content_fetch, test_generate, test_parse, test_history.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_quiz/internal/engine"
	"github.com/anatolykoptev/go_quiz/internal/engine/archive"
	"github.com/anatolykoptev/go_quiz/internal/quizserver"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	initEngine()

	slog.Info("starting go_quiz",
		slog.String("port", mcpPort),
	)

	store := openArchive()
	if store != nil {
		defer store.Close()
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_quiz",
		Version: version,
	}, nil)

	quizserver.RegisterTools(server, store)
	slog.Info("tools registered", slog.Int("count", quizserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_quiz",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() {
	c := engine.Config{
		LLMAPIKey:            env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 16384),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 10*time.Second),
		StrategyTimeout:      env.Duration("STRATEGY_TIMEOUT", 15*time.Second),
		MaxContentChars:      env.Int("MAX_CONTENT_CHARS", 12000),
		TranscriptServiceURL: env.Str("TRANSCRIPT_SERVICE_URL", ""),
		TranscriptServiceKey: env.Str("TRANSCRIPT_SERVICE_KEY", ""),
		CaptionsAPIURL:       env.Str("CAPTIONS_API_URL", ""),
		CaptionsAPIKey:       env.Str("CAPTIONS_API_KEY", ""),
		CaptionsLang:         env.Str("CAPTIONS_LANG", "en"),
		CaptionLangs:         env.List("CAPTION_LANGS", ""),
		WhisperURL:           env.Str("WHISPER_URL", ""),
		WhisperToken:         env.Str("WHISPER_TOKEN", ""),
		WhisperModel:         env.Str("WHISPER_MODEL", "whisper-1"),
		YTDLPPath:            env.Str("YTDLP_PATH", "yt-dlp"),
		STTTempDir:           env.Str("STT_TEMP_DIR", ""),
		ProxyURLTemplate:     env.Str("PROXY_URL_TEMPLATE", ""),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		DatabaseURL:          env.Str("DATABASE_URL", ""),
		ArchivePath:          env.Str("ARCHIVE_PATH", ""),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(15))

	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
		)
	} else {
		slog.Warn("LLM_API_KEY not set: llm_extract, subject naming and test_generate are degraded")
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 30*time.Minute)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}

// openArchive returns nil when the store cannot be opened; the history
// tools then report that the archive is not configured.
func openArchive() archive.Store {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := archive.Open(ctx, engine.Cfg.DatabaseURL, engine.Cfg.ArchivePath)
	if err != nil {
		slog.Warn("archive init failed, saving disabled", slog.Any("error", err))
		return nil
	}
	slog.Info("archive initialized", slog.Bool("postgres", engine.Cfg.DatabaseURL != ""))
	return store
}
