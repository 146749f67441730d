package cfg

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/myjournal.db" description:"SQLite database file"`

	// Application configuration
	Port        string        `long:"port" env:"PORT" default:"4000" description:"HTTP server port"`
	WorkerCount int           `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for digest generation"`
	CORSOrigin  string        `long:"cors-origin" env:"CORS_ORIGIN" default:"*" description:"Allowed CORS origins (* or comma-separated list)"`
	SessionTTL  time.Duration `long:"session-ttl" env:"SESSION_TTL" default:"720h" description:"Lifetime of issued session tokens"`

	// News providers
	FeedsFile       string        `long:"feeds-file" env:"FEEDS_FILE" description:"YAML feed catalog (built-in catalog when empty)"`
	FeedsTopics     string        `long:"feeds-topics" env:"FEEDS_TOPICS" default:"world,business,tech,science" description:"Default topics when a request names none"`
	FeedsExtra      string        `long:"feeds-extra" env:"FEEDS_EXTRA" description:"Additional comma-separated RSS feed URLs"`
	NewsAPIKey      string        `long:"newsapi-key" env:"NEWSAPI_KEY" description:"NewsAPI key (optional)"`
	GNewsAPIKey     string        `long:"gnews-api-key" env:"GNEWS_API_KEY" description:"GNews key (optional)"`
	ProviderTimeout time.Duration `long:"provider-timeout" env:"PROVIDER_TIMEOUT" default:"15s" description:"Timeout for a single news provider call"`

	// AI summarizer
	AIProvider      string        `long:"ai-provider" env:"AI_PROVIDER" default:"openai" choice:"openai" choice:"gemini" description:"Text generation provider"`
	AIAPIKey        string        `long:"ai-api-key" env:"AI_API_KEY" description:"OpenAI-compatible API key"`
	AIModel         string        `long:"ai-model" env:"AI_MODEL" default:"gpt-4o-mini" description:"OpenAI-compatible model name"`
	AIBaseURL       string        `long:"ai-base-url" env:"AI_BASE_URL" description:"OpenAI-compatible base URL override"`
	GeminiAPIKey    string        `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key"`
	GeminiModel     string        `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.0-flash" description:"Gemini model name"`
	AIMaxInputChars int           `long:"ai-max-input-chars" env:"AI_MAX_INPUT_CHARS" default:"16000" description:"Input budget sent to the provider"`
	AITimeout       time.Duration `long:"ai-timeout" env:"AI_TIMEOUT" default:"20s" description:"Timeout for a single summarization call"`
	AIConcurrency   int           `long:"ai-concurrency" env:"AI_CONCURRENCY" default:"4" description:"Parallel per-item summaries in one digest"`
	SummaryCacheDir string        `long:"summary-cache-dir" env:"SUMMARY_CACHE_DIR" description:"Badger directory for cached summaries (disabled when empty)"`
	SummaryCacheTTL time.Duration `long:"summary-cache-ttl" env:"SUMMARY_CACHE_TTL" default:"24h" description:"Lifetime of cached summaries"`

	// Background jobs
	EnableJobs   bool   `long:"enable-jobs" env:"ENABLE_JOBS" description:"Run the scheduled daily digest sweep"`
	CronSchedule string `long:"cron-schedule" env:"CRON_SCHEDULE" default:"0 8 * * *" description:"Cron expression for the daily digest sweep"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"myjournal/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for digest dates and the sweep schedule"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses args instead of os.Args; nil means os.Args.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		Port:            raw.Port,
		WorkerCount:     raw.WorkerCount,
		CORSOrigin:      raw.CORSOrigin,
		SessionTTL:      raw.SessionTTL,
		FeedsFile:       raw.FeedsFile,
		FeedsTopics:     splitList(raw.FeedsTopics),
		FeedsExtra:      splitList(raw.FeedsExtra),
		NewsAPIKey:      raw.NewsAPIKey,
		GNewsAPIKey:     raw.GNewsAPIKey,
		ProviderTimeout: raw.ProviderTimeout,
		AIProvider:      raw.AIProvider,
		AIAPIKey:        raw.AIAPIKey,
		AIModel:         raw.AIModel,
		AIBaseURL:       raw.AIBaseURL,
		GeminiAPIKey:    raw.GeminiAPIKey,
		GeminiModel:     raw.GeminiModel,
		AIMaxInputChars: raw.AIMaxInputChars,
		AITimeout:       raw.AITimeout,
		AIConcurrency:   raw.AIConcurrency,
		SummaryCacheDir: raw.SummaryCacheDir,
		SummaryCacheTTL: raw.SummaryCacheTTL,
		EnableJobs:      raw.EnableJobs,
		CronSchedule:    raw.CronSchedule,
		UserAgent:       raw.UserAgent,
		Timezone:        raw.Timezone,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if cfg.AIConcurrency < 1 {
		return fmt.Errorf("ai concurrency must be at least 1")
	}
	if cfg.ProviderTimeout <= 0 || cfg.AITimeout <= 0 {
		return fmt.Errorf("provider and ai timeouts must be positive")
	}
	if cfg.AIMaxInputChars < 1 {
		return fmt.Errorf("ai max input chars must be positive")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
