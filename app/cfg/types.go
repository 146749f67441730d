package cfg

import "time"

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	Port        string
	WorkerCount int
	CORSOrigin  string
	SessionTTL  time.Duration

	// News providers
	FeedsFile       string
	FeedsTopics     []string
	FeedsExtra      []string
	NewsAPIKey      string
	GNewsAPIKey     string
	ProviderTimeout time.Duration

	// AI summarizer
	AIProvider      string
	AIAPIKey        string
	AIModel         string
	AIBaseURL       string
	GeminiAPIKey    string
	GeminiModel     string
	AIMaxInputChars int
	AITimeout       time.Duration
	AIConcurrency   int
	SummaryCacheDir string
	SummaryCacheTTL time.Duration

	// Background jobs
	EnableJobs   bool
	CronSchedule string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
