package initializers

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	DB      DatabaseConfig
	Store   StoreConfig
	OCR     OCRConfig
	Summary SummaryConfig
	S3      S3Config
	Search  SearchConfig
	Rules   RulesConfig
}

type ServerConfig struct {
	Addr string
}

// DatabaseConfig selects the gorm dialect. "postgres" uses DATABASE_URL (or the
// legacy DIRECT_URL), "sqlite" uses a local file.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// StoreConfig chooses where the persisted application state lives:
// "db" keeps it in the kv_entries table, "file" in DataDir.
type StoreConfig struct {
	Backend string
	DataDir string
}

type OCRConfig struct {
	Provider    string // "ocrspace" or "tesseract"
	APIKey      string
	Endpoint    string
	Tesseract   string
	Timeout     time.Duration
	Concurrency int
}

type SummaryConfig struct {
	Provider         string // "huggingface" or "groq"
	HuggingFaceKey   string
	HuggingFaceURL   string
	HuggingFaceModel string
	GroqKey          string
	GroqURL          string
	GroqModel        string
	Timeout          time.Duration
	CallsPerMinute   int
}

// S3Config is optional; without a bucket, previews are written under LocalDir.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	LocalDir  string
}

type SearchConfig struct {
	ElasticsearchURL string
	Index            string
}

type RulesConfig struct {
	DefaultsFile string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":" + getEnv("PORT", "8080"),
		},
		DB: DatabaseConfig{
			Driver: getEnv("DB_DRIVER", "sqlite"),
			DSN:    getEnv("DATABASE_URL", getEnv("DIRECT_URL", "contracam.db")),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "db"),
			DataDir: getEnv("DATA_DIR", "./data"),
		},
		OCR: OCRConfig{
			Provider:    getEnv("OCR_PROVIDER", "ocrspace"),
			APIKey:      getEnv("OCR_SPACE_API_KEY", ""),
			Endpoint:    getEnv("OCR_SPACE_URL", "https://api.ocr.space/parse/image"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Timeout:     getEnvAsDuration("OCR_TIMEOUT", 30*time.Second),
			Concurrency: getEnvAsInt("OCR_CONCURRENCY", 4),
		},
		Summary: SummaryConfig{
			Provider:         getEnv("SUMMARY_PROVIDER", "huggingface"),
			HuggingFaceKey:   getEnv("HUGGINGFACE_API_KEY", ""),
			HuggingFaceURL:   getEnv("HUGGINGFACE_URL", "https://api-inference.huggingface.co"),
			HuggingFaceModel: getEnv("HUGGINGFACE_MODEL", "facebook/bart-large-cnn"),
			GroqKey:          getEnv("GROQ_API_KEY", ""),
			GroqURL:          getEnv("GROQ_URL", "https://api.groq.com/openai/v1/chat/completions"),
			GroqModel:        getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			Timeout:          getEnvAsDuration("SUMMARY_TIMEOUT", 30*time.Second),
			CallsPerMinute:   getEnvAsInt("SUMMARY_CALLS_PER_MINUTE", 50),
		},
		S3: S3Config{
			Region:    getEnv("S3_REGION", ""),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Bucket:    getEnv("S3_BUCKET", ""),
			PublicURL: getEnv("S3_PUBLIC_URL", ""),
			LocalDir:  getEnv("PREVIEW_DIR", "./data/previews"),
		},
		Search: SearchConfig{
			ElasticsearchURL: getEnv("ELASTICSEARCH_URL", ""),
			Index:            getEnv("ELASTICSEARCH_INDEX", "contracts"),
		},
		Rules: RulesConfig{
			DefaultsFile: getEnv("ALERT_RULES_FILE", "config/alert_rules.yaml"),
		},
	}
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("DATABASE_URL is empty")
	}
	switch c.Store.Backend {
	case "db", "file":
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.Store.Backend)
	}
	switch c.OCR.Provider {
	case "ocrspace":
		if c.OCR.APIKey == "" {
			return fmt.Errorf("OCR_SPACE_API_KEY is required for the ocrspace provider")
		}
	case "tesseract":
	default:
		return fmt.Errorf("unsupported OCR_PROVIDER %q", c.OCR.Provider)
	}
	switch c.Summary.Provider {
	case "huggingface", "groq":
	default:
		return fmt.Errorf("unsupported SUMMARY_PROVIDER %q", c.Summary.Provider)
	}
	return nil
}

// UseS3 reports whether previews go to an S3 compatible bucket.
func (c S3Config) UseS3() bool {
	return c.Bucket != "" && c.Region != "" && c.AccessKey != "" && c.SecretKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
