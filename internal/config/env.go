package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreBadger   = "badger"

	IndexPgVector = "pgvector"
	IndexMemory   = "memory"
)

type Config struct {
	Port     string
	LogLevel string

	DocumentStore string
	DatabaseURL   string
	BadgerPath    string
	VectorIndex   string

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	AIAPIKey string
	GenModel string

	WorkerCount      int
	QueueSize        int
	JobMaxDeliveries int
	JobRetryBackoff  time.Duration
	JobTimeout       time.Duration
	CallTimeout      time.Duration

	TranscribePollInterval  time.Duration
	TranscribeMaxAttempts   int
	ModerationPollInterval  time.Duration
	ModerationMaxAttempts   int
	ModerationMinConfidence float64

	SummaryFallbackChars int
	DerivedTextPrefix    string
	UploadPrefix         string

	AccessSecret   string
	MaxUploadBytes int64
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DocumentStore: getEnv("DOCUMENT_STORE", StorePostgres),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		BadgerPath:    getEnv("BADGER_PATH", "./data/badger"),
		VectorIndex:   getEnv("VECTOR_INDEX", IndexPgVector),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "contexta-docs"),

		AIAPIKey: getEnv("GEMINI_API_KEY", ""),
		GenModel: getEnv("GEN_MODEL", "gemini-1.5-flash"),

		WorkerCount:      getEnvInt("WORKER_COUNT", 1),
		QueueSize:        getEnvInt("QUEUE_SIZE", 64),
		JobMaxDeliveries: getEnvInt("JOB_MAX_DELIVERIES", 3),
		JobRetryBackoff:  getEnvDuration("JOB_RETRY_BACKOFF", 30*time.Second),
		JobTimeout:       getEnvDuration("JOB_TIMEOUT", 15*time.Minute),
		CallTimeout:      getEnvDuration("CALL_TIMEOUT", 60*time.Second),

		TranscribePollInterval:  getEnvDuration("TRANSCRIBE_POLL_INTERVAL", 10*time.Second),
		TranscribeMaxAttempts:   getEnvInt("TRANSCRIBE_MAX_ATTEMPTS", 90),
		ModerationPollInterval:  getEnvDuration("MODERATION_POLL_INTERVAL", 10*time.Second),
		ModerationMaxAttempts:   getEnvInt("MODERATION_MAX_ATTEMPTS", 12),
		ModerationMinConfidence: getEnvFloat("MODERATION_MIN_CONFIDENCE", 80),

		SummaryFallbackChars: getEnvInt("SUMMARY_FALLBACK_CHARS", 200),
		DerivedTextPrefix:    getEnv("DERIVED_TEXT_PREFIX", "text/"),
		UploadPrefix:         getEnv("UPLOAD_PREFIX", "docs/"),

		AccessSecret:   getEnv("ACCESS_SECRET", ""),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 50<<20)),
	}
}

// Validate checks the keys required by the selected backends.
func (c *Config) Validate() error {
	var errs []error

	switch c.DocumentStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL not set"))
		}
	case StoreBadger:
		if c.BadgerPath == "" {
			errs = append(errs, errors.New("BADGER_PATH not set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DOCUMENT_STORE %q", c.DocumentStore))
	}

	switch c.VectorIndex {
	case IndexMemory:
	case IndexPgVector:
		if c.DocumentStore != StorePostgres {
			errs = append(errs, errors.New("VECTOR_INDEX=pgvector requires DOCUMENT_STORE=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown VECTOR_INDEX %q", c.VectorIndex))
	}

	if c.BucketName == "" {
		errs = append(errs, errors.New("BUCKET_NAME not set"))
	}
	if c.WorkerCount < 1 {
		errs = append(errs, errors.New("WORKER_COUNT must be at least 1"))
	}
	if c.JobMaxDeliveries < 1 {
		errs = append(errs, errors.New("JOB_MAX_DELIVERIES must be at least 1"))
	}
	if c.TranscribeMaxAttempts < 1 || c.ModerationMaxAttempts < 1 {
		errs = append(errs, errors.New("poll attempt bounds must be at least 1"))
	}

	return errors.Join(errs...)
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a number, using default %v", key, v, def)
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a duration, using default %s", key, v, def)
		return def
	}
	return d
}
