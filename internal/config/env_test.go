package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MODERATION_MAX_ATTEMPTS", "")
	t.Setenv("JOB_RETRY_BACKOFF", "")

	cfg := LoadConfig()

	assert.Equal(t, 12, cfg.ModerationMaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.ModerationPollInterval)
	assert.Equal(t, 80.0, cfg.ModerationMinConfidence)
	assert.Equal(t, "text/", cfg.DerivedTextPrefix)
	assert.Equal(t, 1, cfg.WorkerCount)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("WORKER_COUNT", "4")
	t.Setenv("CALL_TIMEOUT", "5s")
	t.Setenv("MODERATION_MIN_CONFIDENCE", "92.5")
	t.Setenv("QUEUE_SIZE", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 5*time.Second, cfg.CallTimeout)
	assert.Equal(t, 92.5, cfg.ModerationMinConfidence)
	assert.Equal(t, 64, cfg.QueueSize)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DocumentStore:         StoreBadger,
			BadgerPath:            t.TempDir(),
			VectorIndex:           IndexMemory,
			BucketName:            "bucket",
			WorkerCount:           1,
			JobMaxDeliveries:      3,
			TranscribeMaxAttempts: 10,
			ModerationMaxAttempts: 12,
		}
	}

	require.NoError(t, base().Validate())

	cfg := base()
	cfg.VectorIndex = IndexPgVector
	assert.ErrorContains(t, cfg.Validate(), "requires DOCUMENT_STORE=postgres")

	cfg = base()
	cfg.DocumentStore = StorePostgres
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_URL not set")

	cfg = base()
	cfg.ModerationMaxAttempts = 0
	assert.ErrorContains(t, cfg.Validate(), "poll attempt bounds")
}
