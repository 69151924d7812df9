package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DOC_STORE_PROVIDER", "memory")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("EVENT_BUS", "local")
	t.Setenv("LOCK_TTL_SECONDS", "10")
	t.Setenv("AI_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.UsesMemoryStores())
	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddress())
	assert.Equal(t, 10*time.Second, cfg.LockTTL())
	assert.True(t, cfg.AIEnabled())
	assert.Equal(t, "0 0 * * *", cfg.Scheduler.RetentionSchedule)
	assert.Equal(t, 16, cfg.App.BatchConcurrency)
	assert.Equal(t, time.Hour, cfg.AI.TTSTimeout)
	assert.False(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{BatchConcurrency: 4},
			Firebase: FirebaseConfig{DocStoreProvider: "firestore", ProjectID: "kwentura"},
			Events:   EventsConfig{Bus: "nats"},
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Firebase.ProjectID = ""
	assert.Error(t, cfg.Validate(), "firestore needs a project")

	cfg = valid()
	cfg.Firebase.DocStoreProvider = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Events.Bus = "kafka"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.App.BatchConcurrency = 0
	assert.Error(t, cfg.Validate())
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"https://a.ph", "https://b.ph"}, splitAndTrim(" https://a.ph, ,https://b.ph "))
}
