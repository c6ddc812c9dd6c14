package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
feed:
  url: http://localhost:9999/results
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 2*time.Second, c.Feed.PollInterval)
	assert.Equal(t, 5*time.Second, c.Feed.FetchTimeout)
	assert.Equal(t, 13*time.Minute, c.Strategies.White.Offset)
	assert.Equal(t, 3, c.Strategies.White.Popularity)
	assert.True(t, c.Strategies.Colors.Enabled)
	assert.Equal(t, "X-Session-Token", c.Session.Header)
	assert.Equal(t, 8080, c.Server.Port)
	assert.False(t, c.Kafka.Enabled)
	assert.Equal(t, "none", c.Journal.Backend)
	assert.Equal(t, 5, c.Session.RateBurst)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal + `
  poll_interval: 500ms
strategies:
  colors:
    enabled: false
  white:
    timezone: UTC
`))
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, c.Feed.PollInterval)
	assert.False(t, c.Strategies.Colors.Enabled)
	loc, err := c.WhiteLocation()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"missing feed url": `environment: development`,
		"bad environment":  minimal + "environment: moon\n",
		"no strategies": minimal + `strategies:
  colors:
    enabled: false
  white:
    enabled: false
`,
		"kafka without brokers": minimal + `kafka:
  enabled: true
`,
		"bad timezone": minimal + `strategies:
  white:
    timezone: Mars/Olympus
`,
		"unknown journal backend": minimal + `journal:
  backend: mongo
`,
		"popularity out of range": minimal + `strategies:
  white:
    popularity: 81
`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	env := map[string]string{
		"FEED_URL":      "http://feed.local/api",
		"POLL_INTERVAL": "3s",
		"KAFKA_BROKERS": "k1:9092,k2:9092",
		"LOG_LEVEL":     "debug",
		"SERVER_PORT":   "9090",
	}
	require.NoError(t, c.applyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, "http://feed.local/api", c.Feed.URL)
	assert.Equal(t, 3*time.Second, c.Feed.PollInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, 9090, c.Server.Port)

	env = map[string]string{"POLL_INTERVAL": "soon"}
	assert.Error(t, c.applyEnv(func(k string) string { return env[k] }))
}

func TestLoadShippedConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dev-token"}, c.Session.StaticTokens)
	assert.Equal(t, "sqlite", c.Journal.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
