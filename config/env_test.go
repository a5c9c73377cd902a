package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teastall/teastall/config"
)

func TestDefaults(t *testing.T) {
	t.Cleanup(config.Reset)

	assert.Equal(t, "tea-stall", config.MongoDatabase())
	assert.Equal(t, "mongo", config.StoreDriver())
	assert.False(t, config.StrictTransitions())
	assert.False(t, config.AtomicPayment())
	assert.Equal(t, 25*time.Second, config.SSEHeartbeat())
}

func TestSetOverridesEverything(t *testing.T) {
	t.Cleanup(config.Reset)
	t.Setenv("ORDER_STRICT_TRANSITIONS", "false")

	config.Set("ORDER_STRICT_TRANSITIONS", "true")
	config.Set("store_driver", "memory")

	assert.True(t, config.StrictTransitions())
	assert.Equal(t, "memory", config.StoreDriver())
}

func TestEnvironmentWinsOverDefaults(t *testing.T) {
	t.Cleanup(config.Reset)
	t.Setenv("MONGO_DATABASE", "tea-stall-test")

	assert.Equal(t, "tea-stall-test", config.MongoDatabase())
}

func TestUnknownStoreDriverFallsBack(t *testing.T) {
	t.Cleanup(config.Reset)
	config.Set("STORE_DRIVER", "postgres")

	assert.Equal(t, "mongo", config.StoreDriver())
}

func TestIntAndBoolFallbacks(t *testing.T) {
	t.Cleanup(config.Reset)
	config.Set("RATE_LIMIT_PER_MINUTE", "lots")
	config.Set("ORDER_ATOMIC_PAYMENT", "maybe")

	assert.Equal(t, 200, config.RateLimitPerMinute())
	assert.False(t, config.AtomicPayment())
}

func TestMergeDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nFOO_BAR = \"baz\"\nbroken-line\n"), 0o600))

	out := map[string]string{}
	require.NoError(t, config.MergeDotEnvForTest(path, out))
	assert.Equal(t, "baz", out["FOO_BAR"])
	assert.Len(t, out, 1)
}
