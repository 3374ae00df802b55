package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, "data/frame.db", cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Claim.Cooldown)
	assert.Equal(t, "1", cfg.Claim.Amount)
	assert.Equal(t, int64(8453), cfg.Chain.ChainID)
	assert.Equal(t, 18, cfg.Chain.TokenDecimals)
	assert.Equal(t, 10*time.Second, cfg.Neynar.Timeout)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FRAME_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("FRAME_CLAIM_COOLDOWN", "1h")
	t.Setenv("FRAME_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("FRAME_LOG_FORMAT", "json")
	t.Setenv("FRAME_SERVER_TRUSTEDPROXIES", "10.0.0.0/8,192.168.1.2")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, time.Hour, cfg.Claim.Cooldown)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.2"}, cfg.Server.TrustedProxies)
}

func TestLoadLegacyEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://frame@localhost/frame")
	t.Setenv("NEYNAR_API_KEY", "neynar-key")
	t.Setenv("ADMIN_WALLET_PRIVATE_KEY", "0xabc")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "postgres://frame@localhost/frame", cfg.Database.URL)
	assert.Equal(t, "neynar-key", cfg.Neynar.APIKey)
	assert.Equal(t, "0xabc", cfg.Chain.PrivateKey)
}

func TestLoadPrefixedEnvWinsOverLegacy(t *testing.T) {
	t.Setenv("NEYNAR_API_KEY", "legacy")
	t.Setenv("FRAME_NEYNAR_APIKEY", "prefixed")

	cfg, err := load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Neynar.APIKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("FRAME_LOG_FORMAT", "xml")
	_, err := load(viper.New())
	assert.Error(t, err)
}
