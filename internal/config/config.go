package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
		// TrustedProxies lists proxy CIDRs allowed to set X-Forwarded-For. Empty trusts none.
		TrustedProxies []string
	}
	Log struct {
		Level  string
		Format string
	}
	Database struct {
		Path string
		// URL selects postgres when set.
		URL string
	}
	Neynar struct {
		APIKey  string
		BaseURL string
		Timeout time.Duration
	}
	Chain struct {
		RPCURL         string
		ChainID        int64
		PrivateKey     string
		TokenAddress   string
		TokenDecimals  int
		NFTAddress     string
		ConfirmTimeout time.Duration
	}
	Claim struct {
		Amount   string
		Cooldown time.Duration
		Timeout  time.Duration
		LeaseTTL time.Duration
	}
	Mint struct {
		Timeout time.Duration
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
	}
	AWS struct {
		Profile string
	}
	Auth struct {
		JWTSecret string
	}
	RateLimit struct {
		ScoresPerMinute int
		Burst           int
	}
	CORS struct {
		Origins []string
	}
	Manifest Manifest
}

// Manifest is the published frame manifest. AccountAssociation fields are
// produced by the client tooling and copied in verbatim.
type Manifest struct {
	BaseURL   string
	Name      string
	IconURL   string
	ImageURL  string
	Header    string
	Payload   string
	Signature string
}

// legacy environment names used by existing deployments
var legacyEnv = map[string]string{
	"database.url":     "DATABASE_URL",
	"neynar.apikey":    "NEYNAR_API_KEY",
	"chain.privatekey": "ADMIN_WALLET_PRIVATE_KEY",
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	// a missing .env is fine, existing env vars win
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix("FRAME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "FRAME_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.CORS.Origins = splitList(v.GetStringSlice("cors.origins"))
	cfg.Server.TrustedProxies = splitList(v.GetStringSlice("server.trustedproxies"))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.trustedproxies", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.path", "data/frame.db")
	v.SetDefault("database.url", "")
	v.SetDefault("neynar.apikey", "")
	v.SetDefault("neynar.baseurl", "https://api.neynar.com")
	v.SetDefault("neynar.timeout", 10*time.Second)
	v.SetDefault("chain.rpcurl", "https://mainnet.base.org")
	v.SetDefault("chain.chainid", 8453)
	v.SetDefault("chain.privatekey", "")
	v.SetDefault("chain.tokenaddress", "")
	v.SetDefault("chain.tokendecimals", 18)
	v.SetDefault("chain.nftaddress", "")
	v.SetDefault("chain.confirmtimeout", 60*time.Second)
	v.SetDefault("claim.amount", "1")
	v.SetDefault("claim.cooldown", 24*time.Hour)
	v.SetDefault("claim.timeout", 90*time.Second)
	v.SetDefault("claim.leasettl", 3*time.Minute)
	v.SetDefault("mint.timeout", 2*time.Minute)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "frame-weaver")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("ratelimit.scoresperminute", 60)
	v.SetDefault("ratelimit.burst", 10)
	v.SetDefault("cors.origins", []string{"*"})
	v.SetDefault("manifest.baseurl", "")
	v.SetDefault("manifest.name", "Quotient Score")
	v.SetDefault("manifest.iconurl", "")
	v.SetDefault("manifest.imageurl", "")
	v.SetDefault("manifest.header", "")
	v.SetDefault("manifest.payload", "")
	v.SetDefault("manifest.signature", "")
}

func (c Config) validate() error {
	if c.Claim.Cooldown <= 0 {
		return fmt.Errorf("claim.cooldown must be positive, got %s", c.Claim.Cooldown)
	}
	if c.Chain.TokenDecimals < 0 || c.Chain.TokenDecimals > 36 {
		return fmt.Errorf("chain.tokendecimals out of range: %d", c.Chain.TokenDecimals)
	}
	if c.RateLimit.ScoresPerMinute < 0 {
		return fmt.Errorf("ratelimit.scoresperminute must not be negative")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// splitList accepts both list values and a single comma separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
