package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/dialcast/internal/pairing"
)

type Config struct {
	Host          string `yaml:"host"`           // HTTP bind address, ex: "0.0.0.0"
	Port          int    `yaml:"port"`           // HTTP port, 0 = ephemeral
	SSDPPort      int    `yaml:"ssdp_port"`      // UDP port for SSDP
	AdvertiseHost string `yaml:"advertise_host"` // host used in advertised URLs (empty = derived)
	JoinMulticast bool   `yaml:"join_multicast"` // join 239.255.255.250 on every interface

	FriendlyName       string        `yaml:"friendly_name"`        // name shown in the cast target list
	AppName            string        `yaml:"app_name"`             // DIAL application name, ex: "YouTube"
	RPCURL             string        `yaml:"rpc_url"`              // Mopidy JSON-RPC endpoint
	PlaybackTimeout    time.Duration `yaml:"playback_timeout"`     // per-call timeout towards Mopidy
	PairingCode        string        `yaml:"pairing_code"`         // fixed TV code (empty = random per run)
	RequirePairingCode bool          `yaml:"require_pairing_code"` // reject launches without a valid code

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // ex: 5s
	LogLevel        string        `yaml:"log_level"`        // "debug" | "info" | "warn" | "error"
	PrettyLog       bool          `yaml:"pretty_log"`       // true => zap dev (color), false => zap prod (JSON)

	AllowedCIDRS       []string `yaml:"allowed_cidrs"`          // optional, restrict the control surface to these IPs/CIDRs
	TrustProxy         bool     `yaml:"trust_proxy"`            // true => trust X-Forwarded-For headers
	LaunchBurst        int      `yaml:"launch_burst"`           // launch requests allowed in a burst per client (0 = unlimited)
	LaunchRefillPerMin int      `yaml:"launch_refill_per_min"` // launch tokens regained per minute

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig enables launch/stop event publishing when Addr is set.
type RedisConfig struct {
	Addr           string        `yaml:"addr"`            // ex: "localhost:6379"
	Username       string        `yaml:"username"`        // optional
	Password       string        `yaml:"password"`        // optional
	DB             int           `yaml:"db"`              // Redis DB number
	Channel        string        `yaml:"channel"`         // pub/sub channel
	ConnectTimeout time.Duration `yaml:"connect_timeout"` // total time to retry connecting
	RetryInterval  time.Duration `yaml:"retry_interval"`  // initial wait between retries (grows exponentially)
	MaxWait        time.Duration `yaml:"max_wait"`        // max wait between retries
	PingTimeout    time.Duration `yaml:"ping_timeout"`    // timeout for each ping attempt
}

// Defaults returns the configuration used when nothing is overridden.
func Defaults() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               8009,
		SSDPPort:           1900,
		JoinMulticast:      true,
		FriendlyName:       "Mopidy YouTube Music",
		AppName:            "YouTube",
		RPCURL:             "http://127.0.0.1:6680/mopidy/rpc",
		PlaybackTimeout:    2 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		PrettyLog:          true,
		LaunchBurst:        20,
		LaunchRefillPerMin: 60,
		Redis: RedisConfig{
			Channel:        "dialcast:events",
			ConnectTimeout: 5 * time.Second,
			RetryInterval:  500 * time.Millisecond,
			MaxWait:        2 * time.Second,
			PingTimeout:    time.Second,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// DIALCAST_CONFIG_FILE, then DIALCAST_* environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := getenv("DIALCAST_CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	// Server settings
	c.Host = getenv("DIALCAST_HOST", c.Host)
	c.Port = getenvInt("DIALCAST_PORT", c.Port)
	c.SSDPPort = getenvInt("DIALCAST_SSDP_PORT", c.SSDPPort)
	c.AdvertiseHost = getenv("DIALCAST_ADVERTISE_HOST", c.AdvertiseHost)
	c.JoinMulticast = mustBool("DIALCAST_JOIN_MULTICAST", c.JoinMulticast)
	c.ShutdownTimeout = mustDuration("DIALCAST_SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	// Receiver
	c.FriendlyName = getenv("DIALCAST_FRIENDLY_NAME", c.FriendlyName)
	c.AppName = getenv("DIALCAST_APP_NAME", c.AppName)
	c.RPCURL = getenv("DIALCAST_RPC_URL", c.RPCURL)
	c.PlaybackTimeout = mustDuration("DIALCAST_PLAYBACK_TIMEOUT", c.PlaybackTimeout)
	c.PairingCode = getenv("DIALCAST_PAIRING_CODE", c.PairingCode)
	c.RequirePairingCode = mustBool("DIALCAST_REQUIRE_PAIRING_CODE", c.RequirePairingCode)

	// Logging
	c.LogLevel = getenv("DIALCAST_LOG_LEVEL", c.LogLevel)
	c.PrettyLog = mustBool("DIALCAST_PRETTY_LOG", c.PrettyLog)

	// Access restrictions
	if v := getenv("DIALCAST_ALLOWED_CIDRS", ""); v != "" {
		c.AllowedCIDRS = splitAndTrim(v)
	}
	c.TrustProxy = mustBool("DIALCAST_TRUST_PROXY", c.TrustProxy)
	c.LaunchBurst = getenvInt("DIALCAST_LAUNCH_BURST", c.LaunchBurst)
	c.LaunchRefillPerMin = getenvInt("DIALCAST_LAUNCH_REFILL_PER_MIN", c.LaunchRefillPerMin)

	// Redis events
	c.Redis.Addr = getenv("DIALCAST_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Username = getenv("DIALCAST_REDIS_USERNAME", c.Redis.Username)
	c.Redis.Password = getenv("DIALCAST_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getenvInt("DIALCAST_REDIS_DB", c.Redis.DB)
	c.Redis.Channel = getenv("DIALCAST_REDIS_CHANNEL", c.Redis.Channel)
	c.Redis.ConnectTimeout = mustDuration("DIALCAST_REDIS_CONNECT_TIMEOUT", c.Redis.ConnectTimeout)
	c.Redis.RetryInterval = mustDuration("DIALCAST_REDIS_RETRY_INTERVAL", c.Redis.RetryInterval)
	c.Redis.MaxWait = mustDuration("DIALCAST_REDIS_MAX_WAIT", c.Redis.MaxWait)
	c.Redis.PingTimeout = mustDuration("DIALCAST_REDIS_PING_TIMEOUT", c.Redis.PingTimeout)
}

// Validate checks values that would otherwise only fail once traffic arrives.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.SSDPPort < 0 || c.SSDPPort > 65535 {
		errs = append(errs, fmt.Errorf("ssdp port out of range: %d", c.SSDPPort))
	}
	if strings.TrimSpace(c.FriendlyName) == "" {
		errs = append(errs, errors.New("friendly name must not be empty"))
	}
	if strings.TrimSpace(c.AppName) == "" || strings.Contains(c.AppName, "/") {
		errs = append(errs, fmt.Errorf("invalid app name %q", c.AppName))
	}
	if u, err := url.Parse(c.RPCURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("rpc url must be an absolute http(s) URL: %q", c.RPCURL))
	}
	if c.PairingCode != "" && pairing.Normalize(c.PairingCode) == "" {
		errs = append(errs, errors.New("pairing code must contain at least one digit"))
	}
	for _, entry := range c.AllowedCIDRS {
		if _, _, err := net.ParseCIDR(entry); err == nil {
			continue
		}
		if net.ParseIP(entry) == nil {
			errs = append(errs, fmt.Errorf("invalid allowed cidr %q", entry))
		}
	}

	return errors.Join(errs...)
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.PairingCode != "" {
		cp.PairingCode = "***REDACTED***"
	}
	if cp.Redis.Password != "" {
		cp.Redis.Password = "***REDACTED***"
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
