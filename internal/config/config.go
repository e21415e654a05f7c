package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingSecret = errors.New("JWT_SECRET must be set")
	ErrBadProxy      = errors.New("TRUSTED_PROXIES entries must be IP addresses or CIDR ranges")
)

type Config struct {
	Addr        string
	DatabaseURL string
	MongoDB     string
	UploadsDir  string
	JWTSecret   string
	CORSOrigins []string
	// TrustedProxies lists addresses or CIDR ranges whose forwarding headers
	// are believed. Empty means the socket peer is always the client.
	TrustedProxies []string
	RateLimits     RateLimits
	Log            Log

	ShutdownTimeout time.Duration
}

type RateLimits struct {
	LoginPerMinute    int
	RegisterPerMinute int
}

type Log struct {
	Level  string
	Format string
}

// LoadDotenv applies the first .env found in the working directory or its
// parents. Variables already set in the environment win. It returns the file
// used, or "" when there was none.
func LoadDotenv() string {
	for _, p := range []string{".env", filepath.Join("..", ".env"), filepath.Join("..", "..", ".env")} {
		if _, err := os.Stat(p); err == nil {
			if godotenv.Load(p) == nil {
				return p
			}
		}
	}
	return ""
}

func Load() Config {
	addr := envString("INKPOST_ADDR", "")
	if addr == "" {
		addr = ":" + envString("PORT", "8000")
	}
	return Config{
		Addr:           addr,
		DatabaseURL:    envString("DATABASE_URL", "inkpost.db"),
		MongoDB:        envString("INKPOST_MONGO_DB", "inkpost"),
		UploadsDir:     envString("INKPOST_UPLOADS_DIR", "uploads"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		CORSOrigins:    envList("CORS_ORIGIN", []string{"http://localhost:3000"}),
		TrustedProxies: envList("TRUSTED_PROXIES", nil),
		RateLimits: RateLimits{
			LoginPerMinute:    envInt("INKPOST_RL_LOGIN_PER_MIN", 20),
			RegisterPerMinute: envInt("INKPOST_RL_REGISTER_PER_MIN", 10),
		},
		Log: Log{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "console"),
		},
		ShutdownTimeout: envDuration("INKPOST_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate reports settings the server cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return ErrMissingSecret
	}
	if _, err := ParseProxies(c.TrustedProxies); err != nil {
		return err
	}
	return nil
}

// ParseProxies turns addresses and CIDR ranges into prefixes. A bare address
// becomes a single-host prefix.
func ParseProxies(entries []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, e := range entries {
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrBadProxy, e)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadProxy, e)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
