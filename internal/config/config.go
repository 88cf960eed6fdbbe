package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	DBPath         string
	TokenSecret    string
	TokenTTL       time.Duration
	HashIterations int
	Upload         Upload
	Redis          Redis
	RateLimits     RateLimits
	LogLevel       string
	LogFormat      string

	// TrustProxy honours X-Forwarded-For; enable only behind a reverse proxy.
	TrustProxy bool
}

type Upload struct {
	Backend string
	Dir     string
	Minio   Minio
}

type Minio struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type RateLimits struct {
	SignupPerMinute  int
	LoginPerMinute   int
	ArticlePerMinute int
	CommentPerMinute int
}

// Load reads an optional .env file (existing environment wins) and then the environment.
func Load(envFiles ...string) Config {
	_ = godotenv.Load(envFiles...)

	addr := envString("INSTACLONE_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}
	cfg := Config{
		Addr:           addr,
		DBPath:         envString("INSTACLONE_DB", "instaclone.db"),
		TokenSecret:    envString("INSTACLONE_TOKEN_SECRET", "dev-token-secret"),
		TokenTTL:       envDuration("INSTACLONE_TOKEN_TTL", 7*24*time.Hour),
		HashIterations: envInt("INSTACLONE_HASH_ITERATIONS", 310000),
		Upload: Upload{
			Backend: strings.ToLower(envString("INSTACLONE_UPLOAD_BACKEND", "disk")),
			Dir:     envString("INSTACLONE_UPLOAD_DIR", "files"),
			Minio: Minio{
				Endpoint:  envString("INSTACLONE_MINIO_ENDPOINT", "127.0.0.1:9000"),
				AccessKey: envString("INSTACLONE_MINIO_ACCESS_KEY", ""),
				SecretKey: envString("INSTACLONE_MINIO_SECRET_KEY", ""),
				Bucket:    envString("INSTACLONE_MINIO_BUCKET", "instaclone"),
				UseSSL:    envBool("INSTACLONE_MINIO_SSL", false),
			},
		},
		Redis: Redis{
			Addr:     envString("INSTACLONE_REDIS_ADDR", ""),
			Password: envString("INSTACLONE_REDIS_PASSWORD", ""),
			DB:       envInt("INSTACLONE_REDIS_DB", 0),
		},
		RateLimits: RateLimits{
			SignupPerMinute:  envInt("INSTACLONE_RL_SIGNUP_PER_MIN", 10),
			LoginPerMinute:   envInt("INSTACLONE_RL_LOGIN_PER_MIN", 20),
			ArticlePerMinute: envInt("INSTACLONE_RL_ARTICLE_PER_MIN", 10),
			CommentPerMinute: envInt("INSTACLONE_RL_COMMENT_PER_MIN", 30),
		},
		LogLevel:   envString("INSTACLONE_LOG_LEVEL", "info"),
		LogFormat:  envString("INSTACLONE_LOG_FORMAT", "json"),
		TrustProxy: envBool("INSTACLONE_TRUST_PROXY", false),
	}

	return cfg
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

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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
