package util

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv loads .env.<env> then .env from the working directory. Values
// already present in the process environment win.
func LoadEnv(env string) error {
	files := make([]string, 0, 2)
	for _, name := range []string{".env." + env, ".env"} {
		if _, err := os.Stat(name); err == nil {
			files = append(files, name)
		}
	}
	if len(files) == 0 {
		return os.ErrNotExist
	}
	return godotenv.Load(files...)
}

func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvOr returns the variable or def when unset or empty.
func GetEnvOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

func GetIntEnvOr(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return def
	}
	return n
}

func GetBoolEnv(key string) bool {
	return cast.ToBool(os.Getenv(key))
}

// GetDurationEnvOr accepts "5s" style strings or bare milliseconds.
func GetDurationEnvOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := cast.ToInt64E(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

// GetListEnv splits a comma separated variable, dropping blanks.
func GetListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
