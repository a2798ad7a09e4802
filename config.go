package main

import (
	"os"
	"strconv"
)

// Config holds everything the app needs from the environment.
type Config struct {
	Addr      string // listen address
	Database  string // sqlite DSN
	SecretKey string // session cookie signing key
	StaticDir string // served under /static/
	UploadDir string // avatar storage, inside StaticDir
	MaxUpload int64  // request body limit in bytes
}

func loadConfig() Config {
	return Config{
		Addr:      envOr("CHIRP_ADDR", ":8080"),
		Database:  envOr("CHIRP_DB", "file:chirp.db?_foreign_keys=on"),
		SecretKey: envOr("CHIRP_SECRET_KEY", "change-me"),
		StaticDir: envOr("CHIRP_STATIC_DIR", "static"),
		UploadDir: envOr("CHIRP_UPLOAD_DIR", "static/avatars"),
		MaxUpload: envInt64Or("CHIRP_MAX_UPLOAD", 2<<20), // 2MB
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
