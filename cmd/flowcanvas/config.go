package main

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all flowcanvas configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	ListenAddr string `json:"listen_addr"`
	BaseURL    string `json:"base_url"`
	DBPath     string `json:"db_path"`
	LogLevel   string `json:"log_level"`
	Scheduler  bool   `json:"scheduler"`
}

func defaultConfig() Config {
	return Config{
		ListenAddr: ":5001",
		DBPath:     filepath.Join(flowcanvasDir(), "flowcanvas.db"),
		LogLevel:   "info",
		Scheduler:  true,
	}
}

func flowcanvasDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowcanvas"
	}
	return filepath.Join(home, ".flowcanvas")
}

func settingsPath() string {
	return filepath.Join(flowcanvasDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("FLOWCANVAS_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("FLOWCANVAS_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("FLOWCANVAS_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("FLOWCANVAS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLOWCANVAS_SCHEDULER"); v != "" {
		cfg.Scheduler = v == "true" || v == "1"
	}

	// Derive base_url from listen_addr if empty.
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost" + cfg.ListenAddr
	}

	return cfg
}
