package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.API.BaseURL != "http://localhost:8080/api" {
			t.Errorf("expected base url http://localhost:8080/api, got %s", config.API.BaseURL)
		}
		if config.API.Timeout.Duration != 10*time.Second {
			t.Errorf("expected timeout 10s, got %s", config.API.Timeout)
		}
		if config.Browse.PageSize != 10 {
			t.Errorf("expected page size 10, got %d", config.Browse.PageSize)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "moviectl.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}
		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}
		if *config != *DefaultConfig() {
			t.Errorf("created config differs from default: %+v", config)
		}
		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "moviectl.toml")
		content := `
[api]
base_url = "https://movies.example.com/api"
token = "abc"
`
		if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.API.BaseURL != "https://movies.example.com/api" {
			t.Errorf("expected overridden base url, got %s", config.API.BaseURL)
		}
		if config.API.Token != "abc" {
			t.Errorf("expected token abc, got %s", config.API.Token)
		}
		if config.API.Timeout.Duration != 10*time.Second {
			t.Errorf("expected default timeout to survive, got %s", config.API.Timeout)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		dir := t.TempDir()
		cases := map[string]string{
			"syntax":    "[api\nbase_url=",
			"duration":  "[api]\ntimeout = \"soon\"\n",
			"page size": "[browse]\npage_size = 0\n",
		}
		for name, content := range cases {
			path := filepath.Join(dir, name+".toml")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Errorf("%s: expected error", name)
			}
		}
		if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
