package infra

import "testing"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PUBLIC_BASE_URL", "https://relay.example.com")
	t.Setenv("STORE_BASE_URL", "https://api.store.example.com/v0/appXYZ")
	t.Setenv("STORE_API_TOKEN", "store-token")
	t.Setenv("WAVESPEED_API_KEY", "ws-key")
	t.Setenv("FAL_API_KEY", "fal-key")
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "")
	t.Setenv("STORE_TABLE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StoreTable != "Batches" {
		t.Fatalf("StoreTable = %q, want Batches", cfg.StoreTable)
	}
	if cfg.MaxBatchCount != 8 {
		t.Fatalf("MaxBatchCount = %d, want 8", cfg.MaxBatchCount)
	}
	if cfg.FalBaseURL != "https://queue.fal.run" {
		t.Fatalf("FalBaseURL = %q", cfg.FalBaseURL)
	}
}

func TestLoadConfigTrimsTrailingSlashes(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PUBLIC_BASE_URL", "https://relay.example.com/")
	t.Setenv("STORE_BASE_URL", "https://api.store.example.com/v0/appXYZ/")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PublicBaseURL != "https://relay.example.com" {
		t.Fatalf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
	if cfg.StoreBaseURL != "https://api.store.example.com/v0/appXYZ" {
		t.Fatalf("StoreBaseURL = %q", cfg.StoreBaseURL)
	}
}

func TestLoadConfigRequiresCredentials(t *testing.T) {
	cases := []string{
		"PUBLIC_BASE_URL",
		"STORE_BASE_URL",
		"STORE_API_TOKEN",
		"WAVESPEED_API_KEY",
		"FAL_API_KEY",
	}
	for _, key := range cases {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, "")
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error when %s is missing", key)
			}
		})
	}
}
