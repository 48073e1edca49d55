package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ServerAddress != ":8080" {
		t.Errorf("ServerAddress = %q", cfg.ServerAddress)
	}
	if cfg.MongoDB != "growme" {
		t.Errorf("MongoDB = %q", cfg.MongoDB)
	}
	if cfg.JWTExpiration.Hours() != 24 {
		t.Errorf("JWTExpiration = %v", cfg.JWTExpiration)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9999")
	t.Setenv("ENV", "production")

	cfg := Load()
	if cfg.ServerAddress != ":9999" {
		t.Errorf("ServerAddress = %q", cfg.ServerAddress)
	}
	if cfg.Env != "production" {
		t.Errorf("Env = %q", cfg.Env)
	}
}
