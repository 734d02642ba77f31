package config

import "testing"

func TestEnsureDSNBuildsFromParts(t *testing.T) {
	cfg := DBConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "splitabill",
		Password: "secret",
		Name:     "splitabill",
		SSLMode:  "disable",
	}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN error: %v", err)
	}
	want := "host=localhost port=5432 user=splitabill password=secret dbname=splitabill sslmode=disable"
	if cfg.DSN != want {
		t.Fatalf("unexpected dsn %q", cfg.DSN)
	}
}

func TestEnsureDSNPrefersExplicitDSN(t *testing.T) {
	cfg := DBConfig{DSN: "postgres://explicit"}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN error: %v", err)
	}
	if cfg.DSN != "postgres://explicit" {
		t.Fatalf("explicit DSN overwritten: %q", cfg.DSN)
	}
}

func TestEnsureDSNRequiresSettings(t *testing.T) {
	cfg := DBConfig{}
	if err := cfg.ensureDSN(); err == nil {
		t.Fatal("expected error when no connection settings provided")
	}
}

func TestAppEnvHelpers(t *testing.T) {
	app := AppConfig{Env: "dev"}
	if !app.IsDev() || app.IsProd() {
		t.Fatal("dev env misclassified")
	}
	app.Env = "PROD"
	if !app.IsProd() {
		t.Fatal("prod env should match case-insensitively")
	}
}

func TestRedisEnabled(t *testing.T) {
	if (RedisConfig{}).Enabled() {
		t.Fatal("empty redis config should be disabled")
	}
	if !(RedisConfig{Address: "localhost:6379"}).Enabled() {
		t.Fatal("address should enable redis")
	}
}
