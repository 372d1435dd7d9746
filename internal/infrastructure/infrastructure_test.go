package infrastructure_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/casestudio/internal/config"
	"github.com/JaimeStill/casestudio/internal/infrastructure"
	"github.com/JaimeStill/casestudio/pkg/auth"
	"github.com/JaimeStill/casestudio/pkg/database"
	"github.com/JaimeStill/casestudio/pkg/storage"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "casestudio",
			User:            "casestudio",
			Password:        "casestudio",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			ContainerName:    "generations",
			ConnectionString: azuriteConnString,
		},
		Generation: config.GenerationConfig{
			BaseURL: "http://localhost:11434/v1",
			Model:   "llama3.1:8b",
			Timeout: "30s",
		},
		Logging: config.LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: config.TelemetryConfig{Buffer: 8},
		Version:   "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Close(context.Background())

	if infra.Lifecycle == nil {
		t.Error("Lifecycle is nil")
	}
	if infra.Logger == nil {
		t.Error("Logger is nil")
	}
	if infra.Database == nil {
		t.Error("Database is nil")
	}
	if infra.Storage == nil {
		t.Error("Storage is nil")
	}
	if infra.Telemetry == nil {
		t.Error("Telemetry is nil")
	}
	if infra.Backend == nil {
		t.Error("Backend is nil")
	}
}

func TestNewAuthDisabledAdmitsAnonymous(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Close(context.Background())

	caller, err := infra.Auth.Authenticate(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if caller.Subject != auth.Anonymous.Subject {
		t.Errorf("subject = %q, want %q", caller.Subject, auth.Anonymous.Subject)
	}
}

func TestNewDatabaseConnection(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer infra.Close(context.Background())

	conn := infra.Database.Connection()
	if conn == nil {
		t.Fatal("Database.Connection() returned nil")
	}
	conn.Close()
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.ConnectionString = "not-a-connection-string"

	if _, err := infrastructure.New(cfg); err == nil {
		t.Fatal("expected error for invalid storage connection string")
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "casestudio.log")

	logger := infrastructure.NewLogger(&config.LoggingConfig{
		Level:      "warn",
		Format:     "json",
		File:       path,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	})

	logger.Info("dropped below level")
	logger.Warn("kept", "key", "value")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) || logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("logger level not applied")
	}
	got := string(data)
	if got == "" || !strings.Contains(got, `"msg":"kept"`) || strings.Contains(got, "dropped below level") {
		t.Errorf("log file = %q", got)
	}
}
