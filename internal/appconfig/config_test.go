package appconfig

import (
	"testing"
	"time"
)

func TestDefaultConfigMatchesChatServer(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.API.BaseURL != "http://localhost:8000/api" {
		t.Fatalf("unexpected base url %q", cfg.API.BaseURL)
	}
	if cfg.API.RequestTimeout() != 30*time.Second {
		t.Fatalf("expected 30s request timeout, got %s", cfg.API.RequestTimeout())
	}
	if cfg.Chat.ShowThinking {
		t.Fatalf("expected thinking hidden by default")
	}
	if cfg.Mock.Delay() != 40*time.Millisecond {
		t.Fatalf("unexpected mock delay %s", cfg.Mock.Delay())
	}
}
