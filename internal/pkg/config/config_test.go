package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Port)
	}
	if cfg.Lock.TTL != 10*time.Second || cfg.Lock.Wait != 3*time.Second {
		t.Errorf("unexpected lock defaults: %+v", cfg.Lock)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("expected no brokers by default, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Proofs.MaxBytes != 10<<20 {
		t.Errorf("expected 10MiB proof limit, got %d", cfg.Proofs.MaxBytes)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"KAFKA_BROKERS": "kafka-1:9092,kafka-2:9092",
		"EVENT_WORKERS": "16",
		"LOCK_WAIT":     "500ms",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers: %v", cfg.Kafka.Brokers)
	}
	if cfg.Events.Workers != 16 {
		t.Errorf("expected 16 workers, got %d", cfg.Events.Workers)
	}
	if cfg.Lock.Wait != 500*time.Millisecond {
		t.Errorf("expected 500ms wait, got %s", cfg.Lock.Wait)
	}
}

func TestLoadFrom_ProductionNeedsSecret(t *testing.T) {
	_, err := LoadFrom(context.Background(), envconfig.MapLookuper(map[string]string{
		"ENV": "production",
	}))
	if err == nil {
		t.Fatal("expected error without JWT_SECRET in production")
	}
}
