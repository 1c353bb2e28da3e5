package config

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.ServerPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.ServerPort)
	}
	if cfg.Mongo.URI != "mongodb://localhost:27017" || cfg.Mongo.Database != "eventcrm" {
		t.Fatalf("unexpected mongo defaults: %+v", cfg.Mongo)
	}
	if cfg.Notifier.Mode != "smtp" || cfg.Notifier.Channel != "notifications" {
		t.Fatalf("unexpected notifier defaults: %+v", cfg.Notifier)
	}
	if cfg.Storage.Backend != "none" {
		t.Fatalf("expected storage disabled by default, got %q", cfg.Storage.Backend)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MONGO_URI", "mongodb://db.internal:27017")
	t.Setenv("NOTIFIER_MODE", "RabbitMQ")
	t.Setenv("RABBITMQ_QUEUE_DURABLE", "false")
	t.Setenv("STORAGE_BACKEND", "MinIO")

	cfg := LoadConfig()

	if cfg.ServerPort != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.ServerPort)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Fatalf("unexpected secret %q", cfg.JWTSecret)
	}
	if cfg.Mongo.URI != "mongodb://db.internal:27017" {
		t.Fatalf("unexpected mongo uri %q", cfg.Mongo.URI)
	}
	if cfg.Notifier.Mode != "rabbitmq" {
		t.Fatalf("mode must be lowercased, got %q", cfg.Notifier.Mode)
	}
	if cfg.RabbitMQ.QueueDurable {
		t.Fatal("expected queue durability off")
	}
	if cfg.Storage.Backend != "minio" {
		t.Fatalf("backend must be lowercased, got %q", cfg.Storage.Backend)
	}
}
