// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command chatserver starts the AleutianRelay chat HTTP server.
//
// This is the main entry point for the containerized chat service. It
// reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - CHAT_PORT: HTTP server port (default: 12310)
//   - LLM_BACKEND_TYPE: LLM provider - openai, ollama (default: ollama)
//   - WEAVIATE_SERVICE_URL: Weaviate database URL (required)
//   - EMBEDDING_SERVICE_URL: Embedding service endpoint (required)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: aleutian-otel-collector:4317)
//   - EXCHANGE_REPLAY_PATH: Side-channel replay buffer location (default: ./data/exchange_events)
//   - CHAT_LOG_DIR: Optional directory for per-day JSON log files
//
// # Usage
//
//	# Build
//	go build -o chatserver ./cmd/chatserver
//
//	# Run
//	./chatserver
//
//	# Or via container
//	podman-compose up chatserver
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/jinterlante1206/AleutianRelay/pkg/logging"
	"github.com/jinterlante1206/AleutianRelay/services/chat"
)

func main() {
	// Setup structured logging. CHAT_LOG_DIR additionally writes a
	// per-day JSON log file.
	logger := logging.New(logging.Config{
		Service: "chat-service",
		JSON:    true,
		LogDir:  os.Getenv("CHAT_LOG_DIR"),
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Build configuration from environment variables
	cfg := chat.Config{
		Port:         getEnvInt("CHAT_PORT", 12310),
		LLMBackend:   getEnvString("LLM_BACKEND_TYPE", "ollama"),
		WeaviateURL:  os.Getenv("WEAVIATE_SERVICE_URL"),
		OTelEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "aleutian-otel-collector:4317"),
		ReplayPath:   getEnvString("EXCHANGE_REPLAY_PATH", "./data/exchange_events"),
	}

	slog.Info("Starting chat server",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"weaviate_url", cfg.WeaviateURL,
	)

	// Create the service with default (no-op) extension options.
	// Enterprise builds will pass custom ServiceOptions here.
	svc, err := chat.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create chat service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Chat server error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
