// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"time"
)

// AuditEvent represents a security-relevant event for compliance logging.
//
// # Event Categories
//
// Events are categorized by type for filtering and alerting:
//   - Authentication: "auth.login", "auth.failed"
//   - Chat: "chat.message", "assistant.exchange", "assistant.followup"
//   - Data Access: "data.read", "data.write"
//
// # Compliance Fields
//
// For regulatory compliance, always populate:
//   - UserID: Required for GDPR right-to-know requests
//   - Timestamp: Required for audit trail integrity
//   - ResourceType/ResourceID: Required for data lineage
type AuditEvent struct {
	// EventType categorizes the event for filtering and alerting.
	// Format: "category.action" (e.g., "assistant.exchange")
	EventType string

	// Timestamp is when the event occurred (always use UTC).
	// If zero, implementations should set to time.Now().UTC().
	Timestamp time.Time

	// UserID identifies who performed the action.
	// Use "system" for automated actions, "anonymous" if unknown.
	UserID string

	// Action describes what operation was attempted.
	// Common values: "create", "read", "send", "execute"
	Action string

	// ResourceType is the category of resource involved.
	// Examples: "message", "channel", "exchange"
	ResourceType string

	// ResourceID is the specific resource instance (optional).
	ResourceID string

	// Outcome indicates the result of the action.
	// Values: "success", "failure", "blocked", "error"
	Outcome string

	// Metadata holds additional event-specific data.
	Metadata map[string]any
}

// AuditLogger records security-relevant events for compliance.
//
// Implementations must be safe for concurrent use and must not block
// request handling; buffer or drop rather than stall.
//
// # Open Source Behavior
//
// The default NopAuditLogger discards all events.
//
// # Enterprise Implementation
//
// Enterprise versions ship events to SIEM systems (Splunk, Datadog,
// CloudWatch) or append-only compliance stores.
type AuditLogger interface {
	// Log records one audit event. Implementations should tolerate a
	// zero Timestamp by filling in the current time.
	Log(ctx context.Context, event AuditEvent)
}

// NopAuditLogger is the default audit logger for open source.
// It discards all events.
//
// Thread-safe: this implementation has no mutable state.
type NopAuditLogger struct{}

// Log discards the event.
func (l *NopAuditLogger) Log(_ context.Context, _ AuditEvent) {}

// Compile-time interface compliance check.
var _ AuditLogger = (*NopAuditLogger)(nil)
