// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains request and response types for the assistant
// endpoints. For workspace records, see records.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Constants for Security Compliance
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message content.
	// Mitigates unbounded message input.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxHistoryMessages is the maximum number of history entries in an
	// assistant request. Mitigates unbounded history growth.
	MaxHistoryMessages = 100
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// assistantValidate is the validator instance for assistant datatypes.
// Initialized in init() with custom validators.
var assistantValidate *validator.Validate

func init() {
	assistantValidate = validator.New()
	_ = assistantValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes validates that a string field does not exceed
// MaxMessageContentBytes. Checks byte length (not rune count) to prevent
// memory exhaustion with large payloads.
func validateMaxBytes(fl validator.FieldLevel) bool {
	content := fl.Field().String()
	return len(content) <= MaxMessageContentBytes
}

// =============================================================================
// Assistant Chat Request Types
// =============================================================================

// AssistantChatRequest is the body for POST /v1/assistant/chat.
//
// # Description
//
// AssistantChatRequest carries the user's new utterance plus the prior
// conversation history the client wants the assistant to see. Every
// request includes a unique ID and timestamp for audit trails.
//
// # Validation
//
// Uses go-playground/validator:
//   - Message: required, max 32KB per maxbytes custom validator
//   - History: 0-100 elements, each element's Content max 32KB
//
// # Examples
//
//	req := AssistantChatRequest{
//	    Message: "what happened in #general today?",
//	    History: []Message{
//	        {Role: "user", Content: "hi"},
//	        {Role: "assistant", Content: "Hello! How can I help?"},
//	    },
//	}
type AssistantChatRequest struct {
	RequestID string    `json:"request_id" validate:"omitempty,uuid4"`
	Timestamp int64     `json:"timestamp" validate:"gte=0"`
	Message   string    `json:"message" validate:"required,maxbytes"`
	History   []Message `json:"history,omitempty" validate:"max=100,dive"`
}

// Validate validates the AssistantChatRequest fields.
func (r *AssistantChatRequest) Validate() error {
	if err := assistantValidate.Struct(r); err != nil {
		return err
	}
	for _, m := range r.History {
		if len(m.Content) > MaxMessageContentBytes {
			return ErrHistoryTooLarge
		}
	}
	return nil
}

// EnsureDefaults populates RequestID and Timestamp if the client did not
// provide them, so every request has identifiers for tracing and audit.
func (r *AssistantChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// ErrHistoryTooLarge is returned by Validate when a history entry exceeds
// MaxMessageContentBytes.
var ErrHistoryTooLarge = &ValidationError{Field: "history", Reason: "entry exceeds max content size"}

// ValidationError describes a request field that failed validation beyond
// what struct tags can express.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// =============================================================================
// Assistant Chat Response Types
// =============================================================================

// AssistantChatResponse is the synchronous response to an assistant
// exchange.
//
// # Description
//
// Answer always carries the model's first response. When the response
// triggered data-query actions, ExchangeID identifies the asynchronous
// continuation: the client subscribes to it on the websocket channel to
// receive follow-up events, each flagged with a finished boolean. When
// Finished is true there is nothing further to subscribe for.
//
// # Examples
//
//	Response JSON (no actions triggered):
//	{
//	    "response_id": "660f9500-f39c-52e5-b827-557766551111",
//	    "request_id": "550e8400-e29b-41d4-a716-446655440000",
//	    "timestamp": 1735817400000,
//	    "answer": "Nothing much happened today.",
//	    "finished": true
//	}
type AssistantChatResponse struct {
	ResponseID string `json:"response_id"`
	RequestID  string `json:"request_id"`
	Timestamp  int64  `json:"timestamp"`
	Answer     string `json:"answer"`
	ExchangeID string `json:"exchange_id,omitempty"`
	Finished   bool   `json:"finished"`
}

// NewAssistantChatResponse creates an AssistantChatResponse with
// auto-generated ID and timestamp.
func NewAssistantChatResponse(requestID, answer string) *AssistantChatResponse {
	return &AssistantChatResponse{
		ResponseID: uuid.NewString(),
		RequestID:  requestID,
		Timestamp:  time.Now().UnixMilli(),
		Answer:     answer,
		Finished:   true,
	}
}

// =============================================================================
// Side-Channel Event Types
// =============================================================================

// ExchangeEvent is one follow-up message pushed over the side channel
// during an asynchronous assistant continuation.
type ExchangeEvent struct {
	// ExchangeID identifies the exchange this event belongs to.
	ExchangeID string `json:"exchange_id"`

	// Event names the event kind (e.g. "assistant_followup").
	Event string `json:"event"`

	// Content is the model's response text for this iteration.
	Content string `json:"content"`

	// Finished reports whether this is the final message of the exchange.
	Finished bool `json:"finished"`

	// Timestamp is Unix milliseconds (UTC) when the event was published.
	Timestamp int64 `json:"timestamp"`
}
