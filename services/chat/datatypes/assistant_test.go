// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAssistantChatRequest_Validate verifies the struct tag validation
// paths.
func TestAssistantChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     AssistantChatRequest
		wantErr bool
	}{
		{
			name:    "valid minimal request",
			req:     AssistantChatRequest{Message: "hello"},
			wantErr: false,
		},
		{
			name: "valid with history",
			req: AssistantChatRequest{
				Message: "and then?",
				History: []Message{
					{Role: "user", Content: "hi"},
					{Role: "assistant", Content: "Hello!"},
				},
			},
			wantErr: false,
		},
		{
			name:    "empty message rejected",
			req:     AssistantChatRequest{Message: ""},
			wantErr: true,
		},
		{
			name:    "oversized message rejected",
			req:     AssistantChatRequest{Message: strings.Repeat("a", MaxMessageContentBytes+1)},
			wantErr: true,
		},
		{
			name:    "message at exact limit accepted",
			req:     AssistantChatRequest{Message: strings.Repeat("a", MaxMessageContentBytes)},
			wantErr: false,
		},
		{
			name: "malformed request ID rejected",
			req:  AssistantChatRequest{RequestID: "not-a-uuid", Message: "hi"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestAssistantChatRequest_Validate_HistoryLimits verifies the history
// count cap and per-entry size cap.
func TestAssistantChatRequest_Validate_HistoryLimits(t *testing.T) {
	tooMany := make([]Message, MaxHistoryMessages+1)
	for i := range tooMany {
		tooMany[i] = Message{Role: "user", Content: "x"}
	}
	req := AssistantChatRequest{Message: "hi", History: tooMany}
	assert.Error(t, req.Validate())

	req = AssistantChatRequest{
		Message: "hi",
		History: []Message{{Role: "user", Content: strings.Repeat("a", MaxMessageContentBytes+1)}},
	}
	err := req.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHistoryTooLarge)
}

// TestAssistantChatRequest_EnsureDefaults verifies identifiers are
// generated when absent and preserved when present.
func TestAssistantChatRequest_EnsureDefaults(t *testing.T) {
	req := AssistantChatRequest{Message: "hi"}
	req.EnsureDefaults()
	assert.NotEmpty(t, req.RequestID)
	assert.Positive(t, req.Timestamp)

	fixed := AssistantChatRequest{
		RequestID: "550e8400-e29b-41d4-a716-446655440000",
		Timestamp: 42,
		Message:   "hi",
	}
	fixed.EnsureDefaults()
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", fixed.RequestID)
	assert.Equal(t, int64(42), fixed.Timestamp)
}

// TestNewAssistantChatResponse verifies the synchronous response
// defaults to a finished exchange.
func TestNewAssistantChatResponse(t *testing.T) {
	resp := NewAssistantChatResponse("req-1", "done deal")
	assert.NotEmpty(t, resp.ResponseID)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "done deal", resp.Answer)
	assert.True(t, resp.Finished)
	assert.Empty(t, resp.ExchangeID)
}
