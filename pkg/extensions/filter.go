// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import "context"

// MessageFilter transforms message content before it reaches the model.
//
// The primary enterprise use case is PII redaction: stripping or
// masking sensitive values from user messages before they leave the
// deployment boundary. Filters run on the synchronous request path, so
// implementations must be fast.
//
// Implementations must be safe for concurrent use.
type MessageFilter interface {
	// FilterInbound transforms a user message before it is added to
	// the model's turn sequence. Returning an error blocks the
	// exchange; the caller reports it as a policy rejection.
	FilterInbound(ctx context.Context, userID, content string) (string, error)
}

// NopMessageFilter is the default filter for open source.
// It passes content through unchanged.
//
// Thread-safe: this implementation has no mutable state.
type NopMessageFilter struct{}

// FilterInbound returns the content unchanged.
func (f *NopMessageFilter) FilterInbound(_ context.Context, _ string, content string) (string, error) {
	return content, nil
}

// Compile-time interface compliance check.
var _ MessageFilter = (*NopMessageFilter)(nil)
