// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseDirectives_NoMarker verifies that plain text yields no
// directives.
func TestParseDirectives_NoMarker(t *testing.T) {
	texts := []string{
		"",
		"Nothing much happened in the workspace today.",
		"Here is some JSON without a marker: {\"type\":\"query-messages\"}",
		"[Action] {\"type\":\"query-messages\",\"in\":\"#general\"}", // single brackets
	}
	for _, text := range texts {
		assert.Empty(t, ParseDirectives(text), "input: %q", text)
	}
}

// TestParseDirectives_SingleMessageQuery verifies the common case of one
// well-formed directive with surrounding prose.
func TestParseDirectives_SingleMessageQuery(t *testing.T) {
	text := "Let me check that channel for you.\n" +
		`[[Action]] {"type":"query-messages","in":"#general"}` + "\n" +
		"I'll have an answer shortly."

	directives := ParseDirectives(text)
	require.Len(t, directives, 1)

	d, ok := directives[0].(QueryMessagesDirective)
	require.True(t, ok, "expected QueryMessagesDirective, got %T", directives[0])
	assert.Equal(t, "#general", d.Channel)
}

// TestParseDirectives_MultipleInOrder verifies that all matches are
// extracted in left-to-right order of appearance.
func TestParseDirectives_MultipleInOrder(t *testing.T) {
	text := `First: [[Action]] {"type":"query-channels","filter":"eng"}` + "\n" +
		`Second: [[Action]] {"type":"query-users","filter":"oncall"}` + "\n" +
		`Third: [[Action]] {"type":"query-messages","in":"#incidents"}`

	directives := ParseDirectives(text)
	require.Len(t, directives, 3)

	ch, ok := directives[0].(QueryChannelsDirective)
	require.True(t, ok)
	assert.Equal(t, "eng", ch.Filter)

	us, ok := directives[1].(QueryUsersDirective)
	require.True(t, ok)
	assert.Equal(t, "oncall", us.Filter)

	ms, ok := directives[2].(QueryMessagesDirective)
	require.True(t, ok)
	assert.Equal(t, "#incidents", ms.Channel)
}

// TestParseDirectives_MalformedPayloadSkipped verifies that a bad match
// does not affect extraction of valid ones.
func TestParseDirectives_MalformedPayloadSkipped(t *testing.T) {
	text := `[[Action]] {not valid json}` + "\n" +
		`[[Action]] {"type":"query-users","filter":"admin"}`

	directives := ParseDirectives(text)
	require.Len(t, directives, 1)

	d, ok := directives[0].(QueryUsersDirective)
	require.True(t, ok)
	assert.Equal(t, "admin", d.Filter)
}

// TestParseDirectives_TruncatedJSON verifies that a truncated payload
// yields zero directives from that match.
func TestParseDirectives_TruncatedJSON(t *testing.T) {
	text := `[[Action]] {"type":"query-channels"`
	assert.Empty(t, ParseDirectives(text))
}

// TestParseDirectives_UnknownKind verifies forward-compatible handling
// of unsupported kinds: parsed, tagged, never an error.
func TestParseDirectives_UnknownKind(t *testing.T) {
	text := `[[Action]] {"type":"query-frobnicate","target":"x"}`

	directives := ParseDirectives(text)
	require.Len(t, directives, 1)

	d, ok := directives[0].(UnknownDirective)
	require.True(t, ok)
	assert.Equal(t, "query-frobnicate", d.Type)
	assert.Equal(t, "query-frobnicate", d.Kind())
}

// TestParseDirectives_TrailingProseSameLine verifies the decoder stops
// at the end of the JSON value and tolerates trailing text.
func TestParseDirectives_TrailingProseSameLine(t *testing.T) {
	text := `[[Action]] {"type":"query-messages","in":"#general"} and then I'll summarize.`

	directives := ParseDirectives(text)
	require.Len(t, directives, 1)
	assert.Equal(t, "#general", directives[0].(QueryMessagesDirective).Channel)
}

// TestParseDirectives_EmptyFilterOptional verifies that kind-specific
// fields may be omitted.
func TestParseDirectives_EmptyFilterOptional(t *testing.T) {
	directives := ParseDirectives(`[[Action]] {"type":"query-channels"}`)
	require.Len(t, directives, 1)
	assert.Equal(t, "", directives[0].(QueryChannelsDirective).Filter)
}
