// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assistant implements the conversational agent's
// action-resolution loop: parsing action directives out of model
// output, executing them against the workspace store, and driving the
// bounded model/tool iteration that produces follow-up answers.
package assistant

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/jinterlante1206/AleutianRelay/services/chat/observability"
)

// ActionMarker is the literal token the model emits, on its own line,
// immediately before a JSON directive payload. The system prompt
// teaches the model this grammar; ParseDirectives is its counterpart.
const ActionMarker = "[[Action]]"

// Directive kind tags as they appear in the JSON payload's "type" field.
const (
	KindQueryMessages = "query-messages"
	KindQueryChannels = "query-channels"
	KindQueryUsers    = "query-users"
)

// =============================================================================
// Directive Variants
// =============================================================================

// Directive is a closed set of actions the model may request. The three
// concrete query variants plus UnknownDirective are the only
// implementations; the unexported method seals the set so dispatch
// sites can type-switch exhaustively.
type Directive interface {
	// Kind returns the wire tag of the directive.
	Kind() string

	isDirective()
}

// QueryMessagesDirective asks for the most recent messages of a channel.
type QueryMessagesDirective struct {
	// Channel is the channel reference as the model wrote it. A leading
	// '#' is tolerated.
	Channel string
}

// QueryChannelsDirective asks for channels visible to the user, with an
// optional free-text filter.
type QueryChannelsDirective struct {
	Filter string
}

// QueryUsersDirective asks for workspace members, with an optional
// free-text filter against status message or role.
type QueryUsersDirective struct {
	Filter string
}

// UnknownDirective carries a syntactically valid payload whose type tag
// is not one of the supported kinds. It exists so that new kinds a
// future model emits degrade to a logged no-op instead of a parse
// failure.
type UnknownDirective struct {
	Type string
	Raw  json.RawMessage
}

func (d QueryMessagesDirective) Kind() string { return KindQueryMessages }
func (d QueryChannelsDirective) Kind() string { return KindQueryChannels }
func (d QueryUsersDirective) Kind() string    { return KindQueryUsers }
func (d UnknownDirective) Kind() string       { return d.Type }

func (QueryMessagesDirective) isDirective() {}
func (QueryChannelsDirective) isDirective() {}
func (QueryUsersDirective) isDirective()    {}
func (UnknownDirective) isDirective()       {}

// directivePayload is the raw wire shape of a directive. Kind-specific
// fields are a superset; each variant picks the ones it uses.
type directivePayload struct {
	Type   string `json:"type"`
	In     string `json:"in"`
	Filter string `json:"filter"`
}

// =============================================================================
// Parser
// =============================================================================

// ParseDirectives scans model output for action directives.
//
// # Description
//
// Scans the whole text for every occurrence of ActionMarker and
// attempts to decode the JSON object that follows each one. The
// decoder reads exactly one JSON value, so prose after the payload on
// the same line is fine. A match whose payload fails to decode is
// skipped with a diagnostic; the scan continues with the next match.
//
// # Inputs
//
//   - text: Arbitrary model output.
//
// # Outputs
//
//   - []Directive: Successfully parsed directives in order of
//     appearance. Empty when the marker is absent or every payload is
//     malformed; parsing itself never fails.
func ParseDirectives(text string) []Directive {
	var directives []Directive

	rest := text
	for {
		idx := strings.Index(rest, ActionMarker)
		if idx < 0 {
			break
		}
		payloadText := rest[idx+len(ActionMarker):]

		var payload directivePayload
		dec := json.NewDecoder(strings.NewReader(payloadText))
		if err := dec.Decode(&payload); err != nil {
			slog.Warn("Skipping malformed action directive", "error", err)
			if m := observability.DefaultMetrics; m != nil {
				m.MalformedDirectivesTotal.Inc()
			}
			rest = payloadText
			continue
		}

		directives = append(directives, directiveFromPayload(payload, payloadText, dec.InputOffset()))

		// Resume scanning after the decoded payload.
		rest = payloadText[dec.InputOffset():]
	}

	return directives
}

func directiveFromPayload(p directivePayload, payloadText string, consumed int64) Directive {
	switch p.Type {
	case KindQueryMessages:
		return QueryMessagesDirective{Channel: p.In}
	case KindQueryChannels:
		return QueryChannelsDirective{Filter: p.Filter}
	case KindQueryUsers:
		return QueryUsersDirective{Filter: p.Filter}
	default:
		raw := json.RawMessage(strings.TrimSpace(payloadText[:consumed]))
		return UnknownDirective{Type: p.Type, Raw: raw}
	}
}
