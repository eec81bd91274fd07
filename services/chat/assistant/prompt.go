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
	"fmt"
	"os"
	"strings"

	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
)

// defaultPersona is the assistant's system persona when
// SYSTEM_ROLE_PROMPT_PERSONA is not set.
const defaultPersona = "You are a helpful workspace assistant. You answer questions " +
	"about channels, messages, and members of the user's workspace. Be concise and " +
	"do not invent information you have not been given."

// operatingInstructions teaches the model the directive grammar. The
// marker and payload shapes here must stay in lockstep with
// ParseDirectives.
const operatingInstructions = `When you need workspace data to answer, emit an action request on its own line, in this exact form:

[[Action]] {"type":"<kind>", ...}

Supported kinds:
  {"type":"query-messages","in":"#channel-name"}   recent messages from a channel
  {"type":"query-channels","filter":"text"}        channels the user belongs to (filter optional)
  {"type":"query-users","filter":"text"}           workspace members (filter optional)

Tell the user in plain language what you are looking up. Results will be supplied to you in a follow-up system message. When you have what you need, answer without emitting any action request.`

// Persona returns the system persona, preferring the
// SYSTEM_ROLE_PROMPT_PERSONA environment variable.
func Persona() string {
	if p := os.Getenv("SYSTEM_ROLE_PROMPT_PERSONA"); p != "" {
		return p
	}
	return defaultPersona
}

// BuildTurns assembles the initial turn sequence for an exchange.
//
// # Description
//
// Order is significant and preserved verbatim across loop iterations:
// persona, operating instructions, retrieved context snippets, prior
// history, then the new user utterance.
func BuildTurns(snippets []datatypes.ContextSnippet, history []datatypes.Message, userMessage string) []datatypes.Message {
	turns := make([]datatypes.Message, 0, len(history)+4)
	turns = append(turns,
		datatypes.Message{Role: "system", Content: Persona()},
		datatypes.Message{Role: "system", Content: operatingInstructions},
	)

	if len(snippets) > 0 {
		var b strings.Builder
		b.WriteString("Relevant workspace history:\n")
		for _, s := range snippets {
			fmt.Fprintf(&b, "- %s\n", s.Content)
		}
		turns = append(turns, datatypes.Message{Role: "system", Content: b.String()})
	}

	turns = append(turns, history...)
	turns = append(turns, datatypes.Message{Role: "user", Content: userMessage})
	return turns
}
