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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinterlante1206/AleutianRelay/services/chat/store"
	"go.opentelemetry.io/otel/attribute"
)

// defaultResultLimit bounds how many records a single directive may
// return to the model.
const defaultResultLimit = 10

// Executor resolves directives into textual action results.
//
// # Description
//
// Every query goes through the membership-scoped Store interface with
// the requesting user's ID, so a directive can never read data its
// user could not read by hand. Directives originate from model output
// and model output is influenced by conversation input, so the
// parameters they carry are treated as untrusted.
//
// # Thread Safety
//
// Executor is stateless and safe for concurrent use.
type Executor struct {
	store store.Store
	limit int
}

// NewExecutor creates an Executor with the default result limit.
func NewExecutor(s store.Store) *Executor {
	return &Executor{store: s, limit: defaultResultLimit}
}

// Execute resolves a single directive for the given user.
//
// # Outputs
//
//   - result: A textual tool result to feed back to the model. Lookup
//     misses (channel not found, no workspace) come back as explanatory
//     strings here, not errors, so the model can decide how to phrase
//     them to the user.
//   - ok: False for unknown directive kinds, which produce no result
//     and are logged.
func (e *Executor) Execute(ctx context.Context, userID string, d Directive) (result string, ok bool) {
	ctx, span := tracer.Start(ctx, "Executor.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("directive.kind", d.Kind()))

	switch dir := d.(type) {
	case QueryMessagesDirective:
		return e.queryMessages(ctx, userID, dir), true
	case QueryChannelsDirective:
		return e.queryChannels(ctx, userID, dir), true
	case QueryUsersDirective:
		return e.queryUsers(ctx, userID, dir), true
	case UnknownDirective:
		slog.Warn("Ignoring directive of unknown kind", "kind", dir.Type)
		return "", false
	default:
		// Unreachable while the Directive set stays sealed.
		slog.Error("Directive variant not handled", "kind", d.Kind())
		return "", false
	}
}

func (e *Executor) queryMessages(ctx context.Context, userID string, d QueryMessagesDirective) string {
	channel, err := e.store.ChannelByName(ctx, userID, d.Channel)
	if err != nil {
		if errors.Is(err, store.ErrChannelNotFound) {
			return fmt.Sprintf("Channel %q was not found or you do not have access to it.", d.Channel)
		}
		slog.Error("Channel lookup failed", "error", err, "channel", d.Channel)
		return fmt.Sprintf("Looking up channel %q failed due to an internal error.", d.Channel)
	}

	messages, err := e.store.RecentMessages(ctx, channel.ID, e.limit)
	if err != nil {
		slog.Error("Message listing failed", "error", err, "channelID", channel.ID)
		return fmt.Sprintf("Fetching messages from #%s failed due to an internal error.", channel.Name)
	}
	if len(messages) == 0 {
		return fmt.Sprintf("Channel #%s has no messages yet.", channel.Name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Most recent messages in #%s (newest first):\n", channel.Name)
	for _, m := range messages {
		fmt.Fprintf(&b, "- %s: %s\n", m.SenderName, m.Content)
	}
	return b.String()
}

func (e *Executor) queryChannels(ctx context.Context, userID string, d QueryChannelsDirective) string {
	channels, err := e.store.ListChannels(ctx, userID, d.Filter, e.limit)
	if err != nil {
		slog.Error("Channel listing failed", "error", err)
		return "Listing channels failed due to an internal error."
	}
	if len(channels) == 0 {
		if d.Filter == "" {
			return "You are not a member of any channels."
		}
		return fmt.Sprintf("No channels you belong to match %q.", d.Filter)
	}

	var b strings.Builder
	b.WriteString("Channels you belong to:\n")
	for _, c := range channels {
		fmt.Fprintf(&b, "- #%s: %s (%d members)\n", c.Name, c.Description, c.MemberCount())
	}
	return b.String()
}

func (e *Executor) queryUsers(ctx context.Context, userID string, d QueryUsersDirective) string {
	members, err := e.store.ListWorkspaceMembers(ctx, userID, d.Filter, e.limit)
	if err != nil {
		if errors.Is(err, store.ErrNoWorkspace) {
			return "You do not belong to a workspace, so there are no members to list."
		}
		slog.Error("Member listing failed", "error", err)
		return "Listing workspace members failed due to an internal error."
	}
	if len(members) == 0 {
		return fmt.Sprintf("No workspace members match %q.", d.Filter)
	}

	var b strings.Builder
	b.WriteString("Workspace members:\n")
	for _, m := range members {
		line := fmt.Sprintf("- %s (%s, %s)", m.DisplayName, m.UserID, m.Role)
		if m.StatusMessage != "" {
			line += ": " + m.StatusMessage
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
