// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("aleutian.chat.store")

// overfetchFactor controls how many rows are pulled from Weaviate before
// the case-insensitive substring filter is applied in Go. Weaviate's
// text operators are tokenization-dependent, so substring matching is
// done here for predictable behavior.
const overfetchFactor = 5

// maxOverfetch caps the number of rows pulled per query regardless of
// the caller's limit.
const maxOverfetch = 100

// WeaviateStore implements Store and MessageWriter backed by Weaviate.
//
// # Thread Safety
//
// WeaviateStore is safe for concurrent use. The underlying Weaviate
// client handles connection pooling.
type WeaviateStore struct {
	client  *weaviate.Client
	indexer *MessageIndexer
}

// NewWeaviateStore creates a store backed by the given Weaviate client.
//
// The indexer may be nil, in which case PostMessage stores messages
// without indexing them for semantic retrieval.
func NewWeaviateStore(client *weaviate.Client, indexer *MessageIndexer) *WeaviateStore {
	return &WeaviateStore{
		client:  client,
		indexer: indexer,
	}
}

// Compile-time interface compliance checks.
var (
	_ Store         = (*WeaviateStore)(nil)
	_ MessageWriter = (*WeaviateStore)(nil)
)

// NormalizeChannelName strips a leading '#' and lowercases a channel
// reference. Directive parameters and URL path segments both pass
// through this before lookup.
func NormalizeChannelName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}

// matchesFilter reports whether any of the haystacks contains the filter
// as a case-insensitive substring. An empty filter matches everything.
func matchesFilter(filter string, haystacks ...string) bool {
	if filter == "" {
		return true
	}
	needle := strings.ToLower(filter)
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// memberOfFilter builds the where clause restricting a Channel query to
// channels the user belongs to.
func memberOfFilter(userID string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{"member_ids"}).
		WithOperator(filters.ContainsAny).
		WithValueText(userID)
}

// ChannelByName resolves a channel by name within the user's membership
// scope. See Store.ChannelByName for the contract.
func (s *WeaviateStore) ChannelByName(ctx context.Context, userID, name string) (*datatypes.Channel, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.ChannelByName")
	defer span.End()

	normalized := NormalizeChannelName(name)
	if normalized == "" {
		return nil, ErrChannelNotFound
	}

	nameFilter := filters.Where().
		WithPath([]string{"name"}).
		WithOperator(filters.Equal).
		WithValueString(normalized)

	combined := filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{nameFilter, memberOfFilter(userID)})

	result, err := s.client.GraphQL().Get().
		WithClassName("Channel").
		WithFields(channelFields()...).
		WithWhere(combined).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to query Channel class", "error", err)
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.ChannelQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	if len(parsed.Get.Channel) == 0 {
		return nil, ErrChannelNotFound
	}

	return channelFromResult(parsed.Get.Channel[0]), nil
}

// RecentMessages returns up to limit messages for the channel, newest
// first.
func (s *WeaviateStore) RecentMessages(ctx context.Context, channelID string, limit int) ([]datatypes.ChannelMessage, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.RecentMessages")
	defer span.End()

	whereFilter := filters.Where().
		WithPath([]string{"channel_id"}).
		WithOperator(filters.Equal).
		WithValueString(channelID)

	sortBy := graphql.Sort{
		Path:  []string{"timestamp"},
		Order: graphql.Desc,
	}

	fields := []graphql.Field{
		{Name: "message_id"},
		{Name: "channel_id"},
		{Name: "sender_id"},
		{Name: "sender_name"},
		{Name: "content"},
		{Name: "timestamp"},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName("ChannelMessage").
		WithFields(fields...).
		WithWhere(whereFilter).
		WithSort(sortBy).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to query ChannelMessage class", "error", err, "channelID", channelID)
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.ChannelMessageQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	messages := make([]datatypes.ChannelMessage, 0, len(parsed.Get.ChannelMessage))
	for _, m := range parsed.Get.ChannelMessage {
		messages = append(messages, datatypes.ChannelMessage{
			ID:         m.MessageID,
			ChannelID:  m.ChannelID,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Content:    m.Content,
			Timestamp:  int64(m.Timestamp),
		})
	}
	return messages, nil
}

// ListChannels returns channels the user belongs to, filtered by
// case-insensitive substring against name and description.
func (s *WeaviateStore) ListChannels(ctx context.Context, userID, filter string, limit int) ([]datatypes.Channel, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.ListChannels")
	defer span.End()

	fetch := overfetch(limit)
	result, err := s.client.GraphQL().Get().
		WithClassName("Channel").
		WithFields(channelFields()...).
		WithWhere(memberOfFilter(userID)).
		WithLimit(fetch).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to query Channel class", "error", err)
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.ChannelQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	channels := make([]datatypes.Channel, 0, limit)
	for _, c := range parsed.Get.Channel {
		if !matchesFilter(filter, c.Name, c.Description) {
			continue
		}
		channels = append(channels, *channelFromResult(c))
		if len(channels) >= limit {
			break
		}
	}
	return channels, nil
}

// MemberByUserID returns the user's own membership record.
func (s *WeaviateStore) MemberByUserID(ctx context.Context, userID string) (*datatypes.Member, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.MemberByUserID")
	defer span.End()

	whereFilter := filters.Where().
		WithPath([]string{"user_id"}).
		WithOperator(filters.Equal).
		WithValueString(userID)

	result, err := s.client.GraphQL().Get().
		WithClassName("Member").
		WithFields(memberFields()...).
		WithWhere(whereFilter).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to query Member class", "error", err)
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.MemberQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}
	if len(parsed.Get.Member) == 0 {
		return nil, ErrNoWorkspace
	}

	return memberFromResult(parsed.Get.Member[0]), nil
}

// ListWorkspaceMembers returns members of the user's workspace, filtered
// by case-insensitive substring against status message and role.
func (s *WeaviateStore) ListWorkspaceMembers(ctx context.Context, userID, filter string, limit int) ([]datatypes.Member, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.ListWorkspaceMembers")
	defer span.End()

	// Resolve the requester's workspace first; the member listing is
	// always scoped to it.
	self, err := s.MemberByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	whereFilter := filters.Where().
		WithPath([]string{"workspace_id"}).
		WithOperator(filters.Equal).
		WithValueString(self.WorkspaceID)

	fetch := overfetch(limit)
	result, err := s.client.GraphQL().Get().
		WithClassName("Member").
		WithFields(memberFields()...).
		WithWhere(whereFilter).
		WithLimit(fetch).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to query Member class", "error", err)
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.MemberQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	members := make([]datatypes.Member, 0, limit)
	for _, m := range parsed.Get.Member {
		if !matchesFilter(filter, m.StatusMessage, m.Role) {
			continue
		}
		members = append(members, *memberFromResult(m))
		if len(members) >= limit {
			break
		}
	}
	return members, nil
}

// UserChannelIDs returns the IDs of every channel the user belongs to.
func (s *WeaviateStore) UserChannelIDs(ctx context.Context, userID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.UserChannelIDs")
	defer span.End()

	result, err := s.client.GraphQL().Get().
		WithClassName("Channel").
		WithFields(graphql.Field{Name: "channel_id"}).
		WithWhere(memberOfFilter(userID)).
		WithLimit(maxOverfetch).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to query Channel class for membership", "error", err)
		return nil, fmt.Errorf("weaviate query failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.ChannelQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	ids := make([]string, 0, len(parsed.Get.Channel))
	for _, c := range parsed.Get.Channel {
		ids = append(ids, c.ChannelID)
	}
	return ids, nil
}

// =============================================================================
// Helpers
// =============================================================================

func overfetch(limit int) int {
	fetch := limit * overfetchFactor
	if fetch > maxOverfetch {
		fetch = maxOverfetch
	}
	if fetch < 1 {
		fetch = 1
	}
	return fetch
}

func channelFields() []graphql.Field {
	return []graphql.Field{
		{Name: "channel_id"},
		{Name: "workspace_id"},
		{Name: "name"},
		{Name: "description"},
		{Name: "member_ids"},
	}
}

func memberFields() []graphql.Field {
	return []graphql.Field{
		{Name: "user_id"},
		{Name: "workspace_id"},
		{Name: "display_name"},
		{Name: "role"},
		{Name: "status_message"},
	}
}

func channelFromResult(c datatypes.ChannelResult) *datatypes.Channel {
	return &datatypes.Channel{
		ID:          c.ChannelID,
		WorkspaceID: c.WorkspaceID,
		Name:        c.Name,
		Description: c.Description,
		MemberIDs:   c.MemberIDs,
	}
}

func memberFromResult(m datatypes.MemberResult) *datatypes.Member {
	return &datatypes.Member{
		UserID:        m.UserID,
		WorkspaceID:   m.WorkspaceID,
		DisplayName:   m.DisplayName,
		Role:          m.Role,
		StatusMessage: m.StatusMessage,
	}
}
