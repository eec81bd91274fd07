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
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// GetChannelSchema returns the schema for the Channel class.
//
// Channels are not vectorized; they are looked up by name and filtered by
// membership.
func GetChannelSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "Channel",
		Description: "A named conversation space inside a workspace.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "channel_id",
				DataType:        []string{"text"},
				Description:     "Stable channel identifier (UUID).",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "workspace_id",
				DataType:        []string{"text"},
				Description:     "Owning workspace identifier.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "name",
				DataType:        []string{"text"},
				Description:     "Channel name, lowercased, without the leading '#'. Lookups match the lowercase form exactly, so seeders must store it this way.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "description",
				DataType:     []string{"text"},
				Description:  "Channel topic/description.",
				Tokenization: "word",
			},
			{
				Name:            "member_ids",
				DataType:        []string{"text[]"},
				Description:     "User IDs with access to this channel.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// GetChannelMessageSchema returns the schema for the ChannelMessage class.
func GetChannelMessageSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "ChannelMessage",
		Description: "A message posted to a channel.",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexNullState:  true,
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:            "message_id",
				DataType:        []string{"text"},
				Description:     "Stable message identifier (UUID).",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "channel_id",
				DataType:        []string{"text"},
				Description:     "Channel this message was posted to.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "sender_id",
				DataType:        []string{"text"},
				Description:     "Posting user's ID.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "sender_name",
				DataType:     []string{"text"},
				Description:  "Posting user's display name, resolved at write time.",
				Tokenization: "field",
			},
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "Message body.",
				Tokenization: "word",
			},
			{
				Name:            "timestamp",
				DataType:        []string{"number"},
				Description:     "Unix milliseconds (UTC) when the message was posted.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// GetMemberSchema returns the schema for the Member class.
func GetMemberSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "Member",
		Description: "A user's membership record within a workspace.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:            "user_id",
				DataType:        []string{"text"},
				Description:     "Member's user ID.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "workspace_id",
				DataType:        []string{"text"},
				Description:     "Workspace this membership belongs to.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "display_name",
				DataType:     []string{"text"},
				Description:  "Resolved display name.",
				Tokenization: "field",
			},
			{
				Name:            "role",
				DataType:        []string{"text"},
				Description:     "Workspace role (e.g. 'admin', 'member').",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:         "status_message",
				DataType:     []string{"text"},
				Description:  "Free-text status message.",
				Tokenization: "word",
			},
		},
	}
}

// GetMessageChunkSchema returns the schema for the MessageChunk class.
//
// MessageChunk holds vectorized fragments of channel messages. This is
// the similarity index the assistant's context retrieval queries; chunks
// carry the channel_id so retrieval can be restricted to channels the
// requesting user may access.
func GetMessageChunkSchema() *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       "MessageChunk",
		Description: "A vectorized fragment of a channel message for semantic retrieval.",
		Vectorizer:  "none",
		InvertedIndexConfig: &models.InvertedIndexConfig{
			IndexNullState:  true,
			IndexTimestamps: true,
		},
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "The chunk text.",
				Tokenization: "word",
			},
			{
				Name:            "message_id",
				DataType:        []string{"text"},
				Description:     "Source message identifier.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "channel_id",
				DataType:        []string{"text"},
				Description:     "Channel the source message belongs to. Used for access scoping.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "indexed_at",
				DataType:        []string{"number"},
				Description:     "Timestamp (Unix ms) of when the chunk was indexed.",
				IndexFilterable: indexFilterable,
			},
		},
	}
}

// EnsureWeaviateSchema checks each required class and creates it if missing.
//
// Called once at service startup. Schema creation failures are fatal: the
// service cannot serve reads against classes that don't exist.
func EnsureWeaviateSchema(client *weaviate.Client) {
	schemaGetters := []func() *models.Class{
		GetChannelSchema,
		GetChannelMessageSchema,
		GetMemberSchema,
		GetMessageChunkSchema,
	}

	for _, getSchema := range schemaGetters {
		class := getSchema()
		slog.Info("Checking schema", "class", class.Class)

		// Check if the class already exists.
		_, err := client.Schema().ClassGetter().WithClassName(class.Class).Do(context.Background())
		if err != nil {
			slog.Info("Schema not found, creating it...", "class", class.Class)
			err := client.Schema().ClassCreator().WithClass(class).Do(context.Background())
			if err != nil {
				log.Fatalf("Failed to create schema for class %s: %v", class.Class, err)
			}
			slog.Info("Successfully created schema", "class", class.Class)
		} else {
			slog.Info("Schema already exists", "class", class.Class)
		}
	}
}

// =============================================================================
// Generic GraphQL Response Parser
// =============================================================================

// ParseGraphQLResponse parses a Weaviate GraphQL response into the target type.
//
// # Description
//
// This generic function encapsulates the marshal/unmarshal pattern required
// to convert Weaviate's dynamic response (map[string]models.JSONObject) into
// a strongly-typed Go struct. The target type T must have json tags matching
// the expected response shape.
//
// # Limitations
//
//   - Type mismatches result in zero values, not errors.
func ParseGraphQLResponse[T any](resp *models.GraphQLResponse) (*T, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}

	var result T
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal into target type: %w", err)
	}

	return &result, nil
}

// =============================================================================
// Common Weaviate Response Types
// =============================================================================

// ChannelQueryResponse represents the response from querying the Channel class.
type ChannelQueryResponse struct {
	Get struct {
		Channel []ChannelResult `json:"Channel"`
	} `json:"Get"`
}

// ChannelResult represents a single channel from a query.
type ChannelResult struct {
	ChannelID   string   `json:"channel_id"`
	WorkspaceID string   `json:"workspace_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"member_ids"`
}

// ChannelMessageQueryResponse represents the response from querying the
// ChannelMessage class.
type ChannelMessageQueryResponse struct {
	Get struct {
		ChannelMessage []ChannelMessageResult `json:"ChannelMessage"`
	} `json:"Get"`
}

// ChannelMessageResult represents a single message from a query.
type ChannelMessageResult struct {
	MessageID  string  `json:"message_id"`
	ChannelID  string  `json:"channel_id"`
	SenderID   string  `json:"sender_id"`
	SenderName string  `json:"sender_name"`
	Content    string  `json:"content"`
	Timestamp  float64 `json:"timestamp"`
}

// MemberQueryResponse represents the response from querying the Member class.
type MemberQueryResponse struct {
	Get struct {
		Member []MemberResult `json:"Member"`
	} `json:"Get"`
}

// MemberResult represents a single workspace member from a query.
type MemberResult struct {
	UserID        string `json:"user_id"`
	WorkspaceID   string `json:"workspace_id"`
	DisplayName   string `json:"display_name"`
	Role          string `json:"role"`
	StatusMessage string `json:"status_message"`
}

// MessageChunkQueryResponse represents the response from a nearVector
// query over the MessageChunk class.
type MessageChunkQueryResponse struct {
	Get struct {
		MessageChunk []MessageChunkResult `json:"MessageChunk"`
	} `json:"Get"`
}

// MessageChunkResult represents a single chunk hit from vector search.
type MessageChunkResult struct {
	Content    string `json:"content"`
	ChannelID  string `json:"channel_id"`
	Additional struct {
		Certainty float64 `json:"certainty"`
	} `json:"_additional"`
}
