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
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel/attribute"
)

// Default chunking parameters for message indexing. Channel messages are
// short relative to documents, so the chunks are small.
const (
	defaultChunkSize    = 512
	defaultChunkOverlap = 64
)

// Embedder produces a vector for a piece of text.
//
// Defined here on the consumer side so the indexer can be tested with a
// fake and wired to any embedding backend.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ServiceEmbedder is an Embedder backed by the external embedding
// service configured via EMBEDDING_SERVICE_URL.
type ServiceEmbedder struct{}

// Embed calls the embedding service and returns the vector.
func (ServiceEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp datatypes.EmbeddingResponse
	if err := resp.GetWithContext(ctx, text); err != nil {
		return nil, err
	}
	return resp.Vector, nil
}

var _ Embedder = ServiceEmbedder{}

// MessageIndexer splits message content into chunks, embeds each chunk,
// and writes the chunks to the MessageChunk class so they become
// retrievable by similarity search.
type MessageIndexer struct {
	client       *weaviate.Client
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
}

// NewMessageIndexer creates an indexer with default chunking parameters.
func NewMessageIndexer(client *weaviate.Client, embedder Embedder) *MessageIndexer {
	return &MessageIndexer{
		client:       client,
		embedder:     embedder,
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
	}
}

// IndexMessage chunks, embeds, and stores a message's content.
//
// # Description
//
// Splits the content with a recursive character splitter, embeds each
// chunk, and batch-writes MessageChunk objects carrying the source
// message's channel_id for access scoping. Chunk IDs are derived
// deterministically from the message ID and chunk index, so re-indexing
// the same message overwrites rather than duplicates.
//
// # Limitations
//
//   - A failure mid-batch can leave a message partially indexed. The
//     deterministic IDs make re-indexing safe.
func (ix *MessageIndexer) IndexMessage(ctx context.Context, msg *datatypes.ChannelMessage) error {
	ctx, span := tracer.Start(ctx, "MessageIndexer.IndexMessage")
	defer span.End()
	span.SetAttributes(attribute.String("message.id", msg.ID))

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(ix.chunkSize),
		textsplitter.WithChunkOverlap(ix.chunkOverlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " "}),
	)

	chunks, err := splitter.SplitText(msg.Content)
	if err != nil {
		return fmt.Errorf("failed to split message content: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	now := time.Now().UnixMilli()
	objects := make([]*models.Object, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := ix.embedder.Embed(ctx, chunk)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d of message %s: %w", i, msg.ID, err)
		}

		chunkID := uuid.NewSHA1(uuid.NameSpaceURL, fmt.Appendf(nil, "%s#%d", msg.ID, i))
		objects = append(objects, &models.Object{
			Class:  "MessageChunk",
			ID:     strfmt.UUID(chunkID.String()),
			Vector: vector,
			Properties: map[string]any{
				"content":    chunk,
				"message_id": msg.ID,
				"channel_id": msg.ChannelID,
				"indexed_at": now,
			},
		})
	}

	resp, err := ix.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to batch-store message chunks: %w", err)
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("chunk store rejected object %s: %s", obj.ID, obj.Result.Errors.Error[0].Message)
		}
	}

	slog.Debug("Indexed message", "messageID", msg.ID, "chunks", len(chunks))
	return nil
}

// PostMessage appends a message to a channel the user belongs to and
// indexes it for semantic retrieval.
//
// # Description
//
// Resolves the channel through the membership-scoped lookup, resolves
// the sender's display name at write time, stores the ChannelMessage
// object, and hands the stored message to the indexer. Indexing
// failures are logged but do not fail the post; the message is durable
// either way and can be re-indexed.
//
// # Outputs
//
//   - *datatypes.ChannelMessage: The stored message with its generated ID.
//   - error: ErrChannelNotFound if the channel is not visible to the
//     user; other errors for backend failures.
func (s *WeaviateStore) PostMessage(ctx context.Context, userID, channelName, content string) (*datatypes.ChannelMessage, error) {
	ctx, span := tracer.Start(ctx, "WeaviateStore.PostMessage")
	defer span.End()

	channel, err := s.ChannelByName(ctx, userID, channelName)
	if err != nil {
		return nil, err
	}

	senderName := userID
	if member, err := s.MemberByUserID(ctx, userID); err == nil {
		senderName = member.DisplayName
	}

	msg := &datatypes.ChannelMessage{
		ID:         uuid.NewString(),
		ChannelID:  channel.ID,
		SenderID:   userID,
		SenderName: senderName,
		Content:    content,
		Timestamp:  time.Now().UnixMilli(),
	}

	_, err = s.client.Data().Creator().
		WithClassName("ChannelMessage").
		WithID(msg.ID).
		WithProperties(map[string]any{
			"message_id":  msg.ID,
			"channel_id":  msg.ChannelID,
			"sender_id":   msg.SenderID,
			"sender_name": msg.SenderName,
			"content":     msg.Content,
			"timestamp":   msg.Timestamp,
		}).
		Do(ctx)
	if err != nil {
		slog.Error("Failed to store channel message", "error", err, "channelID", msg.ChannelID)
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	if s.indexer != nil {
		if err := s.indexer.IndexMessage(ctx, msg); err != nil {
			slog.Warn("Message stored but indexing failed", "messageID", msg.ID, "error", err)
		}
	}

	return msg, nil
}
