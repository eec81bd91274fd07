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
	"fmt"
	"log/slog"

	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
	"github.com/jinterlante1206/AleutianRelay/services/chat/store"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
)

// defaultRetrievalTopK is how many context snippets seed the model.
const defaultRetrievalTopK = 5

// ContextRetriever produces semantically relevant historical snippets
// for a user's message.
//
// # Description
//
// Implementations embed the query text and search a similarity index
// restricted to channels the user belongs to. An embedding failure is
// fatal to the exchange: proceeding with silently empty context would
// change answer quality with no signal to the caller.
type ContextRetriever interface {
	// Retrieve returns up to top-K snippets relevant to the query,
	// drawn only from channels the user may access. An empty slice is
	// a valid result (new workspace, no indexed history).
	Retrieve(ctx context.Context, userID, query string) ([]datatypes.ContextSnippet, error)
}

// WeaviateRetriever implements ContextRetriever against the
// MessageChunk class.
type WeaviateRetriever struct {
	client   *weaviate.Client
	embedder store.Embedder
	store    store.Store
	topK     int
}

// NewWeaviateRetriever creates a retriever with the default top-K.
func NewWeaviateRetriever(client *weaviate.Client, embedder store.Embedder, s store.Store) *WeaviateRetriever {
	return &WeaviateRetriever{
		client:   client,
		embedder: embedder,
		store:    s,
		topK:     defaultRetrievalTopK,
	}
}

var _ ContextRetriever = (*WeaviateRetriever)(nil)

// Retrieve implements ContextRetriever.
func (r *WeaviateRetriever) Retrieve(ctx context.Context, userID, query string) ([]datatypes.ContextSnippet, error) {
	ctx, span := tracer.Start(ctx, "WeaviateRetriever.Retrieve")
	defer span.End()

	channelIDs, err := r.store.UserChannelIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve accessible channels: %w", err)
	}
	if len(channelIDs) == 0 {
		slog.Debug("User has no channels, skipping context retrieval", "userID", userID)
		return nil, nil
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}

	whereFilter := filters.Where().
		WithPath([]string{"channel_id"}).
		WithOperator(filters.ContainsAny).
		WithValueText(channelIDs...)

	nearVector := r.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "channel_id"},
		{Name: "_additional", Fields: []graphql.Field{
			{Name: "certainty"},
		}},
	}

	result, err := r.client.GraphQL().Get().
		WithClassName("MessageChunk").
		WithFields(fields...).
		WithNearVector(nearVector).
		WithWhere(whereFilter).
		WithLimit(r.topK).
		Do(ctx)
	if err != nil {
		slog.Error("Similarity search failed", "error", err)
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	parsed, err := datatypes.ParseGraphQLResponse[datatypes.MessageChunkQueryResponse](result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	snippets := make([]datatypes.ContextSnippet, 0, len(parsed.Get.MessageChunk))
	for _, chunk := range parsed.Get.MessageChunk {
		snippets = append(snippets, datatypes.ContextSnippet{
			Content:   chunk.Content,
			ChannelID: chunk.ChannelID,
			Certainty: chunk.Additional.Certainty,
		})
	}
	slog.Debug("Retrieved context snippets", "count", len(snippets))
	return snippets, nil
}
