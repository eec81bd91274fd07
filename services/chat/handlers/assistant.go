// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the Gin HTTP handlers for the chat service.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinterlante1206/AleutianRelay/pkg/extensions"
	"github.com/jinterlante1206/AleutianRelay/services/chat/assistant"
	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
	"github.com/jinterlante1206/AleutianRelay/services/chat/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("aleutian.chat.handlers")

// HandleAssistantChat serves POST /v1/assistant/chat.
//
// # Description
//
// Validates the request, runs the inbound message filter, and starts
// an assistant exchange. The first model answer always comes back in
// the synchronous response; if it triggered actions, the response also
// carries an exchange_id the client subscribes to over the websocket
// endpoint for follow-up events.
//
// # Responses
//
//   - 200: AssistantChatResponse.
//   - 400: Malformed body or validation failure.
//   - 401: No authenticated user.
//   - 403: Message rejected by the inbound filter.
//   - 502: Context retrieval or first model call failed.
func HandleAssistantChat(orch *assistant.Orchestrator, opts extensions.ServiceOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleAssistantChat")
		defer span.End()

		var req datatypes.AssistantChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the assistant request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		filtered, err := opts.MessageFilter.FilterInbound(ctx, authInfo.UserID, req.Message)
		if err != nil {
			slog.Warn("Inbound message rejected by filter", "userID", authInfo.UserID, "error", err)
			c.JSON(http.StatusForbidden, gin.H{"error": "message rejected by policy"})
			return
		}
		req.Message = filtered

		resp, err := orch.StartExchange(ctx, authInfo.UserID, &req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Assistant exchange failed", "requestID", req.RequestID, "error", err)
			opts.AuditLogger.Log(ctx, extensions.AuditEvent{
				EventType:    "assistant.exchange",
				Timestamp:    time.Now().UTC(),
				UserID:       authInfo.UserID,
				Action:       "send",
				ResourceType: "exchange",
				ResourceID:   req.RequestID,
				Outcome:      "error",
				Metadata:     map[string]any{"error": err.Error()},
			})
			c.JSON(http.StatusBadGateway, gin.H{"error": "assistant is unavailable"})
			return
		}

		opts.AuditLogger.Log(ctx, extensions.AuditEvent{
			EventType:    "assistant.exchange",
			Timestamp:    time.Now().UTC(),
			UserID:       authInfo.UserID,
			Action:       "send",
			ResourceType: "exchange",
			ResourceID:   req.RequestID,
			Outcome:      "success",
			Metadata:     map[string]any{"exchange_id": resp.ExchangeID, "finished": resp.Finished},
		})

		c.JSON(http.StatusOK, resp)
	}
}
