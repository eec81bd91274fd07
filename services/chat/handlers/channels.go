// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinterlante1206/AleutianRelay/pkg/extensions"
	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
	"github.com/jinterlante1206/AleutianRelay/services/chat/middleware"
	"github.com/jinterlante1206/AleutianRelay/services/chat/store"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultListLimit = 20
	maxListLimit     = 50
)

// parseLimit reads the limit query parameter, clamped to [1, maxListLimit].
func parseLimit(c *gin.Context) int {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}

// channelView is the wire shape of a channel in list responses. Member
// IDs are not exposed, only the count.
type channelView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MemberCount int    `json:"member_count"`
}

// HandleListChannels serves GET /v1/channels.
//
// Query parameters: filter (optional, case-insensitive substring
// against name and description), limit.
func HandleListChannels(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleListChannels")
		defer span.End()

		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		channels, err := s.ListChannels(ctx, authInfo.UserID, c.Query("filter"), parseLimit(c))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to list channels", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list channels"})
			return
		}

		views := make([]channelView, 0, len(channels))
		for _, ch := range channels {
			views = append(views, channelView{
				Name:        ch.Name,
				Description: ch.Description,
				MemberCount: ch.MemberCount(),
			})
		}
		c.JSON(http.StatusOK, gin.H{"channels": views})
	}
}

// HandleGetMessages serves GET /v1/channels/:name/messages.
//
// Returns the most recent messages of the channel, newest first. The
// channel must be visible to the authenticated user; a channel outside
// the user's membership is indistinguishable from a missing one (404).
func HandleGetMessages(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleGetMessages")
		defer span.End()

		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		channel, err := s.ChannelByName(ctx, authInfo.UserID, c.Param("name"))
		if err != nil {
			if errors.Is(err, store.ErrChannelNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
				return
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to resolve channel", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve channel"})
			return
		}

		messages, err := s.RecentMessages(ctx, channel.ID, parseLimit(c))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to list messages", "error", err, "channelID", channel.ID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"channel": channel.Name, "messages": messages})
	}
}

// postMessageRequest is the body for posting a channel message.
type postMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// HandlePostMessage serves POST /v1/channels/:name/messages.
func HandlePostMessage(w store.MessageWriter, opts extensions.ServiceOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandlePostMessage")
		defer span.End()

		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		var req postMessageRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if len(req.Content) > datatypes.MaxMessageContentBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message content too large"})
			return
		}

		msg, err := w.PostMessage(ctx, authInfo.UserID, c.Param("name"), req.Content)
		if err != nil {
			if errors.Is(err, store.ErrChannelNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
				return
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to post message", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to post message"})
			return
		}

		opts.AuditLogger.Log(ctx, extensions.AuditEvent{
			EventType:    "chat.message",
			Timestamp:    time.Now().UTC(),
			UserID:       authInfo.UserID,
			Action:       "send",
			ResourceType: "message",
			ResourceID:   msg.ID,
			Outcome:      "success",
		})
		c.JSON(http.StatusCreated, msg)
	}
}
