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

	"github.com/gin-gonic/gin"
	"github.com/jinterlante1206/AleutianRelay/services/chat/middleware"
	"github.com/jinterlante1206/AleutianRelay/services/chat/store"
	"go.opentelemetry.io/otel/codes"
)

// HandleListMembers serves GET /v1/workspace/members.
//
// Query parameters: filter (optional, case-insensitive substring
// against status message and role), limit.
func HandleListMembers(s store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleListMembers")
		defer span.End()

		authInfo := middleware.GetAuthInfo(c)
		if authInfo == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		members, err := s.ListWorkspaceMembers(ctx, authInfo.UserID, c.Query("filter"), parseLimit(c))
		if err != nil {
			if errors.Is(err, store.ErrNoWorkspace) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no workspace membership"})
				return
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to list workspace members", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list members"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"members": members})
	}
}
