// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jinterlante1206/AleutianRelay/pkg/extensions"
	"github.com/jinterlante1206/AleutianRelay/services/chat/assistant"
	"github.com/jinterlante1206/AleutianRelay/services/chat/events"
	"github.com/jinterlante1206/AleutianRelay/services/chat/handlers"
	"github.com/jinterlante1206/AleutianRelay/services/chat/middleware"
	"github.com/jinterlante1206/AleutianRelay/services/chat/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps carries the initialized collaborators the routes need.
type Deps struct {
	Store        store.Store
	Writer       store.MessageWriter
	Orchestrator *assistant.Orchestrator
	Hub          *events.Hub
	Options      extensions.ServiceOptions
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.Options.AuthProvider))
	{
		v1.POST("/assistant/chat", handlers.HandleAssistantChat(deps.Orchestrator, deps.Options))
		v1.GET("/assistant/ws", handlers.HandleAssistantWebSocket(deps.Hub))

		channels := v1.Group("/channels")
		{
			channels.GET("", handlers.HandleListChannels(deps.Store))
			channels.GET("/:name/messages", handlers.HandleGetMessages(deps.Store))
			channels.POST("/:name/messages", handlers.HandlePostMessage(deps.Writer, deps.Options))
		}

		v1.GET("/workspace/members", handlers.HandleListMembers(deps.Store))
	}
}
