// Copyright (C) 2026 Driftlock Authors (dev@driftlock.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all change-review routes with the router.
//
// Description:
//
//	Registers all /v1/changes/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET    /v1/changes - List open change-sets
//	POST   /v1/changes/:turn/register - Register a batch of tool results
//	GET    /v1/changes/:turn - List one change-set
//	GET    /v1/changes/:turn/diff - Render a review report for one path
//	POST   /v1/changes/:turn/accept - Accept one path or the whole set
//	POST   /v1/changes/:turn/reject - Reject one path or the whole set
//	POST   /v1/changes/:turn/rollback - Revert an applied path
//	DELETE /v1/changes/:turn - Discard the set from review
//	GET    /v1/health - Health check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	changes := rg.Group("/changes")
	{
		changes.GET("", handlers.HandleTurns)
		changes.POST("/:turn/register", handlers.HandleRegister)
		changes.GET("/:turn", handlers.HandleSet)
		changes.GET("/:turn/diff", handlers.HandleDiff)
		changes.POST("/:turn/accept", handlers.HandleAccept)
		changes.POST("/:turn/reject", handlers.HandleReject)
		changes.POST("/:turn/rollback", handlers.HandleRollback)
		changes.DELETE("/:turn", handlers.HandleDiscard)
	}

	rg.GET("/health", handlers.HandleHealth)
}
