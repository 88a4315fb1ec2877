// Package v1 implements the HTTP handlers of the v1 API.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/tally-ledger/backend/internal/auth"
	"github.com/tally-ledger/backend/internal/ledger"
)

// DefaultMaxAttachmentSize is used when Controller.MaxAttachmentSize is not set.
const DefaultMaxAttachmentSize int64 = 10 << 20

// Controller holds the dependencies of all handlers.
type Controller struct {
	Ledger *ledger.Ledger
	Tokens *auth.Tokens

	// MaxAttachmentSize limits the request body of uploads, in bytes
	MaxAttachmentSize int64
}

// RegisterRoutes registers all resource routes with the group. Everything
// except registration and login requires a bearer token.
func (co Controller) RegisterRoutes(r *gin.RouterGroup) {
	co.RegisterAuthRoutes(r.Group("/auth"))
	co.RegisterUserRoutes(r.Group("/users"))

	co.RegisterCategoryRoutes(r.Group("/categories"))
	co.RegisterExpenseRoutes(r.Group("/expenses"))
	co.RegisterAlertRoutes(r.Group("/alerts"))
}

func (co Controller) maxAttachmentSize() int64 {
	if co.MaxAttachmentSize > 0 {
		return co.MaxAttachmentSize
	}
	return DefaultMaxAttachmentSize
}

func (co Controller) authenticated() gin.HandlerFunc {
	return auth.Middleware(co.Tokens)
}
