package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/middleware"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
)

// currentActor extracts the authenticated actor from the gin context.
// The JWT middleware guarantees the claims are present on protected
// routes; the bool result guards the few places that cannot assume it.
func currentActor(c *gin.Context) (models.Actor, bool) {
	claimsValue, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return models.Actor{}, false
	}
	claims, ok := claimsValue.(*models.JWTClaims)
	if !ok {
		return models.Actor{}, false
	}
	return claims.Actor(), true
}
