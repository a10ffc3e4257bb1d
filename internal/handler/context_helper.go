package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/edumarket/course-market-api/internal/middleware"
	"github.com/edumarket/course-market-api/internal/models"
)

func identityFromContext(c *gin.Context) *models.Identity {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	identity, ok := value.(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}
