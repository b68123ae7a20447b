package middleware

import "github.com/gin-gonic/gin"

// abortWithError stops the chain with the same error envelope the handlers use.
func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":  status,
		"error":   code,
		"message": message,
	})
}
