// Package utils holds the shared JSON response envelope.
package utils

import "github.com/gin-gonic/gin"

func Success(c *gin.Context, data gin.H) {
	c.JSON(200, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   msg,
	})
}

// ErrorWithKind reports a pipeline failure with its machine-readable
// error kind alongside the human message.
func ErrorWithKind(c *gin.Context, code int, kind, msg string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   msg,
		"kind":    kind,
	})
}
