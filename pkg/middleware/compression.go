package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Compression gzips responses for clients that accept it. Requests under
// skipPaths (websocket upgrades, pre-compressed media) pass through untouched.
func Compression(skipPaths ...string) gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths(skipPaths),
		gzip.WithExcludedExtensions([]string{".jpg", ".jpeg", ".png", ".webp"}),
	)
}
