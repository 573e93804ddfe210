package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"backoffice/internal/common"

	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

// Auth guards the back-office API with shared keys sent in X-API-Key.
// Blank keys are ignored; with no usable key every request is rejected.
func Auth(keys []string) gin.HandlerFunc {
	accepted := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			accepted = append(accepted, []byte(k))
		}
	}

	return func(c *gin.Context) {
		presented := c.GetHeader(apiKeyHeader)
		switch {
		case presented == "":
			common.Error(c, http.StatusUnauthorized, "missing X-API-Key header")
		case !keyAccepted([]byte(presented), accepted):
			common.Error(c, http.StatusUnauthorized, "invalid API key")
		default:
			c.Next()
			return
		}
		c.Abort()
	}
}

// keyAccepted compares in constant time against every key.
func keyAccepted(presented []byte, accepted [][]byte) bool {
	ok := 0
	for _, k := range accepted {
		ok |= subtle.ConstantTimeCompare(presented, k)
	}
	return ok == 1
}
