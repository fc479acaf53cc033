package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"roomledger/internal/app/middleware"
)

const adminSubject = "admin-token"

type TokenVerifier interface {
	Verify(token string) error
}

// AdminGate admits requests carrying a bearer token accepted by Verifier and
// marks their context as admin for the bus authorization middleware.
type AdminGate struct {
	Verifier TokenVerifier
	Logger   *slog.Logger
}

func (g AdminGate) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || g.Verifier == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "admin token required", Code: "unauthorized"})
		return
	}
	if err := g.Verifier.Verify(token); err != nil {
		if g.Logger != nil {
			g.Logger.WarnContext(c.Request.Context(), "admin token rejected", "path", c.FullPath())
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "admin token rejected", Code: "unauthorized"})
		return
	}
	c.Request = c.Request.WithContext(middleware.WithAdmin(c.Request.Context(), adminSubject))
	c.Next()
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
