package ginserver

import (
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"roomledger/internal/domain/shared/daterange"
)

// queryDate reads a required YYYY-MM-DD query parameter, writing a 400 when it is bad.
func queryDate(c *gin.Context, name string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		badRequest(c, name, "is required")
		return time.Time{}, false
	}
	return parseDate(c, name, raw)
}

func parseDate(c *gin.Context, field, raw string) (time.Time, bool) {
	t, err := daterange.Parse(strings.TrimSpace(raw))
	if err != nil {
		badRequest(c, field, "must be a date in YYYY-MM-DD form")
		return time.Time{}, false
	}
	return t, true
}

// optionalInt parses an integer query value; an empty one yields nil.
func optionalInt(raw string) (*int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &n, true
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader("Idempotency-Key"))
}
