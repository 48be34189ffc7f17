package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// SubmitRateLimit caps transaction submissions per wallet per minute
// using Redis if available. Requests without a parseable wallet id fall
// back to the caller IP as the limiting key.
func SubmitRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 60
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			WalletID string `json:"wallet_id"`
		}
		_ = c.BodyParser(&req)
		walletID := strings.TrimSpace(req.WalletID)
		if walletID == "" {
			walletID = c.IP()
		}
		key := "rl:submit:" + walletID
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many transactions for this wallet, try again later")
		}
		return c.Next()
	}
}
