package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idem:"

	redisOpTimeout = 2 * time.Second
)

// Replay record fields, stored as a Redis hash per key. The state field is
// written first as an atomic claim; status, content type and body follow once
// the handler finishes.
const (
	fieldState       = "state"
	fieldStatus      = "status"
	fieldContentType = "content_type"
	fieldBody        = "body"

	stateInFlight = "in_flight"
	stateDone     = "done"
)

// Idempotency makes unsafe HTTP methods safe to retry: the first request with
// a given Idempotency-Key executes and its response is recorded, every later
// request with the same key replays that response instead of repeating the
// ledger write.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return fiber.NewError(fiber.StatusBadRequest, "missing Idempotency-Key header")
		}
		rkey := idempotencyPrefix + key

		ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancel()

		// First writer wins the slot; everyone else replays or backs off.
		claimed, err := cache.HSetNX(ctx, rkey, fieldState, stateInFlight).Result()
		if err != nil {
			logger.Error("idempotency claim failed", "key", key, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if !claimed {
			return replay(ctx, c, cache, rkey)
		}
		if err := cache.Expire(ctx, rkey, ttl).Err(); err != nil {
			logger.Warn("idempotency expiry not set", "key", key, "error", err)
		}

		if err := c.Next(); err != nil {
			// A failed handler releases the slot so the client may retry.
			release, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
			defer cancel()
			cache.Del(release, rkey)
			return err
		}

		persist, cancelPersist := context.WithTimeout(context.Background(), redisOpTimeout)
		defer cancelPersist()
		err = cache.HSet(persist, rkey,
			fieldState, stateDone,
			fieldStatus, strconv.Itoa(c.Response().StatusCode()),
			fieldContentType, string(c.Response().Header.ContentType()),
			fieldBody, string(c.Response().Body()),
		).Err()
		if err != nil {
			// The response already went out; drop the record rather than
			// leave a permanently in-flight key.
			logger.Error("idempotency record not persisted", "key", key, "error", err)
			cache.Del(persist, rkey)
		}
		return nil
	}
}

func replay(ctx context.Context, c *fiber.Ctx, cache *redis.Client, rkey string) error {
	fields, err := cache.HGetAll(ctx, rkey).Result()
	if err != nil || len(fields) == 0 {
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if fields[fieldState] != stateDone {
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}
	status, err := strconv.Atoi(fields[fieldStatus])
	if err != nil {
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if ctype := fields[fieldContentType]; ctype != "" {
		c.Set(fiber.HeaderContentType, ctype)
	}
	return c.Status(status).SendString(fields[fieldBody])
}
