package token

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	stderrors "fieldservice-inspection/internal/common/errors"
)

const keyPrefix = "inspection:token:"

// RedisResolver looks tokens up in Redis, where the back office publishes a
// JSON grant per issued link.
type RedisResolver struct {
	client *redis.Client
}

func NewRedisResolver(client *redis.Client) *RedisResolver {
	return &RedisResolver{client: client}
}

func (r *RedisResolver) Resolve(ctx context.Context, tokenValue string) (*Grant, error) {
	raw, err := r.client.Get(ctx, keyPrefix+tokenValue).Result()
	if err == redis.Nil {
		return nil, stderrors.NewTokenNotFoundError(tokenValue)
	}
	if err != nil {
		return nil, stderrors.NewTokenLookupFailedError(err)
	}

	var grant Grant
	if err := json.Unmarshal([]byte(raw), &grant); err != nil {
		return nil, stderrors.NewTokenLookupFailedError(fmt.Errorf("decode grant: %w", err))
	}
	if grant.TicketID == "" || grant.TenantID == "" {
		return nil, stderrors.NewTokenNotFoundError(tokenValue)
	}

	return &grant, nil
}
