package redisclient

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

// SetEventsPattern matches keyspace notifications for SET-family commands.
// The server must run with notify-keyspace-events including "E$" or "KEA".
const SetEventsPattern = "__keyevent@*__:set"

// Watch calls fn with every bridge key written while ctx is live. Keys
// outside KeyPrefix+scope are ignored; an empty scope passes all bridge
// keys.
func (r *RedisStore) Watch(ctx context.Context, scope string, fn func(key string)) error {
	return watch(ctx, r.client, scope, fn)
}

func watch(ctx context.Context, client *redis.Client, scope string, fn func(key string)) error {
	pubsub := client.PSubscribe(ctx, SetEventsPattern)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting events.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if Watched(msg.Payload, scope) {
				fn(msg.Payload)
			}
		}
	}
}

// Watched reports whether key belongs to the bridge and the given scope
// ("log", "sync", or "" for both).
func Watched(key, scope string) bool {
	return strings.HasPrefix(key, KeyPrefix+scope)
}
