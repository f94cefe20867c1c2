package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrInFlight means another request holding the same key has not finished.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

const pendingMarker = "-"

// Idempotency remembers which order a client-supplied key produced.
type Idempotency struct {
	rdb *redis.Client
}

func NewIdempotency(rdb *redis.Client) *Idempotency {
	return &Idempotency{rdb: rdb}
}

func key(scope, k string) string {
	return fmt.Sprintf(KeyIdemOrderCreate, scope, k)
}

// Reserve claims k for scope. When the key already finished it returns the
// stored order id and reserved=false.
func (i *Idempotency) Reserve(ctx context.Context, scope, k string) (orderID string, reserved bool, err error) {
	ok, err := i.rdb.SetNX(ctx, key(scope, k), pendingMarker, TTLIdemPending).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	v, err := i.rdb.Get(ctx, key(scope, k)).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; try once more
		ok, err := i.rdb.SetNX(ctx, key(scope, k), pendingMarker, TTLIdemPending).Result()
		if err != nil {
			return "", false, err
		}
		if ok {
			return "", true, nil
		}
		return "", false, ErrInFlight
	}
	if err != nil {
		return "", false, err
	}
	if v == pendingMarker {
		return "", false, ErrInFlight
	}
	return v, false, nil
}

// Complete records the order created under k.
func (i *Idempotency) Complete(ctx context.Context, scope, k, orderID string) error {
	return i.rdb.Set(ctx, key(scope, k), orderID, TTLIdempotency).Err()
}

// Release frees a reserved key after a failed create so the client can retry.
func (i *Idempotency) Release(ctx context.Context, scope, k string) error {
	return i.rdb.Del(ctx, key(scope, k)).Err()
}
