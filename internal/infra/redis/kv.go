// Package redis implements the store contract on redis. Multi-document
// transactions use WATCH/MULTI/EXEC, so concurrent writers surface as
// store.ErrConflict and the caller retries.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"quizrush-service/internal/store"
)

type KV struct {
	client *redis.Client
}

func NewKV(client *redis.Client) *KV {
	return &KV{client: client}
}

func (k *KV) Get(ctx context.Context, key string, out any) (bool, error) {
	data, err := k.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (k *KV) Put(ctx context.Context, key string, val any, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return k.client.Set(ctx, key, data, ttl).Err()
}

func (k *KV) AtomicUpdate(ctx context.Context, keys []string, fn func(tx store.Tx) error) error {
	err := k.client.Watch(ctx, func(tx *redis.Tx) error {
		view := &redisTx{ctx: ctx, tx: tx}
		if err := fn(view); err != nil {
			return err
		}
		if view.err != nil {
			return view.err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, apply := range view.writes {
				apply(pipe)
			}
			return nil
		})
		return err
	}, keys...)
	if errors.Is(err, redis.TxFailedErr) {
		return store.ErrConflict
	}
	return err
}

func (k *KV) PopList(ctx context.Context, key string, out any) (bool, error) {
	data, err := k.client.LPop(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (k *KV) Scan(ctx context.Context, prefix string, fn func(key string, data []byte) error) error {
	iter := k.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := k.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return err
		}
		if err := fn(key, data); err != nil {
			return err
		}
	}
	return iter.Err()
}

// redisTx reads through the watched connection and buffers writes for the
// MULTI/EXEC pipeline.
type redisTx struct {
	ctx    context.Context
	tx     *redis.Tx
	writes []func(pipe redis.Pipeliner)
	err    error
}

func (t *redisTx) Get(key string, out any) (bool, error) {
	data, err := t.tx.Get(t.ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (t *redisTx) Set(key string, val any, ttl time.Duration) {
	data, err := json.Marshal(val)
	if err != nil {
		t.err = err
		return
	}
	t.writes = append(t.writes, func(pipe redis.Pipeliner) {
		pipe.Set(t.ctx, key, data, ttl)
	})
}

func (t *redisTx) Append(key string, val any) {
	data, err := json.Marshal(val)
	if err != nil {
		t.err = err
		return
	}
	t.writes = append(t.writes, func(pipe redis.Pipeliner) {
		pipe.RPush(t.ctx, key, data)
	})
}

func (t *redisTx) Delete(key string) {
	t.writes = append(t.writes, func(pipe redis.Pipeliner) {
		pipe.Del(t.ctx, key)
	})
}
