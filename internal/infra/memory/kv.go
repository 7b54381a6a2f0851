// Package memory provides in-process store implementations used by tests and
// the redis-less demo mode.
package memory

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"quizrush-service/internal/store"
)

// KV is an in-memory store.KV. Documents are kept JSON-encoded so unmarshal
// behavior matches the redis implementation. A single mutex serializes
// transactions, so AtomicUpdate never observes a conflict here; conflict
// handling is exercised against redis and with stub stores in tests.
type KV struct {
	clock func() time.Time

	mu    sync.Mutex
	docs  map[string]memDoc
	lists map[string][][]byte
}

type memDoc struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func NewKV() *KV {
	return NewKVWithClock(time.Now)
}

// NewKVWithClock allows deterministic TTL expiry in tests.
func NewKVWithClock(clock func() time.Time) *KV {
	return &KV{
		clock: clock,
		docs:  make(map[string]memDoc),
		lists: make(map[string][][]byte),
	}
}

func (k *KV) Get(_ context.Context, key string, out any) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.getLocked(key, out)
}

func (k *KV) getLocked(key string, out any) (bool, error) {
	doc, ok := k.docs[key]
	if !ok {
		return false, nil
	}
	if !doc.expiresAt.IsZero() && !doc.expiresAt.After(k.clock()) {
		delete(k.docs, key)
		return false, nil
	}
	if err := json.Unmarshal(doc.data, out); err != nil {
		return false, err
	}
	return true, nil
}

func (k *KV) Put(_ context.Context, key string, val any, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.docs[key] = memDoc{data: data, expiresAt: k.expiry(ttl)}
	return nil
}

func (k *KV) AtomicUpdate(_ context.Context, _ []string, fn func(tx store.Tx) error) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	tx := &memTx{kv: k}
	if err := fn(tx); err != nil {
		return err
	}
	if tx.err != nil {
		return tx.err
	}
	for _, w := range tx.writes {
		w()
	}
	return nil
}

func (k *KV) PopList(_ context.Context, key string, out any) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	list := k.lists[key]
	if len(list) == 0 {
		return false, nil
	}
	head := list[0]
	if len(list) == 1 {
		delete(k.lists, key)
	} else {
		k.lists[key] = list[1:]
	}
	if err := json.Unmarshal(head, out); err != nil {
		return false, err
	}
	return true, nil
}

func (k *KV) Scan(_ context.Context, prefix string, fn func(key string, data []byte) error) error {
	k.mu.Lock()
	now := k.clock()
	type kd struct {
		key  string
		data []byte
	}
	var snapshot []kd
	for key, doc := range k.docs {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if !doc.expiresAt.IsZero() && !doc.expiresAt.After(now) {
			continue
		}
		snapshot = append(snapshot, kd{key, doc.data})
	}
	k.mu.Unlock()

	for _, item := range snapshot {
		if err := fn(item.key, item.data); err != nil {
			return err
		}
	}
	return nil
}

func (k *KV) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return k.clock().Add(ttl)
}

// memTx buffers writes until the mutator returns cleanly.
type memTx struct {
	kv     *KV
	writes []func()
	err    error
}

func (t *memTx) Get(key string, out any) (bool, error) {
	return t.kv.getLocked(key, out)
}

func (t *memTx) Set(key string, val any, ttl time.Duration) {
	data, err := json.Marshal(val)
	if err != nil {
		t.err = err
		return
	}
	expiresAt := t.kv.expiry(ttl)
	t.writes = append(t.writes, func() {
		t.kv.docs[key] = memDoc{data: data, expiresAt: expiresAt}
	})
}

func (t *memTx) Append(key string, val any) {
	data, err := json.Marshal(val)
	if err != nil {
		t.err = err
		return
	}
	t.writes = append(t.writes, func() {
		t.kv.lists[key] = append(t.kv.lists[key], data)
	})
}

func (t *memTx) Delete(key string) {
	t.writes = append(t.writes, func() {
		delete(t.kv.docs, key)
	})
}
