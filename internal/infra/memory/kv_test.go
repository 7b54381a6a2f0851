package memory

import (
	"context"
	"testing"
	"time"

	"quizrush-service/internal/store"
)

type ticket struct {
	ID string `json:"id"`
}

func TestPutGetWithTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	kv := NewKVWithClock(func() time.Time { return now })
	ctx := context.Background()

	if err := kv.Put(ctx, "doc", map[string]int{"n": 1}, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	var out map[string]int
	found, err := kv.Get(ctx, "doc", &out)
	if err != nil || !found || out["n"] != 1 {
		t.Fatalf("expected doc, got found=%v err=%v out=%v", found, err, out)
	}

	now = now.Add(2 * time.Minute)
	found, err = kv.Get(ctx, "doc", &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected doc to expire")
	}
}

func TestAtomicUpdateBuffersWrites(t *testing.T) {
	kv := NewKV()
	ctx := context.Background()

	err := kv.AtomicUpdate(ctx, []string{"a"}, func(tx store.Tx) error {
		tx.Set("a", 1, 0)
		return context.Canceled // any error aborts
	})
	if err != context.Canceled {
		t.Fatalf("expected mutator error, got %v", err)
	}

	var n int
	if found, _ := kv.Get(ctx, "a", &n); found {
		t.Fatal("aborted transaction must not write")
	}

	err = kv.AtomicUpdate(ctx, []string{"a"}, func(tx store.Tx) error {
		tx.Set("a", 7, 0)
		return nil
	})
	if err != nil {
		t.Fatalf("atomic update: %v", err)
	}
	if found, _ := kv.Get(ctx, "a", &n); !found || n != 7 {
		t.Fatalf("expected committed write, found=%v n=%d", found, n)
	}
}

func TestListPushPopFIFO(t *testing.T) {
	kv := NewKV()
	ctx := context.Background()

	for _, id := range []string{"t1", "t2"} {
		id := id
		err := kv.AtomicUpdate(ctx, nil, func(tx store.Tx) error {
			tx.Append("queue", ticket{ID: id})
			return nil
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	var got ticket
	for _, want := range []string{"t1", "t2"} {
		found, err := kv.PopList(ctx, "queue", &got)
		if err != nil || !found {
			t.Fatalf("pop: found=%v err=%v", found, err)
		}
		if got.ID != want {
			t.Fatalf("expected %s, got %s", want, got.ID)
		}
	}
	if found, _ := kv.PopList(ctx, "queue", &got); found {
		t.Fatal("expected empty queue")
	}
}

func TestScanFiltersPrefixAndExpired(t *testing.T) {
	now := time.Unix(1000, 0)
	kv := NewKVWithClock(func() time.Time { return now })
	ctx := context.Background()

	_ = kv.Put(ctx, "profile:a", 1, 0)
	_ = kv.Put(ctx, "profile:b", 2, time.Second)
	_ = kv.Put(ctx, "board:x", 3, 0)

	now = now.Add(time.Minute)

	var keys []string
	err := kv.Scan(ctx, "profile:", func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(keys) != 1 || keys[0] != "profile:a" {
		t.Fatalf("expected only profile:a, got %v", keys)
	}
}
