package store

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func errString(s string) *string { return &s }

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	// should start empty
	if len(store.GetAll()) != 0 {
		t.Errorf("GetAll() = %v items, want 0", len(store.GetAll()))
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()

	rec := Record{
		Name:      "peer-connections",
		Query:     "activeConnections+connectionStats",
		Data:      json.RawMessage(`{"connections":[]}`),
		Status:    "running",
		Seq:       1,
		UpdatedAt: time.Now(),
	}

	store.Update(rec)

	all := store.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() = %v items, want 1", len(all))
	}
	if all[0].Name != "peer-connections" {
		t.Errorf("GetAll()[0].Name = %v, want %v", all[0].Name, "peer-connections")
	}
	if string(all[0].Data) != `{"connections":[]}` {
		t.Errorf("GetAll()[0].Data = %s", all[0].Data)
	}
}

func TestMemoryStore_UpdateOverwrites(t *testing.T) {
	store := NewMemoryStore()

	store.Update(Record{Name: "recent-messages", Seq: 1, Loading: true})
	store.Update(Record{Name: "recent-messages", Seq: 1, Error: errString("boom")})

	rec, ok := store.Get("recent-messages")
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if rec.Loading {
		t.Error("Loading = true, want false after overwrite")
	}
	if rec.Error == nil || *rec.Error != "boom" {
		t.Errorf("Error = %v, want boom", rec.Error)
	}
}

func TestMemoryStore_IgnoresOlderSeq(t *testing.T) {
	store := NewMemoryStore()

	store.Update(Record{Name: "recent-messages", Seq: 5, Data: json.RawMessage(`[1]`)})
	store.Update(Record{Name: "recent-messages", Seq: 4, Data: json.RawMessage(`[0]`)})

	rec, _ := store.Get("recent-messages")
	if string(rec.Data) != `[1]` {
		t.Errorf("Data = %s, want [1] (older seq must not win)", rec.Data)
	}
}

func TestMemoryStore_GetAllOrderedByName(t *testing.T) {
	store := NewMemoryStore()

	store.Update(Record{Name: "recent-messages"})
	store.Update(Record{Name: "all-connections"})
	store.Update(Record{Name: "peer-connections"})

	all := store.GetAll()
	want := []string{"all-connections", "peer-connections", "recent-messages"}
	if len(all) != len(want) {
		t.Fatalf("GetAll() = %v items, want %v", len(all), len(want))
	}
	for i, name := range want {
		if all[i].Name != name {
			t.Errorf("GetAll()[%d].Name = %v, want %v", i, all[i].Name, name)
		}
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, ok := store.Get("nope"); ok {
		t.Error("Get() ok = true for unknown name")
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go func() {
		store.Update(Record{Name: "test"})
	}()

	select {
	case rec := <-ch:
		if rec.Name != "test" {
			t.Errorf("received Name = %v, want %v", rec.Name, "test")
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_SkippedUpdateIsNotPublished(t *testing.T) {
	store := NewMemoryStore()
	store.Update(Record{Name: "test", Seq: 3})

	ch := store.Subscribe()
	defer store.Unsubscribe(ch)

	store.Update(Record{Name: "test", Seq: 2})

	select {
	case rec := <-ch:
		t.Errorf("received stale record %+v", rec)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	store.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}

	// second call must not panic
	store.Unsubscribe(ch)
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()

	// create a subscriber but don't read from it
	_ = store.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 2*DefaultBuffer; i++ {
			store.Update(Record{Name: "test", Seq: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Update() blocked on slow subscriber")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	numGoroutines := 10
	numUpdates := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				store.Update(Record{Name: "peer-connections", Seq: uint64(j)})
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				_ = store.GetAll()
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			time.Sleep(10 * time.Millisecond)
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()
}
