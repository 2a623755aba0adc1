package dashboard

import (
	"context"
	"testing"

	"github.com/zulandar/scriptyard/internal/stats"
	"github.com/zulandar/scriptyard/internal/store"
)

func TestFeed_PublishesScriptThenStats(t *testing.T) {
	st, err := store.Open(context.Background(), store.NewMemoryPersister(), store.Options{})
	if err != nil {
		t.Fatal(err)
	}
	f := NewFeed(st, nil)
	defer f.Close()

	events, cancel := f.Subscribe()
	defer cancel()

	if _, err := st.Add(context.Background(), "A", "", ""); err != nil {
		t.Fatal(err)
	}

	first, second := <-events, <-events
	if first.Event != "script" || first.Data.(scriptEvent).Kind != store.ChangeAdded {
		t.Errorf("first = %+v", first)
	}
	if second.Event != "stats" || second.Data.(stats.Summary).TotalScripts != 1 {
		t.Errorf("second = %+v", second)
	}
}

func TestFeed_CloseEndsSubscriptions(t *testing.T) {
	st, _ := store.Open(context.Background(), store.NewMemoryPersister(), store.Options{})
	f := NewFeed(st, nil)
	events, cancel := f.Subscribe()

	f.Close()
	if _, ok := <-events; ok {
		t.Error("channel still open after Close")
	}
	cancel() // no double close

	late, _ := f.Subscribe()
	if _, ok := <-late; ok {
		t.Error("subscription after Close should be closed")
	}
	f.Close()
}

func TestFeed_SlowListenerDoesNotBlock(t *testing.T) {
	st, _ := store.Open(context.Background(), store.NewMemoryPersister(), store.Options{})
	f := NewFeed(st, nil)
	defer f.Close()
	_, cancel := f.Subscribe()
	defer cancel()

	for i := 0; i < feedBuffer; i++ {
		if _, err := st.Add(context.Background(), "x", "", ""); err != nil {
			t.Fatal(err)
		}
	}
}
