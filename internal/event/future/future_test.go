package future

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFuture_Resolve(t *testing.T) {
	f := New[int]()
	if f.Settled() {
		t.Fatal("new future should be pending")
	}

	if !f.Resolve(42) {
		t.Fatal("first Resolve() should succeed")
	}
	if f.Resolve(7) {
		t.Error("second Resolve() should report false")
	}
	if f.Reject(errors.New("late")) {
		t.Error("Reject() after Resolve() should report false")
	}

	v, err := f.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if v != 42 {
		t.Errorf("Wait() = %d, want 42", v)
	}
}

func TestFuture_Reject(t *testing.T) {
	want := errors.New("boom")
	f := Rejected[string](want)

	v, err := f.Wait(context.Background())
	if !errors.Is(err, want) {
		t.Errorf("Wait() error = %v, want %v", err, want)
	}
	if v != "" {
		t.Errorf("Wait() value = %q, want zero value", v)
	}
}

func TestFuture_WaitContextCancelled(t *testing.T) {
	f := New[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if f.Settled() {
		t.Error("context expiry must not settle the future")
	}
}

func TestFuture_ResultPending(t *testing.T) {
	f := New[[]any]()
	v, err := f.Result()
	if v != nil || err != nil {
		t.Errorf("Result() on pending future = (%v, %v), want zero values", v, err)
	}
}

func TestFuture_ConcurrentSettle(t *testing.T) {
	f := New[int]()

	const goroutines = 50
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			if f.Resolve(i) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("expected exactly one winning Resolve(), got %d", wins.Load())
	}
}

func TestFuture_Then(t *testing.T) {
	f := New[string]()

	var got []string
	f.Then(func(v string, err error) {
		got = append(got, "before:"+v)
	})

	f.Resolve("ok")

	f.Then(func(v string, err error) {
		got = append(got, "after:"+v)
	})

	if len(got) != 2 || got[0] != "before:ok" || got[1] != "after:ok" {
		t.Errorf("callbacks = %v, want [before:ok after:ok]", got)
	}
}

func TestFuture_Done(t *testing.T) {
	f := New[bool]()

	go func() {
		time.Sleep(5 * time.Millisecond)
		f.Resolve(true)
	}()

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() channel was not closed")
	}
}
