package scrape_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"estate_search/internal/domain"
	"estate_search/internal/scrape"
)

type fakeBackend struct {
	name    string
	content domain.RawContent
	err     error
	calls   int32

	inFlight int32
	maxSeen  int32
	delay    time.Duration
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Fetch(ctx context.Context, url string) (domain.RawContent, error) {
	atomic.AddInt32(&f.calls, 1)
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.content, f.err
}

func TestChain_FallbackOrder(t *testing.T) {
	failing := &fakeBackend{name: "a", err: errors.New("boom")}
	empty := &fakeBackend{name: "b"} // succeeds but has nothing
	good := &fakeBackend{name: "c", content: domain.RawContent{HTML: "<html></html>"}}
	unused := &fakeBackend{name: "d", content: domain.RawContent{HTML: "x"}}

	c := scrape.NewChain(2, failing, empty, good, unused)
	got, err := c.Fetch(context.Background(), "https://example.pt/imovel/1")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.HTML != "<html></html>" {
		t.Fatalf("wrong backend answered: %+v", got)
	}
	if failing.calls != 1 || empty.calls != 1 || good.calls != 1 {
		t.Fatalf("priority order violated: %d %d %d", failing.calls, empty.calls, good.calls)
	}
	if unused.calls != 0 {
		t.Fatalf("later backend must not be tried after a success")
	}
}

func TestChain_AllBackendsFail(t *testing.T) {
	c := scrape.NewChain(2,
		&fakeBackend{name: "a", err: errors.New("x")},
		&fakeBackend{name: "b", err: errors.New("y")},
	)
	if _, err := c.Fetch(context.Background(), "u"); !errors.Is(err, domain.ErrAllBackendsFailed) {
		t.Fatalf("expected ErrAllBackendsFailed, got %v", err)
	}
}

func TestChain_ContextCancellationStopsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := scrape.NewChain(2, &fakeBackend{name: "a", err: errors.New("x")})
	if _, err := c.Fetch(ctx, "u"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestChain_BoundsConcurrencyPerBackend(t *testing.T) {
	b := &fakeBackend{
		name:    "slow",
		content: domain.RawContent{HTML: "x"},
		delay:   20 * time.Millisecond,
	}
	c := scrape.NewChain(2, b)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Fetch(context.Background(), "u"); err != nil {
				t.Errorf("fetch: %v", err)
			}
		}()
	}
	wg.Wait()
	if max := atomic.LoadInt32(&b.maxSeen); max > 2 {
		t.Fatalf("semaphore leaked: saw %d concurrent fetches", max)
	}
}
