package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/orders"
)

// Responder answers a single message.
type Responder interface {
	Respond(ctx context.Context, message string, caller orders.Caller) string
}

// BatchProcessor answers many messages concurrently for one caller.
type BatchProcessor struct {
	responder  Responder
	maxWorkers int
	timeout    time.Duration
}

// NewBatchProcessor creates a batch processor. Zero values select 5 workers
// and a 30 second timeout.
func NewBatchProcessor(responder Responder, maxWorkers int, timeout time.Duration) *BatchProcessor {
	if maxWorkers <= 0 {
		maxWorkers = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &BatchProcessor{
		responder:  responder,
		maxWorkers: maxWorkers,
		timeout:    timeout,
	}
}

// Process returns one reply per message, in input order. onDone, when set,
// is called once per answered message from the worker goroutines. On timeout
// the replies gathered so far are returned with an error; unanswered slots
// are empty.
func (bp *BatchProcessor) Process(
	ctx context.Context,
	messages []string,
	caller orders.Caller,
	onDone func(),
) ([]string, error) {
	if len(messages) == 0 {
		return []string{}, nil
	}

	processCtx, cancel := context.WithTimeout(ctx, bp.timeout)
	defer cancel()

	type workItem struct {
		index   int
		message string
	}

	workChan := make(chan workItem, len(messages))
	for i, msg := range messages {
		workChan <- workItem{index: i, message: msg}
	}
	close(workChan)

	replies := make([]string, len(messages))
	answered := 0
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < bp.maxWorkers && i < len(messages); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workChan {
				if processCtx.Err() != nil {
					return
				}
				reply := bp.responder.Respond(processCtx, item.message, caller)

				mu.Lock()
				replies[item.index] = reply
				answered++
				mu.Unlock()

				if onDone != nil {
					onDone()
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-processCtx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	if answered < len(messages) {
		out := make([]string, len(replies))
		copy(out, replies)
		return out, fmt.Errorf("batch processing timeout after %v: %d of %d answered", bp.timeout, answered, len(messages))
	}
	return replies, nil
}
