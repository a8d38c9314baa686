package openairt

import (
	"errors"
	"sync"
	"testing"
)

// The data channel and connection state callbacks run on separate pion
// goroutines. A remote disconnect commonly closes the data channel and
// then reports a Failed state; the late state callback must not send on
// the already-closed event stream.
func TestEventStreamDeliverAfterClose(t *testing.T) {
	s := &WebRTCSession{
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 4),
	}

	s.closeEvents()
	s.deliver(eventOrError{err: errors.New("openairt: connection failed")})

	if _, ok := <-s.eventsCh; ok {
		t.Fatal("event delivered after stream close")
	}
	s.closeEvents() // idempotent
}

func TestEventStreamConcurrentDeliverAndClose(t *testing.T) {
	s := &WebRTCSession{
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError, 1),
	}

	drained := make(chan struct{})
	go func() {
		for range s.eventsCh {
		}
		close(drained)
	}()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				s.deliver(eventOrError{event: &ServerEvent{}})
			}
		}()
	}
	s.closeEvents()
	wg.Wait()
	<-drained
}

// Close must unblock a deliver stuck on a full buffer with no consumer.
func TestEventStreamCloseUnblocksDeliver(t *testing.T) {
	s := &WebRTCSession{
		closeCh:  make(chan struct{}),
		eventsCh: make(chan eventOrError), // unbuffered, never read
	}

	done := make(chan struct{})
	go func() {
		s.deliver(eventOrError{event: &ServerEvent{}})
		close(done)
	}()

	close(s.closeCh)
	<-done
}
