package worker

import (
	"log"
	"sync"
	"time"
)

type idleCloser interface {
	ReapIdle() int
}

// Reaper periodically closes reading sessions whose client stopped sending
// heartbeats.
type Reaper struct {
	sessions idleCloser
	interval time.Duration
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewReaper(sessions idleCloser, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{
		sessions: sessions,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (r *Reaper) Start() {
	go r.run()
	log.Printf("Started session reaper (every %s)", r.interval)
}

// Stop ends the loop and waits for it to exit. Safe to call more than once.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
	<-r.done
}

func (r *Reaper) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			log.Printf("Session reaper shutting down")
			return
		case <-ticker.C:
			if n := r.sessions.ReapIdle(); n > 0 {
				log.Printf("Session reaper closed %d idle sessions", n)
			}
		}
	}
}
