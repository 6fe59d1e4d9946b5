// Package service provides the optional background auto-flush ticker.
//
// What: a cron-driven goroutine that periodically flushes the open
// database's dirty buffer pool frames to disk.
// How: github.com/robfig/cron/v3, the same library the teacher's
// internal/storage/scheduler.go uses for arbitrary scheduled SQL jobs —
// repurposed here to the single, narrower job this engine actually needs.
// Disabled by default: the default flush policy is USE-and-shutdown only
// (see internal/db), and this ticker is an opt-in durability knob on top
// of that, not a replacement for it.
package service

import (
	"log"

	"github.com/robfig/cron/v3"
)

// Flusher is anything the ticker can ask to flush — internal/db.Engine
// satisfies this with its Flush method.
type Flusher interface {
	Flush() error
}

// Ticker runs Flusher.Flush on a cron schedule until Stop is called.
type Ticker struct {
	cron *cron.Cron
}

// NewTicker starts a background flush loop on spec (a six-field cron
// expression with a leading seconds field, or a descriptor such as
// "@every 30s"). Returns an error if spec doesn't parse.
func NewTicker(f Flusher, spec string) (*Ticker, error) {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		if err := f.Flush(); err != nil {
			log.Printf("service: auto-flush failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return &Ticker{cron: c}, nil
}

// Stop halts the ticker and waits for any in-flight flush to finish.
func (t *Ticker) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
}
