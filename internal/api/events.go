// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package api

import (
	"context"
	"sync"

	"github.com/miragelib/mirage/internal/logging"
	"github.com/miragelib/mirage/internal/progress"
)

const defaultEventLogSize = 256

// EventLog consumes run lifecycle events from the progress bus and keeps the
// most recent ones in a ring buffer for the ops API. It runs as a supervised
// service.
type EventLog struct {
	bus  *progress.Bus
	size int

	mu     sync.Mutex
	events []progress.RunEvent
	next   int
	filled bool
}

// NewEventLog creates an event log holding up to size events. A size of 0
// uses the default capacity.
func NewEventLog(bus *progress.Bus, size int) *EventLog {
	if size <= 0 {
		size = defaultEventLogSize
	}
	return &EventLog{
		bus:    bus,
		size:   size,
		events: make([]progress.RunEvent, size),
	}
}

// Serve implements suture.Service. It subscribes to the run events topic and
// records events until the context is cancelled.
func (e *EventLog) Serve(ctx context.Context) error {
	messages, err := e.bus.Subscribe(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return ctx.Err()
			}
			event, err := progress.DecodeEvent(msg)
			msg.Ack()
			if err != nil {
				logging.Warn().Err(err).Msg("Dropping undecodable run event")
				continue
			}
			e.record(event)
		}
	}
}

// String implements fmt.Stringer for suture's log messages.
func (e *EventLog) String() string {
	return "event-log"
}

func (e *EventLog) record(event progress.RunEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.events[e.next] = event
	e.next = (e.next + 1) % e.size
	if e.next == 0 {
		e.filled = true
	}
}

// Recent returns up to limit events, newest first.
func (e *EventLog) Recent(limit int) []progress.RunEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := e.next
	if e.filled {
		count = e.size
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	out := make([]progress.RunEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (e.next - i + e.size) % e.size
		out = append(out, e.events[idx])
	}
	return out
}
