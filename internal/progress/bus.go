// Mirage - Personalized Virtual Media Libraries
// Copyright 2026 Mirage contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/miragelib/mirage

package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/miragelib/mirage/internal/models"
)

// RunEventsTopic carries run lifecycle events.
const RunEventsTopic = "runs.events"

// RunEvent is one lifecycle event of a generation run.
type RunEvent struct {
	RunID     string           `json:"run_id"`
	ProfileID string           `json:"profile_id"`
	OwnerKey  string           `json:"owner_key"`
	Status    models.RunStatus `json:"status"`
	Step      string           `json:"step,omitempty"`
	Error     string           `json:"error,omitempty"`

	CandidateCount   int `json:"candidate_count,omitempty"`
	ArtifactsCreated int `json:"artifacts_created,omitempty"`
	ArtifactsDeleted int `json:"artifacts_deleted,omitempty"`

	At time.Time `json:"at"`
}

// Bus is the in-process pub/sub channel for run events. Subscribers that
// fall behind drop events rather than blocking publishers.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the event bus.
func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, logger),
	}
}

// Publish emits one run event. Publish failures are returned but are safe
// to ignore; the run record in the database is the source of truth.
func (b *Bus) Publish(event RunEvent) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(RunEventsTopic, msg); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of run events. The subscription ends when ctx
// is cancelled or the bus closes.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	messages, err := b.pubsub.Subscribe(ctx, RunEventsTopic)
	if err != nil {
		return nil, fmt.Errorf("subscribe run events: %w", err)
	}
	return messages, nil
}

// DecodeEvent unmarshals one bus message into a RunEvent.
func DecodeEvent(msg *message.Message) (RunEvent, error) {
	var event RunEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return RunEvent{}, fmt.Errorf("decode run event: %w", err)
	}
	return event, nil
}

// Close shuts the bus down and ends all subscriptions.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
