// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/stream"
)

// =============================================================================
// EVENT DISPATCH
// =============================================================================

// dispatcher applies decoded stream events to the transcript for one reply.
//
// It owns the pending assistant turn created before the request went out.
// Attachments always become turns of their own; text goes to the pending
// turn. The dispatcher is used by a single goroutine.
type dispatcher struct {
	tr    *model.Transcript
	log   zerolog.Logger
	sleep SleepFunc

	pending string

	// imageResponse is set when the user sent an image. The first text
	// fragment is then preceded by a short success acknowledgement.
	imageResponse bool
	ackDuration   time.Duration
	firstContent  bool

	done  bool
	final model.Turn

	// idle is paused while the acknowledgement holds up reading. Optional.
	idle idleClock
}

// idleClock is the stream idle timer as seen by the dispatcher.
type idleClock interface {
	Pause()
	Resume()
}

func newDispatcher(tr *model.Transcript, pending string, imageResponse bool, ack time.Duration, sleep SleepFunc, log zerolog.Logger) *dispatcher {
	return &dispatcher{
		tr:            tr,
		log:           log,
		sleep:         sleep,
		pending:       pending,
		imageResponse: imageResponse,
		ackDuration:   ack,
	}
}

// applyFrame decodes f and applies its events in order.
func (d *dispatcher) applyFrame(ctx context.Context, f stream.Frame) error {
	for _, ev := range stream.Decode(f) {
		if err := d.apply(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// apply handles one event. Events after Done are ignored.
func (d *dispatcher) apply(ctx context.Context, ev stream.Event) error {
	if d.done {
		return nil
	}

	switch e := ev.(type) {
	case stream.Emoji:
		d.tr.CreateTurn(model.RoleAssistant, "", model.TurnOptions{ImageURL: e.URL})

	case stream.FavoriteImage:
		d.tr.CreateTurn(model.RoleAssistant, "", model.TurnOptions{ImageURL: e.URL, Caption: e.Description})

	case stream.Video:
		d.tr.CreateTurn(model.RoleAssistant, "", model.TurnOptions{VideoURL: e.URL, Caption: e.Description})

	case stream.TextDelta:
		return d.text(ctx, e.Content)

	case stream.Done:
		d.finish()

	case stream.Unknown:
		d.log.Debug().Str("type", e.Type).Msg("ignoring unknown event type")
	}
	return nil
}

func (d *dispatcher) text(ctx context.Context, content string) error {
	if d.imageResponse && !d.firstContent {
		d.firstContent = true
		if d.tr.ShowTransient(d.pending, textResponseOK) {
			if err := d.acknowledge(ctx); err != nil {
				return err
			}
			d.tr.ClearTransient(d.pending)
		}
	}
	d.firstContent = true
	d.tr.AppendText(d.pending, content)
	return nil
}

// acknowledge holds the success notice on screen. The body is not read
// meanwhile, so the idle clock is paused.
func (d *dispatcher) acknowledge(ctx context.Context) error {
	if d.idle != nil {
		d.idle.Pause()
		defer d.idle.Resume()
	}
	return d.sleep(ctx, d.ackDuration)
}

// finish finalizes the pending turn. It runs once per reply, whether the
// stream sent done or simply ended.
func (d *dispatcher) finish() {
	if d.done {
		return
	}
	d.done = true
	d.final, _ = d.tr.Finalize(d.pending)
}
