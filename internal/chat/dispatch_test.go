// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/stream"
)

func newTestDispatcher(imageResponse bool) (*dispatcher, *model.Transcript, *sleepLog) {
	tr := model.NewTranscript(model.TranscriptConfig{})
	pending := tr.CreateTurn(model.RoleAssistant, "", model.TurnOptions{Loading: true})
	sl := &sleepLog{}
	return newDispatcher(tr, pending, imageResponse, time.Second, sl.Sleep, zerolog.Nop()), tr, sl
}

func TestDispatch_Events(t *testing.T) {
	tests := []struct {
		name      string
		events    []stream.Event
		wantKinds []model.Kind
		wantTexts []string
	}{
		{
			name:      "text",
			events:    []stream.Event{stream.TextDelta{Content: "a"}, stream.TextDelta{Content: "b"}, stream.Done{}},
			wantKinds: []model.Kind{model.KindPlaceholder, model.KindText},
			wantTexts: []string{model.PlaceholderText, "ab"},
		},
		{
			name:      "favorite image with caption",
			events:    []stream.Event{stream.FavoriteImage{URL: "/f.png", Description: "收藏"}, stream.Done{}},
			wantKinds: []model.Kind{model.KindPlaceholder, model.KindText, model.KindImage, model.KindText},
			wantTexts: []string{model.PlaceholderText, "", "", "收藏"},
		},
		{
			name:      "video without caption",
			events:    []stream.Event{stream.Video{URL: "/v.mp4"}},
			wantKinds: []model.Kind{model.KindPlaceholder, model.KindText, model.KindVideo},
			wantTexts: []string{model.PlaceholderText, "", ""},
		},
		{
			name:      "unknown type still applies content",
			events:    []stream.Event{stream.Unknown{Type: "weather"}, stream.TextDelta{Content: "晴"}},
			wantKinds: []model.Kind{model.KindPlaceholder, model.KindText},
			wantTexts: []string{model.PlaceholderText, "晴"},
		},
		{
			name:      "events after done are ignored",
			events:    []stream.Event{stream.TextDelta{Content: "x"}, stream.Done{}, stream.TextDelta{Content: "y"}, stream.Emoji{URL: "/e.png"}},
			wantKinds: []model.Kind{model.KindPlaceholder, model.KindText},
			wantTexts: []string{model.PlaceholderText, "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, tr, _ := newTestDispatcher(false)
			for _, ev := range tt.events {
				if err := d.apply(context.Background(), ev); err != nil {
					t.Fatalf("apply(%v) error: %v", ev.Kind(), err)
				}
			}
			turns := tr.Snapshot()
			if len(turns) != len(tt.wantKinds) {
				t.Fatalf("got %d turns, want %d", len(turns), len(tt.wantKinds))
			}
			for i, turn := range turns {
				if turn.Kind != tt.wantKinds[i] {
					t.Errorf("turn %d kind = %q, want %q", i, turn.Kind, tt.wantKinds[i])
				}
				if turn.Text != tt.wantTexts[i] {
					t.Errorf("turn %d text = %q, want %q", i, turn.Text, tt.wantTexts[i])
				}
			}
		})
	}
}

func TestDispatch_AttachmentAndContentInOneFrame(t *testing.T) {
	d, tr, _ := newTestDispatcher(false)
	frame := stream.Frame{Type: stream.TypeEmoji, EmojiURL: "/e.png", Content: "嘿", Done: true}

	if err := d.applyFrame(context.Background(), frame); err != nil {
		t.Fatal(err)
	}

	turns := tr.Snapshot()
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}
	if turns[1].Text != "嘿" || !turns[1].Finalized {
		t.Errorf("pending turn = %+v, want finalized text 嘿", turns[1])
	}
	if turns[2].Kind != model.KindImage || turns[2].Text != "" {
		t.Errorf("emoji turn = %+v, want image without caption", turns[2])
	}
	if !d.done {
		t.Error("done flag on the frame should finish the reply")
	}
}

func TestDispatch_ImageResponseAcknowledgesOnce(t *testing.T) {
	d, tr, sl := newTestDispatcher(true)

	for _, c := range []string{"a", "b"} {
		if err := d.apply(context.Background(), stream.TextDelta{Content: c}); err != nil {
			t.Fatal(err)
		}
	}

	if got := sl.Waits(); len(got) != 1 || got[0] != time.Second {
		t.Errorf("waits = %v, want one ack wait", got)
	}
	turn, _ := tr.Get(d.pending)
	if turn.Text != "ab" || turn.Transient {
		t.Errorf("pending = %q transient=%v, want %q", turn.Text, turn.Transient, "ab")
	}
}

// recordingClock is an idleClock that notes whether it is paused.
type recordingClock struct {
	paused bool
	calls  []string
}

func (c *recordingClock) Pause()  { c.paused = true; c.calls = append(c.calls, "pause") }
func (c *recordingClock) Resume() { c.paused = false; c.calls = append(c.calls, "resume") }

func TestDispatch_AckPausesIdleClock(t *testing.T) {
	tr := model.NewTranscript(model.TranscriptConfig{})
	pending := tr.CreateTurn(model.RoleAssistant, "", model.TurnOptions{Loading: true})
	clock := &recordingClock{}

	pausedDuringAck := false
	sleep := func(ctx context.Context, d time.Duration) error {
		pausedDuringAck = clock.paused
		return nil
	}
	d := newDispatcher(tr, pending, true, time.Second, sleep, zerolog.Nop())
	d.idle = clock

	if err := d.apply(context.Background(), stream.TextDelta{Content: "a"}); err != nil {
		t.Fatal(err)
	}
	if !pausedDuringAck {
		t.Error("idle clock kept running during the acknowledgement")
	}
	if len(clock.calls) != 2 || clock.calls[0] != "pause" || clock.calls[1] != "resume" {
		t.Errorf("clock calls = %v, want [pause resume]", clock.calls)
	}
}

func TestIdleReader_PauseHoldsTimeout(t *testing.T) {
	fired := make(chan struct{}, 1)
	ir := newIdleReader(strings.NewReader(""), 20*time.Millisecond, func() { fired <- struct{}{} })
	defer ir.stop()

	ir.Pause()
	select {
	case <-fired:
		t.Fatal("idle timeout fired while paused")
	case <-time.After(60 * time.Millisecond):
	}

	ir.Resume()
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("idle timeout did not fire after resume")
	}
}

func TestDispatch_AckCancelled(t *testing.T) {
	d, _, _ := newTestDispatcher(true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := d.apply(ctx, stream.TextDelta{Content: "a"}); err == nil {
		t.Error("expected the cancelled acknowledgement to stop dispatch")
	}
}

func TestDispatch_FinishIsIdempotent(t *testing.T) {
	d, tr, _ := newTestDispatcher(false)
	d.apply(context.Background(), stream.TextDelta{Content: "人家也是需要睡觉的~"})
	d.finish()
	d.finish()

	if !d.final.Offline {
		t.Error("offline sentinel should mark the final turn offline")
	}
	turn, _ := tr.Get(d.pending)
	if !turn.Finalized {
		t.Error("pending turn not finalized")
	}
}
