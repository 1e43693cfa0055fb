// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mimico-chat/internal/api"
	"github.com/jeranaias/mimico-chat/internal/model"
)

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	h := newHarness(t)
	_, err = New(Options{Service: h.svc, Session: h.sess})
	assert.Error(t, err)
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_StreamsReplyIntoOneTurn(t *testing.T) {
	h := newHarness(t)
	h.svc.chatBodies = []string{sse(`{"content":"A"}`, `{"content":"B"}`, `{"done":true}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "hi"}))

	turns := h.visible()
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, "hi", turns[0].Text)

	reply := turns[1]
	assert.Equal(t, model.RoleAssistant, reply.Role)
	assert.Equal(t, "AB", reply.Text)
	assert.True(t, reply.Finalized)
	assert.False(t, reply.Loading)
	require.NotNil(t, reply.Actions, "reply gets exactly one action group")

	assert.False(t, h.ctrl.InFlight(), "guard released after done")

	reqs := h.svc.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "hi", reqs[0].Message)
	assert.Equal(t, "session_test", reqs[0].SessionID)
	assert.Equal(t, "normal", reqs[0].Mode)
	assert.Nil(t, reqs[0].Location)
}

func TestSend_FragmentsAppendInOrder(t *testing.T) {
	h := newHarness(t)
	h.svc.chatBodies = []string{sse(`{"content":"Hel"}`, `{"content":"lo, "}`, `{"content":"world"}`, `{"done":true}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "greet"}))

	turns := h.visible()
	require.Len(t, turns, 2)
	if turns[1].Text != "Hello, world" {
		t.Errorf("reply = %q, want %q", turns[1].Text, "Hello, world")
	}
}

func TestSend_EmojiThenContentAreDistinctTurns(t *testing.T) {
	h := newHarness(t)
	h.svc.chatBodies = []string{sse(
		`{"type":"emoji","emoji_url":"/static/emoji/happy.png"}`,
		`{"content":"好耶"}`,
		`{"done":true}`,
	)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "hi"}))

	var image, text *model.Turn
	turns := h.visible()
	for i := range turns {
		switch {
		case turns[i].Kind == model.KindImage:
			image = &turns[i]
		case turns[i].Role == model.RoleAssistant:
			text = &turns[i]
		}
	}
	require.NotNil(t, image)
	require.NotNil(t, text)
	assert.NotEqual(t, image.ID, text.ID)
	assert.Equal(t, "/static/emoji/happy.png", image.AttachmentURL)
	assert.Empty(t, image.Text)
	assert.Equal(t, "好耶", text.Text)
}

func TestSend_ImplicitDoneOnStreamEnd(t *testing.T) {
	h := newHarness(t)
	h.svc.chatBodies = []string{sse(`{"content":"partial"}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "hi"}))

	turns := h.visible()
	require.Len(t, turns, 2)
	assert.True(t, turns[1].Finalized)
	assert.Equal(t, "partial", turns[1].Text)
	assert.False(t, h.ctrl.InFlight())
}

func TestSend_EmptyReplyIsHidden(t *testing.T) {
	h := newHarness(t)
	h.svc.chatBodies = []string{sse(`{"done":true}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "hi"}))

	vm := h.tr.View()
	for _, tv := range vm.Turns {
		if tv.Role == model.RoleAssistant && tv.Kind == model.KindText {
			t.Errorf("empty reply should be hidden, got %+v", tv)
		}
	}
}

func TestSend_MalformedFrameSkipped(t *testing.T) {
	h := newHarness(t)
	h.svc.chatBodies = []string{sse(`{"content":"a"}`, `{not json`, `{"content":"b"}`, `{"done":true}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "hi"}))
	assert.Equal(t, "ab", h.visible()[1].Text)
}

func TestSend_EmptyInputIsNoop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "   "}))
	assert.True(t, h.tr.IsPristine())
	assert.Empty(t, h.svc.requests())
}

func TestSend_SecondSendWhileInFlightIsNoop(t *testing.T) {
	h := newHarness(t)
	started := make(chan struct{})
	release := make(chan struct{})
	h.svc.chatFn = func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
		close(started)
		<-release
		return io.NopCloser(strings.NewReader(sse(`{"content":"ok"}`, `{"done":true}`))), nil
	}

	errc := make(chan error, 1)
	go func() { errc <- h.ctrl.Send(context.Background(), Input{Text: "first"}) }()
	<-started

	before := h.tr.Snapshot()
	err := h.ctrl.Send(context.Background(), Input{Text: "second"})
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, before, h.tr.Snapshot(), "rejected send must not touch the transcript")

	close(release)
	require.NoError(t, <-errc)
	assert.Len(t, h.svc.requests(), 1)
	assert.False(t, h.ctrl.InFlight())
}

func TestSend_LoginRequired(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeService)
	}{
		{"logged out", func(f *fakeService) { f.loggedIn = false }},
		{"auth check failed", func(f *fakeService) { f.authErr = api.ErrConnection }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			tt.mutate(h.svc)

			err := h.ctrl.Send(context.Background(), Input{Text: "hi"})
			assert.ErrorIs(t, err, ErrLoginRequired)
			assert.True(t, h.tr.IsPristine())
			assert.False(t, h.ctrl.InFlight())
		})
	}
}

func TestSend_ChatUnauthorized(t *testing.T) {
	h := newHarness(t)
	h.svc.chatErr = &api.ClientError{Type: api.ErrTypeUnauthorized, StatusCode: 401}

	err := h.ctrl.Send(context.Background(), Input{Text: "hi"})
	assert.ErrorIs(t, err, ErrLoginRequired)

	// The pending reply is closed and hidden.
	for _, tv := range h.tr.View().Turns {
		assert.False(t, tv.Loading)
	}
}

func TestSend_TransportFailureProducesErrorTurn(t *testing.T) {
	h := newHarness(t)
	h.svc.chatErr = &api.ClientError{Type: api.ErrTypeConnection, Message: "chat service unreachable"}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "hi"}))

	vm := h.tr.View()
	last := vm.Turns[len(vm.Turns)-1]
	assert.Equal(t, textSendFailed, last.Body)
	for _, tv := range vm.Turns {
		assert.False(t, tv.Loading, "no turn left loading")
	}
	assert.False(t, h.ctrl.InFlight())
}

func TestSend_IdleTimeoutAbortsStream(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Timing.StreamIdle = 20 * time.Millisecond
	})
	h.svc.chatFn = func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			pw.Write([]byte(sse(`{"content":"so"}`)))
			<-ctx.Done()
			pw.CloseWithError(ctx.Err())
		}()
		return pr, nil
	}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "hi"}))

	turns := h.visible()
	require.Len(t, turns, 3)
	assert.Equal(t, "so", turns[1].Text)
	assert.True(t, turns[1].Finalized)
	assert.Equal(t, textSendFailed, turns[2].Text)
}

// heldOpenStream writes body and then keeps the connection open until the
// request context ends.
func heldOpenStream(body string) func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
	return func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			pw.Write([]byte(body))
			<-ctx.Done()
			pw.CloseWithError(ctx.Err())
		}()
		return pr, nil
	}
}

func TestSend_DoneEndsReplyWhileBodyStaysOpen(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Timing.StreamIdle = 30 * time.Second
	})
	h.svc.chatFn = heldOpenStream(sse(`{"content":"hello"}`, `{"done":true}`))

	sent := make(chan error, 1)
	go func() { sent <- h.ctrl.Send(context.Background(), Input{Text: "hi"}) }()

	select {
	case err := <-sent:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("send still blocked after done")
	}
	assert.False(t, h.ctrl.InFlight())

	turns := h.visible()
	require.Len(t, turns, 2)
	assert.Equal(t, "hi", turns[0].Text)
	assert.Equal(t, "hello", turns[1].Text)
	assert.True(t, turns[1].Finalized)
	for _, turn := range turns {
		assert.NotEqual(t, textSendFailed, turn.Text)
	}
}

func TestSend_DoneStartsOfflineAutoplayWhileBodyStaysOpen(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Timing.StreamIdle = 30 * time.Second
	})
	h.svc.chatFn = heldOpenStream(sse(`{"content":"人家也是需要睡觉的~"}`, `{"done":true}`))

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "在吗"}))
	h.ctrl.Wait()
	assert.Equal(t, []string{"http://svc/static/audio/system/offline.mp3"}, h.player.Played())
}

func TestSend_CallerCancelLeavesNoErrorTurn(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.svc.chatFn = func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
		cancel()
		return nil, ctx.Err()
	}

	require.NoError(t, h.ctrl.Send(ctx, Input{Text: "hi"}))
	for _, tv := range h.tr.View().Turns {
		assert.NotEqual(t, textSendFailed, tv.Body)
		assert.False(t, tv.Loading)
	}
}

func TestSend_LocationIsForwarded(t *testing.T) {
	loc := &api.Location{Latitude: 31.2, Longitude: 121.5}
	h := newHarness(t, func(o *Options) { o.Location = loc })
	h.svc.chatBodies = []string{sse(`{"done":true}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "天气"}))
	assert.Equal(t, loc, h.svc.requests()[0].Location)

	h.ctrl.Reconfigure(DefaultTiming(), true, nil)
	h.svc.chatBodies = []string{sse(`{"done":true}`)}
	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "again"}))
	assert.Nil(t, h.svc.requests()[1].Location)
}

// =============================================================================
// IMAGES
// =============================================================================

func TestSend_ImageResponseHandshake(t *testing.T) {
	h := newHarness(t)
	h.svc.upload = &api.UploadResult{Success: true, Description: "一只猫", Filename: "cat_1.png"}
	h.svc.chatBodies = []string{sse(`{"content":"是猫"}`, `{"done":true}`)}

	err := h.ctrl.Send(context.Background(), Input{Text: "看看", ImageName: "cat.png", Image: strings.NewReader("png")})
	require.NoError(t, err)

	req := h.svc.requests()[0]
	assert.Equal(t, "看看\n\n[图片内容：一只猫]", req.Message)
	assert.Equal(t, "cat_1.png", req.ImageFilename)
	assert.Equal(t, []time.Duration{800 * time.Millisecond, 1500 * time.Millisecond}, h.sleeps.Waits())

	turns := h.visible()
	require.Len(t, turns, 2)
	assert.Equal(t, "看看", turns[0].Text)
	assert.Equal(t, "是猫", turns[1].Text, "acknowledgement is cleared before the reply")
}

func TestSend_ImageOnlyMessage(t *testing.T) {
	h := newHarness(t)
	h.svc.upload = &api.UploadResult{Success: true, Description: "风景", Filename: "f.png"}
	h.svc.chatBodies = []string{sse(`{"done":true}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{ImageName: "f.png", Image: strings.NewReader("x")}))

	assert.Equal(t, "[图片内容：风景]", h.svc.requests()[0].Message)
	assert.Equal(t, textImageOnly, h.visible()[0].Text)
}

func TestSend_UploadFailureAbortsWithoutPlaceholder(t *testing.T) {
	h := newHarness(t)
	h.svc.uploadErr = &api.ClientError{Type: api.ErrTypeRejected, Message: "too large"}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "看", ImageName: "big.png", Image: strings.NewReader("x")}))

	turns := h.visible()
	require.Len(t, turns, 2)
	assert.Equal(t, model.RoleUser, turns[0].Role)
	assert.Equal(t, textUploadFailed, turns[1].Text)
	assert.True(t, turns[1].Finalized)
	assert.Empty(t, h.svc.requests(), "chat is never called")
	assert.False(t, h.ctrl.InFlight())
}

// =============================================================================
// OFFLINE
// =============================================================================

func TestSend_OfflineReplyAutoplaysOnce(t *testing.T) {
	h := newHarness(t)
	h.svc.chatBodies = []string{sse(`{"content":"人家也是需要睡觉的~"}`, `{"done":true}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "在吗"}))
	h.ctrl.Wait()

	reply := h.visible()[1]
	assert.True(t, reply.Offline)
	require.NotNil(t, reply.Actions)
	assert.True(t, reply.Actions.Offline)
	assert.Equal(t, []string{"http://svc/static/audio/system/offline.mp3"}, h.player.Played())
}

func TestSend_OfflineAutoplayDisabled(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.AutoplayOffline = false })
	h.svc.chatBodies = []string{sse(`{"content":"人家也是需要睡觉的~"}`, `{"done":true}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "在吗"}))
	h.ctrl.Wait()
	assert.Empty(t, h.player.Played())
}

func TestSpliceDescription(t *testing.T) {
	tests := []struct {
		msg, desc, want string
	}{
		{"", "猫", "[图片内容：猫]"},
		{"看", "猫", "看\n\n[图片内容：猫]"},
	}
	for _, tt := range tests {
		if got := spliceDescription(tt.msg, tt.desc); got != tt.want {
			t.Errorf("spliceDescription(%q, %q) = %q, want %q", tt.msg, tt.desc, got, tt.want)
		}
	}
}

func TestSleep_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep = %v, want context.Canceled", err)
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) = %v, want nil", err)
	}
}
