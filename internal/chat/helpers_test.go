// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mimico-chat/internal/api"
	"github.com/jeranaias/mimico-chat/internal/audio"
	"github.com/jeranaias/mimico-chat/internal/clipboard"
	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/session"
)

// =============================================================================
// FAKE SERVICE
// =============================================================================

type fakeService struct {
	mu sync.Mutex

	loggedIn bool
	authErr  error

	chatBodies []string
	chatErr    error
	chatFn     func(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error)
	chatReqs   []api.ChatRequest

	upload    *api.UploadResult
	uploadErr error
	uploads   []string

	history    []api.HistoryEntry
	historyErr error

	clears   []string
	clearErr error

	ttsURL   string
	ttsErr   error
	ttsCalls int

	genResult *api.GenerateResult
	genErr    error
	genReqs   []api.GenerateRequest
}

func newFakeService() *fakeService {
	return &fakeService{loggedIn: true, ttsURL: "/static/audio/tts/abc.mp3"}
}

func (f *fakeService) AuthStatus(ctx context.Context) (*api.AuthStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &api.AuthStatus{Success: true, LoggedIn: f.loggedIn}, nil
}

func (f *fakeService) Chat(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	f.chatReqs = append(f.chatReqs, req)
	fn := f.chatFn
	err := f.chatErr
	var body string
	if len(f.chatBodies) > 0 {
		body = f.chatBodies[0]
		f.chatBodies = f.chatBodies[1:]
	}
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeService) UploadImage(ctx context.Context, name string, image io.Reader) (*api.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, name)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return f.upload, nil
}

func (f *fakeService) History(ctx context.Context, sessionID string) ([]api.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, f.historyErr
}

func (f *fakeService) Clear(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears = append(f.clears, sessionID)
	return f.clearErr
}

func (f *fakeService) TTS(ctx context.Context, text, messageID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttsCalls++
	return f.ttsURL, f.ttsErr
}

func (f *fakeService) Generate(ctx context.Context, req api.GenerateRequest) (*api.GenerateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.genReqs = append(f.genReqs, req)
	return f.genResult, f.genErr
}

func (f *fakeService) ResolveURL(ref string) string {
	if strings.HasPrefix(ref, "/") {
		return "http://svc" + ref
	}
	return ref
}

func (f *fakeService) requests() []api.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.ChatRequest(nil), f.chatReqs...)
}

// sse renders frames as an event stream body.
func sse(frames ...string) string {
	var b strings.Builder
	for _, f := range frames {
		b.WriteString("data: ")
		b.WriteString(f)
		b.WriteString("\n\n")
	}
	return b.String()
}

// =============================================================================
// FAKE CLOCK
// =============================================================================

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualClock collects AfterFunc callbacks and runs them on Fire.
type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(d time.Duration, fn func()) model.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Fire() {
	c.mu.Lock()
	timers := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.fn()
		}
	}
}

// sleepLog records requested delays without waiting.
type sleepLog struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepLog) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepLog) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

type fakeCopier struct {
	copied []string
}

func (f *fakeCopier) Copy(text string) (clipboard.Method, error) {
	f.copied = append(f.copied, text)
	return clipboard.MethodSystem, nil
}

// =============================================================================
// HARNESS
// =============================================================================

type harness struct {
	svc    *fakeService
	ctrl   *Controller
	tr     *model.Transcript
	sess   *session.Manager
	clock  *manualClock
	sleeps *sleepLog
	player *audio.Recorder
	copier *fakeCopier
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		svc:    newFakeService(),
		clock:  &manualClock{},
		sleeps: &sleepLog{},
		player: &audio.Recorder{},
		copier: &fakeCopier{},
	}
	h.tr = model.NewTranscript(model.TranscriptConfig{AfterFunc: h.clock.AfterFunc})
	h.sess = session.NewManagerWithID("session_test", session.DefaultConfig())

	opts := Options{
		Service:         h.svc,
		Session:         h.sess,
		Transcript:      h.tr,
		Player:          h.player,
		Clipboard:       h.copier,
		OfflineAsset:    "/static/audio/system/offline.mp3",
		AutoplayOffline: true,
		Timing:          DefaultTiming(),
		Sleep:           h.sleeps.Sleep,
		Logger:          zerolog.Nop(),
	}
	for _, m := range mutate {
		m(&opts)
	}

	ctrl, err := New(opts)
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

// visible returns the turns after the initial greeting.
func (h *harness) visible() []model.Turn {
	turns := h.tr.Snapshot()
	if len(turns) > 0 && turns[0].Kind == model.KindPlaceholder {
		return turns[1:]
	}
	return turns
}
