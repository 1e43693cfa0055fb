// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/mimico-chat/internal/api"
	"github.com/jeranaias/mimico-chat/internal/audio"
	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/session"
	"github.com/jeranaias/mimico-chat/internal/stream"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Timing holds the user-visible delays of the send flow.
type Timing struct {
	// RecognitionNotice is how long the image recognition notice shows.
	RecognitionNotice time.Duration

	// SuccessAck is how long the success acknowledgement shows before the
	// first fragment of an image response.
	SuccessAck time.Duration

	// StreamIdle aborts a reply when no bytes arrive for this long.
	// Zero disables the limit.
	StreamIdle time.Duration

	// FollowUp is the delay before the automatic send after a generation.
	FollowUp time.Duration
}

// DefaultTiming returns the delays the web client uses.
func DefaultTiming() Timing {
	return Timing{
		RecognitionNotice: 800 * time.Millisecond,
		SuccessAck:        1500 * time.Millisecond,
		StreamIdle:        60 * time.Second,
		FollowUp:          500 * time.Millisecond,
	}
}

// Options configures a Controller. Service, Session and Transcript are
// required.
type Options struct {
	Service    Service
	Session    *session.Manager
	Transcript *model.Transcript

	// Player speaks TTS audio. Nil disables playback.
	Player audio.Player

	// Cache persists TTS URLs across runs. Optional.
	Cache *audio.Cache

	// Clipboard backs Copy. Optional.
	Clipboard Copier

	// OfflineAsset is played for offline replies.
	OfflineAsset string

	// AutoplayOffline plays the offline asset once when a reply is the
	// offline sentinel.
	AutoplayOffline bool

	// Location is sent with every chat request when set.
	Location *api.Location

	Timing Timing
	Sleep  SleepFunc
	Logger zerolog.Logger
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller runs the client side of a conversation: sending, streaming
// replies into the transcript, history, generation and audio.
//
// At most one send runs at a time; the session's in-flight guard enforces
// that. Controller methods are safe for concurrent use.
type Controller struct {
	svc     Service
	sess    *session.Manager
	tr      *model.Transcript
	player  audio.Player
	cache   *audio.Cache
	copier  Copier
	sleep   SleepFunc
	log     zerolog.Logger
	offline string

	mu       sync.RWMutex
	timing   Timing
	autoplay bool
	location *api.Location

	// playMu serializes synthesis so two plays of one turn cost one request.
	playMu sync.Mutex

	// bg tracks offline autoplay goroutines.
	bg sync.WaitGroup
}

// New creates a Controller.
func New(opts Options) (*Controller, error) {
	if opts.Service == nil {
		return nil, errors.New("chat: service is required")
	}
	if opts.Session == nil {
		return nil, errors.New("chat: session is required")
	}
	if opts.Transcript == nil {
		return nil, errors.New("chat: transcript is required")
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Timing == (Timing{}) {
		opts.Timing = DefaultTiming()
	}

	return &Controller{
		svc:      opts.Service,
		sess:     opts.Session,
		tr:       opts.Transcript,
		player:   opts.Player,
		cache:    opts.Cache,
		copier:   opts.Clipboard,
		sleep:    opts.Sleep,
		log:      opts.Logger.With().Str("component", "chat").Logger(),
		offline:  opts.OfflineAsset,
		timing:   opts.Timing,
		autoplay: opts.AutoplayOffline,
		location: opts.Location,
	}, nil
}

// Transcript returns the transcript the controller writes to.
func (c *Controller) Transcript() *model.Transcript { return c.tr }

// Session returns the session manager.
func (c *Controller) Session() *session.Manager { return c.sess }

// InFlight reports whether a send is running.
func (c *Controller) InFlight() bool { return c.sess.InFlight() }

// Reconfigure swaps the runtime-tunable settings, as after a config reload.
func (c *Controller) Reconfigure(t Timing, autoplayOffline bool, loc *api.Location) {
	c.mu.Lock()
	c.timing = t
	c.autoplay = autoplayOffline
	c.location = loc
	c.mu.Unlock()
}

func (c *Controller) settings() (Timing, bool, *api.Location) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timing, c.autoplay, c.location
}

// Wait blocks until background audio started by replies has finished.
func (c *Controller) Wait() { c.bg.Wait() }

// =============================================================================
// SEND
// =============================================================================

// Input is one user message.
type Input struct {
	Text string

	// ImageName and Image attach a picture. Image is read once.
	ImageName string
	Image     io.Reader
}

// Send delivers a message and streams the reply into the transcript.
//
// Send blocks until the reply is complete. It returns ErrInFlight without
// touching anything when another send is running, and ErrLoginRequired
// when the session is not logged in. Failures after the request started
// become error turns and Send returns nil.
func (c *Controller) Send(ctx context.Context, in Input) error {
	text := strings.TrimSpace(in.Text)
	if text == "" && in.Image == nil {
		return nil
	}
	if !c.sess.TryBeginSend() {
		return ErrInFlight
	}

	followUp, err := func() (string, error) {
		defer c.sess.EndSend()
		return c.send(ctx, text, in)
	}()
	if err != nil || followUp == "" {
		return err
	}

	timing, _, _ := c.settings()
	if err := c.sleep(ctx, timing.FollowUp); err != nil {
		return err
	}
	return c.Send(ctx, Input{Text: followUp})
}

// send runs with the guard held. A non-empty followUp asks Send to issue
// another message once the guard is released.
func (c *Controller) send(ctx context.Context, text string, in Input) (followUp string, err error) {
	if err := c.checkAuth(ctx); err != nil {
		return "", err
	}

	hidden := strings.Contains(text, GeneratedMarker)
	if !hidden && in.Image == nil {
		if cmd, ok := ParseCommand(text); ok {
			return c.generate(ctx, cmd)
		}
	}

	hasImage := in.Image != nil
	if !hidden {
		shown := text
		if shown == "" && hasImage {
			shown = textImageOnly
		}
		c.tr.CreateTurn(model.RoleUser, shown, model.TurnOptions{})
	}

	message := text
	var imageFile string
	imageResponse := false
	if hasImage {
		upload, err := c.svc.UploadImage(ctx, in.ImageName, in.Image)
		if err != nil {
			if api.IsUnauthorized(err) {
				return "", ErrLoginRequired
			}
			c.log.Warn().Err(err).Str("image", in.ImageName).Msg("image upload failed")
			c.tr.CreateTurn(model.RoleAssistant, textUploadFailed, model.TurnOptions{})
			return "", nil
		}
		imageFile = upload.Filename
		if upload.Description != "" {
			imageResponse = true
			message = spliceDescription(message, upload.Description)
		}
	}

	return "", c.reply(ctx, api.ChatRequest{
		Message:       message,
		SessionID:     c.sess.SessionID(),
		Mode:          c.sess.Mode(),
		ImageFilename: imageFile,
	}, imageResponse)
}

// reply creates the pending assistant turn, runs the request and streams
// the response into it.
func (c *Controller) reply(ctx context.Context, req api.ChatRequest, imageResponse bool) error {
	timing, autoplay, loc := c.settings()
	req.Location = loc

	var pending string
	if imageResponse {
		pending = c.tr.CreateTurn(model.RoleAssistant, textRecognizing, model.TurnOptions{Transient: true})
		if err := c.sleep(ctx, timing.RecognitionNotice); err != nil {
			c.tr.Finalize(pending)
			return err
		}
		c.tr.BeginLoading(pending)
	} else {
		pending = c.tr.CreateTurn(model.RoleAssistant, "", model.TurnOptions{Loading: true})
	}

	d := newDispatcher(c.tr, pending, imageResponse, timing.SuccessAck, c.sleep, c.log)
	// The pending turn is closed on every path.
	defer d.finish()

	err := c.stream(ctx, req, timing.StreamIdle, d)
	switch {
	case err == nil:
	case api.IsUnauthorized(err):
		return ErrLoginRequired
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// The caller gave up; nothing to report.
		return nil
	default:
		c.log.Error().Err(err).Str("session", req.SessionID).Msg("chat stream failed")
		d.finish()
		c.tr.CreateTurn(model.RoleAssistant, textSendFailed, model.TurnOptions{})
		return nil
	}

	d.finish()
	if d.final.Offline && autoplay {
		c.autoplayOffline(ctx)
	}
	return nil
}

// stream posts the request and feeds every frame to d. The request is
// cancelled when the body stays silent for longer than idle.
func (c *Controller) stream(ctx context.Context, req api.ChatRequest, idle time.Duration, d *dispatcher) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	body, err := c.svc.Chat(ctx, req)
	if err != nil {
		return err
	}
	defer body.Close()

	var src io.Reader = body
	if idle > 0 {
		ir := newIdleReader(body, idle, func() { cancel(errStreamIdle) })
		defer ir.stop()
		d.idle = ir
		src = ir
	}

	// done ends the reply even when the server keeps the body open.
	reader := stream.NewReader(src, c.log)
	err = reader.Each(func(f stream.Frame) error {
		if err := d.applyFrame(ctx, f); err != nil {
			return err
		}
		if d.done {
			return errReplyDone
		}
		return nil
	})
	if reader.Skipped > 0 {
		c.log.Debug().Int("skipped", reader.Skipped).Msg("malformed frames dropped")
	}
	if errors.Is(err, errReplyDone) {
		return nil
	}
	if err != nil {
		if cause := context.Cause(ctx); errors.Is(cause, errStreamIdle) {
			return fmt.Errorf("%w after %s", errStreamIdle, idle)
		}
		return err
	}
	return nil
}

// checkAuth confirms the session is logged in. A failed check counts as
// not logged in.
func (c *Controller) checkAuth(ctx context.Context) error {
	st, err := c.svc.AuthStatus(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		c.log.Warn().Err(err).Msg("auth check failed")
		return ErrLoginRequired
	}
	if !st.LoggedIn {
		return ErrLoginRequired
	}
	return nil
}

// autoplayOffline plays the offline asset in the background.
func (c *Controller) autoplayOffline(ctx context.Context) {
	if c.player == nil || c.offline == "" {
		return
	}
	source := audio.Resolve(c.offline, c.svc.ResolveURL)
	ctx = context.WithoutCancel(ctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		if err := c.player.Play(ctx, source); err != nil {
			c.log.Debug().Err(err).Msg("offline autoplay failed")
		}
	}()
}

// spliceDescription appends the server's image description to msg.
func spliceDescription(msg, desc string) string {
	tag := "[图片内容：" + desc + "]"
	if msg == "" {
		return tag
	}
	return msg + "\n\n" + tag
}

// =============================================================================
// IDLE TIMEOUT
// =============================================================================

var (
	errStreamIdle = errors.New("stream idle timeout")
	errReplyDone  = errors.New("reply done")
)

// idleReader calls onIdle when no bytes arrive within d. Pause and Resume
// must be called from the reading goroutine.
type idleReader struct {
	r     io.Reader
	d     time.Duration
	timer *time.Timer
}

func newIdleReader(r io.Reader, d time.Duration, onIdle func()) *idleReader {
	return &idleReader{r: r, d: d, timer: time.AfterFunc(d, onIdle)}
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.timer.Reset(ir.d)
	}
	return n, err
}

func (ir *idleReader) stop() { ir.timer.Stop() }

// Pause stops the clock while the reader deliberately is not reading.
func (ir *idleReader) Pause() { ir.timer.Stop() }

// Resume restarts the full idle window.
func (ir *idleReader) Resume() { ir.timer.Reset(ir.d) }
