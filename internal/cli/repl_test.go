// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestForwardInterrupts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	var calls atomic.Int32
	interrupted := make(chan struct{}, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		forwardInterrupts(ctx, sigs, func() {
			calls.Add(1)
			interrupted <- struct{}{}
		})
	}()

	sigs <- os.Interrupt
	select {
	case <-interrupted:
	case <-time.After(time.Second):
		t.Fatal("interrupt was not forwarded")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forwarder still running after the session ended")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestColorProfile(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}
	tests := []struct {
		name string
		vars map[string]string
		tty  bool
		want termenv.Profile
	}{
		{"no color wins", map[string]string{"NO_COLOR": "1", "FORCE_COLOR": "1"}, true, termenv.Ascii},
		{"forced on a pipe", map[string]string{"FORCE_COLOR": "1"}, false, termenv.ANSI256},
		{"pipe is plain", nil, false, termenv.Ascii},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, colorProfile(env(tt.vars), tt.tty))
		})
	}
}
