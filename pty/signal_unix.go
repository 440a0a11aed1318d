//go:build unix

package pty

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Bridge owns the single OS signal-handling goroutine for the process
// (C12): exactly one channel is registered with the runtime regardless of
// how many sessions exist, and delivery fans out to whichever sessions
// have subscribed. Unix builds use this to forward SIGWINCH (a session's
// controlling terminal changed size) and SIGCHLD (a child may have
// exited) without every session installing its own handler.
type Bridge struct {
	mu        sync.Mutex
	winch     map[chan<- struct{}]struct{}
	chld      map[chan<- struct{}]struct{}
	sigCh     chan os.Signal
	startOnce sync.Once
}

var globalBridge = &Bridge{
	winch: make(map[chan<- struct{}]struct{}),
	chld:  make(map[chan<- struct{}]struct{}),
}

// GlobalBridge returns the process-wide signal bridge.
func GlobalBridge() *Bridge { return globalBridge }

func (b *Bridge) ensureStarted() {
	b.startOnce.Do(func() {
		b.sigCh = make(chan os.Signal, 16)
		signal.Notify(b.sigCh, syscall.SIGWINCH, syscall.SIGCHLD)
		go b.loop()
	})
}

func (b *Bridge) loop() {
	for sig := range b.sigCh {
		switch sig {
		case syscall.SIGWINCH:
			b.fanOut(b.winch)
		case syscall.SIGCHLD:
			b.fanOut(b.chld)
		}
	}
}

func (b *Bridge) fanOut(subs map[chan<- struct{}]struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
			// subscriber hasn't drained the last notification; coalescing
			// is fine since each signal just means "re-check current state"
		}
	}
}

// SubscribeWinch registers ch to receive a notification on every SIGWINCH.
func (b *Bridge) SubscribeWinch(ch chan<- struct{}) {
	b.ensureStarted()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.winch[ch] = struct{}{}
}

// UnsubscribeWinch removes a previously registered channel.
func (b *Bridge) UnsubscribeWinch(ch chan<- struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.winch, ch)
}

// SubscribeChld registers ch to receive a notification on every SIGCHLD.
func (b *Bridge) SubscribeChld(ch chan<- struct{}) {
	b.ensureStarted()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chld[ch] = struct{}{}
}

// UnsubscribeChld removes a previously registered channel.
func (b *Bridge) UnsubscribeChld(ch chan<- struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.chld, ch)
}
