//go:build windows

package pty

// Bridge is a no-op placeholder on Windows: there is no SIGWINCH/SIGCHLD
// equivalent, so resize notification happens synchronously through
// Master.Resize and exit notification through Child.Wait instead.
type Bridge struct{}

var globalBridge = &Bridge{}

// GlobalBridge returns the process-wide signal bridge.
func GlobalBridge() *Bridge { return globalBridge }

// SubscribeWinch is a no-op on Windows.
func (b *Bridge) SubscribeWinch(ch chan<- struct{}) {}

// UnsubscribeWinch is a no-op on Windows.
func (b *Bridge) UnsubscribeWinch(ch chan<- struct{}) {}

// SubscribeChld is a no-op on Windows.
func (b *Bridge) SubscribeChld(ch chan<- struct{}) {}

// UnsubscribeChld is a no-op on Windows.
func (b *Bridge) UnsubscribeChld(ch chan<- struct{}) {}
