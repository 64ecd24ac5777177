// Package coretest provides an in-memory core.Conn for tests.
package coretest

import (
	"context"
	"sync"

	"github.com/vovakirdan/wirecall-server/internal/core"
)

// Conn records every delivered event.
type Conn struct {
	id     string
	userID string

	mu     sync.Mutex
	events []*core.Event
	closed string
	err    error
	hook   func(*core.Event)
}

// NewConn builds a recording connection for userID.
func NewConn(id, userID string) *Conn {
	return &Conn{id: id, userID: userID}
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.userID }

// Deliver records ev, or returns the configured failure.
func (c *Conn) Deliver(_ context.Context, ev *core.Event) error {
	c.mu.Lock()
	hook, err := c.hook, c.err
	if err == nil {
		c.events = append(c.events, ev)
	}
	c.mu.Unlock()
	if hook != nil {
		hook(ev)
	}
	return err
}

// Close records the close reason.
func (c *Conn) Close(reason string) {
	c.mu.Lock()
	c.closed = reason
	c.mu.Unlock()
}

// FailWith makes subsequent deliveries return err.
func (c *Conn) FailWith(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// OnDeliver runs fn after every delivery attempt.
func (c *Conn) OnDeliver(fn func(*core.Event)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (c *Conn) Events() []*core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*core.Event(nil), c.events...)
}

// ClosedWith returns the close reason, empty while open.
func (c *Conn) ClosedWith() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Directory is a plain map-backed core.Directory.
type Directory struct {
	mu    sync.RWMutex
	conns map[string]core.Conn
}

// NewDirectory registers conns by their user id.
func NewDirectory(conns ...*Conn) *Directory {
	d := &Directory{conns: make(map[string]core.Conn)}
	for _, c := range conns {
		d.conns[c.UserID()] = c
	}
	return d
}

func (d *Directory) Lookup(userID string) (core.Conn, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.conns[userID]
	return c, ok
}

// Remove drops userID.
func (d *Directory) Remove(userID string) {
	d.mu.Lock()
	delete(d.conns, userID)
	d.mu.Unlock()
}
