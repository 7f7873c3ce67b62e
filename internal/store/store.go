// Package store owns the client-side copies of todos and categories.
//
// Each store keeps its state private and only commits a request's result
// after the request has finished; callers read snapshots. Mutations never
// patch local state: a caller observes them by fetching again.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// API is the transport capability the stores need. *transport.Client
// implements it.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

var (
	// ErrInvalid marks input rejected before any request was sent.
	ErrInvalid = errors.New("invalid input")
	// ErrSuperseded is returned by a fetch whose response arrived after a
	// newer fetch had already been applied. Nothing was changed.
	ErrSuperseded = errors.New("superseded by a newer fetch")
)

// RetrievalError is any failed read: network, non-2xx or malformed payload.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *RetrievalError) Unwrap() error { return e.Err }

// MutationError is any failed create, update, toggle or delete.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *MutationError) Unwrap() error { return e.Err }

type options struct {
	log             *slog.Logger
	lastArrivalWins bool
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithLastArrivalWins disables stale-response detection: when fetches
// overlap, whichever response arrives last becomes the visible state.
func WithLastArrivalWins() Option {
	return func(o *options) { o.lastArrivalWins = true }
}

func buildOptions(opts []Option) options {
	o := options{log: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
