// Package transport models the out-of-scope raw USB/NFC drivers (spec §1:
// "Raw USB/NFC drivers ... modelled as byte-oriented transports") as narrow
// byte-stream interfaces the host-framing and card-session layers read and
// write through.
package transport

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTimeout  = errors.New("transport: operation timed out")
	ErrAborted  = errors.New("transport: operation aborted")
	ErrNotReady = errors.New("transport: no peer present")
)

// HostLink is the pinned-per-command USB/BLE link a host chunk arrives on
// and a result chunk is written back to (spec §4.7/§5 "Host interface:
// pinned-per-command").
type HostLink interface {
	// ReadChunk blocks until one framed chunk arrives, ctx is cancelled,
	// or timeout elapses — spec §5's await_host_chunk(timeout).
	ReadChunk(ctx context.Context, timeout time.Duration) ([]byte, error)
	// WriteChunk sends one framed chunk to the host.
	WriteChunk(chunk []byte) error
}

// CardLink is the exclusive NFC link held for the duration of a single
// card exchange (spec §5 "NFC transport: exclusive for the duration of a
// single card exchange").
type CardLink interface {
	// AwaitCard blocks until a card presents, ctx is cancelled, or
	// timeout elapses — spec §5's await_card_tap(timeout).
	AwaitCard(ctx context.Context, timeout time.Duration) error
	// Transceive sends one APDU and returns the card's response.
	Transceive(ctx context.Context, apdu []byte) ([]byte, error)
	// Deselect returns the card to IDLE; spec §4.4 requires this on any
	// aborted card operation.
	Deselect() error
}
