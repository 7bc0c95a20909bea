// Package flow implements the device's foreground flow orchestrator (spec
// §4.10): dispatch one reassembled host query to the app it targets, gate
// on user consent at the app's own suspension points, and emit exactly one
// result or typed error before clearing transient state.
package flow

import (
	"context"

	"github.com/cypherock/x1wallet/pkg/consent"
	"github.com/cypherock/x1wallet/pkg/hostproto"
)

// AppError is a typed, sub-kinded failure an app handler terminates with.
// Besides relaying the kind an app produced, the flow orchestrator
// synthesises only InvalidRequest (undecodable query), AppNotSupported
// (unregistered family), UserRejection (context.Canceled) and UnknownError
// (any other handler error).
type AppError struct {
	Kind    hostproto.ErrorKind
	SubKind uint32
}

func (e *AppError) Error() string { return "flow: app error" }

// NewAppError builds an AppError, the usual way an app Handle method signals
// a terminal, reportable failure rather than returning a result body.
func NewAppError(kind hostproto.ErrorKind, subKind uint32) *AppError {
	return &AppError{Kind: kind, SubKind: subKind}
}

// Handler is one app's entry point (spec §4.10 step 2: "call the app's
// entry handler with a typed query"). It either returns an encoded result
// body or an *AppError; context.Canceled is reported as ErrUserRejection
// and any other error as ErrUnknownError.
type Handler interface {
	Handle(ctx context.Context, uc consent.UserConsent, body []byte) ([]byte, error)
}

// Orchestrator dispatches reassembled queries to registered per-family
// handlers.
type Orchestrator struct {
	handlers map[hostproto.AppFamily]Handler
	consent  consent.UserConsent
}

// New builds an Orchestrator that gates every dispatched query on uc.
func New(uc consent.UserConsent) *Orchestrator {
	return &Orchestrator{handlers: make(map[hostproto.AppFamily]Handler), consent: uc}
}

// Register binds a family to its handler, replacing any prior registration.
func (o *Orchestrator) Register(family hostproto.AppFamily, h Handler) {
	o.handlers[family] = h
}

// Dispatch implements spec §4.10's four steps: validate the family is
// supported, call its handler, accept either a result or an error, and
// always return exactly one Result — the caller (the host-link loop) is
// responsible for steps (4)'s "clear session / zero secrets / unpin",
// since those depend on resources (the reassembler, the card session) this
// package does not own.
func (o *Orchestrator) Dispatch(ctx context.Context, raw []byte) hostproto.Result {
	q, err := hostproto.DecodeQuery(raw)
	if err != nil {
		return errorResult(hostproto.ErrInvalidRequest, 0)
	}

	h, ok := o.handlers[q.Family]
	if !ok {
		return errorResult(hostproto.ErrAppNotSupported, uint32(q.Family))
	}

	body, err := h.Handle(ctx, o.consent, q.Body)
	if err != nil {
		if appErr, ok := err.(*AppError); ok {
			return errorResult(appErr.Kind, appErr.SubKind)
		}
		if err == context.Canceled {
			return errorResult(hostproto.ErrUserRejection, 0)
		}
		return errorResult(hostproto.ErrUnknownError, 0)
	}
	return hostproto.Result{Body: body}
}

func errorResult(kind hostproto.ErrorKind, subKind uint32) hostproto.Result {
	return hostproto.Result{IsError: true, Kind: kind, SubKind: subKind}
}
