// Package consent models the out-of-scope LVGL on-device UI as a narrow
// interface a flow can call through (spec §1: "The LVGL-based on-device UI
// ... modelled as a UserConsent interface").
package consent

import (
	"context"
	"errors"
)

// Outcome is what a suspension point at a user-confirm boundary resolved to
// (spec §5: "Each returns one of {event, timeout, aborted}").
type Outcome int

const (
	Confirmed Outcome = iota
	Rejected
	TimedOut
	Aborted
)

var ErrUserRejection = errors.New("consent: user rejected the prompt")

// Prompt is one screen's worth of confirmation content. Amount/fee/address
// fields are optional and rendered only when non-empty, mirroring how the
// firmware's confirmation screens are parameterised per flow step.
type Prompt struct {
	Title   string
	Lines   []string
	Amount  string
	Fee     string
	Address string
	// BlindSign marks an unverified-contract-call confirmation (spec
	// §4.9's "explicit distinct user confirmation screen").
	BlindSign bool
}

// UserConsent is the boundary a flow calls through to ask the user to
// confirm or reject an action, and to report transient status. Device
// firmware implements this atop LVGL; this module only depends on the
// interface.
type UserConsent interface {
	// Confirm blocks (cooperatively, honoring ctx cancellation) until the
	// user accepts, rejects, the prompt times out, or the flow is
	// aborted.
	Confirm(ctx context.Context, p Prompt) (Outcome, error)
	// ShowStatus renders a non-blocking informational message (e.g.
	// "tap card 2", "wait N seconds" per spec §7).
	ShowStatus(msg string)
}

// AwaitUserConfirm implements spec §5's await_user_confirm(timeout)
// suspension point: Confirm an outcome other than Confirmed is translated
// to ErrUserRejection for flows that only need a go/no-go signal.
func AwaitUserConfirm(ctx context.Context, uc UserConsent, p Prompt) error {
	outcome, err := uc.Confirm(ctx, p)
	if err != nil {
		return err
	}
	switch outcome {
	case Confirmed:
		return nil
	case TimedOut:
		return context.DeadlineExceeded
	case Aborted:
		return context.Canceled
	default:
		return ErrUserRejection
	}
}
