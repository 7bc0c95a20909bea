package cardsession

import "errors"

var (
	errTruncatedAPDU = errors.New("cardsession: truncated apdu")

	// ErrWrongFamilyID is fatal: a card from a different family was tapped
	// (spec §4.5 select_applet — "mixed sets are rejected").
	ErrWrongFamilyID = errors.New("cardsession: card family id does not match device")
	// ErrCorruptedApplet, ErrIncompatibleApplet, ErrSecurityCondition,
	// ErrCardDataCorrupt, ErrWalletLocked, ErrWalletNotFound, ErrCardFull are
	// the remaining fatal status classes spec §4.5 names.
	ErrCorruptedApplet    = errors.New("cardsession: corrupted applet")
	ErrIncompatibleApplet = errors.New("cardsession: incompatible applet version")
	ErrSecurityCondition  = errors.New("cardsession: security condition not met")
	ErrCardDataCorrupt    = errors.New("cardsession: card-data health corrupt")
	ErrWalletLocked       = errors.New("cardsession: wallet locked")
	ErrWalletNotFound     = errors.New("cardsession: wallet not found")
	ErrCardFull           = errors.New("cardsession: card full")

	// ErrRetriable wraps the bounded-retry status classes (card removed,
	// align with antenna, temporary comm fault).
	ErrRetriable = errors.New("cardsession: retriable transport condition")

	ErrMACInvalid       = errors.New("cardsession: response MAC verification failed")
	ErrNotPaired        = errors.New("cardsession: card is not paired")
	ErrBadTransition    = errors.New("cardsession: invalid state transition")
	ErrPairingVerifyFail = errors.New("cardsession: mutual pairing verification failed")
)

// Classify maps a raw ISO 7816 status word to the fatal/retriable error it
// represents, per spec §4.5 "Failure semantics". A nil error means success.
func Classify(sw StatusWord) error {
	switch sw {
	case SWNoError:
		return nil
	case SWFileInvalid, SWWrongData:
		return ErrWrongFamilyID
	case SWIncompatibleApplet:
		return ErrIncompatibleApplet
	case SWSecurityConditionsNotSatisfied, SWConditionsNotSatisfied:
		return ErrSecurityCondition
	case SWWalletLocked:
		return ErrWalletLocked
	case SWFileNotFound, SWRecordNotFound:
		return ErrWalletNotFound
	case SWFileFull:
		return ErrCardFull
	case SWNotPaired:
		return ErrNotPaired
	case SWChallengeFailed, SWInsBlocked:
		return ErrPairingVerifyFail
	case SWOutOfBoundary, SWNullPointerException, SWTransactionException,
		SWCryptoException, SWCorrectLength00, SWInvalidINS,
		SWWarningStateUnchanged:
		return ErrRetriable
	default:
		return ErrRetriable
	}
}

// IsRetriable reports whether err (as returned by Classify) should be
// retried up to MaxRetries times with a UX prompt, rather than surfaced to
// the host immediately.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrRetriable)
}

// MaxRetries is the bounded retry count for retriable card failures (spec
// §4.5: "bounded retry (5 attempts)").
const MaxRetries = 5
