package cardsession

import (
	"fmt"
	"time"
)

// State is one node of the per-card session state machine (spec §4.5
// diagram). No concurrent sessions are allowed; a Session holds the NFC
// transport exclusively from detect to deselect.
type State int

const (
	StateIdle State = iota
	StateConnected
	StateSelected
	StatePaired
	StateSessionOpen
	StateExchange
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnected:
		return "CONNECTED"
	case StateSelected:
		return "SELECTED"
	case StatePaired:
		return "PAIRED"
	case StateSessionOpen:
		return "SESSION_OPEN"
	case StateExchange:
		return "EXCHANGE"
	default:
		return "UNKNOWN"
	}
}

// validTransitions enumerates the diagram edges of spec §4.5: detect,
// select_applet, pair, session_open, exchange, and disconnect (which can
// fire from any non-idle state).
var validTransitions = map[State][]State{
	StateIdle:        {StateConnected},
	StateConnected:   {StateSelected, StateIdle},
	StateSelected:    {StatePaired, StateIdle},
	StatePaired:      {StateSessionOpen, StateIdle},
	StateSessionOpen: {StateExchange, StateIdle},
	StateExchange:    {StateIdle},
}

// FamilyID is the 4-byte identifier a card's applet advertises on select,
// matched against the device's expected family to enforce the four-card
// "set" invariant (spec §4.5, §3 Supplemented Features "family-ID mask").
type FamilyID [4]byte

// Session tracks one card's progress through the state machine along with
// the data accumulated on the way (family id, acceptable-cards mask,
// session keys).
type Session struct {
	state            State
	FamilyID         FamilyID
	AcceptableCards  byte // one-hot mask of which physical card slot was tapped
	RecoveryMode     bool
	Health           DataHealth
	pairKey          []byte // 32B shared secret from ECDH, pre-expansion
	encKey           []byte
	macKey           []byte
	sessionKey       []byte
	deadline         time.Time
	retryCount       int
}

// NewSession starts a session in IDLE.
func NewSession() *Session {
	return &Session{state: StateIdle, Health: DataHealthUnknown}
}

// State returns the session's current node.
func (s *Session) State() State { return s.state }

// transition validates and applies an edge, per spec §4.5's fixed diagram.
func (s *Session) transition(next State) error {
	for _, allowed := range validTransitions[s.state] {
		if allowed == next {
			s.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrBadTransition, s.state, next)
}

// Detect models the reader polling until an ISO14443-A card answers,
// recording its advertised family id (spec §4.5 `detect`).
func (s *Session) Detect(family FamilyID) error {
	if err := s.transition(StateConnected); err != nil {
		return err
	}
	s.FamilyID = family
	return nil
}

// SelectApplet issues the SELECT APDU and checks the reported family id
// against expectedFamily (empty expectedFamily means "no wallets yet,
// accept any family" per spec §4.5). acceptableCards and recoveryMode come
// from the card's select response.
func (s *Session) SelectApplet(expectedFamily FamilyID, acceptableCards byte, recoveryMode bool) error {
	if s.state != StateConnected {
		return fmt.Errorf("%w: select_applet requires CONNECTED, have %s", ErrBadTransition, s.state)
	}
	var zero FamilyID
	if expectedFamily != zero && s.FamilyID != expectedFamily {
		return ErrWrongFamilyID
	}
	if err := s.transition(StateSelected); err != nil {
		return err
	}
	s.AcceptableCards = acceptableCards
	s.RecoveryMode = recoveryMode
	return nil
}

// Disconnect resets the session to IDLE from any state, zeroing session key
// material (spec §4.5 "on abort the caller is responsible for sending
// deselect to return the card to IDLE").
func (s *Session) Disconnect() {
	zero(s.pairKey)
	zero(s.encKey)
	zero(s.macKey)
	zero(s.sessionKey)
	s.pairKey, s.encKey, s.macKey, s.sessionKey = nil, nil, nil, nil
	s.state = StateIdle
	s.retryCount = 0
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// WithDeadline sets the no-input timeout for the in-progress card operation
// (spec §4.5 "on hard timeout without user input the flow is aborted").
func (s *Session) WithDeadline(d time.Duration) {
	s.deadline = time.Now().Add(d)
}

// Expired reports whether the session's deadline has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.deadline.IsZero() && now.After(s.deadline)
}

// RegisterFailure counts one retriable failure, returning false once
// MaxRetries has been exhausted (spec §4.5 "bounded retry (5 attempts)").
func (s *Session) RegisterFailure() (shouldRetry bool) {
	s.retryCount++
	return s.retryCount <= MaxRetries
}
