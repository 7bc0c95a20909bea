package sharelifecycle

import (
	"encoding/binary"
	"errors"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
	"github.com/cypherock/x1wallet/pkg/store"
)

// ErrNonceSearchExhausted is returned when FindNonce doesn't find a
// qualifying nonce within maxAttempts (the device would normally run this
// unbounded in the background; tests and the host simulation need a cap).
var ErrNonceSearchExhausted = errors.New("sharelifecycle: proof-of-work nonce search exhausted")

// target is compacted to its most-significant 4 bytes (a nBits-style
// difficulty compaction of the original firmware's full 32-byte SHA-256
// target — see DESIGN.md's Open Question on this) so the comparison is a
// single uint32 compare rather than a 32-byte big.Int one.
func leadingUint32(hash [32]byte) uint32 {
	return binary.BigEndian.Uint32(hash[:4])
}

// NewChallenge builds the locked-wallet proof-of-work challenge a card
// reports (spec §4.6 "Proof-of-work unlock": "the device fetches
// {target, random_number}").
func NewChallenge(target uint32, randomNumber [32]byte) store.Challenge {
	return store.Challenge{Active: true, Target: target, RandomNumber: randomNumber}
}

// FindNonce searches for a nonce such that
// SHA-256(wallet_name ∥ random_number ∥ nonce) <= target (spec §4.6), trying
// nonce = 0, 1, 2, ... up to maxAttempts.
func FindNonce(walletName string, challenge store.Challenge, maxAttempts uint64) (uint64, error) {
	var nonceBytes [8]byte
	for nonce := uint64(0); nonce < maxAttempts; nonce++ {
		binary.BigEndian.PutUint64(nonceBytes[:], nonce)
		msg := make([]byte, 0, len(walletName)+32+8)
		msg = append(msg, []byte(walletName)...)
		msg = append(msg, challenge.RandomNumber[:]...)
		msg = append(msg, nonceBytes[:]...)
		hash := cryptokit.SHA256(msg)
		if leadingUint32(hash) <= challenge.Target {
			return nonce, nil
		}
	}
	return 0, ErrNonceSearchExhausted
}

// VerifyNonce reports whether nonce satisfies challenge for walletName,
// mirroring the card-side check the device's `nfc_verify_challenge` APDU
// triggers.
func VerifyNonce(walletName string, challenge store.Challenge, nonce uint64) bool {
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	msg := make([]byte, 0, len(walletName)+32+8)
	msg = append(msg, []byte(walletName)...)
	msg = append(msg, challenge.RandomNumber[:]...)
	msg = append(msg, nonceBytes[:]...)
	hash := cryptokit.SHA256(msg)
	return leadingUint32(hash) <= challenge.Target
}

// BumpDifficulty halves the target on a failed verify, persisted in the
// challenge record (spec §4.6: "a failed verify causes an exponential
// difficulty bump persisted in the challenge record").
func BumpDifficulty(challenge store.Challenge) store.Challenge {
	challenge.Target /= 2
	return challenge
}

// Unlock runs the device side of spec §4.6 "Proof-of-work unlock": on a
// POW_SW_CHALLENGE_FAILED status the card already reported, find a nonce
// satisfying the persisted challenge and hand it back; a failed
// verification bumps the difficulty and persists the updated challenge
// before returning the error (grounded on
// wallet_locked_controller.c's `_wallet_locked_tap_card`).
func (l *Lifecycle) Unlock(walletID [32]byte, walletName string, maxAttempts uint64, verify func(nonce uint64) bool) error {
	var meta store.WalletMeta
	if err := l.Store.Get(store.KindWalletMeta, keyFor(walletID), &meta); err != nil {
		return err
	}
	if !meta.Challenge.Active {
		return nil
	}

	nonce, err := FindNonce(walletName, meta.Challenge, maxAttempts)
	if err != nil {
		return err
	}
	if verify(nonce) {
		meta.Challenge = store.Challenge{}
		meta.State = store.WalletValid
		return l.persistMeta(walletID, meta)
	}

	meta.Challenge = BumpDifficulty(meta.Challenge)
	if perr := l.persistMeta(walletID, meta); perr != nil {
		return perr
	}
	return ErrPowChallengeFailed
}

// ErrPowChallengeFailed mirrors the card's POW_SW_CHALLENGE_FAILED status.
var ErrPowChallengeFailed = errors.New("sharelifecycle: proof-of-work challenge failed")
