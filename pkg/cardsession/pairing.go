package cardsession

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

// PairingRequest is what the device sends to start a one-time pairing (spec
// §4.5 `pair`: "{device_key_id, nonce, path, signature}").
type PairingRequest struct {
	DeviceKeyID [8]byte
	Nonce       [32]byte
	Path        []uint32
	PublicKey   []byte // device's ephemeral nist256p1 public key, uncompressed
	Signature   []byte // over (device_key_id || nonce || path || pubkey) by the device identity key
}

// PairingResponse is the card's own signed pairing data.
type PairingResponse struct {
	CardKeyID [8]byte
	PublicKey []byte // card's ephemeral nist256p1 public key, uncompressed
	Signature []byte
}

// PairingSecret is the ECDH output before expansion.
type PairingSecret struct {
	EncKey []byte // 32B
	MacKey []byte // 32B
}

// GenerateEphemeralKeypair draws the device's one-time pairing keypair on
// nist256p1 (spec §4.5: "device derives an ephemeral pairing keypair"). P-256
// is used via the standard library's crypto/ecdh — no pack dependency
// implements NIST P-256 ECDH (btcec/v2 and go-ethereum/crypto are both
// secp256k1-only), so this one primitive stays stdlib by necessity.
func GenerateEphemeralKeypair() (*ecdh.PrivateKey, error) {
	return ecdh.P256().GenerateKey(rand.Reader)
}

// DeriveSharedSecret computes ECDH(priv, peerPublic) and expands it via
// SHA-512 into {enc_key, mac_key}, per spec §4.5 "both sides derive a shared
// secret via ECDH on the nist256p1 curve and expand it to {enc_key, mac_key}
// via SHA-512".
func DeriveSharedSecret(priv *ecdh.PrivateKey, peerPublicUncompressed []byte) (PairingSecret, error) {
	peerPub, err := ecdh.P256().NewPublicKey(peerPublicUncompressed)
	if err != nil {
		return PairingSecret{}, fmt.Errorf("cardsession: invalid peer public key: %w", err)
	}
	shared, err := priv.ECDH(peerPub)
	if err != nil {
		return PairingSecret{}, fmt.Errorf("cardsession: ecdh: %w", err)
	}
	expanded := cryptokit.SHA512(shared)
	return PairingSecret{
		EncKey: append([]byte(nil), expanded[:32]...),
		MacKey: append([]byte(nil), expanded[32:64]...),
	}, nil
}

// CompletePairing runs the device side of the one-time pairing handshake: it
// verifies the card's signature over its own pairing response, derives the
// shared secret, and — only on mutual verification — transitions the
// session to PAIRED (spec §4.5: "The pair is persisted in the keystore only
// on mutual verification").
func (s *Session) CompletePairing(priv *ecdh.PrivateKey, resp PairingResponse, verifyCardSignature func(PairingResponse) bool) error {
	if s.state != StateSelected {
		return fmt.Errorf("%w: pair requires SELECTED, have %s", ErrBadTransition, s.state)
	}
	if !verifyCardSignature(resp) {
		return ErrPairingVerifyFail
	}
	secret, err := DeriveSharedSecret(priv, resp.PublicKey)
	if err != nil {
		return err
	}
	if err := s.transition(StatePaired); err != nil {
		return err
	}
	s.encKey = secret.EncKey
	s.macKey = secret.MacKey
	return nil
}

// OpenSession derives the per-request session key = HMAC(pair_key, nonce),
// valid until card deselect (spec §4.5 `session_open`).
func (s *Session) OpenSession(nonce []byte) error {
	if s.state != StatePaired {
		return fmt.Errorf("%w: session_open requires PAIRED, have %s", ErrBadTransition, s.state)
	}
	s.sessionKey = cryptokit.HMACSHA256(s.macKey, nonce)
	return s.transition(StateSessionOpen)
}
