package cardsession

import (
	"crypto/rand"
	"fmt"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

// Exchange encrypts one outbound APDU under the session key and MACs it,
// advancing to EXCHANGE (spec §4.5 `exchange`: "each outbound APDU is
// AES-CBC encrypted and MACed").
func (s *Session) Exchange(apdu []byte) ([]byte, error) {
	switch s.state {
	case StateSessionOpen:
		if err := s.transition(StateExchange); err != nil {
			return nil, err
		}
	case StateExchange:
		// already mid-exchange; repeated APDUs stay in this state.
	default:
		return nil, fmt.Errorf("%w: exchange requires SESSION_OPEN/EXCHANGE, have %s", ErrBadTransition, s.state)
	}

	iv := make([]byte, cryptokit.AESBlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	padded := cryptokit.Pkcs7Pad(apdu, cryptokit.AESBlockSize)
	ciphertext, err := cryptokit.AESCBCEncrypt(s.encKey, iv, padded)
	if err != nil {
		return nil, err
	}
	mac := cryptokit.HMACSHA256(s.sessionKey, append(append([]byte(nil), iv...), ciphertext...))

	out := make([]byte, 0, len(iv)+len(ciphertext)+16)
	out = append(out, iv...)
	out = append(out, ciphertext...)
	out = append(out, mac[:16]...)
	return out, nil
}

// ReceiveResponse MAC-verifies and decrypts an inbound response; any MAC
// failure re-enters IDLE (spec §4.5 `exchange`: "any MAC failure re-enters
// IDLE").
func (s *Session) ReceiveResponse(wire []byte) ([]byte, error) {
	if len(wire) < cryptokit.AESBlockSize+16 {
		s.Disconnect()
		return nil, ErrMACInvalid
	}
	iv := wire[:cryptokit.AESBlockSize]
	mac := wire[len(wire)-16:]
	ciphertext := wire[cryptokit.AESBlockSize : len(wire)-16]

	expected := cryptokit.HMACSHA256(s.sessionKey, append(append([]byte(nil), iv...), ciphertext...))
	if !cryptokit.ConstantTimeCompare(expected[:16], mac) {
		s.Disconnect()
		return nil, ErrMACInvalid
	}
	padded, err := cryptokit.AESCBCDecrypt(s.encKey, iv, ciphertext)
	if err != nil {
		s.Disconnect()
		return nil, err
	}
	plain, err := cryptokit.Pkcs7Unpad(padded)
	if err != nil {
		s.Disconnect()
		return nil, err
	}
	return plain, nil
}

// ExtractDataHealth strips the TAG_DATA_DISCREPANCY trailer from a response
// APDU (when present) and returns the remaining payload plus the reported
// health, per the original firmware's `extract_card_data_health`: "the
// function also strips it off of the input apdu ... returns len - 3".
func ExtractDataHealth(apdu []byte) ([]byte, DataHealth) {
	if len(apdu) < 3 {
		return apdu, DataHealthUnknown
	}
	tail := apdu[len(apdu)-3:]
	if Tag(tail[0]) != TagDataDiscrepancy {
		return apdu, DataHealthUnknown
	}
	health := DataHealth(tail[2])
	return apdu[:len(apdu)-3], health
}

// CheckHealth returns ErrCardDataCorrupt if health reports corruption (spec
// §4.5 fatal status "card-data health corrupt").
func CheckHealth(health DataHealth) error {
	if health == DataHealthCorrupt {
		return ErrCardDataCorrupt
	}
	return nil
}
