package shareengine

import (
	"errors"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

// ErrShareMacInvalid is returned when a wrapped share's MAC fails
// verification — a fatal, wallet-demoting error per spec §7.
var ErrShareMacInvalid = errors.New("shareengine: share MAC invalid")

// MacSize is the length of the HMAC-SHA-256 tag appended to each wrapped
// share (spec §4.3: "a 16-byte MAC").
const MacSize = 16

// WrappedShare is a Shamir share after PIN-derived AES-128-CBC encryption,
// matching spec §3's "encryption_header = (nonce, MAC)".
type WrappedShare struct {
	X          byte
	IV         [cryptokit.AESBlockSize]byte
	Ciphertext []byte
	MAC        [MacSize]byte
}

// DeriveShareKey computes K = SHA256(PIN)[:16], the share-wrap key spec
// §4.3 specifies.
func DeriveShareKey(pin string) []byte {
	full := cryptokit.SHA256([]byte(pin))
	return full[:16]
}

// Wrap encrypts share.Y under AES-128-CBC with key K and the given IV, then
// appends MAC = HMAC-SHA256(K, x || iv || ciphertext), per spec §4.3.
func Wrap(share Share, key []byte, iv [cryptokit.AESBlockSize]byte) (WrappedShare, error) {
	padded := cryptokit.Pkcs7Pad(share.Y, cryptokit.AESBlockSize)
	ciphertext, err := cryptokit.AESCBCEncrypt(key, iv[:], padded)
	if err != nil {
		return WrappedShare{}, err
	}
	mac := macOver(key, share.X, iv, ciphertext)
	var w WrappedShare
	w.X = share.X
	w.IV = iv
	w.Ciphertext = ciphertext
	copy(w.MAC[:], mac)
	return w, nil
}

// Unwrap verifies the MAC and decrypts a wrapped share, returning
// ErrShareMacInvalid if the MAC has been tampered with — reconstruction
// must reject any such share (spec §4.3 invariant, §8 scenario S7).
func Unwrap(w WrappedShare, key []byte) (Share, error) {
	expected := macOver(key, w.X, w.IV, w.Ciphertext)
	if !cryptokit.ConstantTimeCompare(expected, w.MAC[:]) {
		return Share{}, ErrShareMacInvalid
	}
	padded, err := cryptokit.AESCBCDecrypt(key, w.IV[:], w.Ciphertext)
	if err != nil {
		return Share{}, err
	}
	y, err := cryptokit.Pkcs7Unpad(padded)
	if err != nil {
		return Share{}, ErrShareMacInvalid
	}
	return Share{X: w.X, Y: y}, nil
}

func macOver(key []byte, x byte, iv [cryptokit.AESBlockSize]byte, ciphertext []byte) []byte {
	msg := make([]byte, 0, 1+len(iv)+len(ciphertext))
	msg = append(msg, x)
	msg = append(msg, iv[:]...)
	msg = append(msg, ciphertext...)
	full := cryptokit.HMACSHA256(key, msg)
	return full[:MacSize]
}
