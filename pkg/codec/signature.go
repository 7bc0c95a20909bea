package codec

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// SignatureRawLen is the length of a raw (r||s) fixed-width ECDSA signature.
const SignatureRawLen = 64

// DERToRaw converts a DER-encoded ECDSA signature into a fixed 64-byte
// (r||s) representation, zero-padding each component to 32 bytes.
func DERToRaw(der []byte) ([]byte, error) {
	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	raw := make([]byte, SignatureRawLen)
	rBytes := sig.R().Bytes()
	sBytes := sig.S().Bytes()
	copy(raw[32-len(rBytes):32], rBytes)
	copy(raw[64-len(sBytes):64], sBytes)
	return raw, nil
}

// RawToDER converts a 64-byte (r||s) signature into DER encoding.
func RawToDER(raw []byte) ([]byte, error) {
	if len(raw) != SignatureRawLen {
		return nil, ErrOutOfRange
	}
	var r, s btcec.ModNScalar
	r.SetByteSlice(raw[:32])
	s.SetByteSlice(raw[32:])
	sig := ecdsa.NewSignature(&r, &s)
	return sig.Serialize(), nil
}
