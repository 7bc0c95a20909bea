package codec

import (
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// EncodeSegwitAddress encodes a witness program into a bech32 (witness
// version 0) or bech32m (witness version ≥1) address, per BIP-173/BIP-350.
func EncodeSegwitAddress(hrp string, witnessVersion byte, program []byte) (string, error) {
	converted, err := bech32.ConvertBits(program, 8, 5, true)
	if err != nil {
		return "", ErrInvalidEncoding
	}
	data := make([]byte, 0, len(converted)+1)
	data = append(data, witnessVersion)
	data = append(data, converted...)

	var encoded string
	if witnessVersion == 0 {
		encoded, err = bech32.Encode(hrp, data)
	} else {
		encoded, err = bech32.EncodeM(hrp, data)
	}
	if err != nil {
		return "", ErrInvalidEncoding
	}
	return encoded, nil
}

// DecodeSegwitAddress reverses EncodeSegwitAddress, auto-detecting the
// bech32/bech32m variant from the decoded witness version (version 0 must
// use bech32, version ≥1 must use bech32m, per BIP-350).
func DecodeSegwitAddress(address string) (hrp string, witnessVersion byte, program []byte, err error) {
	hrp, data, bechVersion, err := bech32.DecodeGeneric(address)
	if err != nil {
		return "", 0, nil, ErrInvalidEncoding
	}
	if len(data) == 0 {
		return "", 0, nil, ErrTruncated
	}
	witnessVersion = data[0]
	if witnessVersion > 16 {
		return "", 0, nil, ErrOutOfRange
	}
	expected := bech32.Version0
	if witnessVersion != 0 {
		expected = bech32.VersionM
	}
	if bechVersion != expected {
		return "", 0, nil, ErrInvalidEncoding
	}
	program, err = bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil {
		return "", 0, nil, ErrInvalidEncoding
	}
	if len(program) < 2 || len(program) > 40 {
		return "", 0, nil, ErrOutOfRange
	}
	return hrp, witnessVersion, program, nil
}
