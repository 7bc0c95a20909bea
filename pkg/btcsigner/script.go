package btcsigner

import (
	"github.com/btcsuite/btcd/txscript"
	"github.com/cypherock/x1wallet/pkg/codec"
	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

// ScriptType enumerates the recognised scriptPubKey shapes (spec §4.8
// "Script classification"), grounded on btc_script.c's btc_script_type_e.
type ScriptType int

const (
	ScriptUnknown ScriptType = iota
	ScriptP2PK
	ScriptP2PKH
	ScriptP2SH
	ScriptP2WPKH
	ScriptP2WSH
	ScriptP2TR
	ScriptUnknownSegwit
	ScriptP2MS
	ScriptNullData
)

const (
	opReturn  = txscript.OP_RETURN
	opDup     = txscript.OP_DUP
	opHash160 = txscript.OP_HASH160
	opEqual   = txscript.OP_EQUAL
	opEqualverify = txscript.OP_EQUALVERIFY
	opChecksig    = txscript.OP_CHECKSIG
	opCheckmultisig = txscript.OP_CHECKMULTISIG
	op0           = txscript.OP_0
	op1           = txscript.OP_1
	op16          = txscript.OP_16
	pubKeyUncompressedSize = 65
	pubKeyCompressedSize   = 33
)

// ClassifyScript implements btc_get_script_type's decision cascade.
func ClassifyScript(script []byte) ScriptType {
	if isP2PK(script) {
		return ScriptP2PK
	}
	if isP2PKH(script) {
		return ScriptP2PKH
	}
	if isP2SH(script) {
		return ScriptP2SH
	}
	if isP2WPKH(script) {
		return ScriptP2WPKH
	}
	if isP2WSH(script) {
		return ScriptP2WSH
	}
	if isP2TR(script) {
		return ScriptP2TR
	}
	if isUnknownSegwit(script) {
		return ScriptUnknownSegwit
	}
	if isP2MS(script) {
		return ScriptP2MS
	}
	if isOpReturn(script) {
		return ScriptNullData
	}
	return ScriptUnknown
}

func isP2PK(s []byte) bool {
	if len(s) == pubKeyUncompressedSize+2 && s[0] == pubKeyUncompressedSize && s[len(s)-1] == byte(opChecksig) {
		return true
	}
	if len(s) == pubKeyCompressedSize+2 && s[0] == pubKeyCompressedSize && s[len(s)-1] == byte(opChecksig) {
		return true
	}
	return false
}

// isP2PKH matches OP_DUP OP_HASH160 <20> OP_EQUALVERIFY OP_CHECKSIG.
func isP2PKH(s []byte) bool {
	return len(s) == 25 &&
		s[0] == byte(opDup) && s[1] == byte(opHash160) && s[2] == 20 &&
		s[23] == byte(opEqualverify) && s[24] == byte(opChecksig)
}

// isP2SH matches OP_HASH160 <20> OP_EQUAL.
func isP2SH(s []byte) bool {
	return len(s) == 23 && s[0] == byte(opHash160) && s[1] == 20 && s[22] == byte(opEqual)
}

func isP2WPKH(s []byte) bool {
	return len(s) == 22 && s[0] == byte(op0) && s[1] == 20
}

func isP2WSH(s []byte) bool {
	return len(s) == 34 && s[0] == byte(op0) && s[1] == 32
}

func isP2TR(s []byte) bool {
	return len(s) == 34 && s[0] == byte(op1) && s[1] == 32
}

// isUnknownSegwit matches BIP-141's future-witness-version reservation:
// OP_1..OP_16 (excluding the already-classified v0/v1) followed by a 2..40
// byte push that consumes the rest of the script.
func isUnknownSegwit(s []byte) bool {
	if len(s) < 4 || len(s) > 42 {
		return false
	}
	if s[0] < byte(op1) || s[0] > byte(op16) {
		return false
	}
	pushLen := int(s[1])
	if pushLen < 2 || pushLen > 40 {
		return false
	}
	return len(s) == 1+1+pushLen
}

// isP2MS matches OP_m <pubkey>... OP_n OP_CHECKMULTISIG.
func isP2MS(s []byte) bool {
	if len(s) < 3 || s[len(s)-1] != byte(opCheckmultisig) {
		return false
	}
	m, n := s[0], s[len(s)-2]
	if m < byte(op1) || m > byte(op16) || n < byte(op1) || n > byte(op16) || m > n {
		return false
	}
	i := 1
	count := 0
	for i < len(s)-2 {
		pushLen := int(s[i])
		if pushLen != pubKeyCompressedSize && pushLen != pubKeyUncompressedSize {
			return false
		}
		i += 1 + pushLen
		count++
	}
	return i == len(s)-2 && count == int(n-byte(op1)+1)
}

func isOpReturn(s []byte) bool {
	return len(s) >= 1 && s[0] == byte(opReturn)
}

// RecoverAddress implements btc_get_script_pub_address: derives a display
// address from a classified scriptPubKey (P2PK/P2MS/NULL_DATA have none).
func RecoverAddress(script []byte, params Params) (string, error) {
	switch ClassifyScript(script) {
	case ScriptP2PKH:
		return codec.Base58CheckEncode(params.P2PKHVersion, script[3:23]), nil
	case ScriptP2SH:
		return codec.Base58CheckEncode(params.P2SHVersion, script[2:22]), nil
	case ScriptP2WPKH:
		return codec.EncodeSegwitAddress(params.Bech32HRP, 0, script[2:22])
	case ScriptP2WSH:
		return codec.EncodeSegwitAddress(params.Bech32HRP, 0, script[2:34])
	case ScriptP2TR:
		return codec.EncodeSegwitAddress(params.Bech32HRP, 1, script[2:34])
	case ScriptUnknownSegwit:
		version := segwitVersion(script[0])
		return codec.EncodeSegwitAddress(params.Bech32HRP, version, script[2:2+int(script[1])])
	default:
		return "", ErrUnsupportedPurpose
	}
}

func segwitVersion(opcode byte) byte {
	if opcode == byte(op0) {
		return 0
	}
	return opcode - byte(op1) + 1
}

// MatchesChangeAddress implements btc_check_script_address: only
// P2PKH/P2WPKH/wrapped-segwit-P2SH are accepted as change outputs, per spec
// §4.8 "Change-output validation".
func MatchesChangeAddress(script []byte, pubKey []byte) bool {
	h := cryptokit.Hash160(pubKey)
	switch ClassifyScript(script) {
	case ScriptP2PKH:
		return len(script) >= 23 && cryptokit.ConstantTimeCompare(h[:], script[3:23])
	case ScriptP2WPKH:
		return len(script) >= 22 && cryptokit.ConstantTimeCompare(h[:], script[2:22])
	case ScriptP2SH:
		redeem := append([]byte{0x00, 0x14}, h[:]...)
		redeemHash := cryptokit.Hash160(redeem)
		return len(script) >= 22 && cryptokit.ConstantTimeCompare(redeemHash[:], script[2:22])
	default:
		return false
	}
}
