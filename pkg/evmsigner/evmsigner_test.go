package evmsigner

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/holiman/uint256"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex fixture: %v", err)
	}
	return b
}

// rlpList/rlpItem build minimal RLP encodings for test fixtures without
// depending on the codec package's decoder being exercised here.
func rlpItem(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	if len(b) < 56 {
		return append([]byte{byte(0x80 + len(b))}, b...)
	}
	panic("fixture too long for short-form RLP item")
}

func rlpBigItem(v uint64) []byte {
	if v == 0 {
		return []byte{0x80}
	}
	b := big.NewInt(0).SetUint64(v).Bytes()
	return rlpItem(b)
}

func rlpList(items ...[]byte) []byte {
	var payload []byte
	for _, it := range items {
		payload = append(payload, it...)
	}
	if len(payload) < 56 {
		return append([]byte{byte(0xc0 + len(payload))}, payload...)
	}
	panic("fixture too long for short-form RLP list")
}

func TestDecodeTransactionEIP1559(t *testing.T) {
	to := mustHex(t, "b0ee09b6a49cd6d6d7e7dbfd0e9dc63db30a756c")
	body := rlpList(
		rlpBigItem(1),      // chain_id
		rlpBigItem(0),      // nonce
		rlpBigItem(10),     // max_priority_fee
		rlpBigItem(100),    // max_fee
		rlpBigItem(100000), // gas_limit
		rlpItem(to),        // to
		rlpBigItem(100),    // value
		rlpItem([]byte{}),  // data
		rlpList(),          // access_list
	)
	raw := append([]byte{0x02}, body...)

	tx, err := DecodeTransaction(raw, 1)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}
	if tx.Type != TxEIP1559 {
		t.Fatalf("type = %v, want EIP1559", tx.Type)
	}
	if tx.ChainID != 1 || tx.Nonce != 0 || tx.MaxPriorityFeePerGas != 10 || tx.GasPrice != 100 || tx.GasLimit != 100000 {
		t.Fatalf("unexpected fields: %+v", tx)
	}
	if !tx.ToPresent || hex.EncodeToString(tx.To[:]) != "b0ee09b6a49cd6d6d7e7dbfd0e9dc63db30a756c" {
		t.Fatalf("unexpected to: %x present=%v", tx.To, tx.ToPresent)
	}
	if tx.Value.Uint64() != 100 {
		t.Fatalf("value = %v, want 100", tx.Value)
	}

	fee := Fee(tx)
	want, _ := uint256.FromDecimal("10000000") // max_fee(100) * gas_limit(100000)
	if fee.Cmp(want) != 0 {
		t.Fatalf("fee = %v, want %v", fee, want)
	}
	// 10,000,000 wei at 18 decimals.
	if display := FormatAmount(fee, 18); display != "0.000000000010000000" {
		t.Fatalf("fee display = %q", display)
	}
}

func TestDecodeTransactionRejectsChainIDMismatch(t *testing.T) {
	body := rlpList(
		rlpBigItem(1), rlpBigItem(0), rlpBigItem(10), rlpBigItem(100),
		rlpBigItem(21000), rlpItem(mustHex(t, "b0ee09b6a49cd6d6d7e7dbfd0e9dc63db30a756c")),
		rlpBigItem(0), rlpItem([]byte{}), rlpList(),
	)
	raw := append([]byte{0x02}, body...)
	if _, err := DecodeTransaction(raw, 5); err != ErrChainIDMismatch {
		t.Fatalf("err = %v, want ErrChainIDMismatch", err)
	}
}

func TestDecodeTransactionRejectsTrailingBytes(t *testing.T) {
	body := rlpList(
		rlpBigItem(1), rlpBigItem(0), rlpBigItem(10), rlpBigItem(100),
		rlpBigItem(21000), rlpItem(mustHex(t, "b0ee09b6a49cd6d6d7e7dbfd0e9dc63db30a756c")),
		rlpBigItem(0), rlpItem([]byte{}), rlpList(),
	)
	raw := append(append([]byte{0x02}, body...), 0xff)
	if _, err := DecodeTransaction(raw, 1); err != ErrTrailingBytes {
		t.Fatalf("err = %v, want ErrTrailingBytes", err)
	}
}

func TestDecodeTransactionLegacy(t *testing.T) {
	to := mustHex(t, "b0ee09b6a49cd6d6d7e7dbfd0e9dc63db30a756c")
	body := rlpList(
		rlpBigItem(0),     // nonce
		rlpBigItem(20),    // gas_price
		rlpBigItem(21000), // gas_limit
		rlpItem(to),       // to
		rlpBigItem(5),     // value
		rlpItem([]byte{}), // data
		rlpBigItem(1),     // chain_id (EIP-155 v-slot placeholder form)
		rlpBigItem(0),
		rlpBigItem(0),
	)
	tx, err := DecodeTransaction(body, 1)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}
	if tx.Type != TxLegacy || tx.GasPrice != 20 || tx.GasLimit != 21000 || tx.Value.Uint64() != 5 {
		t.Fatalf("unexpected legacy fields: %+v", tx)
	}
}

func TestClassifyPayloadKnownTransfer(t *testing.T) {
	var data []byte
	data = append(data, mustHex(t, "a9059cbb")...)
	toWord := make([]byte, 32)
	copy(toWord[12:], mustHex(t, "b0ee09b6a49cd6d6d7e7dbfd0e9dc63db30a756c"))
	amountWord := make([]byte, 32)
	amountWord[31] = 100
	data = append(data, toWord...)
	data = append(data, amountWord...)

	class, call, err := ClassifyPayload(data)
	if err != nil {
		t.Fatalf("ClassifyPayload: %v", err)
	}
	if class != PayloadKnownCall {
		t.Fatalf("class = %v, want PayloadKnownCall", class)
	}
	if call.Signature != "transfer(address,uint256)" {
		t.Fatalf("signature = %q", call.Signature)
	}
	if len(call.Args) != 2 || call.Args[1].Uint256.Uint64() != 100 {
		t.Fatalf("args = %+v", call.Args)
	}
}

func TestClassifyPayloadUnknownSelectorIsBlindSign(t *testing.T) {
	data := append([]byte{0xde, 0xad, 0xbe, 0xef}, make([]byte, 32)...)
	class, call, err := ClassifyPayload(data)
	if err != nil {
		t.Fatalf("ClassifyPayload: %v", err)
	}
	if class != PayloadBlindSign || call != nil {
		t.Fatalf("class = %v, call = %v, want blind-sign with nil call", class, call)
	}
}

func TestClassifyPayloadEmpty(t *testing.T) {
	class, call, err := ClassifyPayload(nil)
	if err != nil || class != PayloadAbsent || call != nil {
		t.Fatalf("class = %v, call = %v, err = %v", class, call, err)
	}
}

func TestValidateTransactionRejectsNonZeroValueTokenTransfer(t *testing.T) {
	var data []byte
	data = append(data, mustHex(t, "a9059cbb")...)
	toWord := make([]byte, 32)
	copy(toWord[12:], mustHex(t, "b0ee09b6a49cd6d6d7e7dbfd0e9dc63db30a756c"))
	amountWord := make([]byte, 32)
	amountWord[31] = 100
	data = append(data, toWord...)
	data = append(data, amountWord...)

	contract := [20]byte(mustHex(t, "b0ee09b6a49cd6d6d7e7dbfd0e9dc63db30a756c"))
	tx := &Transaction{
		GasLimit:  21000,
		GasPrice:  1,
		Value:     uint256.NewInt(1),
		Data:      data,
		ToPresent: true,
		To:        contract,
	}
	whitelist := []WhitelistedToken{{Address: contract, Symbol: "TEST", Decimals: 18}}

	if err := ValidateTransaction(tx, whitelist); err != ErrTokenTransferNonZero {
		t.Fatalf("err = %v, want ErrTokenTransferNonZero", err)
	}
}

func TestPersonalSignDigest(t *testing.T) {
	msg := []byte("My email is john@doe.com - 1693898375561")
	got := PersonalSignDigest(msg)
	want := mustHex(t, "f8572657f9d0ea800c2eaf259932a95ac445f747ecc9ae18bbc0f9aef590164e")
	if hex.EncodeToString(got[:]) != hex.EncodeToString(want) {
		t.Fatalf("digest = %x, want %x", got, want)
	}
}

func TestEthSignDigestRequiresHashLength(t *testing.T) {
	if _, err := EthSignDigest([]byte("too short")); err != ErrEthSignRequiresHash {
		t.Fatalf("err = %v, want ErrEthSignRequiresHash", err)
	}
	if _, err := EthSignDigest(make([]byte, 32)); err != nil {
		t.Fatalf("EthSignDigest: %v", err)
	}
}

func TestHashTypedDataCanonicalMailExample(t *testing.T) {
	chainID := math.NewHexOrDecimal256(1)
	td := TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Person": {
				{Name: "name", Type: "string"},
				{Name: "wallet", Type: "address"},
			},
			"Mail": {
				{Name: "from", Type: "Person"},
				{Name: "to", Type: "Person"},
				{Name: "contents", Type: "string"},
			},
		},
		PrimaryType: "Mail",
		Domain: apitypes.TypedDataDomain{
			Name:              "Ether Mail",
			Version:           "1",
			ChainId:           chainID,
			VerifyingContract: "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC",
		},
		Message: apitypes.TypedDataMessage{
			"from": map[string]interface{}{
				"name":   "Cow",
				"wallet": "0xCD2a3d9F938E13CD947Ec05AbC7FE734Df8DD826",
			},
			"to": map[string]interface{}{
				"name":   "Bob",
				"wallet": "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB",
			},
			"contents": "Hello, Bob!",
		},
	}

	digest, err := HashTypedData(td)
	if err != nil {
		t.Fatalf("HashTypedData: %v", err)
	}
	want := mustHex(t, "be609aee343fb3c4b28e1df9e632fca64fcfaede20f02e86244efddf30957bd2")
	if hex.EncodeToString(digest[:]) != hex.EncodeToString(want) {
		t.Fatalf("digest = %x, want %x", digest, want)
	}
}

func TestDeriveAddressRejectsBadPath(t *testing.T) {
	seed := make([]byte, 64)
	if _, err := DeriveAddress(seed, []uint32{44, 60, 0, 0, 0}); err != ErrInvalidDerivationPath {
		t.Fatalf("err = %v, want ErrInvalidDerivationPath", err)
	}
}

func TestDeriveAddressAccepts(t *testing.T) {
	seed := make([]byte, 64)
	for i := range seed {
		seed[i] = byte(i)
	}
	path := []uint32{44 + hardened, 60 + hardened, 0 + hardened, 0, 0}
	addr, err := DeriveAddress(seed, path)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	var zero [20]byte
	if addr == zero {
		t.Fatalf("derived the zero address")
	}
}

const hardened = uint32(1) << 31
