package btcsigner

import (
	"bytes"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

func testSeed(t *testing.T) []byte {
	t.Helper()
	mnemonic, err := cryptokit.NewMnemonic(128)
	if err != nil {
		t.Fatalf("NewMnemonic: %v", err)
	}
	seed, err := cryptokit.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic: %v", err)
	}
	return seed
}

func TestValidateDerivationPathAcceptsAccountLevel(t *testing.T) {
	path := []uint32{cryptokit.HardenedOffset + 44, cryptokit.HardenedOffset, cryptokit.HardenedOffset}
	if err := ValidateDerivationPath(path, PurposeLegacy); err != nil {
		t.Fatalf("expected account-level path to validate, got %v", err)
	}
}

func TestValidateDerivationPathRejectsUnhardenedAccount(t *testing.T) {
	path := []uint32{44, cryptokit.HardenedOffset, cryptokit.HardenedOffset}
	if err := ValidateDerivationPath(path, PurposeLegacy); err == nil {
		t.Fatalf("expected rejection of unhardened purpose level")
	}
}

func TestValidateDerivationPathRejectsBadChange(t *testing.T) {
	path := []uint32{cryptokit.HardenedOffset + 44, cryptokit.HardenedOffset, cryptokit.HardenedOffset, 2, 0}
	if err := ValidateDerivationPath(path, PurposeLegacy); err == nil {
		t.Fatalf("expected rejection of change index outside {0,1}")
	}
}

func TestDeriveAddressLegacy(t *testing.T) {
	seed := testSeed(t)
	path := []uint32{cryptokit.HardenedOffset + 44, cryptokit.HardenedOffset, cryptokit.HardenedOffset, 0, 0}
	addr, err := DeriveAddress(seed, path, MainnetParams)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	if addr == "" || addr[0] != '1' {
		t.Fatalf("expected P2PKH address starting with '1', got %q", addr)
	}
}

func TestDeriveAddressWrappedSegwit(t *testing.T) {
	seed := testSeed(t)
	path := []uint32{cryptokit.HardenedOffset + 49, cryptokit.HardenedOffset, cryptokit.HardenedOffset, 0, 0}
	addr, err := DeriveAddress(seed, path, MainnetParams)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	if addr == "" || addr[0] != '3' {
		t.Fatalf("expected P2SH address starting with '3', got %q", addr)
	}
}

func TestDeriveAddressNativeSegwit(t *testing.T) {
	seed := testSeed(t)
	path := []uint32{cryptokit.HardenedOffset + 84, cryptokit.HardenedOffset, cryptokit.HardenedOffset, 0, 0}
	addr, err := DeriveAddress(seed, path, MainnetParams)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	if !strings.HasPrefix(addr, "bc1q") {
		t.Fatalf("expected bech32 v0 address, got %q", addr)
	}
}

func TestDeriveAddressTaproot(t *testing.T) {
	seed := testSeed(t)
	path := []uint32{cryptokit.HardenedOffset + 86, cryptokit.HardenedOffset, cryptokit.HardenedOffset, 0, 0}
	addr, err := DeriveAddress(seed, path, MainnetParams)
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	if !strings.HasPrefix(addr, "bc1p") {
		t.Fatalf("expected bech32m v1 address, got %q", addr)
	}
}

func TestDeriveAddressRejectsOutOfRangeChange(t *testing.T) {
	seed := testSeed(t)
	path := []uint32{cryptokit.HardenedOffset + 44, cryptokit.HardenedOffset, cryptokit.HardenedOffset, 0, 0}
	if _, err := DeriveAddress(seed, path, MainnetParams); err != nil {
		t.Fatalf("sanity derive failed: %v", err)
	}
	badPath := []uint32{cryptokit.HardenedOffset + 44, cryptokit.HardenedOffset, cryptokit.HardenedOffset, 5, 0}
	if _, err := DeriveAddress(seed, badPath, MainnetParams); err == nil {
		t.Fatalf("expected rejection of out-of-range change index")
	}
}

func TestClassifyScriptP2PKH(t *testing.T) {
	script := append([]byte{byte(opDup), byte(opHash160), 20}, bytes.Repeat([]byte{0xAA}, 20)...)
	script = append(script, byte(opEqualverify), byte(opChecksig))
	if ClassifyScript(script) != ScriptP2PKH {
		t.Fatalf("expected ScriptP2PKH")
	}
}

func TestClassifyScriptP2WPKH(t *testing.T) {
	script := append([]byte{byte(op0), 20}, bytes.Repeat([]byte{0xBB}, 20)...)
	if ClassifyScript(script) != ScriptP2WPKH {
		t.Fatalf("expected ScriptP2WPKH")
	}
}

func TestClassifyScriptP2TR(t *testing.T) {
	script := append([]byte{byte(op1), 32}, bytes.Repeat([]byte{0xCC}, 32)...)
	if ClassifyScript(script) != ScriptP2TR {
		t.Fatalf("expected ScriptP2TR")
	}
}

func TestClassifyScriptNullData(t *testing.T) {
	script := []byte{byte(opReturn), 4, 1, 2, 3, 4}
	if ClassifyScript(script) != ScriptNullData {
		t.Fatalf("expected ScriptNullData")
	}
}

func TestClassifyScriptUnknownSegwitFutureVersion(t *testing.T) {
	script := append([]byte{byte(op1) + 1, 20}, bytes.Repeat([]byte{0xDD}, 20)...)
	if ClassifyScript(script) != ScriptUnknownSegwit {
		t.Fatalf("expected ScriptUnknownSegwit for witness v2")
	}
}

func TestMatchesChangeAddressP2PKH(t *testing.T) {
	pubKey := bytes.Repeat([]byte{0x02}, 33)
	h := cryptokit.Hash160(pubKey)
	script := append([]byte{byte(opDup), byte(opHash160), 20}, h[:]...)
	script = append(script, byte(opEqualverify), byte(opChecksig))
	if !MatchesChangeAddress(script, pubKey) {
		t.Fatalf("expected change address to match")
	}
}

func TestMatchesChangeAddressRejectsOtherKey(t *testing.T) {
	pubKey := bytes.Repeat([]byte{0x02}, 33)
	otherKey := bytes.Repeat([]byte{0x03}, 33)
	h := cryptokit.Hash160(pubKey)
	script := append([]byte{byte(opDup), byte(opHash160), 20}, h[:]...)
	script = append(script, byte(opEqualverify), byte(opChecksig))
	if MatchesChangeAddress(script, otherKey) {
		t.Fatalf("expected mismatch for a different key")
	}
}

func buildRawTx(t *testing.T, outputIndex int, outputValue uint64) ([]byte, [32]byte) {
	t.Helper()
	tx := &RawTransaction{
		Version: 2,
		Inputs: []TxInput{
			{PrevTxHash: [32]byte{1, 2, 3}, PrevIndex: 0, ScriptSig: []byte{}, Sequence: 0xffffffff},
		},
		Outputs: make([]TxOutput, outputIndex+1),
		LockTime: 0,
	}
	for i := range tx.Outputs {
		tx.Outputs[i] = TxOutput{Value: 1000, ScriptPubKey: []byte{byte(opReturn)}}
	}
	tx.Outputs[outputIndex] = TxOutput{Value: outputValue, ScriptPubKey: []byte{byte(opReturn)}}
	raw := tx.SerializeNonWitness()
	return raw, tx.TxID()
}

func TestVerifyPrevOutputAccepts(t *testing.T) {
	raw, txid := buildRawTx(t, 1, 55000)
	input := TxInput{PrevTxHash: txid, PrevIndex: 1, Value: 55000}
	if err := VerifyPrevOutput(raw, input); err != nil {
		t.Fatalf("VerifyPrevOutput: %v", err)
	}
}

func TestVerifyPrevOutputRejectsValueMismatch(t *testing.T) {
	raw, txid := buildRawTx(t, 1, 55000)
	input := TxInput{PrevTxHash: txid, PrevIndex: 1, Value: 99}
	if err := VerifyPrevOutput(raw, input); err != ErrPrevOutputValueMismatch {
		t.Fatalf("expected ErrPrevOutputValueMismatch, got %v", err)
	}
}

func TestVerifyPrevOutputRejectsHashMismatch(t *testing.T) {
	raw, _ := buildRawTx(t, 1, 55000)
	var bogus [32]byte
	input := TxInput{PrevTxHash: bogus, PrevIndex: 1, Value: 55000}
	if err := VerifyPrevOutput(raw, input); err != ErrPrevTxHashMismatch {
		t.Fatalf("expected ErrPrevTxHashMismatch, got %v", err)
	}
}

func TestVerifyPrevOutputRejectsMissingIndex(t *testing.T) {
	raw, txid := buildRawTx(t, 0, 1000)
	input := TxInput{PrevTxHash: txid, PrevIndex: 7, Value: 1000}
	if err := VerifyPrevOutput(raw, input); err != ErrPrevOutputNotFound {
		t.Fatalf("expected ErrPrevOutputNotFound, got %v", err)
	}
}

func TestFeeAndBalanceValidation(t *testing.T) {
	tx := &UnsignedTransaction{
		Inputs:  []UnsignedInput{{Value: 100000}},
		Outputs: []UnsignedOutput{{Value: 90000}},
	}
	if Fee(tx) != 10000 {
		t.Fatalf("expected fee 10000, got %d", Fee(tx))
	}
	if err := ValidateBalance(tx); err != nil {
		t.Fatalf("ValidateBalance: %v", err)
	}
}

func TestValidateBalanceRejectsOvershoot(t *testing.T) {
	tx := &UnsignedTransaction{
		Inputs:  []UnsignedInput{{Value: 1000}},
		Outputs: []UnsignedOutput{{Value: 2000}},
	}
	if err := ValidateBalance(tx); err != ErrOutputExceedsInputs {
		t.Fatalf("expected ErrOutputExceedsInputs, got %v", err)
	}
}

func TestRequiresFeeConfirmationThreshold(t *testing.T) {
	tx := &UnsignedTransaction{
		Inputs:  []UnsignedInput{{Value: 1_000_000, ScriptPubKey: bytes.Repeat([]byte{0}, 25)}},
		Outputs: []UnsignedOutput{{Value: 1, ScriptPubKey: bytes.Repeat([]byte{0}, 25)}},
	}
	if !RequiresFeeConfirmation(tx, 1) {
		t.Fatalf("expected a near-total fee to exceed a minimal per-kb threshold")
	}
}

func TestSignInputLegacyProducesVerifiableSignature(t *testing.T) {
	seed := testSeed(t)
	path := []uint32{cryptokit.HardenedOffset + 44, cryptokit.HardenedOffset, cryptokit.HardenedOffset, 0, 0}
	master, err := cryptokit.NewMasterNode(seed)
	if err != nil {
		t.Fatalf("NewMasterNode: %v", err)
	}
	node, err := master.DerivePath(path)
	if err != nil {
		t.Fatalf("DerivePath: %v", err)
	}
	pubKey, err := node.CompressedPublicKey()
	if err != nil {
		t.Fatalf("CompressedPublicKey: %v", err)
	}
	h := cryptokit.Hash160(pubKey)
	scriptPubKey := append([]byte{byte(opDup), byte(opHash160), 20}, h[:]...)
	scriptPubKey = append(scriptPubKey, byte(opEqualverify), byte(opChecksig))

	tx := &UnsignedTransaction{
		Version: 2,
		Inputs: []UnsignedInput{
			{PrevTxHash: [32]byte{9}, PrevIndex: 0, ScriptPubKey: scriptPubKey, Value: 50000, Sequence: 0xffffffff, DerivationPath: path},
		},
		Outputs: []UnsignedOutput{{Value: 40000, ScriptPubKey: scriptPubKey}},
	}
	cache := NewDigestCache(tx)

	signed, err := SignInput(seed, tx, cache, 0)
	if err != nil {
		t.Fatalf("SignInput: %v", err)
	}
	if signed.Witness != nil {
		t.Fatalf("legacy input should carry no witness")
	}
	if len(signed.ScriptSig) == 0 {
		t.Fatalf("expected non-empty scriptSig")
	}

	digest := LegacyDigest(tx, 0, scriptPubKey)
	sigDER := signed.ScriptSig[1 : 1+int(signed.ScriptSig[0])]
	sigDER = sigDER[:len(sigDER)-1] // strip sighash type byte
	sig, err := ecdsa.ParseDERSignature(sigDER)
	if err != nil {
		t.Fatalf("ParseDERSignature: %v", err)
	}
	btcecPub, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		t.Fatalf("ParsePubKey: %v", err)
	}
	if !sig.Verify(digest[:], btcecPub) {
		t.Fatalf("expected signature to verify against the signing digest")
	}
}

func TestSignInputNativeSegwitProducesWitness(t *testing.T) {
	seed := testSeed(t)
	path := []uint32{cryptokit.HardenedOffset + 84, cryptokit.HardenedOffset, cryptokit.HardenedOffset, 0, 0}
	master, _ := cryptokit.NewMasterNode(seed)
	node, _ := master.DerivePath(path)
	pubKey, _ := node.CompressedPublicKey()
	h := cryptokit.Hash160(pubKey)
	scriptPubKey := append([]byte{byte(op0), 20}, h[:]...)

	tx := &UnsignedTransaction{
		Version: 2,
		Inputs: []UnsignedInput{
			{PrevTxHash: [32]byte{3}, PrevIndex: 1, ScriptPubKey: scriptPubKey, Value: 20000, Sequence: 0xffffffff, DerivationPath: path},
		},
		Outputs: []UnsignedOutput{{Value: 15000, ScriptPubKey: scriptPubKey}},
	}
	cache := NewDigestCache(tx)
	signed, err := SignInput(seed, tx, cache, 0)
	if err != nil {
		t.Fatalf("SignInput: %v", err)
	}
	if signed.ScriptSig != nil {
		t.Fatalf("native segwit input should carry no scriptSig")
	}
	if len(signed.Witness) != 2 {
		t.Fatalf("expected a 2-item witness stack, got %d", len(signed.Witness))
	}
}

func TestTransactionWeightCountsSegwitOverhead(t *testing.T) {
	base := &UnsignedTransaction{
		Inputs:  []UnsignedInput{{ScriptPubKey: bytes.Repeat([]byte{1}, 25)}},
		Outputs: []UnsignedOutput{{ScriptPubKey: bytes.Repeat([]byte{1}, 25)}},
	}
	segwit := &UnsignedTransaction{
		Inputs:  []UnsignedInput{{ScriptPubKey: append([]byte{0x00, 0x14}, bytes.Repeat([]byte{1}, 20)...)}},
		Outputs: []UnsignedOutput{{ScriptPubKey: bytes.Repeat([]byte{1}, 25)}},
	}
	if TransactionWeight(segwit) <= TransactionWeight(base) {
		t.Fatalf("expected segwit transaction to weigh more due to witness overhead")
	}
}

func TestPutCompactSizeRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 252, 253, 0xffff, 0x10000, 0xffffffff, 0x100000000} {
		buf := putCompactSize(nil, v)
		got, n, err := readCompactSize(buf)
		if err != nil {
			t.Fatalf("readCompactSize(%d): %v", v, err)
		}
		if n != len(buf) || got != v {
			t.Fatalf("round trip mismatch for %d: got %d consumed %d/%d", v, got, n, len(buf))
		}
	}
}

func TestParseRawTransactionRoundTrip(t *testing.T) {
	tx := &RawTransaction{
		Version: 1,
		Inputs: []TxInput{
			{PrevTxHash: [32]byte{1}, PrevIndex: 0, ScriptSig: []byte{0xAA, 0xBB}, Sequence: 0xffffffff},
		},
		Outputs: []TxOutput{
			{Value: 123456, ScriptPubKey: []byte{byte(opReturn), 2, 0xCD, 0xEF}},
		},
		LockTime: 500000,
	}
	raw := tx.SerializeNonWitness()
	parsed, err := ParseRawTransaction(raw)
	if err != nil {
		t.Fatalf("ParseRawTransaction: %v", err)
	}
	if parsed.Version != tx.Version || parsed.LockTime != tx.LockTime {
		t.Fatalf("header mismatch")
	}
	if !bytes.Equal(parsed.Outputs[0].ScriptPubKey, tx.Outputs[0].ScriptPubKey) {
		t.Fatalf("output scriptPubKey mismatch")
	}
	if parsed.Outputs[0].Value != tx.Outputs[0].Value {
		t.Fatalf("output value mismatch")
	}
}

func TestDeriveXpubNativeSegwitProducesZpub(t *testing.T) {
	seed := testSeed(t)
	path := []uint32{cryptokit.HardenedOffset + 84, cryptokit.HardenedOffset, cryptokit.HardenedOffset}
	xpub, err := DeriveXpub(seed, path, PurposeNativeSegwit)
	if err != nil {
		t.Fatalf("DeriveXpub: %v", err)
	}
	if !strings.HasPrefix(xpub, "zpub") {
		t.Fatalf("xpub = %q, want zpub prefix", xpub)
	}
}

func TestDeriveXpubLegacyProducesXpub(t *testing.T) {
	seed := testSeed(t)
	path := []uint32{cryptokit.HardenedOffset + 44, cryptokit.HardenedOffset, cryptokit.HardenedOffset}
	xpub, err := DeriveXpub(seed, path, PurposeLegacy)
	if err != nil {
		t.Fatalf("DeriveXpub: %v", err)
	}
	if !strings.HasPrefix(xpub, "xpub") {
		t.Fatalf("xpub = %q, want xpub prefix", xpub)
	}
}

func TestDeriveXpubWrappedSegwitProducesYpub(t *testing.T) {
	seed := testSeed(t)
	path := []uint32{cryptokit.HardenedOffset + 49, cryptokit.HardenedOffset, cryptokit.HardenedOffset}
	xpub, err := DeriveXpub(seed, path, PurposeWrappedSegwit)
	if err != nil {
		t.Fatalf("DeriveXpub: %v", err)
	}
	if !strings.HasPrefix(xpub, "ypub") {
		t.Fatalf("xpub = %q, want ypub prefix", xpub)
	}
}
