package cardsession

import (
	"bytes"
	"testing"
)

func TestAppendAndReadTLV(t *testing.T) {
	var apdu []byte
	apdu = AppendTLV(apdu, TagName, []byte("wallet-one"))
	apdu = AppendTLV(apdu, TagXCor, []byte{0x03})

	first, next, err := ReadTLV(apdu, 0, false)
	if err != nil {
		t.Fatalf("ReadTLV: %v", err)
	}
	if first.Tag != TagName || string(first.Value) != "wallet-one" {
		t.Fatalf("unexpected first field: %+v", first)
	}
	second, _, err := ReadTLV(apdu, next, true)
	if err != nil {
		t.Fatalf("ReadTLV: %v", err)
	}
	if second.Tag != TagXCor || second.Value[0] != 0x03 {
		t.Fatalf("unexpected second field: %+v", second)
	}
}

func TestBuildAddWalletRoundTripsTLV(t *testing.T) {
	var walletID [32]byte
	walletID[0] = 0xAA
	var iv [16]byte
	var mac [16]byte
	apdu := BuildAddWallet("w1", 0x01, walletID, 3, []byte("share-bytes-here"), iv, mac)
	if apdu[0] != byte(CmdAddWallet) {
		t.Fatalf("expected ADD_WALLET command byte")
	}
	if len(apdu) < 10 {
		t.Fatalf("apdu too short: %d", len(apdu))
	}
}

func TestStateMachineHappyPath(t *testing.T) {
	s := NewSession()
	if s.State() != StateIdle {
		t.Fatalf("expected IDLE initially")
	}
	if err := s.Detect(FamilyID{1, 2, 3, 4}); err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if s.State() != StateConnected {
		t.Fatalf("expected CONNECTED")
	}
	if err := s.SelectApplet(FamilyID{1, 2, 3, 4}, 0x04, false); err != nil {
		t.Fatalf("SelectApplet: %v", err)
	}
	if s.State() != StateSelected {
		t.Fatalf("expected SELECTED")
	}
}

func TestSelectAppletRejectsWrongFamily(t *testing.T) {
	s := NewSession()
	_ = s.Detect(FamilyID{1, 2, 3, 4})
	if err := s.SelectApplet(FamilyID{9, 9, 9, 9}, 0x01, false); err != ErrWrongFamilyID {
		t.Fatalf("expected ErrWrongFamilyID, got %v", err)
	}
}

func TestSelectAppletAcceptsAnyFamilyWhenNoneExpected(t *testing.T) {
	s := NewSession()
	_ = s.Detect(FamilyID{5, 6, 7, 8})
	if err := s.SelectApplet(FamilyID{}, 0x01, false); err != nil {
		t.Fatalf("expected no error for empty expected family, got %v", err)
	}
}

func TestBadTransitionRejected(t *testing.T) {
	s := NewSession()
	if err := s.SelectApplet(FamilyID{}, 0, false); err != ErrBadTransition {
		t.Fatalf("expected ErrBadTransition, got %v", err)
	}
}

func TestDisconnectResetsToIdle(t *testing.T) {
	s := NewSession()
	_ = s.Detect(FamilyID{1, 2, 3, 4})
	_ = s.SelectApplet(FamilyID{}, 0, false)
	s.Disconnect()
	if s.State() != StateIdle {
		t.Fatalf("expected IDLE after Disconnect")
	}
}

func TestClassifyKnownStatusWords(t *testing.T) {
	cases := []struct {
		sw   StatusWord
		want error
	}{
		{SWNoError, nil},
		{SWFileInvalid, ErrWrongFamilyID},
		{SWWalletLocked, ErrWalletLocked},
		{SWFileNotFound, ErrWalletNotFound},
		{SWFileFull, ErrCardFull},
	}
	for _, c := range cases {
		if got := Classify(c.sw); got != c.want {
			t.Fatalf("Classify(%x): got %v, want %v", c.sw, got, c.want)
		}
	}
}

func TestExtractDataHealthStripsTrailer(t *testing.T) {
	payload := []byte("response-payload")
	withHealth := append(append([]byte(nil), payload...), byte(TagDataDiscrepancy), 0x01, byte(DataHealthCorrupt))

	stripped, health := ExtractDataHealth(withHealth)
	if !bytes.Equal(stripped, payload) {
		t.Fatalf("expected trailer stripped: %q", stripped)
	}
	if health != DataHealthCorrupt {
		t.Fatalf("expected DataHealthCorrupt, got %v", health)
	}
	if err := CheckHealth(health); err != ErrCardDataCorrupt {
		t.Fatalf("expected ErrCardDataCorrupt, got %v", err)
	}
}

func TestExtractDataHealthNoTrailer(t *testing.T) {
	payload := []byte("plain-response")
	stripped, health := ExtractDataHealth(payload)
	if !bytes.Equal(stripped, payload) {
		t.Fatalf("expected payload unchanged")
	}
	if health != DataHealthUnknown {
		t.Fatalf("expected DataHealthUnknown, got %v", health)
	}
}

func TestPairingAndSessionExchange(t *testing.T) {
	devicePriv, err := GenerateEphemeralKeypair()
	if err != nil {
		t.Fatalf("GenerateEphemeralKeypair (device): %v", err)
	}
	cardPriv, err := GenerateEphemeralKeypair()
	if err != nil {
		t.Fatalf("GenerateEphemeralKeypair (card): %v", err)
	}

	s := NewSession()
	_ = s.Detect(FamilyID{1, 2, 3, 4})
	_ = s.SelectApplet(FamilyID{}, 0x01, false)

	resp := PairingResponse{
		PublicKey: cardPriv.PublicKey().Bytes(),
	}
	alwaysVerified := func(PairingResponse) bool { return true }
	if err := s.CompletePairing(devicePriv, resp, alwaysVerified); err != nil {
		t.Fatalf("CompletePairing: %v", err)
	}
	if s.State() != StatePaired {
		t.Fatalf("expected PAIRED")
	}

	cardSecret, err := DeriveSharedSecret(cardPriv, devicePriv.PublicKey().Bytes())
	if err != nil {
		t.Fatalf("card-side DeriveSharedSecret: %v", err)
	}
	if !bytes.Equal(cardSecret.EncKey, s.encKey) {
		t.Fatalf("ECDH shared secrets diverged between device and card views")
	}

	nonce := []byte("session-nonce-12")
	if err := s.OpenSession(nonce); err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if s.State() != StateSessionOpen {
		t.Fatalf("expected SESSION_OPEN")
	}

	wire, err := s.Exchange([]byte("plaintext apdu payload"))
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if s.State() != StateExchange {
		t.Fatalf("expected EXCHANGE")
	}
	plain, err := s.ReceiveResponse(wire)
	if err != nil {
		t.Fatalf("ReceiveResponse: %v", err)
	}
	if string(plain) != "plaintext apdu payload" {
		t.Fatalf("round trip mismatch: %q", plain)
	}
}

func TestReceiveResponseRejectsTamperedMAC(t *testing.T) {
	devicePriv, _ := GenerateEphemeralKeypair()
	cardPriv, _ := GenerateEphemeralKeypair()

	s := NewSession()
	_ = s.Detect(FamilyID{1, 2, 3, 4})
	_ = s.SelectApplet(FamilyID{}, 0x01, false)
	resp := PairingResponse{PublicKey: cardPriv.PublicKey().Bytes()}
	_ = s.CompletePairing(devicePriv, resp, func(PairingResponse) bool { return true })
	_ = s.OpenSession([]byte("nonce"))

	wire, err := s.Exchange([]byte("hello"))
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	wire[len(wire)-1] ^= 0xFF

	if _, err := s.ReceiveResponse(wire); err != ErrMACInvalid {
		t.Fatalf("expected ErrMACInvalid, got %v", err)
	}
	if s.State() != StateIdle {
		t.Fatalf("expected MAC failure to reset session to IDLE")
	}
}
