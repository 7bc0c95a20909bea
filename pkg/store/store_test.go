package store

import "testing"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetCommitRoundTrip(t *testing.T) {
	s := openTestStore(t)

	meta := WalletMeta{Name: "primary", State: WalletUnverified}
	meta.WalletID[0] = 0xAB

	if err := s.Put(KindWalletMeta, "w1", &meta); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	var got WalletMeta
	if err := s.Get(KindWalletMeta, "w1", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != meta.Name || got.WalletID != meta.WalletID {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	var got WalletMeta
	if err := s.Get(KindWalletMeta, "missing", &got); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutReadYourWritesBeforeCommit(t *testing.T) {
	s := openTestStore(t)
	meta := WalletMeta{Name: "staged"}
	if err := s.Put(KindWalletMeta, "w1", &meta); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var got WalletMeta
	if err := s.Get(KindWalletMeta, "w1", &got); err != nil {
		t.Fatalf("Get before commit: %v", err)
	}
	if got.Name != "staged" {
		t.Fatalf("expected read-your-writes, got %+v", got)
	}
}

func TestMaxEntriesEnforced(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < MaxEntries; i++ {
		meta := WalletMeta{Name: "w"}
		if err := s.Put(KindWalletMeta, string(rune('a'+i)), &meta); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
	if err := s.Put(KindWalletMeta, "overflow", &WalletMeta{}); err != ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}
}

func TestReplacingExistingKeyDoesNotCountAgainstCap(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < MaxEntries; i++ {
		meta := WalletMeta{Name: "w"}
		if err := s.Put(KindWalletMeta, string(rune('a'+i)), &meta); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}
	updated := WalletMeta{Name: "updated"}
	if err := s.Put(KindWalletMeta, "a", &updated); err != nil {
		t.Fatalf("expected replace of existing key to succeed, got %v", err)
	}
}

func TestDeleteWalletRemovesMetaAndShareUnderOneCommit(t *testing.T) {
	s := openTestStore(t)
	meta := WalletMeta{Name: "to-delete"}
	share := DeviceShare{X: 5, Y: []byte{1, 2, 3}}

	if err := s.Put(KindWalletMeta, "w1", &meta); err != nil {
		t.Fatalf("Put meta: %v", err)
	}
	if err := s.Put(KindDeviceShare, "w1", &share); err != nil {
		t.Fatalf("Put share: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	s.Delete(KindWalletMeta, "w1")
	s.Delete(KindDeviceShare, "w1")
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit delete: %v", err)
	}

	var got WalletMeta
	if err := s.Get(KindWalletMeta, "w1", &got); err != ErrNotFound {
		t.Fatalf("expected WalletMeta gone, got %v", err)
	}
	var gotShare DeviceShare
	if err := s.Get(KindDeviceShare, "w1", &gotShare); err != ErrNotFound {
		t.Fatalf("expected DeviceShare gone, got %v", err)
	}
}

func TestIterateListsKeys(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put(KindWalletMeta, "w1", &WalletMeta{Name: "one"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(KindWalletMeta, "w2", &WalletMeta{Name: "two"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	keys, err := s.Iterate(KindWalletMeta)
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(keys), keys)
	}
}

func TestCommitBumpsGeneration(t *testing.T) {
	s := openTestStore(t)
	start := s.Generation()
	if err := s.Put(KindDeviceConfig, "default", &DeviceConfig{LoggingEnabled: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if s.Generation() != start+1 {
		t.Fatalf("expected generation %d, got %d", start+1, s.Generation())
	}
}

func TestSaveLaterDefersButStillReadable(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put(KindKeystore, "k1", &Keystore{UsedFlag: true}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.SaveLater(); err != nil {
		t.Fatalf("SaveLater: %v", err)
	}
	var got Keystore
	if err := s.Get(KindKeystore, "k1", &got); err != nil {
		t.Fatalf("Get after SaveLater: %v", err)
	}
	if !got.UsedFlag {
		t.Fatalf("expected UsedFlag true")
	}
}
