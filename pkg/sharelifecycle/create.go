package sharelifecycle

import (
	"fmt"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
	"github.com/cypherock/x1wallet/pkg/shareengine"
	"github.com/cypherock/x1wallet/pkg/store"
)

// EntropyBitsToBytes maps a BIP-39 entropy size to its byte length (spec
// §4.6 step 1: "Draw 16/24/32 bytes of entropy").
func EntropyBitsToBytes(bits int) (int, error) {
	switch bits {
	case 128:
		return 16, nil
	case 192:
		return 24, nil
	case 256:
		return 32, nil
	default:
		return 0, fmt.Errorf("sharelifecycle: unsupported entropy size %d bits", bits)
	}
}

// CreateResult is what CreateWallet hands back: the generated mnemonic (the
// caller must display it once and then drop it — spec §3 "never persisted;
// held only during an active flow and zeroed on all exit paths") and the
// staged wallet metadata.
type CreateResult struct {
	Mnemonic string
	Meta     store.WalletMeta
}

// CreateWallet runs spec §4.6 "Create wallet" steps 1-7: draw entropy, derive
// wallet_id, split into 5 shares, optionally wrap under the PIN, stage the
// device share and metadata, tap all four cards, and verify by
// reconstructing from two of them.
func (l *Lifecycle) CreateWallet(name, pin string, entropyBits int, flags store.InfoFlags, tapper CardTapper) (*CreateResult, error) {
	if len(name) == 0 || len(name) > MaxNameBytes {
		return nil, ErrNameTooLong
	}
	if exists, err := l.nameExists(name); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrNameExists
	}

	entropyLen, err := EntropyBitsToBytes(entropyBits)
	if err != nil {
		return nil, err
	}
	entropy, err := l.DRBG.DrawEntropy(entropyLen)
	if err != nil {
		return nil, err
	}
	defer zero(entropy)

	mnemonic, err := cryptokit.MnemonicFromEntropy(entropy)
	if err != nil {
		return nil, err
	}

	walletID := WalletID(mnemonic)
	if exists, err := l.walletIDExists(walletID); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrWalletIDCollision
	}

	coeffs, err := l.DRBG.DrawEntropy(len(entropy))
	if err != nil {
		return nil, err
	}
	defer zero(coeffs)

	shares, err := shareengine.Split(entropy, coeffs)
	if err != nil {
		return nil, err
	}

	flags.PinSet = pin != ""
	infoFlags := infoFlagsByte(flags)

	var wrappedShares [shareengine.MaxShareholders]*shareengine.WrappedShare
	if flags.PinSet {
		key := shareengine.DeriveShareKey(pin)
		for i, s := range shares {
			ivBytes, err := l.DRBG.DrawEntropy(16)
			if err != nil {
				return nil, err
			}
			var iv [16]byte
			copy(iv[:], ivBytes)
			w, err := shareengine.Wrap(s, key, iv)
			if err != nil {
				return nil, err
			}
			wrappedShares[i] = &w
		}
	}

	// Device-resident share is index 5 (array index 4).
	deviceShare := store.DeviceShare{WalletID: walletID, X: shares[4].X, Y: shares[4].Y, Wrapped: flags.PinSet}
	if wrappedShares[4] != nil {
		deviceShare.Y = wrappedShares[4].Ciphertext
		deviceShare.NonceIV = wrappedShares[4].IV
		deviceShare.MAC = wrappedShares[4].MAC
	}
	meta := store.WalletMeta{WalletID: walletID, Name: name, Flags: flags, State: store.WalletUnverified}

	if err := l.Store.Put(store.KindDeviceShare, keyFor(walletID), &deviceShare); err != nil {
		return nil, err
	}
	if err := l.Store.Put(store.KindWalletMeta, keyFor(walletID), &meta); err != nil {
		return nil, err
	}
	if err := l.Store.Commit(); err != nil {
		return nil, err
	}

	for cardIndex := 0; cardIndex < 4; cardIndex++ {
		share := shares[cardIndex]
		var wrapped *shareengine.WrappedShare
		if wrappedShares[cardIndex] != nil {
			wrapped = wrappedShares[cardIndex]
			share = shareengine.Share{X: share.X, Y: wrapped.Ciphertext}
		}
		if err := tapper.AddWalletShare(cardIndex, walletID, name, infoFlags, share, wrapped); err != nil {
			if meta.CardStateBitmap == 0 {
				// Step 6: "any failure before bit 1 is set aborts without
				// persisting" — undo the device-share/metadata staging.
				l.Store.Delete(store.KindDeviceShare, keyFor(walletID))
				l.Store.Delete(store.KindWalletMeta, keyFor(walletID))
				_ = l.Store.Commit()
				return nil, fmt.Errorf("sharelifecycle: tapping card %d: %w", cardIndex, err)
			}
			meta.State = store.WalletPartial
			if perr := l.persistMeta(walletID, meta); perr != nil {
				return nil, perr
			}
			return nil, fmt.Errorf("sharelifecycle: tapping card %d: %w (wallet left partial)", cardIndex, err)
		}
		meta.CardStateBitmap |= cardBit(cardIndex)
		if err := l.persistMeta(walletID, meta); err != nil {
			return nil, err
		}
	}

	if err := l.verifyAfterCreate(walletID, &meta, tapper); err != nil {
		return nil, err
	}

	return &CreateResult{Mnemonic: mnemonic, Meta: meta}, nil
}

// verifyAfterCreate implements step 7: tap any two cards, read the shares
// back, reconstruct, and compare to the device's held secret.
func (l *Lifecycle) verifyAfterCreate(walletID [32]byte, meta *store.WalletMeta, tapper CardTapper) error {
	var cardShares []shareengine.Share
	for cardIndex := 0; cardIndex < 4 && len(cardShares) < 2; cardIndex++ {
		s, err := tapper.ReadBackShare(cardIndex, walletID)
		if err != nil {
			continue
		}
		cardShares = append(cardShares, s)
	}
	if len(cardShares) < 2 {
		meta.State = store.WalletInvalid
		return l.persistMeta(walletID, *meta)
	}

	secret, err := shareengine.Reconstruct(cardShares)
	if err != nil {
		meta.State = store.WalletInvalid
		_ = l.persistMeta(walletID, *meta)
		return err
	}
	recomputedMnemonic, err := cryptokit.MnemonicFromEntropy(secret)
	if err != nil {
		meta.State = store.WalletInvalid
		return l.persistMeta(walletID, *meta)
	}
	if WalletID(recomputedMnemonic) != walletID {
		meta.State = store.WalletInvalid
	} else {
		meta.State = store.WalletValid
	}
	return l.persistMeta(walletID, *meta)
}

func (l *Lifecycle) persistMeta(walletID [32]byte, meta store.WalletMeta) error {
	if err := l.Store.Put(store.KindWalletMeta, keyFor(walletID), &meta); err != nil {
		return err
	}
	return l.Store.Commit()
}

func keyFor(walletID [32]byte) string {
	return string(walletID[:])
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
