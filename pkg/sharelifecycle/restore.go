package sharelifecycle

import (
	"fmt"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
	"github.com/cypherock/x1wallet/pkg/shareengine"
	"github.com/cypherock/x1wallet/pkg/store"
)

// RestoreWallet runs spec §4.6 "Restore wallet": identical to CreateWallet
// except the entropy comes from a user-entered mnemonic, and the
// wallet_id collision check runs before any card interaction.
func (l *Lifecycle) RestoreWallet(name, pin, mnemonic string, flags store.InfoFlags, tapper CardTapper) (*CreateResult, error) {
	if len(name) == 0 || len(name) > MaxNameBytes {
		return nil, ErrNameTooLong
	}
	if !cryptokit.ValidateMnemonic(mnemonic) {
		return nil, cryptokit.ErrInvalidMnemonic
	}
	if exists, err := l.nameExists(name); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrNameExists
	}

	walletID := WalletID(mnemonic)
	if exists, err := l.walletIDExists(walletID); err != nil {
		return nil, err
	} else if exists {
		return nil, ErrWalletIDCollision
	}

	entropy, err := cryptokit.EntropyFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	defer zero(entropy)

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
