package sharelifecycle

import (
	"github.com/cypherock/x1wallet/pkg/cryptokit"
	"github.com/cypherock/x1wallet/pkg/shareengine"
	"github.com/cypherock/x1wallet/pkg/store"
)

// Reconstruct runs spec §4.6 "Reconstruct seed": by policy, use the device
// share plus one card share (tapper picks which card). Unwrap with the
// PIN-derived key if needed, interpolate, and compare the recomputed
// wallet_id with the stored one; any mismatch demotes the wallet to
// invalid.
func (l *Lifecycle) Reconstruct(walletID [32]byte, pin string, cardIndex int, tapper CardTapper) (mnemonic string, err error) {
	var meta store.WalletMeta
	if err := l.Store.Get(store.KindWalletMeta, keyFor(walletID), &meta); err != nil {
		return "", err
	}
	if meta.CardStateBitmap&cardBit(cardIndex) == 0 {
		return "", ErrNotEnoughCardShares
	}

	var deviceShare store.DeviceShare
	if err := l.Store.Get(store.KindDeviceShare, keyFor(walletID), &deviceShare); err != nil {
		return "", err
	}
	deviceY := deviceShare.Y
	if deviceShare.Wrapped {
		key := shareengine.DeriveShareKey(pin)
		unwrapped, err := shareengine.Unwrap(shareengine.WrappedShare{
			X: deviceShare.X, IV: deviceShare.NonceIV, Ciphertext: deviceShare.Y, MAC: deviceShare.MAC,
		}, key)
		if err != nil {
			return "", err
		}
		deviceY = unwrapped.Y
	}

	cardShare, err := tapper.ReadBackShare(cardIndex, walletID)
	if err != nil {
		return "", err
	}

	shares := []shareengine.Share{
		{X: deviceShare.X, Y: deviceY},
		cardShare,
	}
	secret, err := shareengine.Reconstruct(shares)
	if err != nil {
		return "", err
	}

	recomputedMnemonic, err := cryptokit.MnemonicFromEntropy(secret)
	if err != nil {
		meta.State = store.WalletInvalid
		_ = l.persistMeta(walletID, meta)
		return "", err
	}
	if WalletID(recomputedMnemonic) != walletID {
		meta.State = store.WalletInvalid
		_ = l.persistMeta(walletID, meta)
		return "", ErrReconstructMismatch
	}
	return recomputedMnemonic, nil
}
