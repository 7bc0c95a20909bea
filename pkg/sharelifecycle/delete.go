package sharelifecycle

import (
	"errors"

	"github.com/cypherock/x1wallet/pkg/cardsession"
	"github.com/cypherock/x1wallet/pkg/store"
)

// DeleteWallet runs spec §4.6 "Delete wallet": for each card carrying a
// share, tap and issue DELETE_WALLET (a record-not-found status counts as
// success); only once the bitmap is empty does the device-share and
// metadata get removed, under one commit.
func (l *Lifecycle) DeleteWallet(walletID [32]byte, tapper CardTapper) error {
	var meta store.WalletMeta
	if err := l.Store.Get(store.KindWalletMeta, keyFor(walletID), &meta); err != nil {
		return err
	}

	for cardIndex := 0; cardIndex < 4; cardIndex++ {
		if meta.CardStateBitmap&cardBit(cardIndex) == 0 {
			continue
		}
		if err := tapper.DeleteWallet(cardIndex, walletID); err != nil && !errors.Is(err, cardsession.ErrWalletNotFound) {
			if perr := l.persistMeta(walletID, meta); perr != nil {
				return perr
			}
			return err
		}
		meta.CardStateBitmap &^= cardBit(cardIndex)
		if err := l.persistMeta(walletID, meta); err != nil {
			return err
		}
	}

	if meta.CardStateBitmap != 0 {
		return nil
	}

	l.Store.Delete(store.KindWalletMeta, keyFor(walletID))
	l.Store.Delete(store.KindDeviceShare, keyFor(walletID))
	return l.Store.Commit()
}
