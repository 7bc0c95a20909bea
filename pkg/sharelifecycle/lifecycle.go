package sharelifecycle

import (
	"errors"

	"github.com/cypherock/x1wallet/pkg/cardsession"
	"github.com/cypherock/x1wallet/pkg/cryptokit"
	"github.com/cypherock/x1wallet/pkg/shareengine"
	"github.com/cypherock/x1wallet/pkg/store"
)

var (
	ErrWalletIDCollision = errors.New("sharelifecycle: a wallet with this wallet_id already exists")
	ErrNameTooLong       = errors.New("sharelifecycle: wallet name exceeds 16 UTF-8 bytes")
	ErrNameExists        = errors.New("sharelifecycle: wallet name already in use")
	ErrReconstructMismatch = errors.New("sharelifecycle: reconstructed wallet_id does not match stored value")
	ErrNotEnoughCardShares = errors.New("sharelifecycle: at least one card-resident share is required alongside the device share")
)

// MaxNameBytes is spec §3's "name: ≤16 UTF-8 bytes, user-chosen, unique per
// device".
const MaxNameBytes = 16

// CardTapper abstracts the four-card tap sequence spec §4.6 "Create wallet"
// step 6 describes; a real device backs this with pkg/cardsession, tests
// back it with an in-memory fake.
type CardTapper interface {
	// AddWalletShare taps physical card cardIndex (0..3) and issues
	// ADD_WALLET carrying the given share; it returns an error classified
	// per cardsession.Classify.
	AddWalletShare(cardIndex int, walletID [32]byte, name string, flags byte, share shareengine.Share, wrapped *shareengine.WrappedShare) error
	// ReadBackShare taps cardIndex and retrieves its stored share, used by
	// the post-creation verification pass (step 7) and by Reconstruct.
	ReadBackShare(cardIndex int, walletID [32]byte) (shareengine.Share, error)
	// DeleteWallet taps cardIndex and issues DELETE_WALLET; a
	// cardsession.ErrWalletNotFound is treated as success by the caller.
	DeleteWallet(cardIndex int, walletID [32]byte) error
}

// Lifecycle orchestrates wallet create/restore/delete/reconstruct over a
// persistent store, the DRBG, and the secret-share engine (spec §4.6).
type Lifecycle struct {
	Store *store.Store
	DRBG  *cryptokit.DRBG
}

// New builds a Lifecycle bound to a store and DRBG instance.
func New(st *store.Store, drbg *cryptokit.DRBG) *Lifecycle {
	return &Lifecycle{Store: st, DRBG: drbg}
}

func (l *Lifecycle) walletIDExists(id [32]byte) (bool, error) {
	keys, err := l.Store.Iterate(store.KindWalletMeta)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		var meta store.WalletMeta
		if err := l.Store.Get(store.KindWalletMeta, k, &meta); err != nil {
			continue
		}
		if meta.WalletID == id {
			return true, nil
		}
	}
	return false, nil
}

func (l *Lifecycle) nameExists(name string) (bool, error) {
	keys, err := l.Store.Iterate(store.KindWalletMeta)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		var meta store.WalletMeta
		if err := l.Store.Get(store.KindWalletMeta, k, &meta); err != nil {
			continue
		}
		if meta.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func infoFlagsByte(f store.InfoFlags) byte {
	var b byte
	if f.PinSet {
		b |= 0x01
	}
	if f.PassphraseOn {
		b |= 0x02
	}
	if f.ArbitraryData {
		b |= 0x04
	}
	return b
}

func cardBit(cardIndex int) uint8 { return 1 << uint(cardIndex) }
