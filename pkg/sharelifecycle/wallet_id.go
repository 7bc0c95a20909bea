// Package sharelifecycle implements the wallet create/restore/delete and
// reconstruct flows plus the proof-of-work unlock that guards a locked
// wallet, per spec §4.6.
package sharelifecycle

import (
	"strings"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
)

// WalletID computes SHA-256(SHA-256(mnemonic-space-joined)), the
// authoritative handle spec §3 "Wallet record" defines:
// "wallet_id: 32-byte identifier = SHA-256(SHA-256(mnemonic-space-joined))".
func WalletID(mnemonic string) [32]byte {
	joined := strings.Join(strings.Fields(mnemonic), " ")
	return cryptokit.DoubleSHA256([]byte(joined))
}
