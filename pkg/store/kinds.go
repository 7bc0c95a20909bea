// Package store implements the device's structured persistent store: a
// single-writer, typed key/value layer over one generation-numbered leveldb
// keyspace (no separate active/standby copies), per spec §4.4.
package store

// Kind identifies one of the four record families the store holds.
type Kind string

const (
	KindWalletMeta   Kind = "wallet_meta"
	KindDeviceShare  Kind = "device_share"
	KindKeystore     Kind = "keystore"
	KindDeviceConfig Kind = "device_config"
)

// MaxEntries bounds how many records of a given multi-entry kind may exist
// at once (spec §4.4: "WalletMeta (≤4), DeviceShare (≤4), Keystore (≤4)").
// KindDeviceConfig is a singleton and ignores this bound.
const MaxEntries = 4

// WalletState mirrors spec §3's wallet record state machine.
type WalletState string

const (
	WalletUnverified   WalletState = "unverified"
	WalletValid        WalletState = "valid"
	WalletInvalid      WalletState = "invalid"
	WalletLocked       WalletState = "locked"
	WalletPartial      WalletState = "partial"
	WalletNoDeviceShare WalletState = "no_device_share"
)

// InfoFlags is the wallet record's {pin-set, passphrase-on, arbitrary-data}
// bitfield (spec §3).
type InfoFlags struct {
	PinSet        bool
	PassphraseOn  bool
	ArbitraryData bool
}

// Challenge is the proof-of-work unlock state populated only while a wallet
// is locked (spec §3, §4.6). Active is false when the wallet isn't locked,
// in which case the remaining fields are zero; kept as a value (not a
// pointer) so the record round-trips through RLP without optional-field
// gymnastics.
type Challenge struct {
	Active            bool
	Target            uint32
	RandomNumber      [32]byte
	Nonce             uint64
	UnlockTimeSeconds uint64 // unix seconds; rlp has no signed-integer encoding
}

// WalletMeta is the persisted wallet record (spec §3 "Wallet record").
type WalletMeta struct {
	WalletID        [32]byte
	Name            string // <= 16 UTF-8 bytes
	Flags           InfoFlags
	State           WalletState
	CardStateBitmap uint8 // 4 low bits, one per card 1..4
	Challenge       Challenge
}

// DeviceShare is the device-resident Shamir share (index 5) for one wallet,
// plus its optional PIN-wrap header (spec §3 "Share").
type DeviceShare struct {
	WalletID   [32]byte
	X          byte
	Y          []byte // wrapped or raw depending on Flags.PinSet
	NonceIV    [16]byte
	MAC        [16]byte
	Wrapped    bool
}

// Keystore is a persisted card-pairing secret (spec §3 "Keystore entry").
type Keystore struct {
	CardKeyID   [8]byte
	PairingEnc  [32]byte
	PairingMAC  [32]byte
	UsedFlag    bool
	FamilyID    [4]byte
}

// DeviceConfig is the singleton device configuration record (spec §4 design
// notes: "display rotation, passphrase enabled, logging enabled, family-id").
type DeviceConfig struct {
	DisplayRotated   bool
	PassphraseEnabled bool
	LoggingEnabled   bool
	FamilyID         [4]byte
}
