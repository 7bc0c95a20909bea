// Package cardsession implements the device's per-card APDU protocol: TLV
// assembly, the IDLE→EXCHANGE pairing/session state machine, and ISO 7816
// status-word classification, per spec §4.5.
package cardsession

import "encoding/binary"

// Command is the APDU instruction byte (spec §4.5; tag values are the
// original firmware's `apdu_command_type`, renamed to Go conventions).
type Command byte

const (
	CmdPair          Command = 0x12
	CmdUnpair        Command = 0x13
	CmdEstSession    Command = 0x14
	CmdAddWallet     Command = 0xC1
	CmdRetrieveWallet Command = 0xC2
	CmdDeleteWallet  Command = 0xC3
	CmdListAllWallet Command = 0xC4
	CmdSignDataECDSA Command = 0xC6
	CmdInheritance   Command = 0xC9
	CmdProofOfWork   Command = 0xCB
)

// Tag identifies one TLV field inside an APDU payload.
type Tag byte

const (
	TagName               Tag = 0xE0
	TagPassword           Tag = 0xE1
	TagXCor               Tag = 0xE2
	TagNoOfMnemonics      Tag = 0xE3
	TagTotalNoOfShare     Tag = 0xE4
	TagWalletShare        Tag = 0xE5
	TagStructureChecksum  Tag = 0xE6
	TagMinNoOfShares      Tag = 0xE7
	TagWalletInfo         Tag = 0xE8
	TagKey                Tag = 0xE9
	TagBeneficiaryKey     Tag = 0xEA
	TagIVForBeneficiaryKey Tag = 0xEB
	TagWalletID           Tag = 0xEC
	TagArbitraryData      Tag = 0xA0
	TagIsArbitraryData    Tag = 0xA1

	TagVersion      Tag = 0xB0
	TagFamilyID     Tag = 0xB1
	TagCardNumber   Tag = 0xB2
	TagCardKeyID    Tag = 0xB3
	TagCardIV       Tag = 0xB4
	TagRecoveryMode Tag = 0xB5

	TagSignedData Tag = 0xEB

	TagPowRandomNum Tag = 0xD1
	TagPowTarget    Tag = 0xD2
	TagPowNonce     Tag = 0xD3

	TagDataDiscrepancy Tag = 0xD7
)

// StatusWord is a 2-byte ISO 7816 response code.
type StatusWord uint16

const (
	SWNoError                        StatusWord = 0x9000
	SWIncompatibleApplet             StatusWord = 0x1000
	SWFileInvalid                    StatusWord = 0x6983
	SWRecordNotFound                 StatusWord = 0x6A83
	SWCorrectLength00                StatusWord = 0x6C00
	SWFileFull                       StatusWord = 0x6A84
	SWWrongData                      StatusWord = 0x6A80
	SWNullPointerException          StatusWord = 0x6281
	SWOutOfBoundary                  StatusWord = 0x91BE
	SWTransactionException           StatusWord = 0x6900
	SWCryptoException                StatusWord = 0x7C00
	SWConditionsNotSatisfied         StatusWord = 0x6985
	SWSecurityConditionsNotSatisfied StatusWord = 0x6982
	SWNotPaired                      StatusWord = 0x7985
	SWWarningStateUnchanged          StatusWord = 0x6200
	SWFileNotFound                   StatusWord = 0x6A82
	SWInvalidINS                     StatusWord = 0x6D00
	SWWalletLocked                   StatusWord = 0x7D00
	SWInsBlocked                     StatusWord = 0x7E00
	SWChallengeFailed                StatusWord = 0x6A88
)

// DataHealth mirrors the original firmware's Card_Data_Health enum.
type DataHealth byte

const (
	DataHealthOK      DataHealth = 0x00
	DataHealthUnknown DataHealth = 0x01
	DataHealthCorrupt DataHealth = 0xFF
)

// TLV is one tag-length-value field of an APDU payload.
type TLV struct {
	Tag   Tag
	Value []byte
}

// AppendTLV serializes one field in [tag][length][value] form, skipping the
// length byte when len(value) == 1 — the original firmware's `fill_tlv`
// convention.
func AppendTLV(apdu []byte, tag Tag, value []byte) []byte {
	apdu = append(apdu, byte(tag))
	if len(value) != 1 {
		apdu = append(apdu, byte(len(value)))
	}
	return append(apdu, value...)
}

// ReadTLV parses one field starting at offset, returning the field and the
// offset of the next one. valueLen1 forces the single-byte-value convention
// for tags the protocol defines that way (e.g. INS_NO_OF_MNEMONICS).
func ReadTLV(apdu []byte, offset int, valueLen1 bool) (TLV, int, error) {
	if offset >= len(apdu) {
		return TLV{}, 0, errTruncatedAPDU
	}
	tag := Tag(apdu[offset])
	offset++
	if valueLen1 {
		if offset >= len(apdu) {
			return TLV{}, 0, errTruncatedAPDU
		}
		return TLV{Tag: tag, Value: apdu[offset : offset+1]}, offset + 1, nil
	}
	if offset >= len(apdu) {
		return TLV{}, 0, errTruncatedAPDU
	}
	length := int(apdu[offset])
	offset++
	if offset+length > len(apdu) {
		return TLV{}, 0, errTruncatedAPDU
	}
	return TLV{Tag: tag, Value: apdu[offset : offset+length]}, offset + length, nil
}

// BuildSelectApplet constructs the fixed ISO 7816 SELECT APDU the reader
// issues on the CONNECTED→SELECTED transition (spec §4.5 `select_applet`).
func BuildSelectApplet() []byte {
	return []byte{claISO7816, insSelect, 0x04, 0x00}
}

// BuildAddWallet assembles the ADD_WALLET APDU carrying a wallet's name,
// info flags, wallet id, one Shamir share, and its optional encryption
// header, per spec §4.6 step 6.
func BuildAddWallet(name string, infoFlags byte, walletID [32]byte, shareX byte, shareY []byte, iv [16]byte, mac [16]byte) []byte {
	apdu := []byte{byte(CmdAddWallet), 0x00, 0x00, 0x00}
	apdu = AppendTLV(apdu, TagName, []byte(name))
	apdu = AppendTLV(apdu, TagWalletInfo, []byte{infoFlags})
	apdu = AppendTLV(apdu, TagWalletID, walletID[:])
	apdu = AppendTLV(apdu, TagXCor, []byte{shareX})
	apdu = AppendTLV(apdu, TagWalletShare, shareY)
	apdu = AppendTLV(apdu, TagIVForBeneficiaryKey, iv[:])
	apdu = AppendTLV(apdu, TagSignedData, mac[:])
	binary.BigEndian.PutUint16(apdu[2:4], uint16(len(apdu)-4))
	return apdu
}

// BuildDeleteWallet assembles the DELETE_WALLET APDU (spec §4.6 "Delete
// wallet").
func BuildDeleteWallet(walletID [32]byte) []byte {
	apdu := []byte{byte(CmdDeleteWallet), 0x00, 0x00, 0x00}
	apdu = AppendTLV(apdu, TagWalletID, walletID[:])
	binary.BigEndian.PutUint16(apdu[2:4], uint16(len(apdu)-4))
	return apdu
}

// BuildListAllWallet assembles the LIST_ALL_WALLET enumeration APDU (spec
// §3's supplemented "LIST_ALL_WALLET enumeration" feature).
func BuildListAllWallet() []byte {
	return []byte{byte(CmdListAllWallet), 0x00, 0x00, 0x00}
}

const (
	claISO7816 byte = 0x00
	insSelect  byte = 0xA4
)
