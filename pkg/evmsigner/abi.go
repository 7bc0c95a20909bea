package evmsigner

import (
	"encoding/binary"
	"errors"

	"github.com/cypherock/x1wallet/pkg/cryptokit"
	"github.com/holiman/uint256"
)

const (
	wordSize             = 32
	functionSigLength    = 4
	evmAddressLength     = 20
	ethereumTokenDecimal = 18
)

var (
	ErrPayloadTooShort      = errors.New("evmsigner: payload shorter than a function selector")
	ErrArgumentOutOfRange   = errors.New("evmsigner: ABI argument offset/length out of range")
	ErrUnsupportedFunction  = errors.New("evmsigner: function selector is not one of the known signatures")
	ErrTokenTransferNonZero = errors.New("evmsigner: outer value must be zero for a token transfer")
)

// ArgKind enumerates the ABI argument shapes the known function signatures
// use (spec §4.9's "static head of 32-byte slots; dynamic types bytes and
// uint256[] resolved via in-payload offsets").
type ArgKind int

const (
	ArgAddress ArgKind = iota
	ArgUint256
	ArgStaticWords // a fixed-width inline tuple, stored as raw 32-byte words
	ArgBytesDynamic
	ArgUint256ArrayDynamic
)

// ArgSpec describes one formal parameter of a known function.
type ArgSpec struct {
	Kind  ArgKind
	Words int // only meaningful for ArgStaticWords: its fixed slot width
}

// FunctionSpec names a known, decodable EVM function selector.
type FunctionSpec struct {
	Title     string
	Signature string
	Args      []ArgSpec
}

// selector returns the first 4 bytes of the Keccak-256 hash of sig, the
// same selector Solidity computes for a function signature.
func selector(sig string) uint32 {
	h := cryptokit.Keccak256([]byte(sig))
	return binary.BigEndian.Uint32(h[:4])
}

// knownFunctions mirrors evm_contracts.c's ETH_DetectFunction switch; the
// selectors are computed here from the exact signature strings that file
// carries as display text, rather than hand-copied as magic numbers.
var knownFunctions = map[uint32]FunctionSpec{}

func registerFunction(title, sig string, args ...ArgSpec) {
	knownFunctions[selector(sig)] = FunctionSpec{Title: title, Signature: sig, Args: args}
}

func init() {
	registerFunction("transfer", "transfer(address,uint256)",
		ArgSpec{Kind: ArgAddress}, ArgSpec{Kind: ArgUint256})
	registerFunction("safeTransferFrom", "safeTransferFrom(address,address,uint256)",
		ArgSpec{Kind: ArgAddress}, ArgSpec{Kind: ArgAddress}, ArgSpec{Kind: ArgUint256})
	registerFunction("deposit", "deposit()")
	registerFunction("uniswapV3Swap", "uniswapV3Swap(uint256,uint256,uint256[])",
		ArgSpec{Kind: ArgUint256}, ArgSpec{Kind: ArgUint256}, ArgSpec{Kind: ArgUint256ArrayDynamic})
	// swap's second argument is a 7-word static tuple
	// (address,address,address,address,uint256,uint256,uint256); it is kept
	// as an opaque static block rather than fully destructured, since the
	// device only needs to disclose the call shape, not interpret the tuple.
	registerFunction("swap", "swap(address,(address,address,address,address,uint256,uint256,uint256),bytes,bytes)",
		ArgSpec{Kind: ArgAddress}, ArgSpec{Kind: ArgStaticWords, Words: 7},
		ArgSpec{Kind: ArgBytesDynamic}, ArgSpec{Kind: ArgBytesDynamic})
}

// ArgValue is a decoded ABI argument.
type ArgValue struct {
	Kind    ArgKind
	Address [20]byte
	Uint256 *uint256.Int
	Bytes   []byte
	Words   [][32]byte
}

// DecodedCall is a fully decoded, known function call.
type DecodedCall struct {
	Title     string
	Signature string
	Args      []ArgValue
}

// PayloadClassification is the outcome of classifying an EVM transaction's
// data payload (spec §4.9 "Payload classification").
type PayloadClassification int

const (
	PayloadAbsent PayloadClassification = iota
	PayloadKnownCall
	PayloadBlindSign
)

// ClassifyPayload implements spec §4.9's dispatch: empty data is
// PayloadAbsent; a selector in knownFunctions decodes to PayloadKnownCall;
// anything else requires the blind-sign confirmation path.
func ClassifyPayload(data []byte) (PayloadClassification, *DecodedCall, error) {
	if len(data) == 0 {
		return PayloadAbsent, nil, nil
	}
	if len(data) < functionSigLength {
		return PayloadBlindSign, nil, nil
	}
	tag := binary.BigEndian.Uint32(data[:functionSigLength])
	spec, ok := knownFunctions[tag]
	if !ok {
		return PayloadBlindSign, nil, nil
	}
	call, err := decodeArgs(spec, data[functionSigLength:])
	if err != nil {
		return PayloadBlindSign, nil, nil
	}
	return PayloadKnownCall, call, nil
}

func decodeArgs(spec FunctionSpec, args []byte) (*DecodedCall, error) {
	call := &DecodedCall{Title: spec.Title, Signature: spec.Signature}
	headWord := 0
	for _, arg := range spec.Args {
		val, consumed, err := decodeOne(arg, args, headWord)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, val)
		headWord += consumed
	}
	return call, nil
}

func wordAt(args []byte, word int) ([]byte, error) {
	start := word * wordSize
	end := start + wordSize
	if start < 0 || end > len(args) {
		return nil, ErrArgumentOutOfRange
	}
	return args[start:end], nil
}

func decodeOne(spec ArgSpec, args []byte, headWord int) (ArgValue, int, error) {
	switch spec.Kind {
	case ArgAddress:
		w, err := wordAt(args, headWord)
		if err != nil {
			return ArgValue{}, 0, err
		}
		var v ArgValue
		v.Kind = ArgAddress
		copy(v.Address[:], w[wordSize-evmAddressLength:])
		return v, 1, nil

	case ArgUint256:
		w, err := wordAt(args, headWord)
		if err != nil {
			return ArgValue{}, 0, err
		}
		return ArgValue{Kind: ArgUint256, Uint256: new(uint256.Int).SetBytes(w)}, 1, nil

	case ArgStaticWords:
		words := make([][32]byte, spec.Words)
		for i := 0; i < spec.Words; i++ {
			w, err := wordAt(args, headWord+i)
			if err != nil {
				return ArgValue{}, 0, err
			}
			copy(words[i][:], w)
		}
		return ArgValue{Kind: ArgStaticWords, Words: words}, spec.Words, nil

	case ArgBytesDynamic:
		offsetWord, err := wordAt(args, headWord)
		if err != nil {
			return ArgValue{}, 0, err
		}
		offset := int(new(uint256.Int).SetBytes(offsetWord).Uint64())
		lenWord, err := wordAtByte(args, offset)
		if err != nil {
			return ArgValue{}, 0, err
		}
		length := int(new(uint256.Int).SetBytes(lenWord).Uint64())
		start := offset + wordSize
		end := start + length
		if start < 0 || end > len(args) || length < 0 {
			return ArgValue{}, 0, ErrArgumentOutOfRange
		}
		return ArgValue{Kind: ArgBytesDynamic, Bytes: args[start:end]}, 1, nil

	case ArgUint256ArrayDynamic:
		offsetWord, err := wordAt(args, headWord)
		if err != nil {
			return ArgValue{}, 0, err
		}
		offset := int(new(uint256.Int).SetBytes(offsetWord).Uint64())
		lenWord, err := wordAtByte(args, offset)
		if err != nil {
			return ArgValue{}, 0, err
		}
		count := int(new(uint256.Int).SetBytes(lenWord).Uint64())
		if count < 0 {
			return ArgValue{}, 0, ErrArgumentOutOfRange
		}
		words := make([][32]byte, count)
		for i := 0; i < count; i++ {
			w, err := wordAtByte(args, offset+wordSize+i*wordSize)
			if err != nil {
				return ArgValue{}, 0, err
			}
			copy(words[i][:], w)
		}
		return ArgValue{Kind: ArgUint256ArrayDynamic, Words: words}, 1, nil

	default:
		return ArgValue{}, 0, ErrUnsupportedFunction
	}
}

func wordAtByte(args []byte, byteOffset int) ([]byte, error) {
	end := byteOffset + wordSize
	if byteOffset < 0 || end > len(args) {
		return nil, ErrArgumentOutOfRange
	}
	return args[byteOffset:end], nil
}

// erc20TransferSelector is TRANSFER_FUNC_SIGNATURE in evm_contracts.h,
// kept as its literal value (rather than recomputed) since the original
// names it as a standalone constant distinct from the knownFunctions
// table used for generic ABI decode.
const erc20TransferSelector uint32 = 0xa9059cbb

// WhitelistedToken is one entry of the device's configured ERC-20
// whitelist (mirrors erc20_contracts_t).
type WhitelistedToken struct {
	Address  [20]byte
	Symbol   string
	Decimals uint8
}

// ClassifyTokenTransfer implements eth_decode_txn_payload's whitelisted
// ERC-20 branch: an outer `to` matching a whitelisted contract, a
// transfer(address,uint256) selector, and a zero outer value together
// select displaying the payload as a token transfer in the token's
// configured decimals.
func ClassifyTokenTransfer(tx *Transaction, whitelist []WhitelistedToken) (*WhitelistedToken, [20]byte, *uint256.Int, bool) {
	if len(tx.Data) < functionSigLength || binary.BigEndian.Uint32(tx.Data[:functionSigLength]) != erc20TransferSelector {
		return nil, [20]byte{}, nil, false
	}
	if !tx.ToPresent {
		return nil, [20]byte{}, nil, false
	}
	var match *WhitelistedToken
	for i := range whitelist {
		if whitelist[i].Address == tx.To {
			match = &whitelist[i]
			break
		}
	}
	if match == nil {
		return nil, [20]byte{}, nil, false
	}
	call, err := decodeArgs(knownFunctions[erc20TransferSelector], tx.Data[functionSigLength:])
	if err != nil {
		return nil, [20]byte{}, nil, false
	}
	to := call.Args[0].Address
	amount := call.Args[1].Uint256
	return match, to, amount, true
}
