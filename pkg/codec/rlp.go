package codec

// RLP item-kind boundaries per spec §4.1 and the Ethereum yellow paper:
// a single byte < 0x80 is its own value; 0x80-0xb7 is a short string;
// 0xb8-0xbf is a long string with a length-of-length prefix; 0xc0-0xf7 is a
// short list; 0xf8-0xff is a long list with a length-of-length prefix.
const (
	rlpShortStringBase = 0x80
	rlpShortStringMax  = 0xb7
	rlpLongStringBase  = 0xb8
	rlpLongStringMax   = 0xbf
	rlpShortListBase   = 0xc0
	rlpShortListMax    = 0xf7
	rlpLongListBase    = 0xf8
	rlpLongListMax     = 0xff
)

// RLPKind classifies the first byte of an RLP item.
type RLPKind int

const (
	RLPKindByte RLPKind = iota
	RLPKindShortString
	RLPKindLongString
	RLPKindShortList
	RLPKindLongList
)

// RLPItem is one decoded RLP element: either a byte string (Content) or,
// for lists, the raw undissected payload bytes (Content) that a caller
// re-parses element by element.
type RLPItem struct {
	Kind    RLPKind
	Content []byte
	// Consumed is the number of input bytes this item occupied, including
	// its own length prefix.
	Consumed int
}

// DecodeRLPItem decodes a single RLP item (string or list) from the head of
// b, dispatching on the 0x80/0xb7/0xc0/0xf7 boundaries named in spec §4.1.
// It never allocates more than the returned content requires and never
// reads past len(b).
func DecodeRLPItem(b []byte) (RLPItem, error) {
	if len(b) == 0 {
		return RLPItem{}, ErrTruncated
	}
	first := b[0]

	switch {
	case first < rlpShortStringBase:
		return RLPItem{Kind: RLPKindByte, Content: b[0:1], Consumed: 1}, nil

	case first <= rlpShortStringMax:
		n := int(first - rlpShortStringBase)
		if len(b) < 1+n {
			return RLPItem{}, ErrTruncated
		}
		return RLPItem{Kind: RLPKindShortString, Content: b[1 : 1+n], Consumed: 1 + n}, nil

	case first <= rlpLongStringMax:
		lenOfLen := int(first - rlpLongStringBase + 1)
		n, consumed, err := decodeLongLength(b, lenOfLen)
		if err != nil {
			return RLPItem{}, err
		}
		if len(b) < consumed+n {
			return RLPItem{}, ErrTruncated
		}
		return RLPItem{Kind: RLPKindLongString, Content: b[consumed : consumed+n], Consumed: consumed + n}, nil

	case first <= rlpShortListMax:
		n := int(first - rlpShortListBase)
		if len(b) < 1+n {
			return RLPItem{}, ErrTruncated
		}
		return RLPItem{Kind: RLPKindShortList, Content: b[1 : 1+n], Consumed: 1 + n}, nil

	default: // rlpLongListBase..rlpLongListMax
		lenOfLen := int(first - rlpLongListBase + 1)
		n, consumed, err := decodeLongLength(b, lenOfLen)
		if err != nil {
			return RLPItem{}, err
		}
		if len(b) < consumed+n {
			return RLPItem{}, ErrTruncated
		}
		return RLPItem{Kind: RLPKindLongList, Content: b[consumed : consumed+n], Consumed: consumed + n}, nil
	}
}

// decodeLongLength reads the big-endian length-of-length prefix that
// follows a long string/list marker byte. A claimed length that overflows
// a practical int, or a lenOfLen prefix with a leading zero byte, is
// rejected with ErrOutOfRange — per spec §9's redesign of the original
// firmware's silent-overflow bug in get_decode_length.
func decodeLongLength(b []byte, lenOfLen int) (length int, consumed int, err error) {
	if lenOfLen <= 0 || lenOfLen > 8 {
		return 0, 0, ErrOutOfRange
	}
	if len(b) < 1+lenOfLen {
		return 0, 0, ErrTruncated
	}
	lenBytes := b[1 : 1+lenOfLen]
	if lenBytes[0] == 0 {
		// Non-canonical: a long-form length must not have a leading zero.
		return 0, 0, ErrOutOfRange
	}
	var n uint64
	for _, c := range lenBytes {
		n = n<<8 | uint64(c)
	}
	if n > uint64(^uint(0)>>1) || n > 1<<32 {
		return 0, 0, ErrOutOfRange
	}
	return int(n), 1 + lenOfLen, nil
}

// EncodeRLPString encodes b as an RLP byte string: a lone byte < 0x80
// encodes to itself, otherwise a short or long string length prefix
// precedes the content.
func EncodeRLPString(b []byte) []byte {
	if len(b) == 1 && b[0] < rlpShortStringBase {
		return append([]byte{}, b...)
	}
	return wrapWithLengthPrefix(rlpShortStringBase, rlpLongStringBase, b)
}

// EncodeRLPUint encodes v as its minimal big-endian byte string (v == 0
// encodes to the empty string), the form integers take inside an RLP list.
func EncodeRLPUint(v uint64) []byte {
	if v == 0 {
		return []byte{rlpShortStringBase}
	}
	var buf [8]byte
	n := 8
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
		if buf[i] != 0 {
			n = i
		}
	}
	return EncodeRLPString(buf[n:])
}

// WrapRLPList wraps already-RLP-encoded content (the concatenation of one
// or more complete items) in a list length prefix. Useful when content was
// produced by re-assembling items that are each already valid RLP, rather
// than by concatenating raw EncodeRLPString/EncodeRLPList outputs one at a
// time.
func WrapRLPList(content []byte) []byte {
	return wrapWithLengthPrefix(rlpShortListBase, rlpLongListBase, content)
}

// EncodeRLPList concatenates items (each already a complete RLP item) and
// wraps them in a list length prefix.
func EncodeRLPList(items ...[]byte) []byte {
	var content []byte
	for _, it := range items {
		content = append(content, it...)
	}
	return WrapRLPList(content)
}

func wrapWithLengthPrefix(shortBase, longBase byte, content []byte) []byte {
	n := len(content)
	if n < 56 {
		return append([]byte{shortBase + byte(n)}, content...)
	}
	lenBytes := encodeLengthOfLength(n)
	out := append([]byte{longBase + byte(len(lenBytes)) - 1}, lenBytes...)
	return append(out, content...)
}

func encodeLengthOfLength(n int) []byte {
	var buf [8]byte
	binaryBigEndianPutUint64(buf[:], uint64(n))
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return buf[i:]
}

func binaryBigEndianPutUint64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// DecodeRLPList splits a list item's Content into its sequential elements.
func DecodeRLPList(content []byte) ([]RLPItem, error) {
	var items []RLPItem
	for len(content) > 0 {
		item, err := DecodeRLPItem(content)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		content = content[item.Consumed:]
	}
	return items, nil
}
