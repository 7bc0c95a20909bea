package hostproto

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"
)

// AppFamily selects which per-app query union a reassembled payload decodes
// into (spec §6 "Queries and results").
type AppFamily uint8

const (
	FamilyBitcoin AppFamily = iota + 1
	FamilyEvm
	FamilyManager
)

// Wire field numbers for the outer query envelope: family tag + a
// length-delimited family-specific body, so every app family shares one
// top-level frame.
const (
	fieldFamily = 1
	fieldBody   = 2
)

var (
	ErrUnknownFamily   = errors.New("hostproto: unknown app family tag")
	ErrMalformedQuery  = errors.New("hostproto: malformed query envelope")
)

// Query is a decoded, not-yet-dispatched host command: which app family it
// targets and the family-specific protobuf body, left undecoded until the
// app handler claims it (spec §4.10: "call the app's entry handler with a
// typed query").
type Query struct {
	Family AppFamily
	Body   []byte
}

// EncodeQuery serialises a Query to its wire envelope.
func EncodeQuery(q Query) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldFamily, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(q.Family))
	b = protowire.AppendTag(b, fieldBody, protowire.BytesType)
	b = protowire.AppendBytes(b, q.Body)
	return b
}

// DecodeQuery parses the outer envelope, leaving the family-specific body
// for the matching app package to decode further.
func DecodeQuery(data []byte) (Query, error) {
	var q Query
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Query{}, ErrMalformedQuery
		}
		data = data[n:]
		switch num {
		case fieldFamily:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return Query{}, ErrMalformedQuery
			}
			q.Family = AppFamily(v)
			data = data[n:]
		case fieldBody:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return Query{}, ErrMalformedQuery
			}
			q.Body = append([]byte(nil), v...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return Query{}, ErrMalformedQuery
			}
			data = data[n:]
		}
	}
	if q.Family != FamilyBitcoin && q.Family != FamilyEvm && q.Family != FamilyManager {
		return Query{}, ErrUnknownFamily
	}
	return q, nil
}

// ErrorKind enumerates spec §6's "Every response is one of {Result<T>,
// Error{kind, sub-kind}}" kind values.
type ErrorKind uint8

const (
	ErrInvalidRequest ErrorKind = iota + 1
	ErrInvalidData
	ErrUserRejection
	ErrDeviceCorrupt
	ErrAppNotSupported
	ErrUnknownError
)

// Result is the outer response envelope: either a family-specific,
// already-encoded result body, or an error kind/sub-kind pair — never
// both.
type Result struct {
	Body    []byte
	Kind    ErrorKind
	SubKind uint32
	IsError bool
}

const (
	fieldResultBody    = 1
	fieldResultKind    = 2
	fieldResultSubKind = 3
)

// EncodeResult serialises a Result to its wire envelope.
func EncodeResult(r Result) []byte {
	var b []byte
	if r.IsError {
		b = protowire.AppendTag(b, fieldResultKind, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.Kind))
		b = protowire.AppendTag(b, fieldResultSubKind, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(r.SubKind))
		return b
	}
	b = protowire.AppendTag(b, fieldResultBody, protowire.BytesType)
	b = protowire.AppendBytes(b, r.Body)
	return b
}

// DecodeResult parses a Result wire envelope.
func DecodeResult(data []byte) (Result, error) {
	var r Result
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return Result{}, ErrMalformedQuery
		}
		data = data[n:]
		switch num {
		case fieldResultBody:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return Result{}, ErrMalformedQuery
			}
			r.Body = append([]byte(nil), v...)
			data = data[n:]
		case fieldResultKind:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return Result{}, ErrMalformedQuery
			}
			r.Kind = ErrorKind(v)
			r.IsError = true
			data = data[n:]
		case fieldResultSubKind:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return Result{}, ErrMalformedQuery
			}
			r.SubKind = uint32(v)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return Result{}, ErrMalformedQuery
			}
			data = data[n:]
		}
	}
	return r, nil
}
