package flow

import (
	"encoding/binary"
	"errors"
)

// ErrMalformedBody is returned when a family-specific request/response
// buffer is shorter or shaped differently than its message expects. The
// outer host-framing/query envelope (pkg/hostproto) already uses
// protobuf's wire format for the family tag and opaque body per spec §6;
// the per-family payloads this package defines are this module's own
// compact binary encodings layered underneath it, since the spec names
// each request/response's fields (spec §6 "Queries and results") without
// enumerating protobuf field numbers for them.
var ErrMalformedBody = errors.New("flow: malformed request/response body")

func putUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func takeUint32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, ErrMalformedBody
	}
	return binary.BigEndian.Uint32(b[:4]), b[4:], nil
}

func putUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func takeUint64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, ErrMalformedBody
	}
	return binary.BigEndian.Uint64(b[:8]), b[8:], nil
}

func putBlob16(dst, blob []byte) []byte {
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(blob)))
	dst = append(dst, n[:]...)
	return append(dst, blob...)
}

func takeBlob16(b []byte) ([]byte, []byte, error) {
	if len(b) < 2 {
		return nil, nil, ErrMalformedBody
	}
	n := int(binary.BigEndian.Uint16(b[:2]))
	b = b[2:]
	if len(b) < n {
		return nil, nil, ErrMalformedBody
	}
	return b[:n], b[n:], nil
}

func putPath(dst []byte, path []uint32) []byte {
	dst = append(dst, byte(len(path)))
	for _, seg := range path {
		dst = putUint32(dst, seg)
	}
	return dst
}

func takePath(b []byte) ([]uint32, []byte, error) {
	if len(b) < 1 {
		return nil, nil, ErrMalformedBody
	}
	n := int(b[0])
	b = b[1:]
	path := make([]uint32, n)
	for i := 0; i < n; i++ {
		var err error
		path[i], b, err = takeUint32(b)
		if err != nil {
			return nil, nil, err
		}
	}
	return path, b, nil
}
