package hostproto

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := Packet{ChunkNo: 1, TotalChunks: 1, SeqNo: 7, Type: PacketCmd, Timestamp: 123, Payload: []byte("hello")}
	wire, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, n, err := Decode(wire)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(wire) {
		t.Fatalf("expected to consume %d bytes, got %d", len(wire), n)
	}
	if got.ChunkNo != p.ChunkNo || got.SeqNo != p.SeqNo || !bytes.Equal(got.Payload, p.Payload) {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

func TestDecodeRejectsBadSOH(t *testing.T) {
	p := Packet{ChunkNo: 1, TotalChunks: 1, SeqNo: 1, Type: PacketCmd, Payload: []byte("x")}
	wire, _ := Encode(p)
	wire[0] ^= 0xFF
	if _, _, err := Decode(wire); !errors.Is(err, ErrBadStartOfHeader) {
		t.Fatalf("expected ErrBadStartOfHeader, got %v", err)
	}
}

func TestDecodeDetectsFlippedPayloadByte(t *testing.T) {
	p := Packet{ChunkNo: 1, TotalChunks: 1, SeqNo: 1, Type: PacketCmd, Payload: []byte("hello world")}
	wire, _ := Encode(p)
	wire[HeaderSize] ^= 0x01
	if _, _, err := Decode(wire); !errors.Is(err, ErrCrcMismatch) {
		t.Fatalf("expected ErrCrcMismatch, got %v", err)
	}
}

func TestDecodeDetectsFlippedHeaderByte(t *testing.T) {
	p := Packet{ChunkNo: 1, TotalChunks: 2, SeqNo: 5, Type: PacketCmd, Payload: []byte("abc")}
	wire, _ := Encode(p)
	wire[6] ^= 0x01 // flip inside total_chunks
	if _, _, err := Decode(wire); !errors.Is(err, ErrCrcMismatch) {
		t.Fatalf("expected ErrCrcMismatch, got %v", err)
	}
}

func TestReassemblerMultiChunkInOrder(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, MaxPayloadSize*3+10)
	chunks := Chunk(PacketCmd, 1, 0, payload)

	r := NewReassembler()
	var got []byte
	var done bool
	var err error
	for _, c := range chunks {
		got, done, err = r.Feed(InterfaceMain, c)
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
	}
	if !done {
		t.Fatalf("expected reassembly complete on final chunk")
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("reassembled payload mismatch")
	}
}

func TestReassemblerRejectsOutOfOrderChunk(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01}, MaxPayloadSize*2)
	chunks := Chunk(PacketCmd, 1, 0, payload)

	r := NewReassembler()
	if _, _, err := r.Feed(InterfaceMain, chunks[0]); err != nil {
		t.Fatalf("Feed chunk 0: %v", err)
	}
	// Skip chunk 2, feed chunk would-be-3 out of order (only 2 chunks exist,
	// so simulate by replaying chunk 0 again).
	if _, _, err := r.Feed(InterfaceMain, chunks[0]); !errors.Is(err, ErrOutOfOrderChunk) {
		t.Fatalf("expected ErrOutOfOrderChunk, got %v", err)
	}
	if r.State() != CmdStateNone {
		t.Fatalf("expected reassembly reset after out-of-order chunk")
	}
}

func TestReassemblerPinsInterfaceUntilDone(t *testing.T) {
	payload := bytes.Repeat([]byte{0x02}, MaxPayloadSize*2)
	chunks := Chunk(PacketCmd, 1, 0, payload)

	r := NewReassembler()
	if _, _, err := r.Feed(InterfaceMain, chunks[0]); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if _, _, err := r.Feed(InterfaceAux, chunks[1]); !errors.Is(err, ErrAppBusyWithOtherInterface) {
		t.Fatalf("expected ErrAppBusyWithOtherInterface, got %v", err)
	}

	_, done, err := r.Feed(InterfaceMain, chunks[1])
	if err != nil || !done {
		t.Fatalf("expected pinned interface to complete reassembly, err=%v done=%v", err, done)
	}
	r.Done()
	if r.Pinned() != InterfaceNone {
		t.Fatalf("expected interface unpinned after Done")
	}
}

func TestReassemblerAbortResetsState(t *testing.T) {
	payload := bytes.Repeat([]byte{0x03}, MaxPayloadSize*2)
	chunks := Chunk(PacketCmd, 1, 0, payload)

	r := NewReassembler()
	if _, _, err := r.Feed(InterfaceMain, chunks[0]); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	abort := Packet{Type: PacketAbort, SeqNo: 1}
	if _, _, err := r.Feed(InterfaceMain, abort); !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if r.State() != CmdStateNone || r.Pinned() != InterfaceNone {
		t.Fatalf("expected full reset after abort")
	}
}

func TestStatusReqBusyOnOtherInterface(t *testing.T) {
	payload := bytes.Repeat([]byte{0x04}, MaxPayloadSize*2)
	chunks := Chunk(PacketCmd, 1, 0, payload)

	r := NewReassembler()
	if _, _, err := r.Feed(InterfaceMain, chunks[0]); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if _, err := r.Status(InterfaceAux); !errors.Is(err, ErrAppBusyWithOtherInterface) {
		t.Fatalf("expected ErrAppBusyWithOtherInterface from Status, got %v", err)
	}
	busy, err := r.Status(InterfaceMain)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !busy {
		t.Fatalf("expected busy=true mid-reassembly")
	}
}

func TestQueryEnvelopeRoundTrip(t *testing.T) {
	q := Query{Family: FamilyBitcoin, Body: []byte{0x01, 0x02, 0x03}}
	wire := EncodeQuery(q)
	got, err := DecodeQuery(wire)
	if err != nil {
		t.Fatalf("DecodeQuery: %v", err)
	}
	if got.Family != q.Family || !bytes.Equal(got.Body, q.Body) {
		t.Fatalf("query round trip mismatch: got %+v", got)
	}
}

func TestQueryEnvelopeRejectsUnknownFamily(t *testing.T) {
	q := Query{Family: 99, Body: []byte{0x01}}
	wire := EncodeQuery(q)
	if _, err := DecodeQuery(wire); !errors.Is(err, ErrUnknownFamily) {
		t.Fatalf("expected ErrUnknownFamily, got %v", err)
	}
}

func TestResultEnvelopeRoundTripSuccess(t *testing.T) {
	r := Result{Body: []byte{0xDE, 0xAD}}
	wire := EncodeResult(r)
	got, err := DecodeResult(wire)
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if got.IsError || !bytes.Equal(got.Body, r.Body) {
		t.Fatalf("result round trip mismatch: got %+v", got)
	}
}

func TestResultEnvelopeRoundTripError(t *testing.T) {
	r := Result{IsError: true, Kind: ErrUserRejection, SubKind: 42}
	wire := EncodeResult(r)
	got, err := DecodeResult(wire)
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if !got.IsError || got.Kind != ErrUserRejection || got.SubKind != 42 {
		t.Fatalf("result error round trip mismatch: got %+v", got)
	}
}
