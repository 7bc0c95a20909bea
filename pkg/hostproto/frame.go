// Package hostproto implements the framed, chunked, sequenced wire protocol
// between the device and the host application (spec §4.7/§6): SOH-delimited
// packets, CRC16/XMODEM integrity, chunk reassembly with interface pinning,
// and backpressure via STATUS_REQ/STATUS_ACK.
package hostproto

import (
	"encoding/binary"
	"errors"

	"github.com/cypherock/x1wallet/pkg/codec"
)

// StartOfHeader is the 2-byte packet preamble (spec §4.7/§6: "SOH = 0x5555").
const StartOfHeader uint16 = 0x5555

// HeaderSize is the fixed wire header length (spec §6: "fixed header of 16
// bytes"): SOH(2) + CRC16(2) + chunk_no(2) + total_chunks(2) + seq_no(2) +
// packet_type(1) + timestamp(4) + payload_len(1).
const HeaderSize = 16

// MaxPayloadSize is the largest payload carried by one chunk (spec §6: "Max
// payload = 48 bytes per chunk").
const MaxPayloadSize = 48

// MaxReassembledSize bounds an entire reassembled command (spec §6:
// "reassembled command limit 6 kB").
const MaxReassembledSize = 6 * 1024

// PacketType enumerates the wire packet kinds (spec §4.7: "Packet types:
// CMD, ABORT, STATUS_REQ, STATUS_ACK, ERROR"). Values are assigned locally;
// communication.h's comm_packet_type enum isn't present in the retrieval
// pack to transliterate byte-for-byte.
type PacketType uint8

const (
	PacketCmd PacketType = iota + 1
	PacketAbort
	PacketStatusReq
	PacketStatusAck
	PacketError
)

var (
	ErrTruncatedHeader = errors.New("hostproto: truncated packet header")
	ErrBadStartOfHeader = errors.New("hostproto: bad start-of-header marker")
	ErrPayloadTooLarge  = errors.New("hostproto: payload exceeds max chunk size")
	ErrCrcMismatch      = errors.New("hostproto: CRC16 mismatch")
)

// Packet is one decoded wire packet (original_source's packet_t).
type Packet struct {
	ChunkNo     uint16
	TotalChunks uint16
	SeqNo       uint16
	Type        PacketType
	Timestamp   uint32
	Payload     []byte
}

// crcBody returns the bytes the CRC16 is computed over: chunk_no, total_chunks,
// seq_no, packet_type, timestamp, payload_len, payload — with the CRC field
// itself excluded, per spec §6 ("CRC field treated as 0x0000 during
// computation").
func crcBody(p Packet) []byte {
	body := make([]byte, 0, HeaderSize-4+len(p.Payload))
	body = binary.BigEndian.AppendUint16(body, p.ChunkNo)
	body = binary.BigEndian.AppendUint16(body, p.TotalChunks)
	body = binary.BigEndian.AppendUint16(body, p.SeqNo)
	body = append(body, byte(p.Type))
	body = binary.BigEndian.AppendUint32(body, p.Timestamp)
	body = append(body, byte(len(p.Payload)))
	body = append(body, p.Payload...)
	return body
}

// Encode serialises a packet to its wire form, computing and inserting the
// CRC16/XMODEM checksum.
func Encode(p Packet) ([]byte, error) {
	if len(p.Payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	crc := codec.CRC16XModem(crcBody(p))

	out := make([]byte, 0, HeaderSize+len(p.Payload))
	out = binary.BigEndian.AppendUint16(out, StartOfHeader)
	out = binary.BigEndian.AppendUint16(out, crc)
	out = binary.BigEndian.AppendUint16(out, p.ChunkNo)
	out = binary.BigEndian.AppendUint16(out, p.TotalChunks)
	out = binary.BigEndian.AppendUint16(out, p.SeqNo)
	out = append(out, byte(p.Type))
	out = binary.BigEndian.AppendUint32(out, p.Timestamp)
	out = append(out, byte(len(p.Payload)))
	out = append(out, p.Payload...)
	return out, nil
}

// Decode parses and CRC-verifies one wire packet from data, returning the
// packet and the number of bytes consumed.
func Decode(data []byte) (Packet, int, error) {
	if len(data) < HeaderSize {
		return Packet{}, 0, ErrTruncatedHeader
	}
	soh := binary.BigEndian.Uint16(data[0:2])
	if soh != StartOfHeader {
		return Packet{}, 0, ErrBadStartOfHeader
	}
	crc := binary.BigEndian.Uint16(data[2:4])
	p := Packet{
		ChunkNo:     binary.BigEndian.Uint16(data[4:6]),
		TotalChunks: binary.BigEndian.Uint16(data[6:8]),
		SeqNo:       binary.BigEndian.Uint16(data[8:10]),
		Type:        PacketType(data[10]),
		Timestamp:   binary.BigEndian.Uint32(data[11:15]),
	}
	payloadLen := int(data[15])
	if len(data) < HeaderSize+payloadLen {
		return Packet{}, 0, ErrTruncatedHeader
	}
	p.Payload = append([]byte(nil), data[HeaderSize:HeaderSize+payloadLen]...)

	if codec.CRC16XModem(crcBody(p)) != crc {
		return Packet{}, 0, ErrCrcMismatch
	}
	return p, HeaderSize + payloadLen, nil
}
