package hostproto

// Chunk splits payload into MaxPayloadSize-sized packets carrying seqNo and
// packetType, ready for Encode, for the send direction of the same framing
// spec §4.7 describes for receive.
func Chunk(packetType PacketType, seqNo uint16, timestamp uint32, payload []byte) []Packet {
	total := (len(payload) + MaxPayloadSize - 1) / MaxPayloadSize
	if total == 0 {
		total = 1
	}
	packets := make([]Packet, 0, total)
	for i := 0; i < total; i++ {
		start := i * MaxPayloadSize
		end := start + MaxPayloadSize
		if end > len(payload) {
			end = len(payload)
		}
		packets = append(packets, Packet{
			ChunkNo:     uint16(i + 1),
			TotalChunks: uint16(total),
			SeqNo:       seqNo,
			Type:        packetType,
			Timestamp:   timestamp,
			Payload:     payload[start:end],
		})
	}
	return packets
}
