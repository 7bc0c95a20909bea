package hostproto

import "errors"

// Interface identifies which physical bulk endpoint a packet arrived on
// (original_source's comm_libusb__interface_e).
type Interface uint8

const (
	InterfaceNone Interface = iota
	InterfaceMain
	InterfaceAux
)

var (
	ErrOutOfOrderChunk           = errors.New("hostproto: out-of-order chunk number")
	ErrInvalidChunkCount         = errors.New("hostproto: invalid total_chunks")
	ErrReassembledTooLarge       = errors.New("hostproto: reassembled command exceeds size limit")
	ErrAppBusyWithOtherInterface = errors.New("hostproto: busy with other interface")
	ErrAborted                   = errors.New("hostproto: flow aborted")
)

// CmdState mirrors original_source's comm_cmd_state_t.
type CmdState int

const (
	CmdStateNone CmdState = iota
	CmdStateReceiving
	CmdStateReceived
	CmdStateExecuting
	CmdStateDone
	CmdStateFailed
	CmdStateInvalidReq
)

// Reassembler tracks one in-flight command's chunk sequence and pins the
// interface it arrived on, per spec §4.7 "Session state": "an interface
// (bulk endpoint) is pinned from the first chunk until the final result or
// error, preventing the other interface from interleaving."
type Reassembler struct {
	pinned      Interface
	state       CmdState
	seqNo       uint16
	nextChunk   uint16
	totalChunks uint16
	buf         []byte
}

// NewReassembler returns an idle reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{state: CmdStateNone}
}

// State reports the current command state.
func (r *Reassembler) State() CmdState { return r.state }

// Pinned reports which interface currently owns the in-flight command.
func (r *Reassembler) Pinned() Interface { return r.pinned }

// Feed processes one decoded packet arriving on iface. It returns the
// complete, reassembled payload and true once the final chunk lands; a nil
// slice and false otherwise. STATUS_REQ/STATUS_ACK/ERROR packets are not
// valid input to Feed — handle them via Status/Abort.
func (r *Reassembler) Feed(iface Interface, p Packet) ([]byte, bool, error) {
	if p.Type == PacketAbort {
		r.reset()
		return nil, false, ErrAborted
	}
	if r.pinned != InterfaceNone && iface != r.pinned {
		return nil, false, ErrAppBusyWithOtherInterface
	}
	if p.TotalChunks == 0 {
		return nil, false, ErrInvalidChunkCount
	}

	if r.state != CmdStateReceiving {
		// First chunk of a new command: pins the interface and the total
		// chunk count.
		if p.ChunkNo != 1 {
			return nil, false, ErrOutOfOrderChunk
		}
		r.pinned = iface
		r.state = CmdStateReceiving
		r.seqNo = p.SeqNo
		r.totalChunks = p.TotalChunks
		r.nextChunk = 1
		r.buf = r.buf[:0]
	}

	if p.ChunkNo != r.nextChunk || p.SeqNo != r.seqNo || p.TotalChunks != r.totalChunks {
		r.reset()
		return nil, false, ErrOutOfOrderChunk
	}

	if len(r.buf)+len(p.Payload) > MaxReassembledSize {
		r.reset()
		return nil, false, ErrReassembledTooLarge
	}
	r.buf = append(r.buf, p.Payload...)
	r.nextChunk++

	if r.nextChunk > r.totalChunks {
		complete := append([]byte(nil), r.buf...)
		r.state = CmdStateReceived
		return complete, true, nil
	}
	return nil, false, nil
}

// Abort unpins the interface and resets reassembly state, run on an ABORT
// packet or a no-input timeout (spec §4.7 "Cancellation").
func (r *Reassembler) Abort() {
	r.reset()
}

// Done marks the in-flight command's lifecycle complete (a result or error
// was emitted) and unpins the interface, allowing the other interface's
// commands through again.
func (r *Reassembler) Done() {
	r.reset()
}

func (r *Reassembler) reset() {
	r.pinned = InterfaceNone
	r.state = CmdStateNone
	r.seqNo = 0
	r.nextChunk = 0
	r.totalChunks = 0
	r.buf = nil
}

// StatusNotReady is the backpressure response spec §4.7 describes: "When
// the device is busy, STATUS_REQ is answered with STATUS_NOT_READY and the
// flow-status counter." FlowStatus is an opaque app-defined counter value.
type StatusNotReady struct {
	FlowStatus uint8
}

// Status answers a STATUS_REQ packet: if a command is in flight on a
// different interface than iface, the caller should reply
// AppBusyWithOtherInterface; otherwise it reports whether the device is
// currently busy so the caller can build a STATUS_NOT_READY response.
func (r *Reassembler) Status(iface Interface) (busy bool, err error) {
	if r.pinned != InterfaceNone && iface != r.pinned {
		return false, ErrAppBusyWithOtherInterface
	}
	return r.state == CmdStateExecuting || r.state == CmdStateReceiving, nil
}
