// Package frame implements the AFSEC TLV wire framing: the byte-at-a-time
// RawFrame builder state machine, the DataItem tag/format/value triple it
// carries as payload, and DataFrame, the semantic view of a completed
// RawFrame.
package frame

// Control bytes of the wire grammar.
const (
	STX  byte = 0x02
	ETX  byte = 0x03
	ACK  byte = 0x06
	NACK byte = 0x15
)

// MaxPayloadLen is the largest len byte a frame may declare.
const MaxPayloadLen = 250

// kind identifies which builder state a RawFrame is currently in. Each
// value of kind corresponds to exactly one of the variants in the wire
// grammar's state machine; RawFrame never carries a separate "current
// position" field, the kind plus its associated fields fully determine
// the state.
type kind uint8

const (
	kindEmpty kind = iota
	kindAck
	kindAckAndJunk
	kindNack
	kindNackAndJunk
	kindStx
	kindTag
	kindTagLen
	kindTagLenValue
	kindXor
	kindOk
	kindOkAndJunk
	kindJunk
)

// State classifies a RawFrame's builder kind into the four states a
// caller cares about.
type State uint8

const (
	StateEmpty State = iota
	StateBuilding
	StateOk
	StateJunk
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateBuilding:
		return "Building"
	case StateOk:
		return "Ok"
	case StateJunk:
		return "Junk"
	default:
		return "Unknown"
	}
}

// RawFrame is the incremental builder for one TLV frame, pushed one byte
// at a time from a raw serial stream. It is a tagged-union value type:
// which of tag/length/payload/xor/junk are meaningful is determined
// entirely by kind.
type RawFrame struct {
	k       kind
	tag     byte
	length  byte
	payload []byte
	xor     byte
	junk    []byte
}

// NewEmpty returns a fresh, empty builder.
func NewEmpty() RawFrame { return RawFrame{k: kindEmpty} }

// NewAck returns a complete ACK frame.
func NewAck() RawFrame { return RawFrame{k: kindAck} }

// NewNack returns a complete NACK frame.
func NewNack() RawFrame { return RawFrame{k: kindNack} }

// NewMessage returns a complete, empty-payload Ok frame for tag — the
// starting point for building an outgoing message with try_extend.
func NewMessage(tag byte) RawFrame {
	return RawFrame{k: kindOk, tag: tag, length: 0, payload: []byte{}, xor: tag}
}

// New builds a RawFrame by pushing every byte of octets in order.
func New(octets []byte) RawFrame {
	rf := NewEmpty()
	for _, b := range octets {
		rf.Push(b)
	}
	return rf
}

func calcXor(tag, length byte, payload []byte) byte {
	x := tag ^ length
	for _, b := range payload {
		x ^= b
	}
	return x
}

// Push feeds one byte into the builder, advancing its state per the wire
// grammar's transition table.
func (rf *RawFrame) Push(b byte) {
	switch rf.k {
	case kindEmpty:
		switch b {
		case ACK:
			rf.k = kindAck
		case NACK:
			rf.k = kindNack
		case STX:
			rf.k = kindStx
		default:
			rf.k = kindJunk
			rf.junk = []byte{b}
		}

	case kindAck:
		rf.k = kindAckAndJunk
		rf.junk = []byte{b}

	case kindNack:
		rf.k = kindNackAndJunk
		rf.junk = []byte{b}

	case kindStx:
		rf.k = kindTag
		rf.tag = b

	case kindTag:
		rf.k = kindTagLen
		rf.length = b

	case kindTagLen:
		if rf.length == 0 {
			if b == rf.tag {
				rf.k = kindXor
				rf.payload = []byte{}
				rf.xor = b
			} else {
				rf.k = kindJunk
				rf.junk = []byte{STX, rf.tag, rf.length, b}
			}
			return
		}
		rf.k = kindTagLenValue
		rf.payload = []byte{b}

	case kindTagLenValue:
		if len(rf.payload) < int(rf.length) {
			rf.payload = append(rf.payload, b)
			return
		}
		expected := calcXor(rf.tag, rf.length, rf.payload)
		if b == expected {
			rf.k = kindXor
			rf.xor = b
		} else {
			junk := []byte{STX, rf.tag, rf.length}
			junk = append(junk, rf.payload...)
			junk = append(junk, b)
			rf.k = kindJunk
			rf.junk = junk
		}

	case kindXor:
		if b == ETX {
			rf.k = kindOk
		} else {
			junk := []byte{STX, rf.tag, rf.length}
			junk = append(junk, rf.payload...)
			junk = append(junk, rf.xor, b)
			rf.k = kindJunk
			rf.junk = junk
		}

	case kindOk:
		rf.k = kindOkAndJunk
		rf.junk = []byte{b}

	case kindAckAndJunk, kindNackAndJunk, kindOkAndJunk, kindJunk:
		rf.junk = append(rf.junk, b)
	}
}

// Extend pushes every byte of octets in order.
func (rf *RawFrame) Extend(octets []byte) {
	for _, b := range octets {
		rf.Push(b)
	}
}

// State reports which of the four coarse states rf is currently in.
func (rf RawFrame) State() State {
	switch rf.k {
	case kindEmpty:
		return StateEmpty
	case kindAck, kindNack, kindOk:
		return StateOk
	case kindAckAndJunk, kindNackAndJunk, kindOkAndJunk, kindJunk:
		return StateJunk
	default:
		return StateBuilding
	}
}

// Encode materializes the canonical byte sequence for rf's current state,
// including any trailing junk.
func (rf RawFrame) Encode() []byte {
	switch rf.k {
	case kindEmpty:
		return []byte{}
	case kindAck:
		return []byte{ACK}
	case kindAckAndJunk:
		return append([]byte{ACK}, rf.junk...)
	case kindNack:
		return []byte{NACK}
	case kindNackAndJunk:
		return append([]byte{NACK}, rf.junk...)
	case kindStx:
		return []byte{STX}
	case kindTag:
		return []byte{STX, rf.tag}
	case kindTagLen:
		return []byte{STX, rf.tag, rf.length}
	case kindTagLenValue:
		out := []byte{STX, rf.tag, rf.length}
		return append(out, rf.payload...)
	case kindXor:
		out := []byte{STX, rf.tag, rf.length}
		out = append(out, rf.payload...)
		return append(out, rf.xor)
	case kindOk:
		out := []byte{STX, rf.tag, rf.length}
		out = append(out, rf.payload...)
		return append(out, rf.xor, ETX)
	case kindOkAndJunk:
		out := []byte{STX, rf.tag, rf.length}
		out = append(out, rf.payload...)
		out = append(out, rf.xor, ETX)
		return append(out, rf.junk...)
	case kindJunk:
		return append([]byte{}, rf.junk...)
	default:
		return []byte{}
	}
}

// RemoveJunk rewinds a *AndJunk state back to its clean predecessor, or a
// bare Junk state back to Empty. It is a no-op (and idempotent) on every
// other state.
func (rf *RawFrame) RemoveJunk() {
	switch rf.k {
	case kindAckAndJunk:
		rf.k = kindAck
		rf.junk = nil
	case kindNackAndJunk:
		rf.k = kindNack
		rf.junk = nil
	case kindOkAndJunk:
		rf.k = kindOk
		rf.junk = nil
	case kindJunk:
		rf.k = kindEmpty
		rf.junk = nil
	}
}

// Tag returns the tag byte the builder recorded after STX; it is 0 for
// frames that never received one, such as Ack and Nack frames.
func (rf RawFrame) Tag() byte { return rf.tag }

// Payload returns the frame's payload bytes for Ok-state frames.
func (rf RawFrame) Payload() []byte { return rf.payload }

// TryExtendDataItem appends the wire encoding of di to an Ok-state frame,
// recomputing the trailing XOR byte. It fails with ErrMaxLengthOverflow
// if doing so would push the declared length past MaxPayloadLen, leaving
// rf unchanged.
func (rf *RawFrame) TryExtendDataItem(di DataItem) error {
	if rf.k != kindOk {
		return ErrNotExtendable
	}
	encoded := di.Encode()
	newLen := int(rf.length) + len(encoded)
	if newLen > MaxPayloadLen {
		return ErrMaxLengthOverflow
	}
	newPayload := append(append([]byte{}, rf.payload...), encoded...)
	rf.length = byte(newLen)
	rf.payload = newPayload
	rf.xor = calcXor(rf.tag, rf.length, rf.payload)
	return nil
}
