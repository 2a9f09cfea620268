package frame

import (
	"bytes"
	"testing"

	"github.com/ddurler/icomsim/pkg/typedvalue"
)

func TestConstructionStates(t *testing.T) {
	cases := []struct {
		name  string
		bytes []byte
		state State
	}{
		{"empty", []byte{}, StateEmpty},
		{"ack", []byte{ACK}, StateOk},
		{"nack", []byte{NACK}, StateOk},
		{"junk-byte", []byte{0x42}, StateJunk},
		{"ack-and-junk", []byte{ACK, 0x01}, StateJunk},
		{"stx-only", []byte{STX}, StateBuilding},
		{"stx-tag", []byte{STX, 0x80}, StateBuilding},
		{"stx-tag-len", []byte{STX, 0x80, 0x00}, StateBuilding},
		{"empty-message-ok", []byte{STX, 0x80, 0x00, 0x80, ETX}, StateOk},
		{"bad-xor-junk", []byte{STX, 0x80, 0x00, 0x00, ETX}, StateJunk},
		{"one-byte-payload-ok", []byte{STX, 0x01, 0x01, 0x05, 0x01 ^ 0x01 ^ 0x05, ETX}, StateOk},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rf := New(c.bytes)
			if got := rf.State(); got != c.state {
				t.Fatalf("State() = %s, want %s", got, c.state)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	original := []byte{0x02, 0x00, 0x00, 0x00, 0x03}
	rf := New(original)
	if rf.State() != StateOk {
		t.Fatalf("expected Ok state, got %s", rf.State())
	}
	if got := rf.Encode(); !bytes.Equal(got, original) {
		t.Fatalf("Encode() = %v, want %v", got, original)
	}
}

func TestRemoveJunk(t *testing.T) {
	rf := New([]byte{ACK, 0x01, 0x02})
	if rf.State() != StateJunk {
		t.Fatalf("expected Junk state, got %s", rf.State())
	}
	rf.RemoveJunk()
	if rf.State() != StateOk {
		t.Fatalf("expected Ok state after RemoveJunk, got %s", rf.State())
	}
	if got := rf.Encode(); !bytes.Equal(got, []byte{ACK}) {
		t.Fatalf("Encode() after RemoveJunk = %v, want [ACK]", got)
	}

	rf.RemoveJunk()
	if got := rf.Encode(); !bytes.Equal(got, []byte{ACK}) {
		t.Fatalf("RemoveJunk must be a no-op here, got %v", got)
	}
}

func TestTryExtendDataItemOverflow(t *testing.T) {
	rf := NewMessage(0x80)
	big := DataItem{Tag: 0x01, Value: typedvalue.FromBytes(make([]byte, 127))}
	if err := rf.TryExtendDataItem(big); err != nil {
		t.Fatalf("first extend: %v", err)
	}
	if err := rf.TryExtendDataItem(big); err == nil {
		t.Fatal("expected ErrMaxLengthOverflow on second extend")
	}
}

func TestAliveHandshakeEncoding(t *testing.T) {
	// S1 from the protocol scenarios: an ALIVE message with no payload.
	rf := NewMessage(0x00)
	got := rf.Encode()
	want := []byte{0x02, 0x00, 0x00, 0x00, 0x03}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode() = %v, want %v", got, want)
	}
}
