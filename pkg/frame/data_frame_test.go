package frame

import (
	"testing"

	"github.com/ddurler/icomsim/pkg/typedvalue"
)

func TestDataFrameMessageRoundTrip(t *testing.T) {
	rf := NewMessage(0x81)
	items := []DataItem{
		NewDataItem(0x01, typedvalue.FromU16(0)),
		NewDataItem(0x02, typedvalue.FromU16(0)),
	}
	for _, di := range items {
		if err := rf.TryExtendDataItem(di); err != nil {
			t.Fatalf("extend: %v", err)
		}
	}

	df, err := NewDataFrame(rf)
	if err != nil {
		t.Fatalf("NewDataFrame: %v", err)
	}
	if !df.IsMessage() {
		t.Fatal("expected IsMessage")
	}
	if df.Tag() != 0x81 {
		t.Fatalf("Tag() = 0x%02X, want 0x81", df.Tag())
	}
	got := df.DataItems()
	if len(got) != 2 {
		t.Fatalf("DataItems() len = %d, want 2", len(got))
	}
	if got[0].Tag != 0x01 || got[1].Tag != 0x02 {
		t.Fatalf("unexpected item tags: %v", got)
	}
}

func TestDataFrameSimpleAckNack(t *testing.T) {
	ack, err := NewDataFrame(NewAck())
	if err != nil || !ack.IsSimpleAck() {
		t.Fatalf("NewDataFrame(NewAck()) = %+v, %v", ack, err)
	}
	nack, err := NewDataFrame(NewNack())
	if err != nil || !nack.IsSimpleNack() {
		t.Fatalf("NewDataFrame(NewNack()) = %+v, %v", nack, err)
	}
}

func TestDataFrameRejectsIncompleteFrames(t *testing.T) {
	if _, err := NewDataFrame(NewEmpty()); err != ErrIsEmpty {
		t.Fatalf("expected ErrIsEmpty, got %v", err)
	}
	building := New([]byte{STX, 0x80})
	if _, err := NewDataFrame(building); err != ErrIsBuilding {
		t.Fatalf("expected ErrIsBuilding, got %v", err)
	}
	junk := New([]byte{0x42})
	if _, err := NewDataFrame(junk); err != ErrIsJunk {
		t.Fatalf("expected ErrIsJunk, got %v", err)
	}
}

func TestDecodeAllDataItems(t *testing.T) {
	di := NewDataItem(0x35, typedvalue.FromU16(123))
	data := di.Encode()
	items, err := DecodeAllDataItems(data)
	if err != nil {
		t.Fatalf("DecodeAllDataItems: %v", err)
	}
	if len(items) != 1 || items[0].Value.ToU16() != 123 {
		t.Fatalf("unexpected items: %+v", items)
	}
}
