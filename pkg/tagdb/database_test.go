package tagdb

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ddurler/icomsim/pkg/metrics"
	"github.com/ddurler/icomsim/pkg/typedvalue"
)

func TestAddTagAndReadBack(t *testing.T) {
	db := New()
	id := NewIdTag(0, 0x0102, [3]uint8{0, 0, 0})
	db.AddTag(Tag{WordAddress: 10, IdTag: id, Format: typedvalue.U16, IsWrite: true})

	db.SetU16ToWordAddress(AnonymousUser, 10, 123)
	if got := db.GetU16FromWordAddress(10); got != 123 {
		t.Fatalf("GetU16FromWordAddress = %d, want 123", got)
	}
	if got := db.GetU16FromIdTag(AnonymousUser, id); got != 123 {
		t.Fatalf("GetU16FromIdTag = %d, want 123", got)
	}
}

func TestAddTagPanicsOnDuplicateWordAddress(t *testing.T) {
	db := New()
	id1 := NewIdTag(0, 1, [3]uint8{})
	id2 := NewIdTag(0, 2, [3]uint8{})
	db.AddTag(Tag{WordAddress: 5, IdTag: id1, Format: typedvalue.U8})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate word address")
		}
	}()
	db.AddTag(Tag{WordAddress: 5, IdTag: id2, Format: typedvalue.U8})
}

func TestAddTagPanicsOnDuplicateIdTag(t *testing.T) {
	db := New()
	id := NewIdTag(0, 1, [3]uint8{})
	db.AddTag(Tag{WordAddress: 5, IdTag: id, Format: typedvalue.U8})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate id tag")
		}
	}()
	db.AddTag(Tag{WordAddress: 6, IdTag: id, Format: typedvalue.U8})
}

func TestGetUnknownIdTagReturnsZeroValue(t *testing.T) {
	db := New()
	unknown := NewIdTag(9, 9999, [3]uint8{9, 9, 9})
	if got := db.GetU16FromIdTag(AnonymousUser, unknown); got != 0 {
		t.Fatalf("GetU16FromIdTag(unknown) = %d, want 0", got)
	}
	// SetU16ToIdTag on an unknown id must be a silent no-op, never a panic.
	db.SetU16ToIdTag(AnonymousUser, unknown, 42)
}

func TestSetValueParseFailureWritesNothing(t *testing.T) {
	db := New()
	id := NewIdTag(0, 1, [3]uint8{})
	tag := Tag{WordAddress: 0, IdTag: id, Format: typedvalue.U16}
	db.AddTag(tag)

	db.SetU16ToWordAddress(AnonymousUser, 0, 7)
	if err := db.SetValue(AnonymousUser, tag, "not-a-number"); err == nil {
		t.Fatal("expected parse error")
	}
	if got := db.GetU16FromWordAddress(0); got != 7 {
		t.Fatalf("value changed after failed parse: got %d, want 7", got)
	}
}

func TestOverlapDiscoveryFiresForEveryTouchedTag(t *testing.T) {
	db := New()
	u16Tag := NewIdTag(0, 1, [3]uint8{})
	u32Tag := NewIdTag(0, 2, [3]uint8{})
	// u32 at word 10 spans words [10,12); u16 at word 11 lies inside it.
	db.AddTag(Tag{WordAddress: 10, IdTag: u32Tag, Format: typedvalue.U32})
	db.AddTag(Tag{WordAddress: 11, IdTag: u16Tag, Format: typedvalue.U16})

	writer := db.GetIdUser("writer", false)
	reader := db.GetIdUser("reader", true)

	db.SetU32ToWordAddress(writer, 10, 0xAABBCCDD)

	seen := map[IdTag]bool{}
	for {
		change, ok := db.GetChange(reader, true, true)
		if !ok {
			break
		}
		seen[change.IdTag] = true
	}
	if !seen[u32Tag] || !seen[u16Tag] {
		t.Fatalf("expected both overlapping tags notified, got %v", seen)
	}
}

func TestBytesFormatRoundTrip(t *testing.T) {
	db := New()
	id := NewIdTag(4, 0x0F45, [3]uint8{})
	db.AddTag(Tag{WordAddress: 100, IdTag: id, Format: typedvalue.Bytes(6)})

	payload := []byte{0x11, 10, 1, 2, 3, 4}
	db.SetVecU8ToIdTag(AnonymousUser, id, payload)

	got := db.GetVecU8FromIdTag(AnonymousUser, id, 6)
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("GetVecU8FromIdTag = %v, want %v", got, payload)
		}
	}
}

func TestListTagsSortedByWordAddress(t *testing.T) {
	db := New()
	db.AddTag(Tag{WordAddress: 20, IdTag: NewIdTag(0, 1, [3]uint8{})})
	db.AddTag(Tag{WordAddress: 5, IdTag: NewIdTag(0, 2, [3]uint8{})})
	db.AddTag(Tag{WordAddress: 15, IdTag: NewIdTag(0, 3, [3]uint8{})})

	tags := db.ListTags()
	if len(tags) != 3 {
		t.Fatalf("ListTags len = %d, want 3", len(tags))
	}
	for i := 1; i < len(tags); i++ {
		if tags[i-1].WordAddress > tags[i].WordAddress {
			t.Fatalf("ListTags not sorted: %+v", tags)
		}
	}
}

func TestAttachMetricsObservesWritesAndNotifications(t *testing.T) {
	db := New()
	m := metrics.New()
	db.AttachMetrics(m)

	id := NewIdTag(4, 1, [3]uint8{})
	db.AddTag(Tag{WordAddress: 10, IdTag: id, Format: typedvalue.U16, IsWrite: true})

	reader := db.GetIdUser("reader", true)
	db.SetU16ToWordAddress(AnonymousUser, 10, 1)
	db.SetU16ToWordAddress(AnonymousUser, 10, 1) // debounced repeat
	_, _ = db.GetChange(reader, true, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	if !strings.Contains(body, `icomsim_db_writes_total{zone="0x04"} 2`) {
		t.Fatalf("db writes metric missing or wrong count:\n%s", body)
	}
	if !strings.Contains(body, "icomsim_notifications_appended_total 1") {
		t.Fatalf("notifications appended metric missing or wrong count:\n%s", body)
	}
	if !strings.Contains(body, "icomsim_notifications_debounced_total 1") {
		t.Fatalf("notifications debounced metric missing or wrong count:\n%s", body)
	}
}
