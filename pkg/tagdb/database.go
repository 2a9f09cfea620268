package tagdb

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ddurler/icomsim/pkg/metrics"
	"github.com/ddurler/icomsim/pkg/typedvalue"
)

// dbSize is 2*0x8000: one byte pair per word address.
const dbSize = 2 * int(MaxWordAddress)

// Database is the 64 KiB word-addressed byte store shared by the AFSEC
// dispatcher and every external collaborator (the diagnostic HTTP API
// included). It owns a single coarse RWMutex: reads take RLock, writes
// take Lock, and no caller ever holds the lock across I/O.
type Database struct {
	mu         sync.RWMutex
	store      [dbSize]byte
	wordToTag  map[WordAddress]IdTag
	tagByID    map[IdTag]*Tag
	tagsSorted []*Tag // kept sorted by WordAddress, rebuilt on AddTag
	users      *userLedger
	metrics    *metrics.Metrics
}

// New returns an empty Database. A single anonymous user occupies id 0.
func New() *Database {
	return &Database{
		wordToTag: make(map[WordAddress]IdTag),
		tagByID:   make(map[IdTag]*Tag),
		users:     newUserLedger(),
	}
}

// AddTag registers tag. It panics if either its WordAddress or its IdTag
// is already registered — a duplicate tag table entry is a configuration
// error caught at setup, not a runtime condition to recover from.
func (db *Database) AddTag(tag Tag) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.wordToTag[tag.WordAddress]; exists {
		panic(fmt.Sprintf("tagdb: duplicate word address %d for tag %s", tag.WordAddress, tag.IdTag))
	}
	if _, exists := db.tagByID[tag.IdTag]; exists {
		panic(fmt.Sprintf("tagdb: duplicate id tag %s", tag.IdTag))
	}

	t := tag
	db.wordToTag[tag.WordAddress] = tag.IdTag
	db.tagByID[tag.IdTag] = &t
	db.tagsSorted = append(db.tagsSorted, &t)
	sort.Slice(db.tagsSorted, func(i, j int) bool {
		return db.tagsSorted[i].WordAddress < db.tagsSorted[j].WordAddress
	})
}

// AttachMetrics wires m into db so every write and ledger change gets
// observed. A nil Database.metrics (the zero value) is equivalent to a nil
// *metrics.Metrics: every Observe call is a no-op, so callers that never
// attach metrics pay no overhead.
func (db *Database) AttachMetrics(m *metrics.Metrics) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.metrics = m
}

// GetTagFromIdTag returns the registered tag for id, if any.
func (db *Database) GetTagFromIdTag(id IdTag) (Tag, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.tagByID[id]
	if !ok {
		return Tag{}, false
	}
	return *t, true
}

// GetIdTagFromWordAddress returns the tag id registered at wa, if any.
func (db *Database) GetIdTagFromWordAddress(wa WordAddress) (IdTag, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	id, ok := db.wordToTag[wa]
	return id, ok
}

// GetIdUser registers a new notification-ledger user and returns its
// non-zero id. Every call registers a new user, whatever the name.
func (db *Database) GetIdUser(name string, useNotification bool) IdUser {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.users.getIdUser(name, useNotification)
}

// GetIdUserName returns the registered name for id.
func (db *Database) GetIdUserName(id IdUser) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.users.getIdUserName(id)
}

// GetChange returns the next unseen, filter-passing change for idUser.
func (db *Database) GetChange(idUser IdUser, includeMyChanges, includeAnonymousChanges bool) (NotificationChange, bool) {
	db.mu.Lock() // advances the per-user cursor, so this is a write
	defer db.mu.Unlock()
	return db.users.getChange(idUser, includeMyChanges, includeAnonymousChanges)
}

// getTagsFromWordAddressArea returns every registered tag whose word
// range intersects [wa, wa+nbWords).
func (db *Database) getTagsFromWordAddressArea(wa WordAddress, nbWords int) []*Tag {
	areaEnd := wa + WordAddress(nbWords)
	var hits []*Tag
	for _, t := range db.tagsSorted {
		start, end := t.wordRange()
		if start < areaEnd && end > wa {
			hits = append(hits, t)
		}
	}
	return hits
}

// SetVecU8ToWordAddress is the single funnel every write in the database
// passes through. It copies data starting at byte offset 2*wa, then fires
// a notification for every tag whose word range the write touched.
func (db *Database) SetVecU8ToWordAddress(idUser IdUser, wa WordAddress, data []byte) {
	db.mu.Lock()
	defer db.mu.Unlock()

	offset := 2 * int(wa)
	copy(db.store[offset:], data)

	nbWords := (len(data) + 1) / 2
	for _, tag := range db.getTagsFromWordAddressArea(wa, nbWords) {
		db.metrics.ObserveDBWrite(tag.IdTag.Zone)
		db.userWriteTag(idUser, *tag)
	}
}

// GetBytesFromWordAddress reads n raw bytes starting at 2*wa.
func (db *Database) GetBytesFromWordAddress(wa WordAddress, n int) []byte {
	db.mu.RLock()
	defer db.mu.RUnlock()
	offset := 2 * int(wa)
	out := make([]byte, n)
	copy(out, db.store[offset:offset+n])
	return out
}

// userWriteTag appends a NotificationChange for tag's id and debounces it
// against the last appended change. Must be called with db.mu held.
func (db *Database) userWriteTag(idUser IdUser, tag Tag) {
	appended, debounced := db.users.addChange(NotificationChange{IdUser: idUser, IdTag: tag.IdTag}, time.Now())
	if appended {
		db.metrics.ObserveNotificationAppended()
	}
	if debounced {
		db.metrics.ObserveNotificationDebounced()
	}
}

// --- typed word-address accessors ---
//
// u8/i8 occupy the low byte of a 2-byte word slot (the high byte is
// written as zero) to preserve big-endian word semantics across the rest
// of the store; bool occupies a single whole byte at 2*wa.

func (db *Database) rawWordBytes(wa WordAddress, width int) []byte {
	db.mu.RLock()
	defer db.mu.RUnlock()
	offset := 2 * int(wa)
	out := make([]byte, width)
	copy(out, db.store[offset:offset+width])
	return out
}

func (db *Database) GetBoolFromWordAddress(wa WordAddress) bool {
	return db.rawWordBytes(wa, 1)[0] != 0
}
func (db *Database) SetBoolToWordAddress(idUser IdUser, wa WordAddress, v bool) {
	var b byte
	if v {
		b = 1
	}
	db.SetVecU8ToWordAddress(idUser, wa, []byte{b})
}

func (db *Database) GetU8FromWordAddress(wa WordAddress) uint8 {
	return db.rawWordBytes(wa, 2)[1]
}
func (db *Database) SetU8ToWordAddress(idUser IdUser, wa WordAddress, v uint8) {
	db.SetVecU8ToWordAddress(idUser, wa, []byte{0, v})
}

func (db *Database) GetI8FromWordAddress(wa WordAddress) int8 {
	return int8(db.rawWordBytes(wa, 2)[1])
}
func (db *Database) SetI8ToWordAddress(idUser IdUser, wa WordAddress, v int8) {
	db.SetVecU8ToWordAddress(idUser, wa, []byte{0, byte(v)})
}

// decodeWord decodes the width-byte word at wa per format, returning the
// format's zero value if the stored bytes don't decode (never the case in
// practice, since rawWordBytes always returns exactly width bytes).
func decodeWord(raw []byte, format typedvalue.Format) typedvalue.Value {
	v, err := typedvalue.Decode(format, bytes.NewReader(raw))
	if err != nil {
		return typedvalue.Zero(format)
	}
	return v
}

func (db *Database) GetU16FromWordAddress(wa WordAddress) uint16 {
	return decodeWord(db.rawWordBytes(wa, 2), typedvalue.U16).ToU16()
}
func (db *Database) SetU16ToWordAddress(idUser IdUser, wa WordAddress, v uint16) {
	db.SetVecU8ToWordAddress(idUser, wa, typedvalue.Encode(typedvalue.FromU16(v)))
}

func (db *Database) GetI16FromWordAddress(wa WordAddress) int16 {
	return decodeWord(db.rawWordBytes(wa, 2), typedvalue.I16).ToI16()
}
func (db *Database) SetI16ToWordAddress(idUser IdUser, wa WordAddress, v int16) {
	db.SetVecU8ToWordAddress(idUser, wa, typedvalue.Encode(typedvalue.FromI16(v)))
}

func (db *Database) GetU32FromWordAddress(wa WordAddress) uint32 {
	return decodeWord(db.rawWordBytes(wa, 4), typedvalue.U32).ToU32()
}
func (db *Database) SetU32ToWordAddress(idUser IdUser, wa WordAddress, v uint32) {
	db.SetVecU8ToWordAddress(idUser, wa, typedvalue.Encode(typedvalue.FromU32(v)))
}

func (db *Database) GetI32FromWordAddress(wa WordAddress) int32 {
	return decodeWord(db.rawWordBytes(wa, 4), typedvalue.I32).ToI32()
}
func (db *Database) SetI32ToWordAddress(idUser IdUser, wa WordAddress, v int32) {
	db.SetVecU8ToWordAddress(idUser, wa, typedvalue.Encode(typedvalue.FromI32(v)))
}

func (db *Database) GetU64FromWordAddress(wa WordAddress) uint64 {
	return decodeWord(db.rawWordBytes(wa, 8), typedvalue.U64).ToU64()
}
func (db *Database) SetU64ToWordAddress(idUser IdUser, wa WordAddress, v uint64) {
	db.SetVecU8ToWordAddress(idUser, wa, typedvalue.Encode(typedvalue.FromU64(v)))
}

func (db *Database) GetI64FromWordAddress(wa WordAddress) int64 {
	return decodeWord(db.rawWordBytes(wa, 8), typedvalue.I64).ToI64()
}
func (db *Database) SetI64ToWordAddress(idUser IdUser, wa WordAddress, v int64) {
	db.SetVecU8ToWordAddress(idUser, wa, typedvalue.Encode(typedvalue.FromI64(v)))
}

func (db *Database) GetF32FromWordAddress(wa WordAddress) float32 {
	return decodeWord(db.rawWordBytes(wa, 4), typedvalue.F32).ToF32()
}
func (db *Database) SetF32ToWordAddress(idUser IdUser, wa WordAddress, v float32) {
	db.SetVecU8ToWordAddress(idUser, wa, typedvalue.Encode(typedvalue.FromF32(v)))
}

func (db *Database) GetF64FromWordAddress(wa WordAddress) float64 {
	return decodeWord(db.rawWordBytes(wa, 8), typedvalue.F64).ToF64()
}
func (db *Database) SetF64ToWordAddress(idUser IdUser, wa WordAddress, v float64) {
	db.SetVecU8ToWordAddress(idUser, wa, typedvalue.Encode(typedvalue.FromF64(v)))
}

func (db *Database) GetVecU8FromWordAddress(idUser IdUser, wa WordAddress, n int) []byte {
	_ = idUser
	return db.GetBytesFromWordAddress(wa, n)
}
func (db *Database) SetVecU8FromWordAddress(idUser IdUser, wa WordAddress, data []byte) {
	db.SetVecU8ToWordAddress(idUser, wa, data)
}

// --- typed id-tag accessors ---
//
// An unknown IdTag returns a getter's zero value and makes a setter a
// silent no-op: runtime access errors never panic here, only AddTag's
// configuration errors do.

func (db *Database) GetVecU8FromIdTag(idUser IdUser, id IdTag, n int) []byte {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return make([]byte, n)
	}
	return db.GetVecU8FromWordAddress(idUser, tag.WordAddress, n)
}

func (db *Database) SetVecU8ToIdTag(idUser IdUser, id IdTag, data []byte) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetVecU8ToWordAddress(idUser, tag.WordAddress, data)
}

func (db *Database) GetU16FromIdTag(idUser IdUser, id IdTag) uint16 {
	_ = idUser
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return 0
	}
	return db.GetU16FromWordAddress(tag.WordAddress)
}
func (db *Database) SetU16ToIdTag(idUser IdUser, id IdTag, v uint16) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetU16ToWordAddress(idUser, tag.WordAddress, v)
}

func (db *Database) GetI16FromIdTag(idUser IdUser, id IdTag) int16 {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return 0
	}
	return db.GetI16FromWordAddress(tag.WordAddress)
}
func (db *Database) SetI16ToIdTag(idUser IdUser, id IdTag, v int16) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetI16ToWordAddress(idUser, tag.WordAddress, v)
}

func (db *Database) GetBytesFromIdTag(id IdTag, n int) []byte {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return make([]byte, n)
	}
	return db.GetBytesFromWordAddress(tag.WordAddress, n)
}

func (db *Database) GetBoolFromIdTag(id IdTag) bool {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return false
	}
	return db.GetBoolFromWordAddress(tag.WordAddress)
}
func (db *Database) SetBoolToIdTag(idUser IdUser, id IdTag, v bool) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetBoolToWordAddress(idUser, tag.WordAddress, v)
}

func (db *Database) GetU8FromIdTag(id IdTag) uint8 {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return 0
	}
	return db.GetU8FromWordAddress(tag.WordAddress)
}
func (db *Database) SetU8ToIdTag(idUser IdUser, id IdTag, v uint8) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetU8ToWordAddress(idUser, tag.WordAddress, v)
}

func (db *Database) GetI8FromIdTag(id IdTag) int8 {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return 0
	}
	return db.GetI8FromWordAddress(tag.WordAddress)
}
func (db *Database) SetI8ToIdTag(idUser IdUser, id IdTag, v int8) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetI8ToWordAddress(idUser, tag.WordAddress, v)
}

func (db *Database) GetU32FromIdTag(id IdTag) uint32 {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return 0
	}
	return db.GetU32FromWordAddress(tag.WordAddress)
}
func (db *Database) SetU32ToIdTag(idUser IdUser, id IdTag, v uint32) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetU32ToWordAddress(idUser, tag.WordAddress, v)
}

func (db *Database) GetI32FromIdTag(id IdTag) int32 {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return 0
	}
	return db.GetI32FromWordAddress(tag.WordAddress)
}
func (db *Database) SetI32ToIdTag(idUser IdUser, id IdTag, v int32) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetI32ToWordAddress(idUser, tag.WordAddress, v)
}

func (db *Database) GetU64FromIdTag(id IdTag) uint64 {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return 0
	}
	return db.GetU64FromWordAddress(tag.WordAddress)
}
func (db *Database) SetU64ToIdTag(idUser IdUser, id IdTag, v uint64) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetU64ToWordAddress(idUser, tag.WordAddress, v)
}

func (db *Database) GetI64FromIdTag(id IdTag) int64 {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return 0
	}
	return db.GetI64FromWordAddress(tag.WordAddress)
}
func (db *Database) SetI64ToIdTag(idUser IdUser, id IdTag, v int64) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetI64ToWordAddress(idUser, tag.WordAddress, v)
}

func (db *Database) GetF32FromIdTag(id IdTag) float32 {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return 0
	}
	return db.GetF32FromWordAddress(tag.WordAddress)
}
func (db *Database) SetF32ToIdTag(idUser IdUser, id IdTag, v float32) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetF32ToWordAddress(idUser, tag.WordAddress, v)
}

func (db *Database) GetF64FromIdTag(id IdTag) float64 {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return 0
	}
	return db.GetF64FromWordAddress(tag.WordAddress)
}
func (db *Database) SetF64ToIdTag(idUser IdUser, id IdTag, v float64) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetF64ToWordAddress(idUser, tag.WordAddress, v)
}

// GetValueFromTag reads tag's current value at its native format.
func (db *Database) GetValueFromTag(tag Tag) typedvalue.Value {
	raw := db.GetBytesFromWordAddress(tag.WordAddress, tag.Format.ByteWidth())
	v, err := typedvalue.Decode(tag.Format, bytes.NewReader(raw))
	if err != nil {
		return typedvalue.Zero(tag.Format)
	}
	return v
}

// SetValueToIdTag writes value to the tag registered under id, via the
// funnel write. A no-op if id isn't registered.
func (db *Database) SetValueToIdTag(idUser IdUser, id IdTag, value typedvalue.Value) {
	tag, ok := db.GetTagFromIdTag(id)
	if !ok {
		return
	}
	db.SetVecU8ToWordAddress(idUser, tag.WordAddress, typedvalue.Encode(value))
}

// SetValue parses text per tag.Format and writes it. On a parse failure,
// nothing is written and no notification fires.
func (db *Database) SetValue(idUser IdUser, tag Tag, text string) error {
	v, err := typedvalue.ParseText(tag.Format, text)
	if err != nil {
		return fmt.Errorf("tagdb: set value: %w", err)
	}
	db.SetVecU8ToWordAddress(idUser, tag.WordAddress, typedvalue.Encode(v))
	return nil
}

// ListTags returns every registered tag, sorted by WordAddress.
func (db *Database) ListTags() []Tag {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]Tag, len(db.tagsSorted))
	for i, t := range db.tagsSorted {
		out[i] = *t
	}
	return out
}

// ListUsers returns every registered notification-ledger user, indexed by
// IdUser (ListUsers()[0] is always the anonymous user).
func (db *Database) ListUsers() []User {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]User, len(db.users.vecUsers))
	copy(out, db.users.vecUsers)
	return out
}
