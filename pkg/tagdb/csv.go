package tagdb

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/ddurler/icomsim/pkg/typedvalue"
)

// RowError records one rejected line from a CSV tag table. The loader
// reports every bad line rather than aborting the whole file on the
// first one — an operator hand-editing a tag table wants the full list
// of what to fix, not a single stack trace.
type RowError struct {
	Line int
	Text string
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v (%q)", e.Line, e.Err, e.Text)
}

// csvRow is the intermediate, string-typed decode of one data line before
// field-level parsing and validation. Field indices follow the column
// layout of the tag table: 0=id, 1=word address, 2=format, 3=unity,
// 4=label, 10=read/write flag, 11=zone, 12=default value.
type csvRow struct {
	IDField      string `mapstructure:"id" validate:"required"`
	WordAddress  string `mapstructure:"word_address" validate:"required,hexadecimal"`
	Format       string `mapstructure:"format" validate:"required,hexadecimal"`
	Unity        string `mapstructure:"unity"`
	Label        string `mapstructure:"label"`
	ReadWrite    string `mapstructure:"read_write" validate:"omitempty,oneof=0 1"`
	Zone         string `mapstructure:"zone" validate:"omitempty,number"`
	DefaultValue string `mapstructure:"default_value"`
}

var csvValidate = validator.New()

// LoadCSV reads a semicolon-separated tag table from r and registers
// every valid row into db via AddTag. Lines starting with "//" or "@@",
// and blank lines, are comments. It returns the rows that failed to
// parse or validate; a non-empty return does not mean no tags were
// loaded — every other row still succeeds.
func LoadCSV(db *Database, r io.Reader) []RowError {
	var errs []RowError
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "@@") {
			continue
		}

		tag, err := parseCSVLine(line)
		if err != nil {
			errs = append(errs, RowError{Line: lineNo, Text: line, Err: err})
			continue
		}
		db.AddTag(tag)
	}
	return errs
}

func parseCSVLine(line string) (Tag, error) {
	fields := strings.Split(line, ";")
	row, err := decodeCSVRow(fields)
	if err != nil {
		return Tag{}, err
	}
	if err := csvValidate.Struct(row); err != nil {
		return Tag{}, fmt.Errorf("validate: %w", err)
	}

	idTag, isInternal, err := parseIDField(row.IDField)
	if err != nil {
		return Tag{}, err
	}

	waRaw, err := strconv.ParseUint(row.WordAddress, 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("word_address: %w", err)
	}

	formatRaw, err := strconv.ParseUint(row.Format, 16, 8)
	if err != nil {
		return Tag{}, fmt.Errorf("format: %w", err)
	}
	format := typedvalue.Format(formatRaw)

	if row.Zone != "" {
		zone, err := strconv.ParseUint(row.Zone, 10, 8)
		if err != nil {
			return Tag{}, fmt.Errorf("zone: %w", err)
		}
		idTag.Zone = uint8(zone)
	}

	defaultValue := typedvalue.Zero(format)
	if row.DefaultValue != "" {
		defaultValue, err = typedvalue.ParseText(format, row.DefaultValue)
		if err != nil {
			return Tag{}, fmt.Errorf("default_value: %w", err)
		}
	}

	return Tag{
		WordAddress:  WordAddress(waRaw),
		IdTag:        idTag,
		IsInternal:   isInternal,
		Format:       format,
		Unity:        row.Unity,
		Label:        row.Label,
		IsWrite:      row.ReadWrite == "1",
		DefaultValue: defaultValue,
	}, nil
}

// decodeCSVRow maps the positional fields of one line onto csvRow via
// mapstructure, the same decode-from-loosely-shaped-input approach the
// config loader uses for flags/env/file layering.
func decodeCSVRow(fields []string) (csvRow, error) {
	get := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}

	raw := map[string]interface{}{
		"id":            get(0),
		"word_address":  get(1),
		"format":        get(2),
		"unity":         get(3),
		"label":         get(4),
		"read_write":    get(10),
		"zone":          get(11),
		"default_value": get(12),
	}

	var row csvRow
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &row})
	if err != nil {
		return csvRow{}, fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return csvRow{}, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}

// parseIDField parses "II:NNNN:XX:XX:XX": internal flag, num_tag, and
// three index bytes, all hex.
func parseIDField(field string) (IdTag, bool, error) {
	parts := strings.Split(field, ":")
	if len(parts) != 5 {
		return IdTag{}, false, fmt.Errorf("id: expected 5 colon-separated hex fields, got %d", len(parts))
	}

	internalRaw, err := hex.DecodeString(padHex(parts[0]))
	if err != nil {
		return IdTag{}, false, fmt.Errorf("id: internal flag: %w", err)
	}
	isInternal := len(internalRaw) > 0 && internalRaw[0] != 0

	numTag, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return IdTag{}, false, fmt.Errorf("id: num_tag: %w", err)
	}

	var indices [3]uint8
	for i, p := range parts[2:] {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return IdTag{}, false, fmt.Errorf("id: index %d: %w", i, err)
		}
		indices[i] = uint8(v)
	}

	return IdTag{NumTag: uint16(numTag), Indices: indices}, isInternal, nil
}

func padHex(s string) string {
	if len(s)%2 == 1 {
		return "0" + s
	}
	return s
}
