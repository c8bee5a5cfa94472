package st

import (
	apperrors "dpt/internal/errors"
)

// Field is a logical column of an ST export.
type Field int

const (
	FieldMaterialID Field = iota
	FieldStoreID
	FieldWarehouseID
	FieldMaterialName
	FieldStoreName
	FieldQuantity
	FieldAmount
	FieldDate

	fieldCount
)

// fieldKeys are the keys of the st configuration table, in Field order.
var fieldKeys = [fieldCount]string{
	"field_mid", "field_sid", "field_wid", "field_mname",
	"field_sname", "field_qt", "field_at", "field_dt",
}

func (f Field) String() string {
	if f < 0 || f >= fieldCount {
		return "unknown"
	}
	return fieldKeys[f]
}

// Fields holds the expected header text of every logical column.
type Fields [fieldCount]string

// FieldsFromConfig reads the st configuration table. Every key must be
// present and non-empty.
func FieldsFromConfig(table map[string]string) (Fields, error) {
	var fields Fields
	if table == nil {
		return fields, apperrors.NewConfigError("st")
	}
	for f, key := range fieldKeys {
		v, ok := table[key]
		if !ok || v == "" {
			return fields, apperrors.NewConfigError("st." + key)
		}
		fields[f] = v
	}
	return fields, nil
}

// Schema maps each logical field to a column index.
//
// Index 0 doubles as "unassigned": a field whose header sits in column 0 still
// looks unassigned, so a later column with the same header text takes it
// over, and a field missing from the header reads column 0. Records decode
// column 0 as the first field (in Field order) mapped there, so such fields
// keep their zero value.
type Schema [fieldCount]int

// ResolveSchema tokenizes the header line and assigns each column to the
// first still-unassigned logical field whose header text equals it.
func ResolveSchema(tok *Tokenizer, header string, fields Fields) Schema {
	var schema Schema
	for i, col := range tok.Split(header) {
		for f := Field(0); f < fieldCount; f++ {
			if col == fields[f] && schema[f] == 0 {
				schema[f] = i
				break
			}
		}
	}
	return schema
}

// Index returns the column of f.
func (s Schema) Index(f Field) int {
	return s[f]
}

// fieldAt returns the field decoded from column i, if any.
func (s Schema) fieldAt(i int) (Field, bool) {
	for f := Field(0); f < fieldCount; f++ {
		if s[f] == i {
			return f, true
		}
	}
	return 0, false
}
