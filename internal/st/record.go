package st

import (
	"strconv"
	"strings"
	"time"

	apperrors "dpt/internal/errors"
)

// DateLayout is the year/month/day form used by ERP exports.
const DateLayout = "2006/1/2"

// minFields is the shortest row that can be a record. Shorter rows mark the
// end of the data.
const minFields = 8

// DecodeRecord converts one data line into a Record. It returns (nil, nil)
// for the end-of-data sentinel: a row with fewer than eight fields or a blank
// material id. Parse failures are FromStr errors.
func DecodeRecord(tok *Tokenizer, line string, schema Schema) (*Record, error) {
	cols := tok.Split(line)
	if len(cols) < minFields {
		return nil, nil
	}

	var rec Record
	for i, v := range cols {
		f, ok := schema.fieldAt(i)
		if !ok {
			continue
		}
		switch f {
		case FieldMaterialID:
			if v == "" {
				return nil, nil
			}
			id, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, apperrors.NewFromStrError(v, "u32")
			}
			rec.MaterialID = uint32(id)
		case FieldStoreID:
			id, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, apperrors.NewFromStrError(v, "u32")
			}
			rec.StoreID = uint32(id)
		case FieldWarehouseID:
			id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 16)
			if err != nil {
				return nil, apperrors.NewFromStrError(v, "u16")
			}
			rec.WarehouseID = uint16(id)
		case FieldMaterialName:
			rec.Material = v
		case FieldStoreName:
			rec.Store = v
		case FieldQuantity:
			qt, err := ParseNumber(v)
			if err != nil {
				return nil, err
			}
			rec.Quantity = qt
		case FieldAmount:
			at, err := ParseNumber(v)
			if err != nil {
				return nil, err
			}
			rec.Amount = at
		case FieldDate:
			dt, err := time.Parse(DateLayout, v)
			if err != nil {
				return nil, apperrors.NewFromStrError(v, "date")
			}
			rec.Date = dt
		}
	}

	return &rec, nil
}

// ParseNumber parses an exported number: empty is 0, a leading "." gets a
// "0" prefix and thousands separators are dropped.
func ParseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}

	num := s
	if strings.HasPrefix(num, ".") {
		num = "0" + num
	}
	num = strings.ReplaceAll(num, ",", "")

	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, apperrors.NewFromStrError(s, "f64")
	}
	return f, nil
}
