package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSlice stores a []string in a jsonb column.
type StringSlice []string

// Scan implements sql.Scanner
func (s *StringSlice) Scan(src interface{}) error {
	if s == nil {
		return fmt.Errorf("dbtypes: Scan on nil *StringSlice")
	}

	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = StringSlice{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("dbtypes: cannot scan type %T into StringSlice", src)
	}

	out := []string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("dbtypes: decode StringSlice: %w", err)
		}
	}
	*s = out
	return nil
}

// Value encodes the categories filter as a JSON array so the column is never null.
func (s StringSlice) Value() (driver.Value, error) {
	items := []string(s)
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("dbtypes: encode StringSlice: %w", err)
	}
	return string(b), nil
}
