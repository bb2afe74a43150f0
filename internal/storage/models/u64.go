// internal/storage/models/u64.go
package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// U64 хранит uint64 как десятичную строку: SQL BIGINT знаковый и не
// вмещает резервы выше 2^63-1.
type U64 uint64

// Value реализует driver.Valuer
func (u U64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

// Scan реализует sql.Scanner
func (u *U64) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*u = 0
		return nil
	case string:
		return u.parse(v)
	case []byte:
		return u.parse(string(v))
	case int64:
		if v < 0 {
			return fmt.Errorf("negative value %d for U64", v)
		}
		*u = U64(v)
		return nil
	default:
		return fmt.Errorf("unsupported type %T for U64", src)
	}
}

func (u *U64) parse(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse U64 %q: %w", s, err)
	}
	*u = U64(n)
	return nil
}
