package mysql

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// tagList stores customer tags in a JSON column
type tagList []string

// Value implements driver.Valuer
func (t tagList) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (t *tagList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*t = tagList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into tag list", src)
	}

	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return fmt.Errorf("invalid tag list %q: %w", data, err)
	}
	if tags == nil {
		tags = []string{}
	}
	*t = tags
	return nil
}
