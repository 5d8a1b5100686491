package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// BadgeList is a donor's earned badges, stored as a JSON array column.
type BadgeList []string

// Value never writes NULL so the column always holds a valid array.
func (b BadgeList) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(b))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (b *BadgeList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*b = BadgeList{}
		return nil
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("cannot scan %T into BadgeList", value)
	}
}

func (BadgeList) GormDataType() string {
	return "json"
}

// MarshalJSON renders a nil list as [].
func (b BadgeList) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(b))
}

func (b BadgeList) Contains(badge string) bool {
	for _, v := range b {
		if v == badge {
			return true
		}
	}
	return false
}
