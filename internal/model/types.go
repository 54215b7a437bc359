package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// BalanceMap holds base-unit balances keyed by currency code.
type BalanceMap map[string]decimal.Decimal

func (m BalanceMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func (m *BalanceMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// StringList is an ordered list persisted as a JSON array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// JSONMap carries free-form details such as generation metadata.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func (m *JSONMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

func scanJSON(value interface{}, target interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, target)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), target)
	default:
		return fmt.Errorf("unsupported json column type %T", value)
	}
}
