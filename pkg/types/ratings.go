package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RatingSummary is the aggregate review score persisted as JSONB on listings.
type RatingSummary struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Value marshals the summary into JSON for Postgres.
func (r RatingSummary) Value() (driver.Value, error) {
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Scan decodes JSONB into the summary.
func (r *RatingSummary) Scan(value interface{}) error {
	if value == nil {
		*r = RatingSummary{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("rating summary: unsupported scan type %T", value)
	}

	var result RatingSummary
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}
	*r = result
	return nil
}
