package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is the canonical customer address shape used inside the core.
// At the API boundary it accepts either a plain string ("12 Main St,
// Springfield") or a structured object; both normalize into this one form
// before any domain code sees them.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsZero reports whether no address field is set
func (a Address) IsZero() bool {
	return a == Address{}
}

// String renders the address as a single display line
func (a Address) String() string {
	parts := make([]string, 0, 6)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// UnmarshalJSON accepts both the plain-string and the structured form
func (a *Address) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*a = Address{}
		return nil
	}

	if data[0] == '"' {
		var plain string
		if err := json.Unmarshal(data, &plain); err != nil {
			return err
		}
		*a = Address{Line1: strings.TrimSpace(plain)}
		return nil
	}

	type structured Address
	var s structured
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*a = Address(s)
	return nil
}

// Scan implements the sql.Scanner interface for Address
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}

	return a.UnmarshalJSON(bytes)
}

// Value implements the driver.Valuer interface for Address
func (a Address) Value() (driver.Value, error) {
	type structured Address
	return json.Marshal(structured(a))
}
