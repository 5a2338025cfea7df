package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressUnmarshalJSON(t *testing.T) {
	t.Run("plain string form", func(t *testing.T) {
		var a Address
		err := json.Unmarshal([]byte(`"12 Main St, Springfield"`), &a)
		require.NoError(t, err)
		assert.Equal(t, "12 Main St, Springfield", a.Line1)
		assert.Empty(t, a.City)
	})

	t.Run("structured form", func(t *testing.T) {
		var a Address
		err := json.Unmarshal([]byte(`{"line1":"12 Main St","city":"Springfield","postal_code":"62704","country":"US"}`), &a)
		require.NoError(t, err)
		assert.Equal(t, "12 Main St", a.Line1)
		assert.Equal(t, "Springfield", a.City)
		assert.Equal(t, "62704", a.PostalCode)
		assert.Equal(t, "US", a.Country)
	})

	t.Run("null resets to zero", func(t *testing.T) {
		a := Address{Line1: "stale"}
		err := a.UnmarshalJSON([]byte("null"))
		require.NoError(t, err)
		assert.True(t, a.IsZero())
	})

	t.Run("string form trims whitespace", func(t *testing.T) {
		var a Address
		err := json.Unmarshal([]byte(`"  42 Elm Rd  "`), &a)
		require.NoError(t, err)
		assert.Equal(t, "42 Elm Rd", a.Line1)
	})
}

func TestAddressString(t *testing.T) {
	a := Address{Line1: "12 Main St", City: "Springfield", State: "IL", Country: "US"}
	assert.Equal(t, "12 Main St, Springfield, IL, US", a.String())
	assert.Equal(t, "", Address{}.String())
}
