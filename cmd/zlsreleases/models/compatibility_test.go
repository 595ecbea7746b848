package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessUnderRequest(t *testing.T) {
	cases := []struct {
		compat Compatibility
		req    RequestedCompatibility
		want   bool
	}{
		{CompatibilityFull, RequestFull, true},
		{CompatibilityFull, RequestOnlyRuntime, true},
		{CompatibilityOnlyRuntime, RequestFull, false},
		{CompatibilityOnlyRuntime, RequestOnlyRuntime, true},
		{CompatibilityNone, RequestFull, false},
		{CompatibilityNone, RequestOnlyRuntime, false},
	}
	for _, c := range cases {
		got := c.compat.SuccessUnderRequest(c.req)
		assert.Equal(t, c.want, got, "compat=%s req=%s", c.compat, c.req)
	}
}

func TestParseCompatibilityRejectsUnknown(t *testing.T) {
	_, err := ParseCompatibility("sometimes")
	assert.ErrorIs(t, err, ErrInvalidCompatibility)
}

func TestParseRequestedCompatibilityRejectsNone(t *testing.T) {
	_, err := ParseRequestedCompatibility("none")
	assert.ErrorIs(t, err, ErrInvalidCompatibility)
}
