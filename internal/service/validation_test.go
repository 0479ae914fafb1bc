package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomValidationRules(t *testing.T) {
	validate := NewValidator()

	cases := []struct {
		tag   string
		value string
		ok    bool
	}{
		{"phone", "+15551234567", true},
		{"phone", "0812345", false},
		{"phone", "12-34", false},
		{"timerange", "09:00-10:30", true},
		{"timerange", "23:59-00:00", true},
		{"timerange", "24:00-01:00", false},
		{"timerange", "9:00-10:00", false},
		{"positiveint", "30", true},
		{"positiveint", "0", false},
		{"positiveint", "007", false},
		{"positiveint", "-3", false},
	}
	for _, tc := range cases {
		err := validate.Var(tc.value, tc.tag)
		if tc.ok {
			assert.NoError(t, err, "%s %q", tc.tag, tc.value)
		} else {
			assert.Error(t, err, "%s %q", tc.tag, tc.value)
		}
	}
}
