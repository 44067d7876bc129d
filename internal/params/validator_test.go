package params

import (
	"testing"

	"github.com/hamza/scanhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nmapSchema() map[string]models.ParamSpec {
	return map[string]models.ParamSpec{
		"scanType": {
			Type: models.ParamString,
			Enum: []string{"-sV", "-sS", "-sT"},
		},
		"ports": {
			Type:     models.ParamString,
			Required: true,
			Pattern:  `^[0-9,\-]+$`,
		},
		"rate": {
			Type: models.ParamNumber,
		},
		"aggressive": {
			Type: models.ParamBoolean,
		},
	}
}

func TestValidateAccepts(t *testing.T) {
	err := Validate(map[string]interface{}{
		"scanType":   "-sV",
		"ports":      "1-1000",
		"rate":       float64(150),
		"aggressive": true,
	}, nmapSchema())
	assert.NoError(t, err)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name     string
		supplied map[string]interface{}
		wantMsg  string
	}{
		{
			"unknown key",
			map[string]interface{}{"ports": "80", "bogus": "x"},
			`unknown parameter "bogus"`,
		},
		{
			"wrong type string",
			map[string]interface{}{"ports": 80},
			`parameter "ports" must be a string`,
		},
		{
			"wrong type number",
			map[string]interface{}{"ports": "80", "rate": "fast"},
			`parameter "rate" must be a number`,
		},
		{
			"wrong type boolean",
			map[string]interface{}{"ports": "80", "aggressive": "yes"},
			`parameter "aggressive" must be a boolean`,
		},
		{
			"enum violation",
			map[string]interface{}{"ports": "80", "scanType": "-sU"},
			`parameter "scanType" must be one of`,
		},
		{
			"pattern violation",
			map[string]interface{}{"ports": "80; rm"},
			`parameter "ports" does not match required pattern`,
		},
		{
			"missing required",
			map[string]interface{}{"scanType": "-sV"},
			`missing required parameter "ports"`,
		},
		{
			"required key present but null",
			map[string]interface{}{"ports": nil},
			`missing required parameter "ports"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.supplied, nmapSchema())
			require.ErrorIs(t, err, ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestValidateUnknownKeyWinsOverMissingRequired(t *testing.T) {
	err := Validate(map[string]interface{}{"bogus": "x"}, nmapSchema())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown parameter "bogus"`)
}

func TestValidateBrokenPatternFailsClosed(t *testing.T) {
	schema := map[string]models.ParamSpec{
		"v": {Type: models.ParamString, Pattern: `([`},
	}
	err := Validate(map[string]interface{}{"v": "anything"}, schema)
	require.ErrorIs(t, err, ErrInvalidParams)
	assert.Contains(t, err.Error(), "invalid pattern constraint")
}

func TestApplyDefaults(t *testing.T) {
	schema := map[string]models.ParamSpec{
		"ports":    {Type: models.ParamString, Default: "1-1000"},
		"scanType": {Type: models.ParamString},
	}

	supplied := map[string]interface{}{"scanType": "-sV"}
	merged := ApplyDefaults(supplied, schema)

	assert.Equal(t, "1-1000", merged["ports"])
	assert.Equal(t, "-sV", merged["scanType"])
	assert.NotContains(t, supplied, "ports", "input map must not be mutated")

	// Explicit values win over defaults.
	merged = ApplyDefaults(map[string]interface{}{"ports": "22"}, schema)
	assert.Equal(t, "22", merged["ports"])
}
