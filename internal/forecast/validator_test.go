package forecast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) []Forecast {
	t.Helper()
	var items []Forecast
	require.NoError(t, json.Unmarshal([]byte(body), &items))
	return items
}

func fields(violations []Violation) []string {
	out := make([]string, 0, len(violations))
	for _, v := range violations {
		out = append(out, v.Field)
	}
	return out
}

func TestValidate_AcceptsWellFormed(t *testing.T) {
	items := decode(t, `[
		{"date":"2024-01-01T00:00:00.000","temperatureCelsius":10,"temperatureFahrenheit":50,"summary":"Mild"},
		{"date":"2024-01-02T00:00:00.000","temperatureCelsius":-20,"temperatureFahrenheit":131},
		{"date":"2024-01-03T00:00:00.000","temperatureCelsius":55,"temperatureFahrenheit":-4,"summary":"Fifteen chars!!"}
	]`)

	out, err := Validate(items)
	require.NoError(t, err)
	assert.Equal(t, items, out)
}

func TestValidate_TwoCharacterSummary(t *testing.T) {
	items := decode(t, `[{"date":"2024-01-01T00:00:00.000","temperatureCelsius":10,"temperatureFahrenheit":50,"summary":"ok"}]`)

	_, err := Validate(items)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []Violation{{Field: "summary", Reason: "length must be at least 3 characters"}}, verr.Violations)
}

func TestValidate_RejectsOutOfRangeCelsius(t *testing.T) {
	items := decode(t, `[{"date":"2024-01-01T00:00:00.000","temperatureCelsius":100,"temperatureFahrenheit":40,"summary":"hot"}]`)

	_, err := Validate(items)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"temperatureCelsius"}, fields(verr.Violations))
	assert.Equal(t, "must be less than or equal to 55", verr.Violations[0].Reason)
}

func TestValidate_EachConstraint(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "celsius too low", body: `{"date":"2024-01-01T00:00:00.000","temperatureCelsius":-21,"temperatureFahrenheit":40}`, field: "temperatureCelsius"},
		{name: "fahrenheit too high", body: `{"date":"2024-01-01T00:00:00.000","temperatureCelsius":10,"temperatureFahrenheit":132}`, field: "temperatureFahrenheit"},
		{name: "fahrenheit too low", body: `{"date":"2024-01-01T00:00:00.000","temperatureCelsius":10,"temperatureFahrenheit":-5}`, field: "temperatureFahrenheit"},
		{name: "summary too short", body: `{"date":"2024-01-01T00:00:00.000","temperatureCelsius":10,"temperatureFahrenheit":50,"summary":"ab"}`, field: "summary"},
		{name: "summary empty", body: `{"date":"2024-01-01T00:00:00.000","temperatureCelsius":10,"temperatureFahrenheit":50,"summary":""}`, field: "summary"},
		{name: "summary too long", body: `{"date":"2024-01-01T00:00:00.000","temperatureCelsius":10,"temperatureFahrenheit":50,"summary":"sixteen chars!!!"}`, field: "summary"},
		{name: "date missing", body: `{"temperatureCelsius":10,"temperatureFahrenheit":50}`, field: "date"},
		{name: "celsius missing", body: `{"date":"2024-01-01T00:00:00.000","temperatureFahrenheit":50}`, field: "temperatureCelsius"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(decode(t, "["+tt.body+"]"))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, fields(verr.Violations), tt.field)
		})
	}
}

func TestValidate_CollectsAcrossAllItems(t *testing.T) {
	items := decode(t, `[
		{"date":"2024-01-01T00:00:00.000","temperatureCelsius":100,"temperatureFahrenheit":50},
		{"date":"2024-01-02T00:00:00.000","temperatureCelsius":10,"temperatureFahrenheit":500,"summary":"x"},
		{"date":"2024-01-03T00:00:00.000","temperatureCelsius":99,"temperatureFahrenheit":50}
	]`)

	_, err := Validate(items)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	// the two identical celsius violations collapse into one entry
	assert.Equal(t, []string{"temperatureCelsius", "temperatureFahrenheit", "summary"}, fields(verr.Violations))
	assert.Contains(t, verr.Error(), "3 constraint")
}

func TestValidate_EmptySequence(t *testing.T) {
	out, err := Validate(nil)
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestValidateVar_DivesIntoItems(t *testing.T) {
	items := decode(t, `[
		{"date":"2024-01-01T00:00:00.000","temperatureCelsius":10,"temperatureFahrenheit":50},
		{"temperatureCelsius":10,"temperatureFahrenheit":50}
	]`)

	err := ValidateVar(items, "dive")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"date"}, fields(verr.Violations))

	assert.NoError(t, ValidateVar(items[:1], "dive"))
}
