package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfigueroa/tank-compliance/internal/types"
)

func TestValidateTankRecords(t *testing.T) {
	tanks := []*types.Tank{
		{
			ID:            "tank-001",
			Name:          "North depot",
			VolumeGallons: types.Float64Ptr(50000),
			VolumeSource:  types.VolumeProvided,
			Coordinates:   &types.Coordinates{Latitude: 18.44, Longitude: -66.14},
		},
		{
			ID:           "tank-002",
			VolumeSource: types.VolumeUnresolved,
		},
	}
	assert.NoError(t, ValidateTankRecords(tanks))
}

func TestValidateTankRecordsViolations(t *testing.T) {
	tests := []struct {
		name  string
		tank  *types.Tank
		field string
	}{
		{
			name:  "missing id",
			tank:  &types.Tank{VolumeSource: types.VolumeProvided},
			field: "id",
		},
		{
			name: "bogus volume source",
			tank: &types.Tank{
				ID:           "tank-001",
				VolumeSource: types.VolumeSource("guessed"),
			},
			field: "volume_source",
		},
		{
			name: "latitude out of range",
			tank: &types.Tank{
				ID:           "tank-001",
				VolumeSource: types.VolumeProvided,
				Coordinates:  &types.Coordinates{Latitude: 181, Longitude: -66},
			},
			field: "latitude",
		},
		{
			name: "negative volume",
			tank: &types.Tank{
				ID:            "tank-001",
				VolumeGallons: types.Float64Ptr(-10),
				VolumeSource:  types.VolumeProvided,
			},
			field: "volume_gallons",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTankRecords([]*types.Tank{tt.tank})
			require.Error(t, err)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			require.NotEmpty(t, ve.Errors)

			found := false
			for _, fe := range ve.Errors {
				if assert.ObjectsAreEqual(tt.field, fe.Field) ||
					len(fe.Field) >= len(tt.field) && fe.Field[len(fe.Field)-len(tt.field):] == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected a violation on field %q, got %v", tt.field, ve.Errors)
		})
	}
}

func TestValidateJSONStringSchemaLoadError(t *testing.T) {
	err := ValidateJSONString(`{"type": "nonsense"}`, `{}`)
	require.Error(t, err)

	var sle *SchemaLoadError
	assert.True(t, errors.As(err, &sle))
}

func TestValidationErrorMessage(t *testing.T) {
	ve := &ValidationError{Errors: []FieldError{
		{Field: "0.id", Message: "String length must be greater than or equal to 1"},
	}}
	assert.Contains(t, ve.Error(), "0.id")
	assert.Contains(t, ve.Error(), "validation failed")
}
