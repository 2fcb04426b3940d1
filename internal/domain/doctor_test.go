package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDoctor_NormalizeAppliesDefaults(t *testing.T) {
	d := Doctor{Name: "  Dr. Ruiz "}
	d.Normalize()
	assert.Equal(t, "Dr. Ruiz", d.Name)
	assert.Equal(t, DefaultSpecialization, d.Specialization)
	assert.NoError(t, d.Validate())
}

func TestDoctor_Validate(t *testing.T) {
	d := Doctor{Name: strings.Repeat("n", 201), Specialization: strings.Repeat("s", 101)}
	err := d.Validate()
	assert.EqualError(t, err, "validation failed: doctor name cannot exceed 200 characters; specialization cannot exceed 100 characters")

	empty := Doctor{}
	assert.Error(t, empty.Validate())
}

func TestDoctorPatch_ValidatesOnlyPresentFields(t *testing.T) {
	active := false
	assert.NoError(t, (&DoctorPatch{IsActive: &active}).Validate())

	blank := "   "
	p := DoctorPatch{Name: &blank}
	p.Normalize()
	assert.EqualError(t, p.Validate(), "validation failed: doctor name is required")
}
