package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func validTreatment() Treatment {
	return Treatment{
		Patient: Patient{
			Name:      "Ana Gómez",
			Age:       45,
			BirthDate: time.Date(1979, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		Doctor:        DoctorRef{Name: "Dr. Ruiz"},
		TreatmentType: TreatmentBothEyes,
	}
}

func violationsOf(t *testing.T, err error) []string {
	t.Helper()
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr), "expected *ValidationError, got %v", err)
	return vErr.Violations
}

func TestDefaultSessions(t *testing.T) {
	sessions := DefaultSessions()
	require.Len(t, sessions, 9)
	for i, s := range sessions {
		assert.Equal(t, i+1, s.SessionNumber)
		assert.Nil(t, s.Date)
		assert.Empty(t, s.Technician)
		assert.Empty(t, s.Time)
	}
}

func TestNormalize_FillsSessionsAndTrims(t *testing.T) {
	tr := validTreatment()
	tr.Patient.Name = "  Ana Gómez  "
	tr.Doctor.Name = "\tDr. Ruiz "
	tr.Normalize()

	assert.Equal(t, "Ana Gómez", tr.Patient.Name)
	assert.Equal(t, "Dr. Ruiz", tr.Doctor.Name)
	require.Len(t, tr.Sessions, 9)
	assert.Equal(t, 1, tr.Sessions[0].SessionNumber)
}

func TestNormalize_KeepsSuppliedSessions(t *testing.T) {
	tr := validTreatment()
	tr.Sessions = []Session{{SessionNumber: 3, Technician: " Mayra Ruiz ", Time: "09:30"}}
	tr.Normalize()

	require.Len(t, tr.Sessions, 1)
	assert.Equal(t, "Mayra Ruiz", tr.Sessions[0].Technician)
}

func TestValidate_AcceptsValidTreatment(t *testing.T) {
	tr := validTreatment()
	tr.Normalize()
	assert.NoError(t, tr.Validate(testNow))
}

func TestTreatmentType_AcceptedValues(t *testing.T) {
	for _, tt := range []string{"right-eye", "left-eye", "both-eyes", "ojo-derecho", "ojo-izquierdo", "ambos-ojos"} {
		assert.True(t, TreatmentType(tt).IsValid(), tt)
	}
	for _, tt := range []string{"", "Right-Eye", "both", "ambos_ojos", "left-eye "} {
		assert.False(t, TreatmentType(tt).IsValid(), tt)
	}
}

func TestValidate_RejectsUnknownTreatmentType(t *testing.T) {
	tr := validTreatment()
	tr.TreatmentType = "BOTH-EYES"
	tr.Normalize()

	v := violationsOf(t, tr.Validate(testNow))
	require.Len(t, v, 1)
	assert.Contains(t, v[0], "treatment type")
}

func TestValidate_TreatmentTypeIsExactMatch(t *testing.T) {
	tr := validTreatment()
	tr.TreatmentType = " both-eyes "
	tr.Normalize()

	assert.Equal(t, TreatmentType(" both-eyes "), tr.TreatmentType)
	v := violationsOf(t, tr.Validate(testNow))
	require.Len(t, v, 1)
	assert.Contains(t, v[0], "treatment type")
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	future := testNow.Add(24 * time.Hour)
	early := time.Date(2019, time.December, 31, 0, 0, 0, 0, time.UTC)
	tr := Treatment{
		Patient:               Patient{Age: 151, BirthDate: future},
		Sessions:              []Session{{SessionNumber: 0, Date: &early, Time: "25:00", Technician: strings.Repeat("x", 101)}},
		AdditionalIndications: strings.Repeat("a", 1001),
	}

	v := violationsOf(t, tr.Validate(testNow))
	joined := strings.Join(v, "\n")
	for _, want := range []string{
		"patient name is required",
		"patient age must be between 0 and 150",
		"birth date cannot be in the future",
		"doctor name is required",
		"treatment type is required",
		"session 1: session number must be between 1 and 20",
		"session 1: date must be on or after 2020-01-01",
		"session 1: technician name cannot exceed 100 characters",
		"session 1: time must be in HH:MM format",
		"additional indications cannot exceed 1000 characters",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestValidate_SessionLimit(t *testing.T) {
	tr := validTreatment()
	for i := 1; i <= 21; i++ {
		tr.Sessions = append(tr.Sessions, Session{SessionNumber: (i-1)%20 + 1})
	}
	v := violationsOf(t, tr.Validate(testNow))
	assert.Equal(t, []string{"cannot have more than 20 sessions"}, v)
}

func TestValidSessionTime(t *testing.T) {
	for _, ok := range []string{"", "00:00", "9:05", "09:05", "23:59"} {
		assert.True(t, ValidSessionTime(ok), ok)
	}
	for _, bad := range []string{"24:00", "12:60", "1230", "12:3", "noon"} {
		assert.False(t, ValidSessionTime(bad), bad)
	}
}

func TestAgeAt(t *testing.T) {
	birth := time.Date(1979, time.June, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 44, AgeAt(birth, testNow))
	assert.Equal(t, 45, AgeAt(birth, testNow.AddDate(0, 0, 1)))
	assert.Equal(t, 0, AgeAt(testNow.AddDate(1, 0, 0), testNow))
}

func TestTreatmentPatch_Apply(t *testing.T) {
	tr := validTreatment()
	tr.Normalize()
	name := "Ana G. Gómez"
	notes := "Revisión en 3 meses"
	sessionDate := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

	TreatmentPatch{
		Patient:               &PatientPatch{Name: &name},
		Sessions:              []Session{{SessionNumber: 1, Date: &sessionDate, Technician: "Mario Rodriguez", Time: "10:00"}},
		SessionsSet:           true,
		AdditionalIndications: &notes,
	}.Apply(&tr)

	assert.Equal(t, name, tr.Patient.Name)
	assert.Equal(t, 45, tr.Patient.Age)
	assert.Equal(t, "Dr. Ruiz", tr.Doctor.Name)
	require.Len(t, tr.Sessions, 1)
	assert.Equal(t, notes, tr.AdditionalIndications)
}

func TestTreatmentPatch_MergeLaterWins(t *testing.T) {
	first, second := "first", "second"
	age := 50
	merged := TreatmentPatch{Patient: &PatientPatch{Name: &first}, AdditionalIndications: &first}.
		Merge(TreatmentPatch{Patient: &PatientPatch{Age: &age}, AdditionalIndications: &second})

	require.NotNil(t, merged.Patient)
	assert.Equal(t, "first", *merged.Patient.Name)
	assert.Equal(t, 50, *merged.Patient.Age)
	assert.Equal(t, "second", *merged.AdditionalIndications)
	assert.False(t, merged.IsEmpty())
	assert.True(t, TreatmentPatch{}.IsEmpty())
}
