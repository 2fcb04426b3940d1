package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TreatmentType identifies which eye(s) receive photobiomodulation.
type TreatmentType string

const (
	TreatmentRightEye TreatmentType = "right-eye"
	TreatmentLeftEye  TreatmentType = "left-eye"
	TreatmentBothEyes TreatmentType = "both-eyes"

	// Legacy values written by the first Spanish-only version of the form.
	// They still validate so old records can be updated.
	TreatmentOjoDerecho   TreatmentType = "ojo-derecho"
	TreatmentOjoIzquierdo TreatmentType = "ojo-izquierdo"
	TreatmentAmbosOjos    TreatmentType = "ambos-ojos"
)

// TreatmentTypes lists every accepted value, in display order.
var TreatmentTypes = []TreatmentType{
	TreatmentRightEye, TreatmentLeftEye, TreatmentBothEyes,
	TreatmentOjoDerecho, TreatmentOjoIzquierdo, TreatmentAmbosOjos,
}

// IsValid reports whether t is an accepted treatment type. Matching is exact
// and case-sensitive.
func (t TreatmentType) IsValid() bool {
	switch t {
	case TreatmentRightEye, TreatmentLeftEye, TreatmentBothEyes,
		TreatmentOjoDerecho, TreatmentOjoIzquierdo, TreatmentAmbosOjos:
		return true
	}
	return false
}

const (
	DefaultSessionCount = 9
	MaxSessions         = 20
	MinSessionNumber    = 1
	MaxSessionNumber    = 20

	MaxNameLength           = 200
	MaxTechnicianLength     = 100
	MaxIndicationsLength    = 1000
	MaxSpecializationLength = 100
	MinAge                  = 0
	MaxAge                  = 150
)

// EarliestSessionDate is the lower bound for a recorded session date.
var EarliestSessionDate = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

var sessionTimePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Patient is embedded in a Treatment and has no identity of its own.
type Patient struct {
	Name      string    `bson:"name" json:"name"`
	Age       int       `bson:"age" json:"age"`
	BirthDate time.Time `bson:"birthDate" json:"birthDate"`
}

// DoctorRef is the doctor-of-record snapshot taken when the treatment was
// created. It is not kept in sync with the doctors collection.
type DoctorRef struct {
	Name string `bson:"name" json:"name"`
}

// Session is one scheduled visit. A session with no date, technician or time
// has not been performed yet.
type Session struct {
	SessionNumber int        `bson:"sessionNumber" json:"sessionNumber"`
	Date          *time.Time `bson:"date,omitempty" json:"date,omitempty"`
	Technician    string     `bson:"technician" json:"technician"`
	Time          string     `bson:"time" json:"time"`
}

// Completed reports whether the session has a date. Only dated sessions
// count towards statistics.
func (s Session) Completed() bool {
	return s.Date != nil
}

// Treatment is the persisted aggregate for one patient's course of therapy.
type Treatment struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Patient               Patient            `bson:"patient" json:"patient"`
	Doctor                DoctorRef          `bson:"doctor" json:"doctor"`
	TreatmentType         TreatmentType      `bson:"treatmentType" json:"treatmentType"`
	Sessions              []Session          `bson:"sessions" json:"sessions"`
	AdditionalIndications string             `bson:"additionalIndications" json:"additionalIndications"`
	CreationDate          time.Time          `bson:"creationDate" json:"creationDate"`
	LastModified          time.Time          `bson:"lastModified" json:"lastModified"`
}

// DefaultSessions returns the nine empty sessions every new treatment starts with.
func DefaultSessions() []Session {
	sessions := make([]Session, DefaultSessionCount)
	for i := range sessions {
		sessions[i] = Session{SessionNumber: i + 1}
	}
	return sessions
}

// AgeAt returns the age in whole years of someone born on birthDate, as of now.
func AgeAt(birthDate, now time.Time) int {
	age := now.Year() - birthDate.Year()
	if now.Month() < birthDate.Month() ||
		(now.Month() == birthDate.Month() && now.Day() < birthDate.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// Normalize trims free-text fields and fills in default sessions. The
// treatment type is an exact match and is left untouched.
func (t *Treatment) Normalize() {
	t.Patient.Name = strings.TrimSpace(t.Patient.Name)
	t.Doctor.Name = strings.TrimSpace(t.Doctor.Name)
	t.AdditionalIndications = strings.TrimSpace(t.AdditionalIndications)
	if len(t.Sessions) == 0 {
		t.Sessions = DefaultSessions()
	}
	for i := range t.Sessions {
		t.Sessions[i].Technician = strings.TrimSpace(t.Sessions[i].Technician)
		t.Sessions[i].Time = strings.TrimSpace(t.Sessions[i].Time)
	}
}

// Validate checks every field and returns all violations found, or nil.
func (t *Treatment) Validate(now time.Time) error {
	var v []string
	v = append(v, t.Patient.violations(now)...)

	switch {
	case t.Doctor.Name == "":
		v = append(v, "doctor name is required")
	case len([]rune(t.Doctor.Name)) > MaxNameLength:
		v = append(v, fmt.Sprintf("doctor name cannot exceed %d characters", MaxNameLength))
	}

	switch {
	case t.TreatmentType == "":
		v = append(v, "treatment type is required")
	case !t.TreatmentType.IsValid():
		v = append(v, fmt.Sprintf("treatment type %q is not one of %s", t.TreatmentType, joinTypes()))
	}

	if len(t.Sessions) > MaxSessions {
		v = append(v, fmt.Sprintf("cannot have more than %d sessions", MaxSessions))
	}
	for i, s := range t.Sessions {
		for _, msg := range s.violations() {
			v = append(v, fmt.Sprintf("session %d: %s", i+1, msg))
		}
	}

	if len([]rune(t.AdditionalIndications)) > MaxIndicationsLength {
		v = append(v, fmt.Sprintf("additional indications cannot exceed %d characters", MaxIndicationsLength))
	}

	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}

func (p Patient) violations(now time.Time) []string {
	var v []string
	switch {
	case p.Name == "":
		v = append(v, "patient name is required")
	case len([]rune(p.Name)) > MaxNameLength:
		v = append(v, fmt.Sprintf("patient name cannot exceed %d characters", MaxNameLength))
	}
	if p.Age < MinAge || p.Age > MaxAge {
		v = append(v, fmt.Sprintf("patient age must be between %d and %d", MinAge, MaxAge))
	}
	switch {
	case p.BirthDate.IsZero():
		v = append(v, "patient birth date is required")
	case p.BirthDate.After(now):
		v = append(v, "patient birth date cannot be in the future")
	}
	return v
}

func (s Session) violations() []string {
	var v []string
	if s.SessionNumber < MinSessionNumber || s.SessionNumber > MaxSessionNumber {
		v = append(v, fmt.Sprintf("session number must be between %d and %d", MinSessionNumber, MaxSessionNumber))
	}
	if s.Date != nil && s.Date.Before(EarliestSessionDate) {
		v = append(v, "date must be on or after 2020-01-01")
	}
	if len([]rune(s.Technician)) > MaxTechnicianLength {
		v = append(v, fmt.Sprintf("technician name cannot exceed %d characters", MaxTechnicianLength))
	}
	if s.Time != "" && !sessionTimePattern.MatchString(s.Time) {
		v = append(v, "time must be in HH:MM format")
	}
	return v
}

// ValidSessionTime reports whether value is empty or a 24-hour HH:MM time.
func ValidSessionTime(value string) bool {
	return value == "" || sessionTimePattern.MatchString(value)
}

func joinTypes() string {
	names := make([]string, len(TreatmentTypes))
	for i, t := range TreatmentTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// PatientPatch carries the patient fields present in an update request.
type PatientPatch struct {
	Name      *string
	Age       *int
	BirthDate *time.Time
}

// TreatmentPatch carries the top-level fields present in an update request.
// Nil fields keep their stored value. CreationDate is deliberately absent.
type TreatmentPatch struct {
	Patient               *PatientPatch
	Doctor                *DoctorRef
	TreatmentType         *TreatmentType
	Sessions              []Session
	SessionsSet           bool
	AdditionalIndications *string
}

// Apply merges the patch into t.
func (p TreatmentPatch) Apply(t *Treatment) {
	if p.Patient != nil {
		if p.Patient.Name != nil {
			t.Patient.Name = *p.Patient.Name
		}
		if p.Patient.Age != nil {
			t.Patient.Age = *p.Patient.Age
		}
		if p.Patient.BirthDate != nil {
			t.Patient.BirthDate = *p.Patient.BirthDate
		}
	}
	if p.Doctor != nil {
		t.Doctor = *p.Doctor
	}
	if p.TreatmentType != nil {
		t.TreatmentType = *p.TreatmentType
	}
	if p.SessionsSet {
		t.Sessions = append([]Session(nil), p.Sessions...)
	}
	if p.AdditionalIndications != nil {
		t.AdditionalIndications = *p.AdditionalIndications
	}
}

// Merge combines two patches; fields set in next win over p.
func (p TreatmentPatch) Merge(next TreatmentPatch) TreatmentPatch {
	out := p
	if next.Patient != nil {
		merged := PatientPatch{}
		if p.Patient != nil {
			merged = *p.Patient
		}
		if next.Patient.Name != nil {
			merged.Name = next.Patient.Name
		}
		if next.Patient.Age != nil {
			merged.Age = next.Patient.Age
		}
		if next.Patient.BirthDate != nil {
			merged.BirthDate = next.Patient.BirthDate
		}
		out.Patient = &merged
	}
	if next.Doctor != nil {
		out.Doctor = next.Doctor
	}
	if next.TreatmentType != nil {
		out.TreatmentType = next.TreatmentType
	}
	if next.SessionsSet {
		out.Sessions = next.Sessions
		out.SessionsSet = true
	}
	if next.AdditionalIndications != nil {
		out.AdditionalIndications = next.AdditionalIndications
	}
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (p TreatmentPatch) IsEmpty() bool {
	return p.Patient == nil && p.Doctor == nil && p.TreatmentType == nil &&
		!p.SessionsSet && p.AdditionalIndications == nil
}
