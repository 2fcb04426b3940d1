package domain

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSpecialization is assigned when a doctor is created without one.
const DefaultSpecialization = "Oftalmología"

// MaxDoctorSearchResults caps the autocomplete result size.
const MaxDoctorSearchResults = 20

// Doctor is an entry in the reference list used for autocomplete. Doctors are
// never removed; deleting one clears IsActive.
type Doctor struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Specialization string             `bson:"specialization" json:"specialization"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	CreationDate   time.Time          `bson:"creationDate" json:"creationDate"`
}

// SampleDoctors are seeded on demand when the reference list is first used.
var SampleDoctors = []Doctor{
	{Name: "Dr. García Hernández", Specialization: DefaultSpecialization, IsActive: true},
	{Name: "Dra. María Rodríguez", Specialization: DefaultSpecialization, IsActive: true},
	{Name: "Dr. Carlos Mendoza", Specialization: DefaultSpecialization, IsActive: true},
	{Name: "Dra. Ana Martínez", Specialization: DefaultSpecialization, IsActive: true},
}

// Normalize trims the name and applies the default specialization.
func (d *Doctor) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Specialization = strings.TrimSpace(d.Specialization)
	if d.Specialization == "" {
		d.Specialization = DefaultSpecialization
	}
}

// Validate returns a *ValidationError listing every problem with d.
func (d *Doctor) Validate() error {
	v := doctorViolations(&d.Name, &d.Specialization)
	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}

// DoctorPatch holds the fields present in a doctor update.
type DoctorPatch struct {
	Name           *string
	Specialization *string
	IsActive       *bool
}

// Normalize trims any string fields present in the patch.
func (p *DoctorPatch) Normalize() {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	if p.Specialization != nil {
		spec := strings.TrimSpace(*p.Specialization)
		p.Specialization = &spec
	}
}

// Validate checks only the fields present in the patch.
func (p *DoctorPatch) Validate() error {
	v := doctorViolations(p.Name, p.Specialization)
	if len(v) > 0 {
		return &ValidationError{Violations: v}
	}
	return nil
}

func doctorViolations(name, specialization *string) []string {
	var v []string
	if name != nil {
		switch {
		case *name == "":
			v = append(v, "doctor name is required")
		case len([]rune(*name)) > MaxNameLength:
			v = append(v, fmt.Sprintf("doctor name cannot exceed %d characters", MaxNameLength))
		}
	}
	if specialization != nil && len([]rune(*specialization)) > MaxSpecializationLength {
		v = append(v, fmt.Sprintf("specialization cannot exceed %d characters", MaxSpecializationLength))
	}
	return v
}
