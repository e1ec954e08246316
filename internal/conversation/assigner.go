package conversation

import "unicode/utf8"

// Assigner picks the doctor and location for a patient.
type Assigner interface {
	Assign(name, dob string) (doctor, location string)
}

var (
	DefaultDoctors   = []string{"Dr. Smith", "Dr. Johnson", "Dr. Lee"}
	DefaultLocations = []string{"Main Clinic", "Downtown Office", "Uptown Branch"}
)

// LengthAssigner indexes the doctor list by the character count of the
// name and the location list by the character count of the dob.
type LengthAssigner struct {
	Doctors   []string
	Locations []string
}

// NewLengthAssigner falls back to the default lists when either is empty.
func NewLengthAssigner(doctors, locations []string) LengthAssigner {
	if len(doctors) == 0 {
		doctors = DefaultDoctors
	}
	if len(locations) == 0 {
		locations = DefaultLocations
	}
	return LengthAssigner{Doctors: doctors, Locations: locations}
}

func (a LengthAssigner) Assign(name, dob string) (string, string) {
	doctor := a.Doctors[utf8.RuneCountInString(name)%len(a.Doctors)]
	location := a.Locations[utf8.RuneCountInString(dob)%len(a.Locations)]
	return doctor, location
}
