// Package types holds the shared data structures used across the
// application. Handlers, storage, the API client and the web views all
// import types without depending on each other.
package types

// Gender is the closed set of values accepted for Student.Gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Genders lists every Gender in the order the form renders them.
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

// Student represents a student record.
//
// Struct tags serve two purposes:
//
//  1. json:"...": the wire name used by the REST API. ID is omitted when
//     empty, so a draft that has not been created yet has no id at all.
//
//  2. validate:"...": rules checked by go-playground/validator on the
//     server side. Failing rules are reported per field with a 422.
type Student struct {
	ID         string `json:"id,omitempty"`
	FirstName  string `json:"first_name"  validate:"required"`
	LastName   string `json:"last_name"   validate:"required"`
	Email      string `json:"email"       validate:"required,email"`
	Gender     Gender `json:"gender"      validate:"required,oneof=male female other"`
	Country    string `json:"country"     validate:"required"`
	Avatar     string `json:"avatar"`
	BTCAddress string `json:"btc_address" validate:"required"`
}

// NewDraft returns the blank record the add form starts from.
func NewDraft() Student {
	return Student{Gender: GenderOther}
}

// IsDraft reports whether s has not been assigned an id yet.
func (s Student) IsDraft() bool {
	return s.ID == ""
}
