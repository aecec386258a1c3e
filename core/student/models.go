package student

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

const Collection = "students"

// Statuses
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusGraduated = "graduated"
	StatusWithdrawn = "withdrawn"
)

var AllStatuses = []string{StatusActive, StatusInactive, StatusGraduated, StatusWithdrawn}

type Student struct {
	ID              string    `json:"id,omitempty"`
	AdmissionNumber string    `json:"admissionNumber"`
	FirstName       string    `json:"firstName"`
	Surname         string    `json:"surname"`
	OtherNames      string    `json:"otherNames"`
	Gender          string    `json:"gender"`
	DateOfBirth     null.Time `json:"dateOfBirth"`
	ClassID         string    `json:"classId"`
	GuardianName    string    `json:"guardianName"`
	GuardianPhone   string    `json:"guardianPhone"`
	GuardianEmail   string    `json:"guardianEmail"`
	Address         string    `json:"address"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"` // UTC
	UpdatedAt       time.Time `json:"updatedAt"` // UTC
}

func (s Student) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.FirstName, s.OtherNames, s.Surname} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func (s Student) IsActive() bool { return s.Status == StatusActive }

// NewStudent contains information needed to admit a new Student.
type NewStudent struct {
	FirstName     string    `json:"firstName" validate:"required,notblank"`
	Surname       string    `json:"surname" validate:"required,notblank"`
	OtherNames    string    `json:"otherNames"`
	Gender        string    `json:"gender" validate:"required,oneof=male female"`
	DateOfBirth   null.Time `json:"dateOfBirth"`
	ClassID       string    `json:"classId"`
	GuardianName  string    `json:"guardianName"`
	GuardianPhone string    `json:"guardianPhone" validate:"omitempty,phone"`
	GuardianEmail string    `json:"guardianEmail" validate:"omitempty,email"`
	Address       string    `json:"address"`
}

func (ns *NewStudent) Clean() {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.Surname = core.CleanString(ns.Surname)
	ns.OtherNames = core.CleanString(ns.OtherNames)
	ns.Gender = core.CleanString(ns.Gender, true /* lower */)
	ns.GuardianName = core.CleanString(ns.GuardianName)
	ns.GuardianPhone = core.CleanString(ns.GuardianPhone)
	ns.GuardianEmail = core.CleanString(ns.GuardianEmail, true /* lower */)
	ns.Address = core.CleanString(ns.Address)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// nil fields are left untouched.
type UpdateStudent struct {
	FirstName     *string    `json:"firstName" validate:"omitnil,notblank"`
	Surname       *string    `json:"surname" validate:"omitnil,notblank"`
	OtherNames    *string    `json:"otherNames"`
	Gender        *string    `json:"gender" validate:"omitempty,oneof=male female"`
	DateOfBirth   *null.Time `json:"dateOfBirth"`
	ClassID       *string    `json:"classId"`
	GuardianName  *string    `json:"guardianName"`
	GuardianPhone *string    `json:"guardianPhone" validate:"omitempty,phone"`
	GuardianEmail *string    `json:"guardianEmail" validate:"omitempty,email"`
	Address       *string    `json:"address"`
	Status        *string    `json:"status" validate:"omitempty,studentstatus"`
}

func cleanPtr(s *string, lower ...bool) {
	if s != nil {
		*s = core.CleanString(*s, lower...)
	}
}

func (us *UpdateStudent) Clean() {
	cleanPtr(us.FirstName)
	cleanPtr(us.Surname)
	cleanPtr(us.OtherNames)
	cleanPtr(us.Gender, true /* lower */)
	cleanPtr(us.GuardianName)
	cleanPtr(us.GuardianPhone)
	cleanPtr(us.GuardianEmail, true /* lower */)
	cleanPtr(us.Address)
	cleanPtr(us.Status, true /* lower */)
}

// patch returns the store fields to merge; only set fields are included.
func (us UpdateStudent) patch(now time.Time) map[string]interface{} {
	p := map[string]interface{}{"updatedAt": now}
	set := func(key string, v *string) {
		if v != nil {
			p[key] = *v
		}
	}
	set("firstName", us.FirstName)
	set("surname", us.Surname)
	set("otherNames", us.OtherNames)
	set("gender", us.Gender)
	set("classId", us.ClassID)
	set("guardianName", us.GuardianName)
	set("guardianPhone", us.GuardianPhone)
	set("guardianEmail", us.GuardianEmail)
	set("address", us.Address)
	set("status", us.Status)
	if us.DateOfBirth != nil {
		p["dateOfBirth"] = *us.DateOfBirth
	}
	return p
}

type QueryFilter struct {
	Search  string `query:"search"`
	ClassID string `query:"class_id"`
	Status  string `query:"status"`
	Gender  string `query:"gender"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Gender = core.CleanString(qf.Gender, true /* lower */)
}

func (qf QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.ClassID == "" && qf.Status == "" && qf.Gender == ""
}

// Match applies AND on the set filter fields.
// Search does a case-insensitive match on any of the names or the admission number.
func (qf QueryFilter) Match(s Student) bool {
	if qf.Search != "" {
		hit := false
		for _, v := range []string{s.FirstName, s.Surname, s.OtherNames, s.AdmissionNumber} {
			if strings.Contains(strings.ToLower(v), qf.Search) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if qf.ClassID != "" && s.ClassID != qf.ClassID {
		return false
	}
	if qf.Status != "" && s.Status != qf.Status {
		return false
	}
	if qf.Gender != "" && s.Gender != qf.Gender {
		return false
	}
	return true
}
