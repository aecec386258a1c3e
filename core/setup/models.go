package setup

import (
	"strings"
	"time"

	"github.com/trezcool/shule/core"
)

const (
	ClassCollection    = "classes"
	SubjectCollection  = "subjects"
	BillItemCollection = "billItems"
)

type Class struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Level     int       `json:"level"`
	TeacherID string    `json:"teacherId"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

type NewClass struct {
	Name      string `json:"name" validate:"required,notblank"`
	Code      string `json:"code" validate:"required,alphanum_"`
	Level     int    `json:"level" validate:"gte=0"`
	TeacherID string `json:"teacherId"`
}

func (nc *NewClass) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Code = cleanCode(nc.Code)
	nc.TeacherID = core.CleanString(nc.TeacherID)
}

type Subject struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	ClassIDs  []string  `json:"classIds"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

type NewSubject struct {
	Name     string   `json:"name" validate:"required,notblank"`
	Code     string   `json:"code" validate:"required,alphanum_"`
	ClassIDs []string `json:"classIds"`
}

func (ns *NewSubject) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = cleanCode(ns.Code)
	if ns.ClassIDs == nil {
		ns.ClassIDs = []string{}
	}
}

// BillItem is a billable line (tuition, transport...) offered to classes.
type BillItem struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	ClassIDs  []string  `json:"classIds"`
	Mandatory bool      `json:"mandatory"`
	CreatedAt time.Time `json:"createdAt"` // UTC
	UpdatedAt time.Time `json:"updatedAt"` // UTC
}

type NewBillItem struct {
	Name      string   `json:"name" validate:"required,notblank"`
	Amount    float64  `json:"amount" validate:"gt=0"`
	ClassIDs  []string `json:"classIds"`
	Mandatory bool     `json:"mandatory"`
}

func (nb *NewBillItem) Clean() {
	nb.Name = core.CleanString(nb.Name)
	nb.Amount = core.RoundCents(nb.Amount)
	if nb.ClassIDs == nil {
		nb.ClassIDs = []string{}
	}
}

// UpdateItem holds the fields shared by class, subject and bill item updates.
// nil fields are left untouched.
type UpdateItem struct {
	Name      *string  `json:"name" validate:"omitnil,notblank"`
	Code      *string  `json:"code" validate:"omitnil,alphanum_"`
	Level     *int     `json:"level" validate:"omitnil,gte=0"`
	TeacherID *string  `json:"teacherId"`
	Amount    *float64 `json:"amount" validate:"omitnil,gt=0"`
	Mandatory *bool    `json:"mandatory"`
	ClassIDs  []string `json:"classIds"`
}

func (ui *UpdateItem) Clean() {
	if ui.Name != nil {
		*ui.Name = core.CleanString(*ui.Name)
	}
	if ui.Code != nil {
		*ui.Code = cleanCode(*ui.Code)
	}
	if ui.Amount != nil {
		*ui.Amount = core.RoundCents(*ui.Amount)
	}
}

func (ui UpdateItem) patch(now time.Time) map[string]interface{} {
	p := map[string]interface{}{"updatedAt": now}
	if ui.Name != nil {
		p["name"] = *ui.Name
	}
	if ui.Code != nil {
		p["code"] = *ui.Code
	}
	if ui.Level != nil {
		p["level"] = *ui.Level
	}
	if ui.TeacherID != nil {
		p["teacherId"] = *ui.TeacherID
	}
	if ui.Amount != nil {
		p["amount"] = *ui.Amount
	}
	if ui.Mandatory != nil {
		p["mandatory"] = *ui.Mandatory
	}
	if ui.ClassIDs != nil {
		p["classIds"] = ui.ClassIDs
	}
	return p
}

// codes are compared case-insensitively and stored upper-cased.
func cleanCode(code string) string {
	return strings.ToUpper(core.CleanString(code))
}
