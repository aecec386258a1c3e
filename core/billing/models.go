package billing

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

const (
	BillCollection     = "bills"
	PaymentCollection  = "payments"
	OtherFeeCollection = "otherFees"
)

// Bill statuses
const (
	StatusPending = "pending"
	StatusPartial = "partial"
	StatusPaid    = "paid"
)

// Payment methods
const (
	MethodCash        = "cash"
	MethodMobileMoney = "mobile_money"
	MethodBank        = "bank"
	MethodCheque      = "cheque"
)

var AllMethods = []string{MethodCash, MethodMobileMoney, MethodBank, MethodCheque}

type BillLine struct {
	BillItemID string  `json:"billItemId"`
	Name       string  `json:"name" validate:"required,notblank"`
	Amount     float64 `json:"amount" validate:"gte=0"`
}

type Bill struct {
	ID           string     `json:"id,omitempty"`
	BillNumber   string     `json:"billNumber"`
	StudentID    string     `json:"studentId"`
	ClassID      string     `json:"classId"`
	Term         string     `json:"term"`
	AcademicYear string     `json:"academicYear"`
	Items        []BillLine `json:"items"`
	Total        float64    `json:"total"`
	TotalPaid    float64    `json:"totalPaid"`
	Balance      float64    `json:"balance"`
	Status       string     `json:"status"`
	DueDate      null.Time  `json:"dueDate"`
	CreatedAt    time.Time  `json:"createdAt"` // UTC
	UpdatedAt    time.Time  `json:"updatedAt"` // UTC
}

type NewBill struct {
	StudentID    string     `json:"studentId" validate:"required"`
	ClassID      string     `json:"classId"`
	Term         string     `json:"term" validate:"required,notblank"`
	AcademicYear string     `json:"academicYear" validate:"required,notblank"`
	Items        []BillLine `json:"items" validate:"required,min=1,dive"`
	DueDate      null.Time  `json:"dueDate"`
}

func (nb *NewBill) Clean() {
	nb.StudentID = core.CleanString(nb.StudentID)
	nb.ClassID = core.CleanString(nb.ClassID)
	nb.Term = core.CleanString(nb.Term)
	nb.AcademicYear = core.CleanString(nb.AcademicYear)
	for i := range nb.Items {
		nb.Items[i].Name = core.CleanString(nb.Items[i].Name)
	}
}

// BillTotal sums the line amounts, rounded to cents.
func BillTotal(items []BillLine) float64 {
	var total float64
	for _, it := range items {
		total += it.Amount
	}
	return core.RoundCents(total)
}

// BillStatus derives the status of a bill from what has been paid against it.
func BillStatus(total, totalPaid float64) string {
	switch {
	case totalPaid <= 0:
		return StatusPending
	case totalPaid < total:
		return StatusPartial
	default:
		return StatusPaid
	}
}

type Payment struct {
	ID            string    `json:"id,omitempty"`
	ReceiptNumber string    `json:"receiptNumber"`
	BillID        string    `json:"billId"`
	StudentID     string    `json:"studentId"`
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	Reference     string    `json:"reference"`
	PaidAt        time.Time `json:"paidAt"`    // UTC
	CreatedAt     time.Time `json:"createdAt"` // UTC
}

type NewPayment struct {
	Amount    float64   `json:"amount" validate:"gt=0"`
	Method    string    `json:"method" validate:"required,paymentmethod"`
	Reference string    `json:"reference"`
	PaidAt    null.Time `json:"paidAt"`
}

func (np *NewPayment) Clean() {
	np.Amount = core.RoundCents(np.Amount)
	np.Method = core.CleanString(np.Method, true /* lower */)
	np.Reference = core.CleanString(np.Reference)
}

// OtherFee is a one-off charge (uniform, trip...) outside the termly bill.
type OtherFee struct {
	ID           string    `json:"id,omitempty"`
	StudentID    string    `json:"studentId"`
	Description  string    `json:"description"`
	Amount       float64   `json:"amount"`
	Term         string    `json:"term"`
	AcademicYear string    `json:"academicYear"`
	Paid         bool      `json:"paid"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
}

type NewOtherFee struct {
	StudentID    string  `json:"studentId" validate:"required"`
	Description  string  `json:"description" validate:"required,notblank"`
	Amount       float64 `json:"amount" validate:"gt=0"`
	Term         string  `json:"term"`
	AcademicYear string  `json:"academicYear"`
}

func (nf *NewOtherFee) Clean() {
	nf.StudentID = core.CleanString(nf.StudentID)
	nf.Description = core.CleanString(nf.Description)
	nf.Amount = core.RoundCents(nf.Amount)
	nf.Term = core.CleanString(nf.Term)
	nf.AcademicYear = core.CleanString(nf.AcademicYear)
}

type UpdateOtherFee struct {
	Description *string  `json:"description" validate:"omitnil,notblank"`
	Amount      *float64 `json:"amount" validate:"omitnil,gt=0"`
	Paid        *bool    `json:"paid"`
}

func (uf UpdateOtherFee) patch(now time.Time) map[string]interface{} {
	p := map[string]interface{}{"updatedAt": now}
	if uf.Description != nil {
		p["description"] = core.CleanString(*uf.Description)
	}
	if uf.Amount != nil {
		p["amount"] = core.RoundCents(*uf.Amount)
	}
	if uf.Paid != nil {
		p["paid"] = *uf.Paid
	}
	return p
}

type QueryFilter struct {
	StudentID    string `query:"student_id"`
	Term         string `query:"term"`
	AcademicYear string `query:"academic_year"`
	Status       string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.Term = core.CleanString(qf.Term)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

func (qf QueryFilter) Match(b Bill) bool {
	if qf.StudentID != "" && b.StudentID != qf.StudentID {
		return false
	}
	if qf.Term != "" && b.Term != qf.Term {
		return false
	}
	if qf.AcademicYear != "" && b.AcademicYear != qf.AcademicYear {
		return false
	}
	if qf.Status != "" && b.Status != qf.Status {
		return false
	}
	return true
}

// Totals summarises the bills of a student (or of the whole school).
type Totals struct {
	Billed      float64 `json:"billed"`
	Paid        float64 `json:"paid"`
	OtherFees   float64 `json:"otherFees"`
	Outstanding float64 `json:"outstanding"`
}
