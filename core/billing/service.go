package billing

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/entitystore"
)

var (
	// errors
	ErrBillNotFound     = errors.New("bill not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrOtherFeeNotFound = errors.New("fee not found")
	ErrOverpayment      = errors.New("amount is greater than the bill balance")
	ErrBillSettled      = errors.New("this bill is already paid")
	ErrBillHasPayments  = errors.New("this bill has payments and cannot be deleted")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

const (
	billPrefix    = "BIL"
	receiptPrefix = "RCP"
)

type Service struct {
	bills     *entitystore.Collection[Bill]
	payments  *entitystore.Collection[Payment]
	otherFees *entitystore.Collection[OtherFee]
	validate  *validator.Validate
}

func NewService(store *entitystore.Store, validate *validator.Validate) *Service {
	return &Service{
		bills:     entitystore.NewCollection[Bill](store, BillCollection),
		payments:  entitystore.NewCollection[Payment](store, PaymentCollection),
		otherFees: entitystore.NewCollection[OtherFee](store, OtherFeeCollection),
		validate:  validate,
	}
}

func mapNotFound(err, notFound error) error {
	if entitystore.IsNotFound(err) {
		return notFound
	}
	return err
}

func takenFunc(numbers map[string]struct{}) func(string) bool {
	return func(n string) bool {
		_, ok := numbers[n]
		return ok
	}
}

// Bills

func (svc *Service) CreateBill(ctx context.Context, nb NewBill) (Bill, error) {
	nb.Clean()
	if err := svc.validate.Struct(nb); err != nil {
		return Bill{}, err
	}

	total := BillTotal(nb.Items)
	now := nowFunc()
	bill, err := svc.bills.CreateWithSeq(ctx, func(seq int, existing []Bill) (Bill, error) {
		taken := make(map[string]struct{}, len(existing))
		for _, b := range existing {
			taken[b.BillNumber] = struct{}{}
		}
		return Bill{
			BillNumber:   core.NextNumber(billPrefix, seq, takenFunc(taken)),
			StudentID:    nb.StudentID,
			ClassID:      nb.ClassID,
			Term:         nb.Term,
			AcademicYear: nb.AcademicYear,
			Items:        nb.Items,
			Total:        total,
			Balance:      total,
			Status:       BillStatus(total, 0),
			DueDate:      nb.DueDate,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, nil
	})
	if err != nil {
		return Bill{}, errors.Wrap(err, "creating bill")
	}
	return bill, nil
}

func (svc *Service) GetBill(ctx context.Context, id string) (Bill, error) {
	b, err := svc.bills.GetByID(ctx, id)
	return b, mapNotFound(err, ErrBillNotFound)
}

func (svc *Service) FilterBills(ctx context.Context, filter QueryFilter, orderings ...core.Ordering) ([]Bill, error) {
	filter.Clean()
	bills, err := svc.bills.Query(ctx, filter.Match)
	if err != nil {
		return nil, err
	}
	if err := entitystore.Sort(bills, orderings); err != nil {
		return nil, err
	}
	return bills, nil
}

func (svc *Service) BillsByStudent(ctx context.Context, studentID string) ([]Bill, error) {
	return svc.bills.Query(ctx, func(b Bill) bool { return b.StudentID == studentID })
}

// DeleteBill refuses to delete a bill that payments were recorded against.
// The payments collection stays locked until the bill is gone, so no payment can
// land on it in between.
func (svc *Service) DeleteBill(ctx context.Context, id string) error {
	return svc.payments.Guard(ctx, func(payments []Payment) error {
		for _, p := range payments {
			if p.BillID == id {
				return core.NewConflictError(ErrBillHasPayments, "id")
			}
		}
		return mapNotFound(svc.bills.Delete(ctx, id), ErrBillNotFound)
	})
}

// Payments

// RecordPayment stores a payment against a bill then refreshes the bill's totals.
// The balance check is made against the payments already stored, under the same lock
// as the insert, so concurrent payments can never add up to more than the bill total.
// Storing the payment and refreshing the bill are two independent store writes: when
// the refresh fails the payment is kept and RefreshBill can be called again to repair the bill.
func (svc *Service) RecordPayment(ctx context.Context, billID string, np NewPayment) (Payment, Bill, error) {
	np.Clean()
	if err := svc.validate.Struct(np); err != nil {
		return Payment{}, Bill{}, err
	}

	now := nowFunc()
	paidAt := now
	if np.PaidAt.Valid {
		paidAt = np.PaidAt.Time.UTC()
	}

	var rejected error
	pmt, err := svc.payments.CreateWithSeq(ctx, func(seq int, existing []Payment) (Payment, error) {
		// payments then bills, the same order as DeleteBill
		bill, err := svc.GetBill(ctx, billID)
		if err != nil {
			rejected = err
			return Payment{}, err
		}

		var paid float64
		taken := make(map[string]struct{}, len(existing))
		for _, p := range existing {
			taken[p.ReceiptNumber] = struct{}{}
			if p.BillID == billID {
				paid += p.Amount
			}
		}
		balance := core.RoundCents(bill.Total - core.RoundCents(paid))
		switch {
		case balance <= 0:
			rejected = core.NewValidationError(ErrBillSettled, core.FieldError{Field: "amount", Error: ErrBillSettled.Error()})
		case np.Amount > balance:
			rejected = core.NewValidationError(ErrOverpayment, core.FieldError{Field: "amount", Error: ErrOverpayment.Error()})
		}
		if rejected != nil {
			return Payment{}, rejected
		}

		return Payment{
			ReceiptNumber: core.NextNumber(receiptPrefix, seq, takenFunc(taken)),
			BillID:        bill.ID,
			StudentID:     bill.StudentID,
			Amount:        np.Amount,
			Method:        np.Method,
			Reference:     np.Reference,
			PaidAt:        paidAt,
			CreatedAt:     now,
		}, nil
	})
	if rejected != nil {
		return Payment{}, Bill{}, rejected
	}
	if err != nil {
		return Payment{}, Bill{}, errors.Wrap(err, "creating payment")
	}

	bill, err := svc.RefreshBill(ctx, billID)
	if err != nil {
		return pmt, Bill{}, errors.Wrapf(err, "payment %s recorded but bill %s not updated", pmt.ReceiptNumber, billID)
	}
	return pmt, bill, nil
}

// RefreshBill recomputes totalPaid, balance and status of a bill from its payments.
func (svc *Service) RefreshBill(ctx context.Context, billID string) (Bill, error) {
	bill, err := svc.GetBill(ctx, billID)
	if err != nil {
		return Bill{}, err
	}
	paid, err := svc.TotalPaid(ctx, billID)
	if err != nil {
		return Bill{}, err
	}
	b, err := svc.bills.Update(ctx, billID, entitystore.Record{
		"totalPaid": paid,
		"balance":   core.RoundCents(bill.Total - paid),
		"status":    BillStatus(bill.Total, paid),
		"updatedAt": nowFunc(),
	})
	return b, mapNotFound(err, ErrBillNotFound)
}

// TotalPaid sums the payments recorded against a bill.
func (svc *Service) TotalPaid(ctx context.Context, billID string) (float64, error) {
	payments, err := svc.PaymentsByBill(ctx, billID)
	if err != nil {
		return 0, err
	}
	var paid float64
	for _, p := range payments {
		paid += p.Amount
	}
	return core.RoundCents(paid), nil
}

func (svc *Service) PaymentsByBill(ctx context.Context, billID string) ([]Payment, error) {
	return svc.payments.Query(ctx, func(p Payment) bool { return p.BillID == billID })
}

func (svc *Service) PaymentsByStudent(ctx context.Context, studentID string) ([]Payment, error) {
	return svc.payments.Query(ctx, func(p Payment) bool { return p.StudentID == studentID })
}

func (svc *Service) GetPaymentByReceipt(ctx context.Context, receipt string) (Payment, error) {
	receipt = core.CleanString(receipt)
	p, found, err := svc.payments.FindOne(ctx, func(p Payment) bool { return p.ReceiptNumber == receipt })
	if err != nil {
		return Payment{}, err
	}
	if !found {
		return Payment{}, ErrPaymentNotFound
	}
	return p, nil
}

// StudentTotals sums a student's bills, payments and unpaid other fees.
func (svc *Service) StudentTotals(ctx context.Context, studentID string) (Totals, error) {
	bills, err := svc.BillsByStudent(ctx, studentID)
	if err != nil {
		return Totals{}, err
	}
	fees, err := svc.otherFees.Query(ctx, func(f OtherFee) bool { return f.StudentID == studentID && !f.Paid })
	if err != nil {
		return Totals{}, err
	}
	var t Totals
	for _, b := range bills {
		t.Billed += b.Total
		t.Paid += b.TotalPaid
	}
	for _, f := range fees {
		t.OtherFees += f.Amount
	}
	t.Billed = core.RoundCents(t.Billed)
	t.Paid = core.RoundCents(t.Paid)
	t.OtherFees = core.RoundCents(t.OtherFees)
	t.Outstanding = core.RoundCents(t.Billed - t.Paid + t.OtherFees)
	return t, nil
}

// StudentBalance is what the student still owes.
func (svc *Service) StudentBalance(ctx context.Context, studentID string) (float64, error) {
	t, err := svc.StudentTotals(ctx, studentID)
	if err != nil {
		return 0, err
	}
	return t.Outstanding, nil
}

// Other fees

func (svc *Service) CreateOtherFee(ctx context.Context, nf NewOtherFee) (OtherFee, error) {
	nf.Clean()
	if err := svc.validate.Struct(nf); err != nil {
		return OtherFee{}, err
	}
	now := nowFunc()
	fee, err := svc.otherFees.Create(ctx, OtherFee{
		StudentID:    nf.StudentID,
		Description:  nf.Description,
		Amount:       nf.Amount,
		Term:         nf.Term,
		AcademicYear: nf.AcademicYear,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return OtherFee{}, errors.Wrap(err, "creating fee")
	}
	return fee, nil
}

func (svc *Service) OtherFees(ctx context.Context, studentID string) ([]OtherFee, error) {
	if studentID = core.CleanString(studentID); studentID == "" {
		return svc.otherFees.GetAll(ctx)
	}
	return svc.otherFees.Query(ctx, func(f OtherFee) bool { return f.StudentID == studentID })
}

func (svc *Service) GetOtherFee(ctx context.Context, id string) (OtherFee, error) {
	f, err := svc.otherFees.GetByID(ctx, id)
	return f, mapNotFound(err, ErrOtherFeeNotFound)
}

func (svc *Service) UpdateOtherFee(ctx context.Context, id string, uf UpdateOtherFee) (OtherFee, error) {
	if err := svc.validate.Struct(uf); err != nil {
		return OtherFee{}, err
	}
	f, err := svc.otherFees.Update(ctx, id, uf.patch(nowFunc()))
	return f, mapNotFound(err, ErrOtherFeeNotFound)
}

func (svc *Service) DeleteOtherFee(ctx context.Context, id string) error {
	return mapNotFound(svc.otherFees.Delete(ctx, id), ErrOtherFeeNotFound)
}
