package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	testutil "github.com/trezcool/shule/tests"
)

var testNow = time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	nowFunc = func() time.Time { return testNow }
	t.Cleanup(func() { nowFunc = func() time.Time { return time.Now().UTC() } })

	validate, _ := testutil.NewValidator(InitValidators)
	return NewService(testutil.NewStore(t), validate)
}

func newBill(studentID string, amounts ...float64) NewBill {
	nb := NewBill{StudentID: studentID, ClassID: "1", Term: "1", AcademicYear: "2024/2025"}
	for _, a := range amounts {
		nb.Items = append(nb.Items, BillLine{Name: "Tuition", Amount: a})
	}
	return nb
}

func createBill(t *testing.T, svc *Service, studentID string, amounts ...float64) Bill {
	t.Helper()
	b, err := svc.CreateBill(context.Background(), newBill(studentID, amounts...))
	require.NoError(t, err)
	return b
}

func TestBillStatus(t *testing.T) {
	tests := []struct {
		total, paid float64
		want        string
	}{
		{total: 500, paid: 0, want: StatusPending},
		{total: 500, paid: 300, want: StatusPartial},
		{total: 500, paid: 500, want: StatusPaid},
		{total: 0, paid: 0, want: StatusPending},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BillStatus(tt.total, tt.paid), "BillStatus(%v, %v)", tt.total, tt.paid)
	}
	assert.Equal(t, 0.3, BillTotal([]BillLine{{Amount: 0.1}, {Amount: 0.2}}))
}

func TestService_CreateBill(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	nb := newBill(" 1 ", 450, 50.5)
	nb.DueDate = null.TimeFrom(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	b, err := svc.CreateBill(ctx, nb)
	require.NoError(t, err)
	assert.Equal(t, "BIL0001", b.BillNumber)
	assert.Equal(t, "1", b.StudentID)
	assert.Equal(t, 500.5, b.Total)
	assert.Equal(t, 500.5, b.Balance)
	assert.Zero(t, b.TotalPaid)
	assert.Equal(t, StatusPending, b.Status)
	assert.True(t, b.DueDate.Valid)

	b2 := createBill(t, svc, "2", 100)
	assert.Equal(t, "BIL0002", b2.BillNumber)

	tests := []struct {
		name    string
		nb      NewBill
		wantErr []string
	}{
		{name: "no items", nb: newBill("1"), wantErr: []string{"items"}},
		{name: "missing refs", nb: NewBill{Items: []BillLine{{Name: "x", Amount: 1}}}, wantErr: []string{"studentId", "term", "academicYear"}},
		{name: "bad line", nb: newBill("1", -5), wantErr: []string{"amount"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBill(ctx, tt.nb)
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			fields := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				fields = append(fields, fe.Field())
			}
			assert.ElementsMatch(t, tt.wantErr, fields)
		})
	}
}

func TestService_RecordPayment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bill := createBill(t, svc, "1", 500)

	pmt, got, err := svc.RecordPayment(ctx, bill.ID, NewPayment{Amount: 300, Method: "Cash", Reference: " r-1 "})
	require.NoError(t, err)
	assert.Equal(t, "RCP0001", pmt.ReceiptNumber)
	assert.Equal(t, "1", pmt.StudentID)
	assert.Equal(t, MethodCash, pmt.Method)
	assert.Equal(t, "r-1", pmt.Reference)
	assert.True(t, pmt.PaidAt.Equal(testNow))
	assert.Equal(t, StatusPartial, got.Status)
	assert.Equal(t, 300.0, got.TotalPaid)
	assert.Equal(t, 200.0, got.Balance)

	stored, err := svc.GetBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Status, stored.Status)

	t.Run("overpayment", func(t *testing.T) {
		_, _, err := svc.RecordPayment(ctx, bill.ID, NewPayment{Amount: 200.01, Method: MethodBank})
		require.True(t, core.IsValidation(err))
		assert.True(t, errors.Is(err, ErrOverpayment))
	})

	paidAt := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	pmt, got, err = svc.RecordPayment(ctx, bill.ID, NewPayment{Amount: 200, Method: MethodMobileMoney, PaidAt: null.TimeFrom(paidAt)})
	require.NoError(t, err)
	assert.Equal(t, "RCP0002", pmt.ReceiptNumber)
	assert.True(t, pmt.PaidAt.Equal(paidAt))
	assert.Equal(t, StatusPaid, got.Status)
	assert.Zero(t, got.Balance)

	tests := []struct {
		name   string
		billID string
		np     NewPayment
		check  func(t *testing.T, err error)
	}{
		{
			name: "settled bill", billID: bill.ID, np: NewPayment{Amount: 1, Method: MethodCash},
			check: func(t *testing.T, err error) { assert.True(t, errors.Is(err, ErrBillSettled)) },
		},
		{
			name: "unknown bill", billID: "42", np: NewPayment{Amount: 1, Method: MethodCash},
			check: func(t *testing.T, err error) { assert.Equal(t, ErrBillNotFound, err) },
		},
		{
			name: "invalid payment", billID: bill.ID, np: NewPayment{Amount: 0, Method: "bitcoin"},
			check: func(t *testing.T, err error) {
				var vErrs validator.ValidationErrors
				require.ErrorAs(t, err, &vErrs)
				assert.Len(t, vErrs, 2)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.RecordPayment(ctx, tt.billID, tt.np)
			require.Error(t, err)
			tt.check(t, err)
		})
	}

	payments, err := svc.PaymentsByBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 2)

	p, err := svc.GetPaymentByReceipt(ctx, "RCP0002")
	require.NoError(t, err)
	assert.Equal(t, 200.0, p.Amount)
	_, err = svc.GetPaymentByReceipt(ctx, "RCP0009")
	assert.Equal(t, ErrPaymentNotFound, err)
}

func TestService_RecordPayment_concurrent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bill := createBill(t, svc, "1", 1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.RecordPayment(ctx, bill.ID, NewPayment{Amount: 10, Method: MethodCash})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// the last refresh to run may have been computed before every payment landed
	got, err := svc.RefreshBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.TotalPaid)
	assert.Equal(t, 900.0, got.Balance)

	payments, err := svc.PaymentsByStudent(ctx, "1")
	require.NoError(t, err)
	receipts := make(map[string]bool)
	for _, p := range payments {
		receipts[p.ReceiptNumber] = true
	}
	assert.Len(t, receipts, 10)
}

func TestService_RecordPayment_concurrentFullPayments(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bill := createBill(t, svc, "1", 100)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.RecordPayment(ctx, bill.ID, NewPayment{Amount: 100, Method: MethodCash})
			if err != nil {
				assert.True(t, core.IsValidation(err), "unexpected error: %v", err)
				return
			}
			mu.Lock()
			accepted++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	paid, err := svc.TotalPaid(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, paid)

	got, err := svc.RefreshBill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)
	assert.Zero(t, got.Balance)
}

func TestService_DeleteBill_concurrentPayment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		bill := createBill(t, svc, "1", 100)

		var (
			wg     sync.WaitGroup
			delErr error
			payErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			delErr = svc.DeleteBill(ctx, bill.ID)
		}()
		go func() {
			defer wg.Done()
			_, _, payErr = svc.RecordPayment(ctx, bill.ID, NewPayment{Amount: 40, Method: MethodCash})
		}()
		wg.Wait()

		// exactly one of them wins and no payment is left without its bill
		payments, err := svc.PaymentsByBill(ctx, bill.ID)
		require.NoError(t, err)
		if delErr == nil {
			assert.Equal(t, ErrBillNotFound, payErr)
			assert.Empty(t, payments)
		} else {
			assert.True(t, core.IsConflict(delErr))
			assert.NoError(t, payErr)
			assert.Len(t, payments, 1)
		}
	}
}

func TestService_DeleteBill(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	paid := createBill(t, svc, "1", 100)
	unpaid := createBill(t, svc, "1", 100)

	_, _, err := svc.RecordPayment(ctx, paid.ID, NewPayment{Amount: 50, Method: MethodCash})
	require.NoError(t, err)

	err = svc.DeleteBill(ctx, paid.ID)
	assert.True(t, core.IsConflict(err))

	require.NoError(t, svc.DeleteBill(ctx, unpaid.ID))
	assert.Equal(t, ErrBillNotFound, svc.DeleteBill(ctx, unpaid.ID))
}

func TestService_FilterBills(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	b1 := createBill(t, svc, "1", 100)
	b2 := createBill(t, svc, "2", 300)
	nb := newBill("1", 200)
	nb.Term = "2"
	b3, err := svc.CreateBill(ctx, nb)
	require.NoError(t, err)
	_, _, err = svc.RecordPayment(ctx, b2.ID, NewPayment{Amount: 300, Method: MethodCash})
	require.NoError(t, err)

	tests := []struct {
		name      string
		filter    QueryFilter
		orderings []core.Ordering
		want      []string
	}{
		{name: "all", want: []string{b1.ID, b2.ID, b3.ID}},
		{name: "student", filter: QueryFilter{StudentID: "1"}, want: []string{b1.ID, b3.ID}},
		{name: "term", filter: QueryFilter{Term: "2"}, want: []string{b3.ID}},
		{name: "status", filter: QueryFilter{Status: "PAID"}, want: []string{b2.ID}},
		{name: "year", filter: QueryFilter{AcademicYear: "2023/2024"}, want: []string{}},
		{name: "by total desc", orderings: []core.Ordering{{Field: "total"}}, want: []string{b2.ID, b3.ID, b1.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bills, err := svc.FilterBills(ctx, tt.filter, tt.orderings...)
			require.NoError(t, err)
			ids := make([]string, 0, len(bills))
			for _, b := range bills {
				ids = append(ids, b.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestService_StudentTotals(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	bill := createBill(t, svc, "1", 500)
	createBill(t, svc, "1", 250.25)
	createBill(t, svc, "2", 999)

	_, _, err := svc.RecordPayment(ctx, bill.ID, NewPayment{Amount: 300, Method: MethodCash})
	require.NoError(t, err)

	_, err = svc.CreateOtherFee(ctx, NewOtherFee{StudentID: "1", Description: "Uniform", Amount: 40})
	require.NoError(t, err)
	trip, err := svc.CreateOtherFee(ctx, NewOtherFee{StudentID: "1", Description: "Trip", Amount: 15})
	require.NoError(t, err)

	paid := true
	_, err = svc.UpdateOtherFee(ctx, trip.ID, UpdateOtherFee{Paid: &paid})
	require.NoError(t, err)

	totals, err := svc.StudentTotals(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, Totals{Billed: 750.25, Paid: 300, OtherFees: 40, Outstanding: 490.25}, totals)

	balance, err := svc.StudentBalance(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 999.0, balance)

	balance, err = svc.StudentBalance(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, balance)

	fees, err := svc.OtherFees(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, fees, 2)
}

func TestService_otherFees(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	fee, err := svc.CreateOtherFee(ctx, NewOtherFee{StudentID: "1", Description: " Uniform ", Amount: 40.129})
	require.NoError(t, err)
	assert.Equal(t, "Uniform", fee.Description)
	assert.Equal(t, 40.13, fee.Amount)
	assert.False(t, fee.Paid)

	_, err = svc.CreateOtherFee(ctx, NewOtherFee{Description: "x", Amount: -1})
	var vErrs validator.ValidationErrors
	require.ErrorAs(t, err, &vErrs)
	assert.Len(t, vErrs, 2)

	blank := "  "
	_, err = svc.UpdateOtherFee(ctx, fee.ID, UpdateOtherFee{Description: &blank})
	assert.ErrorAs(t, err, &vErrs)

	amount := 45.0
	updated, err := svc.UpdateOtherFee(ctx, fee.ID, UpdateOtherFee{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, 45.0, updated.Amount)
	assert.Equal(t, "Uniform", updated.Description)

	all, err := svc.OtherFees(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, svc.DeleteOtherFee(ctx, fee.ID))
	_, err = svc.GetOtherFee(ctx, fee.ID)
	assert.Equal(t, ErrOtherFeeNotFound, err)
	_, err = svc.UpdateOtherFee(ctx, fee.ID, UpdateOtherFee{Amount: &amount})
	assert.Equal(t, ErrOtherFeeNotFound, err)
}
