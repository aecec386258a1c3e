package setup

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	testutil "github.com/trezcool/shule/tests"
)

var testNow = time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	nowFunc = func() time.Time { return testNow }
	t.Cleanup(func() { nowFunc = func() time.Time { return time.Now().UTC() } })

	validate, _ := testutil.NewValidator()
	return NewService(testutil.NewStore(t), validate)
}

func strPtr(s string) *string { return &s }

func invalidFields(t *testing.T, err error) []string {
	t.Helper()
	var vErrs validator.ValidationErrors
	require.ErrorAs(t, err, &vErrs)
	fields := make([]string, 0, len(vErrs))
	for _, fe := range vErrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

func TestService_classes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p2, err := svc.CreateClass(ctx, NewClass{Name: "Primary 2", Code: "p2", Level: 2})
	require.NoError(t, err)
	assert.Equal(t, "P2", p2.Code)
	p1, err := svc.CreateClass(ctx, NewClass{Name: "Primary 1", Code: "P1", Level: 1, TeacherID: "3"})
	require.NoError(t, err)
	kg, err := svc.CreateClass(ctx, NewClass{Name: "KG 1", Code: "KG1"})
	require.NoError(t, err)

	_, err = svc.CreateClass(ctx, NewClass{Name: "Dup", Code: " P1 "})
	assert.True(t, core.IsConflict(err))

	_, err = svc.CreateClass(ctx, NewClass{Name: " ", Code: "P-3", Level: -1})
	assert.ElementsMatch(t, []string{"name", "code", "level"}, invalidFields(t, err))

	classes, err := svc.ListClasses(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 3)
	assert.Equal(t, []string{kg.ID, p1.ID, p2.ID}, []string{classes[0].ID, classes[1].ID, classes[2].ID})

	classes, err = svc.ListClasses(ctx, core.Ordering{Field: "name"})
	require.NoError(t, err)
	assert.Equal(t, p2.ID, classes[0].ID)

	got, err := svc.GetClassByCode(ctx, "kg1")
	require.NoError(t, err)
	assert.Equal(t, kg.ID, got.ID)
	_, err = svc.GetClassByCode(ctx, "JHS1")
	assert.Equal(t, ErrClassNotFound, err)

	level := 3
	updated, err := svc.UpdateClass(ctx, p2.ID, UpdateItem{Name: strPtr("Primary Three"), Level: &level, Code: strPtr("p3")})
	require.NoError(t, err)
	assert.Equal(t, "Primary Three", updated.Name)
	assert.Equal(t, 3, updated.Level)
	assert.Equal(t, "P3", updated.Code)
	assert.Equal(t, p2.CreatedAt.UTC(), updated.CreatedAt.UTC())

	_, err = svc.UpdateClass(ctx, p2.ID, UpdateItem{Code: strPtr("P1")})
	assert.True(t, core.IsConflict(err))
	_, err = svc.UpdateClass(ctx, p2.ID, UpdateItem{Code: strPtr("P3")})
	assert.NoError(t, err, "a class keeps its own code")
	_, err = svc.UpdateClass(ctx, "42", UpdateItem{Name: strPtr("x")})
	assert.Equal(t, ErrClassNotFound, err)

	require.NoError(t, svc.DeleteClass(ctx, kg.ID))
	_, err = svc.GetClass(ctx, kg.ID)
	assert.Equal(t, ErrClassNotFound, err)
	assert.Equal(t, ErrClassNotFound, svc.DeleteClass(ctx, kg.ID))
}

func TestService_subjects(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	maths, err := svc.CreateSubject(ctx, NewSubject{Name: "Mathematics", Code: "math", ClassIDs: []string{"1", "2"}})
	require.NoError(t, err)
	assert.Equal(t, "MATH", maths.Code)
	english, err := svc.CreateSubject(ctx, NewSubject{Name: "English", Code: "ENG"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, english.ClassIDs)

	_, err = svc.CreateSubject(ctx, NewSubject{Name: "Maths again", Code: "MATH"})
	assert.True(t, core.IsConflict(err))

	all, err := svc.ListSubjects(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, english.ID, all[0].ID, "sorted by name")

	forClass, err := svc.ListSubjects(ctx, "2")
	require.NoError(t, err)
	require.Len(t, forClass, 1)
	assert.Equal(t, maths.ID, forClass[0].ID)

	updated, err := svc.UpdateSubject(ctx, english.ID, UpdateItem{ClassIDs: []string{"2"}, Level: new(int)})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, updated.ClassIDs)

	_, err = svc.UpdateSubject(ctx, english.ID, UpdateItem{Code: strPtr("math")})
	assert.True(t, core.IsConflict(err))

	require.NoError(t, svc.DeleteSubject(ctx, maths.ID))
	_, err = svc.GetSubject(ctx, maths.ID)
	assert.Equal(t, ErrSubjectNotFound, err)
	_, err = svc.UpdateSubject(ctx, maths.ID, UpdateItem{Name: strPtr("x")})
	assert.Equal(t, ErrSubjectNotFound, err)
}

func TestService_billItems(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tuition, err := svc.CreateBillItem(ctx, NewBillItem{Name: "Tuition", Amount: 450.456, Mandatory: true})
	require.NoError(t, err)
	assert.Equal(t, 450.46, tuition.Amount)
	bus, err := svc.CreateBillItem(ctx, NewBillItem{Name: "Transport", Amount: 120, ClassIDs: []string{"1"}})
	require.NoError(t, err)

	_, err = svc.CreateBillItem(ctx, NewBillItem{Name: "Free", Amount: 0})
	assert.Equal(t, []string{"amount"}, invalidFields(t, err))

	tests := []struct {
		name    string
		classID string
		want    []string
	}{
		{name: "all", want: []string{tuition.ID, bus.ID}},
		{name: "class 1", classID: "1", want: []string{tuition.ID, bus.ID}},
		{name: "class 2", classID: "2", want: []string{tuition.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := svc.ListBillItems(ctx, tt.classID)
			require.NoError(t, err)
			ids := make([]string, 0, len(items))
			for _, it := range items {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	amount := 130.0
	updated, err := svc.UpdateBillItem(ctx, bus.ID, UpdateItem{Amount: &amount, Code: strPtr("ignored")})
	require.NoError(t, err)
	assert.Equal(t, 130.0, updated.Amount)

	got, err := svc.GetBillItem(ctx, bus.ID)
	require.NoError(t, err)
	assert.Equal(t, "Transport", got.Name)

	zero := 0.0
	_, err = svc.UpdateBillItem(ctx, bus.ID, UpdateItem{Amount: &zero})
	assert.Equal(t, []string{"amount"}, invalidFields(t, err))

	require.NoError(t, svc.DeleteBillItem(ctx, bus.ID))
	assert.Equal(t, ErrBillItemNotFound, svc.DeleteBillItem(ctx, bus.ID))
}
