package academic

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/student"
	testutil "github.com/trezcool/shule/tests"
)

var testNow = time.Date(2024, 12, 13, 8, 0, 0, 0, time.UTC)

// stubStudents keeps students in a map; setClassErr makes SetClass fail for one id.
type stubStudents struct {
	mu          sync.Mutex
	students    map[string]student.Student
	setClassErr map[string]error
}

func newStubStudents(students ...student.Student) *stubStudents {
	s := &stubStudents{students: make(map[string]student.Student), setClassErr: make(map[string]error)}
	for _, stu := range students {
		s.students[stu.ID] = stu
	}
	return s
}

func (s *stubStudents) GetByID(_ context.Context, id string) (student.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stu, ok := s.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	return stu, nil
}

func (s *stubStudents) SetClass(_ context.Context, id, classID string) (student.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setClassErr[id]; err != nil {
		return student.Student{}, err
	}
	stu, ok := s.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	stu.ClassID = classID
	s.students[id] = stu
	return stu, nil
}

func newTestService(t *testing.T, students Students) *Service {
	t.Helper()
	nowFunc = func() time.Time { return testNow }
	t.Cleanup(func() { nowFunc = func() time.Time { return time.Now().UTC() } })

	validate, _ := testutil.NewValidator()
	return NewService(testutil.NewStore(t), students, validate)
}

func result(studentID, subjectID string, classScore, examScore float64) NewResult {
	return NewResult{
		StudentID:    studentID,
		SubjectID:    subjectID,
		ClassID:      "1",
		Term:         "1",
		AcademicYear: "2024/2025",
		ClassScore:   classScore,
		ExamScore:    examScore,
	}
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		total float64
		want  string
	}{
		{total: 100, want: "A"},
		{total: 80, want: "A"},
		{total: 79.99, want: "B"},
		{total: 65, want: "C"},
		{total: 50, want: "D"},
		{total: 40, want: "E"},
		{total: 39.5, want: "F"},
		{total: 0, want: "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.total, DefaultGradeScale).Letter, "GradeFor(%v)", tt.total)
	}
	assert.Equal(t, Grade{}, GradeFor(-1, DefaultGradeScale))
}

func TestService_RecordResult(t *testing.T) {
	svc := newTestService(t, newStubStudents())
	ctx := context.Background()

	r, err := svc.RecordResult(ctx, result("1", "math", 35, 42.5))
	require.NoError(t, err)
	assert.Equal(t, 77.5, r.Total)
	assert.Equal(t, "B", r.Grade)
	assert.Equal(t, "Very good", r.Remark)

	later := testNow.Add(time.Hour)
	nowFunc = func() time.Time { return later }

	again, err := svc.RecordResult(ctx, result("1", "math", 40, 45))
	require.NoError(t, err)
	assert.Equal(t, r.ID, again.ID, "same student, subject and term is overwritten")
	assert.Equal(t, 85.0, again.Total)
	assert.Equal(t, "A", again.Grade)
	assert.True(t, again.UpdatedAt.Equal(later))

	_, err = svc.RecordResult(ctx, result("1", "eng", 20, 20))
	require.NoError(t, err)

	all, err := svc.FilterResults(ctx, ResultFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	tests := []struct {
		name    string
		nr      NewResult
		wantErr []string
	}{
		{name: "scores out of range", nr: result("1", "sci", 51, -1), wantErr: []string{"classScore", "examScore"}},
		{name: "missing refs", nr: NewResult{}, wantErr: []string{"studentId", "subjectId", "term", "academicYear"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordResult(ctx, tt.nr)
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			fields := make([]string, 0, len(vErrs))
			for _, fe := range vErrs {
				fields = append(fields, fe.Field())
			}
			assert.ElementsMatch(t, tt.wantErr, fields)
		})
	}

	byStudent, err := svc.ResultsByStudent(ctx, "1", "1", "2024/2025")
	require.NoError(t, err)
	assert.Len(t, byStudent, 2)

	require.NoError(t, svc.DeleteResult(ctx, r.ID))
	assert.Equal(t, ErrResultNotFound, svc.DeleteResult(ctx, r.ID))
}

func TestService_RecordResult_concurrent(t *testing.T) {
	svc := newTestService(t, newStubStudents())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordResult(ctx, result("1", "math", 40, 40))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := svc.FilterResults(ctx, ResultFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	positions, err := svc.ClassPositions(ctx, "1", "1", "2024/2025")
	require.NoError(t, err)
	assert.Equal(t, []Position{{StudentID: "1", Total: 80, Subjects: 1, Position: 1}}, positions)
}

func TestService_ClassPositions(t *testing.T) {
	svc := newTestService(t, newStubStudents())
	ctx := context.Background()

	for _, nr := range []NewResult{
		result("1", "math", 30, 30), // 60
		result("1", "eng", 20, 20),  // 40 -> 100
		result("2", "math", 50, 50), // 100
		result("3", "math", 40, 40), // 80
		result("3", "eng", 10, 10),  // 20 -> 100
		result("4", "math", 25, 25), // 50
	} {
		_, err := svc.RecordResult(ctx, nr)
		require.NoError(t, err)
	}
	other := result("5", "math", 50, 50)
	other.ClassID = "2"
	_, err := svc.RecordResult(ctx, other)
	require.NoError(t, err)

	positions, err := svc.ClassPositions(ctx, "1", "1", "2024/2025")
	require.NoError(t, err)
	assert.Equal(t, []Position{
		{StudentID: "1", Total: 100, Subjects: 2, Position: 1},
		{StudentID: "2", Total: 100, Subjects: 1, Position: 1},
		{StudentID: "3", Total: 100, Subjects: 2, Position: 1},
		{StudentID: "4", Total: 50, Subjects: 1, Position: 4},
	}, positions)

	empty, err := svc.ClassPositions(ctx, "1", "3", "2024/2025")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestService_remarks(t *testing.T) {
	svc := newTestService(t, newStubStudents())
	ctx := context.Background()

	_, err := svc.GetRemark(ctx, "1", "1", "2024/2025")
	assert.Equal(t, ErrRemarkNotFound, err)

	r, err := svc.SaveRemark(ctx, SaveRemark{StudentID: "1", Term: "1", AcademicYear: "2024/2025", TeacherRemark: " Hardworking ", Attendance: 60})
	require.NoError(t, err)
	assert.Equal(t, "Hardworking", r.TeacherRemark)

	r2, err := svc.SaveRemark(ctx, SaveRemark{StudentID: "1", Term: "1", AcademicYear: "2024/2025", HeadRemark: "Promoted", Attendance: 62})
	require.NoError(t, err)
	assert.Equal(t, r.ID, r2.ID)
	assert.Equal(t, "", r2.TeacherRemark, "saving replaces the remark")
	assert.Equal(t, 62, r2.Attendance)

	got, err := svc.GetRemark(ctx, "1", "1", "2024/2025")
	require.NoError(t, err)
	assert.Equal(t, "Promoted", got.HeadRemark)

	_, err = svc.SaveRemark(ctx, SaveRemark{StudentID: "1", Term: "1", AcademicYear: "2024/2025", Attendance: -1})
	var vErrs validator.ValidationErrors
	assert.ErrorAs(t, err, &vErrs)
}

func TestService_Promote(t *testing.T) {
	students := newStubStudents(
		student.Student{ID: "1", ClassID: "P1"},
		student.Student{ID: "2", ClassID: "P1"},
		student.Student{ID: "3", ClassID: "P1"},
	)
	svc := newTestService(t, students)
	ctx := context.Background()

	done, err := svc.Promote(ctx, NewPromotion{StudentIDs: []string{"1", " 2 "}, ToClassID: "P2", AcademicYear: "2024/2025"})
	require.NoError(t, err)
	require.Len(t, done, 2)
	assert.Equal(t, "P1", done[0].FromClassID)
	assert.Equal(t, "P2", done[0].ToClassID)
	assert.True(t, done[1].PromotedAt.Equal(testNow))

	stu, err := students.GetByID(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "P2", stu.ClassID)

	t.Run("stops at the first failure", func(t *testing.T) {
		boom := errors.New("boom")
		students.setClassErr["3"] = boom

		done, err := svc.Promote(ctx, NewPromotion{StudentIDs: []string{"1", "3", "2"}, ToClassID: "P3", AcademicYear: "2025/2026"})
		assert.Equal(t, boom, errors.Cause(err))
		require.Len(t, done, 1)
		assert.Equal(t, "1", done[0].StudentID)

		// the promotion record of 3 was written before its class update failed
		recorded, err := svc.Promotions(ctx, "2025/2026")
		require.NoError(t, err)
		assert.Len(t, recorded, 2)
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := svc.Promote(ctx, NewPromotion{StudentIDs: []string{"9"}, ToClassID: "P3", AcademicYear: "2025/2026"})
		assert.Equal(t, student.ErrNotFound, errors.Cause(err))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := svc.Promote(ctx, NewPromotion{StudentIDs: []string{""}, AcademicYear: " "})
		var vErrs validator.ValidationErrors
		require.ErrorAs(t, err, &vErrs)
		assert.Len(t, vErrs, 3)
	})

	history, err := svc.PromotionsByStudent(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	all, err := svc.Promotions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestService_SaveRemark_concurrent(t *testing.T) {
	svc := newTestService(t, newStubStudents())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(attendance int) {
			defer wg.Done()
			_, err := svc.SaveRemark(ctx, SaveRemark{StudentID: "1", Term: "1", AcademicYear: "2024/2025", Attendance: attendance})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := svc.remarks.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
