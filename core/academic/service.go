package academic

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/entitystore"
)

var (
	// errors
	ErrResultNotFound = errors.New("result not found")
	ErrRemarkNotFound = errors.New("remark not found")

	// returned from a create build when the key is already stored; the caller updates instead
	errRecorded = errors.New("already recorded")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

// Students is the part of the student service promotions need.
type Students interface {
	GetByID(ctx context.Context, id string) (student.Student, error)
	SetClass(ctx context.Context, id, classID string) (student.Student, error)
}

type Service struct {
	results    *entitystore.Collection[Result]
	remarks    *entitystore.Collection[Remark]
	promotions *entitystore.Collection[Promotion]
	students   Students
	validate   *validator.Validate
	gradeScale []Grade
}

func NewService(store *entitystore.Store, students Students, validate *validator.Validate) *Service {
	return &Service{
		results:    entitystore.NewCollection[Result](store, ResultCollection),
		remarks:    entitystore.NewCollection[Remark](store, RemarkCollection),
		promotions: entitystore.NewCollection[Promotion](store, PromotionCollection),
		students:   students,
		validate:   validate,
		gradeScale: DefaultGradeScale,
	}
}

// Results

// RecordResult saves a student's scores for a subject and term; recording the
// same (student, subject, term, year) again overwrites the scores. The lookup runs
// under the same lock as the insert, so concurrent first saves store one result.
func (svc *Service) RecordResult(ctx context.Context, nr NewResult) (Result, error) {
	nr.Clean()
	if err := svc.validate.Struct(nr); err != nil {
		return Result{}, err
	}

	total := core.RoundCents(nr.ClassScore + nr.ExamScore)
	grade := GradeFor(total, svc.gradeScale)
	now := nowFunc()

	var existingID string
	r, err := svc.results.CreateWithSeq(ctx, func(_ int, existing []Result) (Result, error) {
		for _, r := range existing {
			if r.StudentID == nr.StudentID && r.SubjectID == nr.SubjectID &&
				r.Term == nr.Term && r.AcademicYear == nr.AcademicYear {
				existingID = r.ID
				return Result{}, errRecorded
			}
		}
		return Result{
			StudentID:    nr.StudentID,
			SubjectID:    nr.SubjectID,
			ClassID:      nr.ClassID,
			Term:         nr.Term,
			AcademicYear: nr.AcademicYear,
			ClassScore:   nr.ClassScore,
			ExamScore:    nr.ExamScore,
			Total:        total,
			Grade:        grade.Letter,
			Remark:       grade.Remark,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, nil
	})
	switch {
	case err == errRecorded:
		r, err = svc.results.Update(ctx, existingID, entitystore.Record{
			"classId":    nr.ClassID,
			"classScore": nr.ClassScore,
			"examScore":  nr.ExamScore,
			"total":      total,
			"grade":      grade.Letter,
			"remark":     grade.Remark,
			"updatedAt":  now,
		})
		return r, mapNotFound(err, ErrResultNotFound)
	case err != nil:
		return Result{}, errors.Wrap(err, "creating result")
	}
	return r, nil
}

func (svc *Service) FilterResults(ctx context.Context, filter ResultFilter, orderings ...core.Ordering) ([]Result, error) {
	filter.Clean()
	results, err := svc.results.Query(ctx, filter.Match)
	if err != nil {
		return nil, err
	}
	if err := entitystore.Sort(results, orderings); err != nil {
		return nil, err
	}
	return results, nil
}

func (svc *Service) ResultsByStudent(ctx context.Context, studentID, term, academicYear string) ([]Result, error) {
	return svc.FilterResults(ctx, ResultFilter{StudentID: studentID, Term: term, AcademicYear: academicYear})
}

func (svc *Service) DeleteResult(ctx context.Context, id string) error {
	return mapNotFound(svc.results.Delete(ctx, id), ErrResultNotFound)
}

// ClassPositions ranks the students of a class by their summed totals for a term,
// highest first. Students with equal sums share a position.
func (svc *Service) ClassPositions(ctx context.Context, classID, term, academicYear string) ([]Position, error) {
	results, err := svc.FilterResults(ctx, ResultFilter{ClassID: classID, Term: term, AcademicYear: academicYear})
	if err != nil {
		return nil, err
	}
	return rank(results), nil
}

// Remarks

// SaveRemark creates or replaces the remark of a student for a term.
func (svc *Service) SaveRemark(ctx context.Context, sr SaveRemark) (Remark, error) {
	sr.Clean()
	if err := svc.validate.Struct(sr); err != nil {
		return Remark{}, err
	}

	now := nowFunc()
	var existingID string
	r, err := svc.remarks.CreateWithSeq(ctx, func(_ int, existing []Remark) (Remark, error) {
		for _, r := range existing {
			if r.StudentID == sr.StudentID && r.Term == sr.Term && r.AcademicYear == sr.AcademicYear {
				existingID = r.ID
				return Remark{}, errRecorded
			}
		}
		return Remark{
			StudentID:     sr.StudentID,
			Term:          sr.Term,
			AcademicYear:  sr.AcademicYear,
			TeacherRemark: sr.TeacherRemark,
			HeadRemark:    sr.HeadRemark,
			Conduct:       sr.Conduct,
			Attendance:    sr.Attendance,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, nil
	})
	switch {
	case err == errRecorded:
		r, err = svc.remarks.Update(ctx, existingID, entitystore.Record{
			"teacherRemark": sr.TeacherRemark,
			"headRemark":    sr.HeadRemark,
			"conduct":       sr.Conduct,
			"attendance":    sr.Attendance,
			"updatedAt":     now,
		})
		return r, mapNotFound(err, ErrRemarkNotFound)
	case err != nil:
		return Remark{}, errors.Wrap(err, "creating remark")
	}
	return r, nil
}

func (svc *Service) GetRemark(ctx context.Context, studentID, term, academicYear string) (Remark, error) {
	r, found, err := svc.remarks.FindOne(ctx, func(r Remark) bool {
		return r.StudentID == studentID && r.Term == term && r.AcademicYear == academicYear
	})
	if err != nil {
		return Remark{}, err
	}
	if !found {
		return Remark{}, ErrRemarkNotFound
	}
	return r, nil
}

// Promotions

// Promote moves students to another class. Each student gets a promotion record
// first, then its class is updated; the two writes are not atomic, so on error
// the returned promotions are the ones fully applied.
func (svc *Service) Promote(ctx context.Context, np NewPromotion) ([]Promotion, error) {
	np.Clean()
	if err := svc.validate.Struct(np); err != nil {
		return nil, err
	}

	done := make([]Promotion, 0, len(np.StudentIDs))
	for _, id := range np.StudentIDs {
		stu, err := svc.students.GetByID(ctx, id)
		if err != nil {
			return done, errors.Wrapf(err, "promoting student %s", id)
		}
		p, err := svc.promotions.Create(ctx, Promotion{
			StudentID:    stu.ID,
			FromClassID:  stu.ClassID,
			ToClassID:    np.ToClassID,
			AcademicYear: np.AcademicYear,
			PromotedAt:   nowFunc(),
		})
		if err != nil {
			return done, errors.Wrapf(err, "creating promotion of %s", id)
		}
		if _, err := svc.students.SetClass(ctx, stu.ID, np.ToClassID); err != nil {
			return done, errors.Wrapf(err, "moving student %s", id)
		}
		done = append(done, p)
	}
	return done, nil
}

func (svc *Service) PromotionsByStudent(ctx context.Context, studentID string) ([]Promotion, error) {
	return svc.promotions.Query(ctx, func(p Promotion) bool { return p.StudentID == studentID })
}

func (svc *Service) Promotions(ctx context.Context, academicYear string) ([]Promotion, error) {
	if academicYear == "" {
		return svc.promotions.GetAll(ctx)
	}
	return svc.promotions.Query(ctx, func(p Promotion) bool { return p.AcademicYear == academicYear })
}

func mapNotFound(err, notFound error) error {
	if entitystore.IsNotFound(err) {
		return notFound
	}
	return err
}
