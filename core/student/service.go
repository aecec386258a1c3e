package student

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
	ErrNotFound = errors.New("student not found")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

const admissionPrefix = "STU"

type Service struct {
	students *entitystore.Collection[Student]
	validate *validator.Validate
}

func NewService(store *entitystore.Store, validate *validator.Validate) *Service {
	return &Service{
		students: entitystore.NewCollection[Student](store, Collection),
		validate: validate,
	}
}

func notFound(err error) error {
	if entitystore.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

// Create admits a student. The admission number is derived from the collection
// count under the store's collection lock, so concurrent admissions get distinct numbers.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, err
	}

	now := nowFunc()
	stu, err := svc.students.CreateWithSeq(ctx, func(seq int, existing []Student) (Student, error) {
		taken := make(map[string]struct{}, len(existing))
		for _, s := range existing {
			taken[s.AdmissionNumber] = struct{}{}
		}
		return Student{
			AdmissionNumber: core.NextNumber(admissionPrefix, seq, func(n string) bool {
				_, ok := taken[n]
				return ok
			}),
			FirstName:     ns.FirstName,
			Surname:       ns.Surname,
			OtherNames:    ns.OtherNames,
			Gender:        ns.Gender,
			DateOfBirth:   ns.DateOfBirth,
			ClassID:       ns.ClassID,
			GuardianName:  ns.GuardianName,
			GuardianPhone: ns.GuardianPhone,
			GuardianEmail: ns.GuardianEmail,
			Address:       ns.Address,
			Status:        StatusActive,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, nil
	})
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	return stu, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.students.GetAll(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	s, err := svc.students.GetByID(ctx, id)
	return s, notFound(err)
}

func (svc *Service) GetByAdmissionNumber(ctx context.Context, number string) (Student, error) {
	number = core.CleanString(number)
	s, found, err := svc.students.FindOne(ctx, func(s Student) bool { return s.AdmissionNumber == number })
	if err != nil {
		return Student{}, err
	}
	if !found {
		return Student{}, ErrNotFound
	}
	return s, nil
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, orderings ...core.Ordering) ([]Student, error) {
	filter.Clean()
	var pred func(Student) bool
	if !filter.IsEmpty() {
		pred = filter.Match
	}
	students, err := svc.students.Query(ctx, pred)
	if err != nil {
		return nil, err
	}
	if err := entitystore.Sort(students, orderings); err != nil {
		return nil, err
	}
	return students, nil
}

func (svc *Service) ByClass(ctx context.Context, classID string) ([]Student, error) {
	return svc.students.Query(ctx, func(s Student) bool { return s.ClassID == classID })
}

func (svc *Service) Count(ctx context.Context, filter ...QueryFilter) (int, error) {
	if len(filter) == 0 {
		return svc.students.Count(ctx, nil)
	}
	f := filter[0]
	f.Clean()
	return svc.students.Count(ctx, f.Match)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	us.Clean()
	if err := svc.validate.Struct(us); err != nil {
		return Student{}, err
	}
	s, err := svc.students.Update(ctx, id, us.patch(nowFunc()))
	return s, notFound(err)
}

// SetClass moves a student to another class (used by promotions).
func (svc *Service) SetClass(ctx context.Context, id, classID string) (Student, error) {
	return svc.Update(ctx, id, UpdateStudent{ClassID: &classID})
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return notFound(svc.students.Delete(ctx, id))
}
