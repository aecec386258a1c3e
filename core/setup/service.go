package setup

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/entitystore"
)

var (
	// errors
	ErrClassNotFound    = errors.New("class not found")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrBillItemNotFound = errors.New("bill item not found")
	ErrCodeExists       = errors.New("this code is already in use")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type Service struct {
	classes   *entitystore.Collection[Class]
	subjects  *entitystore.Collection[Subject]
	billItems *entitystore.Collection[BillItem]
	validate  *validator.Validate
}

func NewService(store *entitystore.Store, validate *validator.Validate) *Service {
	return &Service{
		classes:   entitystore.NewCollection[Class](store, ClassCollection),
		subjects:  entitystore.NewCollection[Subject](store, SubjectCollection),
		billItems: entitystore.NewCollection[BillItem](store, BillItemCollection),
		validate:  validate,
	}
}

func mapNotFound(err, notFound error) error {
	if entitystore.IsNotFound(err) {
		return notFound
	}
	return err
}

func conflictCode() error {
	return core.NewConflictError(ErrCodeExists, "code")
}

// Classes

// CreateClass adds a class; codes are unique across classes.
func (svc *Service) CreateClass(ctx context.Context, nc NewClass) (Class, error) {
	nc.Clean()
	if err := svc.validate.Struct(nc); err != nil {
		return Class{}, err
	}
	now := nowFunc()
	cls, err := svc.classes.CreateWithSeq(ctx, func(_ int, existing []Class) (Class, error) {
		for _, c := range existing {
			if c.Code == nc.Code {
				return Class{}, conflictCode()
			}
		}
		return Class{
			Name:      nc.Name,
			Code:      nc.Code,
			Level:     nc.Level,
			TeacherID: nc.TeacherID,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	})
	if err != nil && !core.IsConflict(err) {
		return Class{}, errors.Wrap(err, "creating class")
	}
	return cls, err
}

// ListClasses returns classes ordered by level then name.
func (svc *Service) ListClasses(ctx context.Context, orderings ...core.Ordering) ([]Class, error) {
	classes, err := svc.classes.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(orderings) == 0 {
		orderings = []core.Ordering{{Field: "level", Ascending: true}, {Field: "name", Ascending: true}}
	}
	if err := entitystore.Sort(classes, orderings); err != nil {
		return nil, err
	}
	return classes, nil
}

func (svc *Service) GetClass(ctx context.Context, id string) (Class, error) {
	c, err := svc.classes.GetByID(ctx, id)
	return c, mapNotFound(err, ErrClassNotFound)
}

func (svc *Service) GetClassByCode(ctx context.Context, code string) (Class, error) {
	code = cleanCode(code)
	c, found, err := svc.classes.FindOne(ctx, func(c Class) bool { return c.Code == code })
	if err != nil {
		return Class{}, err
	}
	if !found {
		return Class{}, ErrClassNotFound
	}
	return c, nil
}

func (svc *Service) UpdateClass(ctx context.Context, id string, ui UpdateItem) (Class, error) {
	ui.Clean()
	if err := svc.validate.Struct(ui); err != nil {
		return Class{}, err
	}
	if ui.Code != nil {
		_, found, err := svc.classes.FindOne(ctx, func(c Class) bool { return c.Code == *ui.Code && c.ID != id })
		if err != nil {
			return Class{}, err
		}
		if found {
			return Class{}, conflictCode()
		}
	}
	ui.Amount, ui.Mandatory = nil, nil
	c, err := svc.classes.Update(ctx, id, ui.patch(nowFunc()))
	return c, mapNotFound(err, ErrClassNotFound)
}

func (svc *Service) DeleteClass(ctx context.Context, id string) error {
	return mapNotFound(svc.classes.Delete(ctx, id), ErrClassNotFound)
}

// Subjects

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Subject{}, err
	}
	_, found, err := svc.subjects.FindOne(ctx, func(s Subject) bool { return s.Code == ns.Code })
	if err != nil {
		return Subject{}, err
	}
	if found {
		return Subject{}, conflictCode()
	}

	now := nowFunc()
	sub, err := svc.subjects.Create(ctx, Subject{
		Name:      ns.Name,
		Code:      ns.Code,
		ClassIDs:  ns.ClassIDs,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Subject{}, errors.Wrap(err, "creating subject")
	}
	return sub, nil
}

func (svc *Service) ListSubjects(ctx context.Context, classID string) ([]Subject, error) {
	var pred func(Subject) bool
	if classID = core.CleanString(classID); classID != "" {
		pred = func(s Subject) bool { return contains(s.ClassIDs, classID) }
	}
	subjects, err := svc.subjects.Query(ctx, pred)
	if err != nil {
		return nil, err
	}
	if err := entitystore.Sort(subjects, []core.Ordering{{Field: "name", Ascending: true}}); err != nil {
		return nil, err
	}
	return subjects, nil
}

func (svc *Service) GetSubject(ctx context.Context, id string) (Subject, error) {
	s, err := svc.subjects.GetByID(ctx, id)
	return s, mapNotFound(err, ErrSubjectNotFound)
}

func (svc *Service) UpdateSubject(ctx context.Context, id string, ui UpdateItem) (Subject, error) {
	ui.Clean()
	if err := svc.validate.Struct(ui); err != nil {
		return Subject{}, err
	}
	if ui.Code != nil {
		_, found, err := svc.subjects.FindOne(ctx, func(s Subject) bool { return s.Code == *ui.Code && s.ID != id })
		if err != nil {
			return Subject{}, err
		}
		if found {
			return Subject{}, conflictCode()
		}
	}
	ui.Level, ui.TeacherID, ui.Amount, ui.Mandatory = nil, nil, nil, nil
	s, err := svc.subjects.Update(ctx, id, ui.patch(nowFunc()))
	return s, mapNotFound(err, ErrSubjectNotFound)
}

func (svc *Service) DeleteSubject(ctx context.Context, id string) error {
	return mapNotFound(svc.subjects.Delete(ctx, id), ErrSubjectNotFound)
}

// Bill items

func (svc *Service) CreateBillItem(ctx context.Context, nb NewBillItem) (BillItem, error) {
	nb.Clean()
	if err := svc.validate.Struct(nb); err != nil {
		return BillItem{}, err
	}
	now := nowFunc()
	item, err := svc.billItems.Create(ctx, BillItem{
		Name:      nb.Name,
		Amount:    nb.Amount,
		ClassIDs:  nb.ClassIDs,
		Mandatory: nb.Mandatory,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return BillItem{}, errors.Wrap(err, "creating bill item")
	}
	return item, nil
}

// ListBillItems returns the items offered to classID (every item when classID is empty).
// An item with no classes is offered to all classes.
func (svc *Service) ListBillItems(ctx context.Context, classID string) ([]BillItem, error) {
	classID = core.CleanString(classID)
	if classID == "" {
		return svc.billItems.GetAll(ctx)
	}
	return svc.billItems.Query(ctx, func(b BillItem) bool {
		return len(b.ClassIDs) == 0 || contains(b.ClassIDs, classID)
	})
}

func (svc *Service) GetBillItem(ctx context.Context, id string) (BillItem, error) {
	b, err := svc.billItems.GetByID(ctx, id)
	return b, mapNotFound(err, ErrBillItemNotFound)
}

func (svc *Service) UpdateBillItem(ctx context.Context, id string, ui UpdateItem) (BillItem, error) {
	ui.Clean()
	if err := svc.validate.Struct(ui); err != nil {
		return BillItem{}, err
	}
	ui.Code, ui.Level, ui.TeacherID = nil, nil, nil
	b, err := svc.billItems.Update(ctx, id, ui.patch(nowFunc()))
	return b, mapNotFound(err, ErrBillItemNotFound)
}

func (svc *Service) DeleteBillItem(ctx context.Context, id string) error {
	return mapNotFound(svc.billItems.Delete(ctx, id), ErrBillItemNotFound)
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
