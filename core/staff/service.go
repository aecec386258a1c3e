package staff

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
	ErrNotFound    = errors.New("staff member not found")
	ErrEmailExists = errors.New("a staff member with this email already exists")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

const staffNumberPrefix = "STF"

type Service struct {
	staff    *entitystore.Collection[Staff]
	validate *validator.Validate
}

func NewService(store *entitystore.Store, validate *validator.Validate) *Service {
	return &Service{
		staff:    entitystore.NewCollection[Staff](store, Collection),
		validate: validate,
	}
}

func notFound(err error) error {
	if entitystore.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

func emailTaken(members []Staff, email string, excludedID string) bool {
	for _, m := range members {
		if m.Email == email && m.ID != excludedID {
			return true
		}
	}
	return false
}

func conflictEmail() error {
	return core.NewConflictError(ErrEmailExists, "email")
}

// Create registers a staff member. The email check and the insert run under the
// same collection lock, so two concurrent registrations cannot share an email.
func (svc *Service) Create(ctx context.Context, ns NewStaff) (Staff, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Staff{}, err
	}
	if ns.Roles == nil {
		ns.Roles = []string{}
	}
	if ns.SubjectIDs == nil {
		ns.SubjectIDs = []string{}
	}

	now := nowFunc()
	member, err := svc.staff.CreateWithSeq(ctx, func(seq int, existing []Staff) (Staff, error) {
		if emailTaken(existing, ns.Email, "") {
			return Staff{}, conflictEmail()
		}
		taken := make(map[string]struct{}, len(existing))
		for _, m := range existing {
			taken[m.StaffNumber] = struct{}{}
		}
		return Staff{
			StaffNumber: core.NextNumber(staffNumberPrefix, seq, func(n string) bool {
				_, ok := taken[n]
				return ok
			}),
			Name:       ns.Name,
			Email:      ns.Email,
			Phone:      ns.Phone,
			Roles:      ns.Roles,
			SubjectIDs: ns.SubjectIDs,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}, nil
	})
	if err != nil {
		if core.IsConflict(err) {
			return Staff{}, err
		}
		return Staff{}, errors.Wrap(err, "creating staff member")
	}
	return member, nil
}

func (svc *Service) QueryAll(ctx context.Context) ([]Staff, error) {
	return svc.staff.GetAll(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Staff, error) {
	m, err := svc.staff.GetByID(ctx, id)
	return m, notFound(err)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Staff, error) {
	email = core.CleanString(email, true /* lower */)
	m, found, err := svc.staff.FindOne(ctx, func(m Staff) bool { return m.Email == email })
	if err != nil {
		return Staff{}, err
	}
	if !found {
		return Staff{}, ErrNotFound
	}
	return m, nil
}

// Filter returns the members matching filter, highest role priority first unless orderings say otherwise.
func (svc *Service) Filter(ctx context.Context, filter QueryFilter, orderings ...core.Ordering) ([]Staff, error) {
	filter.Clean()
	var pred func(Staff) bool
	if !filter.IsEmpty() {
		pred = filter.Match
	}
	members, err := svc.staff.Query(ctx, pred)
	if err != nil {
		return nil, err
	}
	if len(orderings) == 0 {
		sortByPriority(members)
		return members, nil
	}
	if err := entitystore.Sort(members, orderings); err != nil {
		return nil, err
	}
	return members, nil
}

// Teachers returns the active members holding a teacher role.
func (svc *Service) Teachers(ctx context.Context) ([]Staff, error) {
	return svc.staff.Query(ctx, func(m Staff) bool { return m.IsActive && m.IsTeacher() })
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.staff.Count(ctx, nil)
}

// Update applies uu on the member. Email uniqueness is checked against the current
// collection before the write; unlike Create this is two store calls.
func (svc *Service) Update(ctx context.Context, id string, uu UpdateStaff) (Staff, error) {
	orig, err := svc.GetByID(ctx, id)
	if err != nil {
		return Staff{}, err
	}
	uu.Clean(orig)
	if err := svc.validate.Struct(uu); err != nil {
		return Staff{}, err
	}

	if uu.Email != orig.Email {
		all, err := svc.staff.GetAll(ctx)
		if err != nil {
			return Staff{}, err
		}
		if emailTaken(all, uu.Email, id) {
			return Staff{}, conflictEmail()
		}
	}

	patch := entitystore.Record{
		"name":      uu.Name,
		"email":     uu.Email,
		"phone":     uu.Phone,
		"updatedAt": nowFunc(),
	}
	if uu.Roles != nil {
		patch["roles"] = uu.Roles
	}
	if uu.SubjectIDs != nil {
		patch["subjectIds"] = uu.SubjectIDs
	}
	if uu.IsActive != nil {
		patch["isActive"] = *uu.IsActive
	}
	m, err := svc.staff.Update(ctx, id, patch)
	return m, notFound(err)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if err := svc.staff.Delete(ctx, id); err != nil {
			return notFound(err)
		}
	}
	return nil
}
