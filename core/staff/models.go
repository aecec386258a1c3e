package staff

import (
	"sort"
	"strings"
	"time"

	"github.com/trezcool/shule/core"
)

const Collection = "staff"

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Accounts
	RoleBursar = "accounts:bursar"

	// Teacher
	RoleTeacher = "teacher:"
)

var (
	AdminRoles    = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	AccountsRoles = []string{RoleBursar}
	TeacherRoles  = []string{RoleTeacher}
	AllRoles      = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdmin:          21,

		// Accounts: 20 - 16
		RoleBursar: 16,

		// Teachers: 15 - 11
		RoleTeacher: 11,
	}

	Roles = []Role{
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Bursar", Value: RoleBursar},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Principal", Value: RoleAdminPrincipal},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 5)
	all = append(all, AdminRoles...)
	all = append(all, AccountsRoles...)
	all = append(all, TeacherRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Staff struct {
	ID          string    `json:"id,omitempty"`
	StaffNumber string    `json:"staffNumber"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Roles       []string  `json:"roles"`
	SubjectIDs  []string  `json:"subjectIds"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"` // UTC
	UpdatedAt   time.Time `json:"updatedAt"` // UTC
}

func (s *Staff) RoleStartsWith(prefix string) bool {
	for _, role := range s.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (s *Staff) IsAdmin() bool {
	return s.RoleStartsWith(RoleAdmin)
}

func (s *Staff) IsTeacher() bool {
	return s.RoleStartsWith(RoleTeacher)
}

func (s *Staff) IsBursar() bool {
	return s.RoleStartsWith(RoleBursar)
}

// NewStaff contains information needed to register a new Staff member.
type NewStaff struct {
	Name       string   `json:"name" validate:"required,notblank"`
	Email      string   `json:"email" validate:"required,email"`
	Phone      string   `json:"phone"`
	Roles      []string `json:"roles" validate:"omitempty,allroles"`
	SubjectIDs []string `json:"subjectIds"`
}

func (ns *NewStaff) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
}

// UpdateStaff defines what information may be provided to modify an existing Staff member.
type UpdateStaff struct {
	Name       string   `json:"name"`
	Email      string   `json:"email" validate:"omitempty,email"`
	Phone      string   `json:"phone"`
	IsActive   *bool    `json:"isActive"`
	Roles      []string `json:"roles" validate:"omitempty,allroles"`
	SubjectIDs []string `json:"subjectIds"`
}

// Clean falls back to the original member's values for blank fields.
func (us *UpdateStaff) Clean(orig Staff) {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	if email := core.CleanString(us.Email, true /* lower */); email != "" {
		us.Email = email
	} else {
		us.Email = orig.Email
	}
	if phone := core.CleanString(us.Phone); phone != "" {
		us.Phone = phone
	} else {
		us.Phone = orig.Phone
	}
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && len(qf.Roles) == 0 && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

// Match applies AND on the available filter fields.
// Search does a case-insensitive match on one of Name, Email or StaffNumber.
func (qf QueryFilter) Match(s Staff) bool {
	if qf.Search != "" &&
		!strings.Contains(strings.ToLower(s.Name), qf.Search) &&
		!strings.Contains(strings.ToLower(s.Email), qf.Search) &&
		!strings.Contains(strings.ToLower(s.StaffNumber), qf.Search) {
		return false
	}
	// members with any of the specified roles
	if len(qf.Roles) > 0 {
		hasRole := false
		for _, r := range qf.Roles {
			if s.RoleStartsWith(r) {
				hasRole = true
				break
			}
		}
		if !hasRole {
			return false
		}
	}
	if qf.IsActive != nil && s.IsActive != *qf.IsActive {
		return false
	}
	if !qf.CreatedFrom.IsZero() && s.CreatedAt.Before(qf.CreatedFrom.UTC()) {
		return false
	}
	if !qf.CreatedTo.IsZero() && s.CreatedAt.After(qf.CreatedTo.UTC()) {
		return false
	}
	return true
}

// sortByPriority orders members by their highest role priority, then by name.
func sortByPriority(members []Staff) {
	sort.SliceStable(members, func(i, j int) bool {
		pi, pj := MaxRolePriority(members[i].Roles), MaxRolePriority(members[j].Roles)
		if pi != pj {
			return pi > pj
		}
		return strings.ToLower(members[i].Name) < strings.ToLower(members[j].Name)
	})
}
