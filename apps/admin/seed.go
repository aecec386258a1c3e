package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/setup"
	"github.com/trezcool/shule/core/staff"
)

var (
	defaultClasses = []setup.NewClass{
		{Name: "Kindergarten 1", Code: "KG1", Level: 1},
		{Name: "Kindergarten 2", Code: "KG2", Level: 2},
		{Name: "Primary 1", Code: "P1", Level: 3},
		{Name: "Primary 2", Code: "P2", Level: 4},
		{Name: "Primary 3", Code: "P3", Level: 5},
		{Name: "Primary 4", Code: "P4", Level: 6},
		{Name: "Primary 5", Code: "P5", Level: 7},
		{Name: "Primary 6", Code: "P6", Level: 8},
	}
	defaultSubjects = []setup.NewSubject{
		{Name: "English Language", Code: "ENG"},
		{Name: "Mathematics", Code: "MATH"},
		{Name: "Science", Code: "SCI"},
		{Name: "Social Studies", Code: "SOC"},
		{Name: "Creative Arts", Code: "ART"},
	}
)

// seed creates the default classes and subjects; existing codes are skipped.
func (cli *commandLine) seed(ctx context.Context) error {
	var created, skipped int
	for _, nc := range defaultClasses {
		if _, err := cli.setupSvc.CreateClass(ctx, nc); err != nil {
			if core.IsConflict(err) {
				skipped++
				continue
			}
			return err
		}
		created++
	}
	for _, ns := range defaultSubjects {
		if _, err := cli.setupSvc.CreateSubject(ctx, ns); err != nil {
			if core.IsConflict(err) {
				skipped++
				continue
			}
			return err
		}
		created++
	}
	cli.printf("seed: %d created, %d already present\n", created, skipped)
	return nil
}

// addStaff registers a staff member; -admin grants every role.
func (cli *commandLine) addStaff(ctx context.Context, name, email string, isAdmin bool) error {
	ns := staff.NewStaff{Name: name, Email: email}
	if isAdmin {
		ns.Roles = staff.AllRoles
	}
	member, err := cli.staffSvc.Create(ctx, ns)
	if err != nil {
		if vErrs, ok := validationErrors(err); ok {
			return fmt.Errorf("invalid staff member: %v", core.TranslateValidationErrors(vErrs, cli.translator))
		}
		return err
	}
	cli.printf("created %s (%s)\n", member.StaffNumber, member.Email)
	return nil
}
