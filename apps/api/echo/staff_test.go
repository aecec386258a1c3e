package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/staff"
)

func createStaff(t *testing.T, app *testApp, name, email string, roles ...string) staff.Staff {
	t.Helper()
	m, err := app.deps.StaffSvc.Create(context.Background(), staff.NewStaff{Name: name, Email: email, Roles: roles})
	require.NoError(t, err)
	return m
}

func Test_staffApi_create(t *testing.T) {
	app := newTestApp(t)
	createStaff(t, app, "Akosua Mensah", "akosua@school.com", staff.RoleTeacher)

	rec := app.do(t, http.MethodPost, "/v1/staff", map[string]interface{}{
		"name":  "Yaw Boateng",
		"email": " YAW@school.com ",
		"roles": []string{staff.RoleBursar},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[staff.Staff](t, rec)
	assert.Equal(t, "STF0002", created.StaffNumber)
	assert.Equal(t, "yaw@school.com", created.Email)
	assert.True(t, created.IsActive)

	app.run(t, []httpTest{
		{
			name: "duplicate email", method: http.MethodPost, path: "/v1/staff",
			body:     map[string]interface{}{"name": "Someone", "email": "Akosua@School.com"},
			wantCode: http.StatusConflict,
			wantData: map[string]string{"email": staff.ErrEmailExists.Error()},
		},
		{
			name: "validation", method: http.MethodPost, path: "/v1/staff",
			body:     map[string]interface{}{"name": "Someone", "email": "nope", "roles": []string{"janitor"}},
			wantCode: http.StatusBadRequest,
			wantData: map[string]string{"email": "email must be a valid email address", "roles": "invalid roles"},
		},
		{name: "malformed", method: http.MethodPost, path: "/v1/staff", body: `{"name": `, wantCode: http.StatusBadRequest},
	})
}

func Test_staffApi_query(t *testing.T) {
	app := newTestApp(t)
	teacher := createStaff(t, app, "Kwame Asante", "kwame@school.com", staff.RoleTeacher)
	owner := createStaff(t, app, "Abena Osei", "abena@school.com", staff.RoleAdminOwner)
	bursar := createStaff(t, app, "Efua Addo", "efua@school.com", staff.RoleBursar)

	app.run(t, []httpTest{
		{name: "priority order", path: "/v1/staff", wantData: []staff.Staff{owner, bursar, teacher}},
		{name: "ordering", path: "/v1/staff?ordering=name", wantData: []staff.Staff{owner, bursar, teacher}},
		{name: "ordering desc", path: "/v1/staff?ordering=-email", wantData: []staff.Staff{teacher, bursar, owner}},
		{name: "search", path: "/v1/staff?search=ASANTE", wantData: []staff.Staff{teacher}},
		{name: "roles", path: "/v1/staff?role=admin:&role=teacher:", wantData: []staff.Staff{owner, teacher}},
		{name: "no match", path: "/v1/staff?search=nobody", wantData: []staff.Staff{}},
		{name: "roles list", path: "/v1/staff/roles", wantData: staff.Roles},
		{name: "retrieve", path: "/v1/staff/" + bursar.ID, wantData: bursar},
		{name: "retrieve (unknown)", path: "/v1/staff/42", wantCode: http.StatusNotFound, wantData: httpErr{Error: "not found"}},
	})
}

func Test_staffApi_update(t *testing.T) {
	app := newTestApp(t)
	kwame := createStaff(t, app, "Kwame Asante", "kwame@school.com", staff.RoleTeacher)
	createStaff(t, app, "Abena Osei", "abena@school.com")

	rec := app.do(t, http.MethodPut, "/v1/staff/"+kwame.ID, map[string]interface{}{
		"phone":    "0244000000",
		"isActive": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[staff.Staff](t, rec)
	assert.Equal(t, "Kwame Asante", updated.Name)
	assert.Equal(t, "0244000000", updated.Phone)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{staff.RoleTeacher}, updated.Roles)

	app.run(t, []httpTest{
		{
			name: "email taken", method: http.MethodPut, path: "/v1/staff/" + kwame.ID,
			body:     map[string]interface{}{"email": "abena@school.com"},
			wantCode: http.StatusConflict,
			wantData: map[string]string{"email": staff.ErrEmailExists.Error()},
		},
		{
			name: "own email", method: http.MethodPut, path: "/v1/staff/" + kwame.ID,
			body: map[string]interface{}{"email": "kwame@school.com"},
		},
		{name: "unknown", method: http.MethodPut, path: "/v1/staff/42", body: map[string]interface{}{}, wantCode: http.StatusNotFound},
	})
}

func Test_staffApi_destroy(t *testing.T) {
	app := newTestApp(t)
	a := createStaff(t, app, "A", "a@school.com")
	b := createStaff(t, app, "B", "b@school.com")
	c := createStaff(t, app, "C", "c@school.com")

	app.run(t, []httpTest{
		{name: "one", method: http.MethodDelete, path: "/v1/staff/" + a.ID, wantCode: http.StatusNoContent},
		{name: "one (gone)", method: http.MethodDelete, path: "/v1/staff/" + a.ID, wantCode: http.StatusNotFound},
		{name: "no ids", method: http.MethodDelete, path: "/v1/staff", wantCode: http.StatusNoContent},
		{name: "many", method: http.MethodDelete, path: "/v1/staff?id=" + b.ID + "&id=" + c.ID, wantCode: http.StatusNoContent},
		{name: "empty", path: "/v1/staff", wantData: []staff.Staff{}},
	})
}
