package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/setup"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	emailsvc "github.com/trezcool/shule/services/email"
	testutil "github.com/trezcool/shule/tests"
)

type testApp struct {
	*Server
	deps   *Deps
	mailer *emailsvc.ConsoleServiceMock
	logger *testutil.Logger
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	conf := testutil.NewConfig()
	store := testutil.NewStore(t)
	logger := new(testutil.Logger)
	validate, translator := testutil.NewValidator(student.InitValidators, staff.InitValidators, billing.InitValidators)
	mailer := emailsvc.NewConsoleServiceMock(conf, logger)
	reg := prometheus.NewRegistry()

	studentSvc := student.NewService(store, validate)
	billingSvc := billing.NewService(store, validate)
	deps := &Deps{
		Logger:          logger,
		Translator:      translator,
		Gatherer:        reg,
		Registerer:      reg,
		StudentSvc:      studentSvc,
		StaffSvc:        staff.NewService(store, validate),
		SetupSvc:        setup.NewService(store, validate),
		BillingSvc:      billingSvc,
		AcademicSvc:     academic.NewService(store, studentSvc, validate),
		NotificationSvc: notification.NewService(store, studentSvc, billingSvc, mailer, validate, conf),
	}
	srv := NewServer(conf, deps)
	t.Cleanup(func() { _ = srv.Close() })
	return &testApp{Server: srv, deps: deps, mailer: mailer, logger: logger}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	wantCode int
	wantData interface{} // compared as JSON when set
}

func (app *testApp) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.do(t, method, tt.path, tt.body)
			wantCode := tt.wantCode
			if wantCode == 0 {
				wantCode = http.StatusOK
			}
			assert.Equal(t, wantCode, rec.Code, rec.Body.String())
			if tt.wantData != nil {
				checkJSON(t, tt.wantData, rec.Body.Bytes())
			}
		})
	}
}

// decode unmarshals a response into v and returns it.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func checkJSON(t *testing.T, want interface{}, got []byte) {
	t.Helper()
	wantBytes, err := json.Marshal(want)
	require.NoError(t, err)

	var w, g interface{}
	require.NoError(t, json.Unmarshal(wantBytes, &w))
	require.NoError(t, json.Unmarshal(got, &g), string(got))
	if !reflect.DeepEqual(w, g) {
		t.Errorf("failed! data = %s; wantData %s", got, wantBytes)
	}
}
