package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/setup"
	"github.com/trezcool/shule/core/staff"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/entitystore"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage"
	"github.com/trezcool/shule/storage/instrumented"
)

type StoreLoggerParam struct {
	dig.In
	Logger core.Logger `name:"storeLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newStoreLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "STORE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newRegistry() (*prometheus.Registry, prometheus.Registerer, prometheus.Gatherer) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, reg, reg
}

func newStore(conf *core.Config, reg prometheus.Registerer, loggerParam StoreLoggerParam) *entitystore.Store {
	metrics := instrumented.NewMetrics(reg)
	store, err := storage.NewStore(context.Background(), conf.Storage, func(b entitystore.Backend) entitystore.Backend {
		return instrumented.New(b, metrics)
	})
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up store: %v", err), err)
	}
	return store
}

// newValidator registers every domain's validation tags on a shared validator.
func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	student.InitValidators(validate, translator)
	staff.InitValidators(validate, translator)
	billing.InitValidators(validate, translator)
	return validate, translator
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newDeps(
	logger core.Logger,
	translator ut.Translator,
	reg prometheus.Registerer,
	gatherer prometheus.Gatherer,
	studentSvc *student.Service,
	staffSvc *staff.Service,
	setupSvc *setup.Service,
	billingSvc *billing.Service,
	academicSvc *academic.Service,
	notificationSvc *notification.Service,
) *echoapi.Deps {
	return &echoapi.Deps{
		Logger:          logger,
		Translator:      translator,
		Registerer:      reg,
		Gatherer:        gatherer,
		StudentSvc:      studentSvc,
		StaffSvc:        staffSvc,
		SetupSvc:        setupSvc,
		BillingSvc:      billingSvc,
		AcademicSvc:     academicSvc,
		NotificationSvc: notificationSvc,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newStoreLogger, dig.Name("storeLogger")))
	must(c.Provide(newRegistry))
	must(c.Provide(newStore))
	must(c.Provide(newValidator))
	must(c.Provide(newEmailService))
	must(c.Provide(student.NewService))
	must(c.Provide(staff.NewService))
	must(c.Provide(setup.NewService))
	must(c.Provide(billing.NewService))
	must(c.Provide(func(svc *student.Service) academic.Students { return svc }))
	must(c.Provide(academic.NewService))
	must(c.Provide(func(svc *student.Service) notification.Students { return svc }))
	must(c.Provide(func(svc *billing.Service) notification.Bills { return svc }))
	must(c.Provide(notification.NewService))
	must(c.Provide(newDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
