package notification

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/billing"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/entitystore"
)

var (
	ErrRemindersDisabled = errors.New("fee reminders are disabled")

	nowFunc = func() time.Time { return time.Now().UTC() } // mockable
)

type (
	Students interface {
		Filter(ctx context.Context, filter student.QueryFilter, orderings ...core.Ordering) ([]student.Student, error)
	}

	Bills interface {
		BillsByStudent(ctx context.Context, studentID string) ([]billing.Bill, error)
	}

	Service struct {
		settings *entitystore.Collection[Settings]
		students Students
		bills    Bills
		mailer   core.EmailService
		validate *validator.Validate
		conf     *core.Config
	}
)

func NewService(
	store *entitystore.Store,
	students Students,
	bills Bills,
	mailer core.EmailService,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		settings: entitystore.NewCollection[Settings](store, Collection),
		students: students,
		bills:    bills,
		mailer:   mailer,
		validate: validate,
		conf:     conf,
	}
}

func (svc *Service) defaults() Settings {
	from := svc.conf.DefaultFromEmail()
	return Settings{
		ID:          settingsID,
		SchoolName:  svc.conf.AppName,
		SenderName:  from.Name,
		SenderEmail: from.Address,
	}
}

// GetSettings returns the stored settings, or the defaults derived from the config
// when they were never saved.
func (svc *Service) GetSettings(ctx context.Context) (Settings, error) {
	s, err := svc.settings.GetByID(ctx, settingsID)
	if entitystore.IsNotFound(err) {
		return svc.defaults(), nil
	}
	return s, err
}

func (svc *Service) UpdateSettings(ctx context.Context, us UpdateSettings) (Settings, error) {
	us.Clean()
	if err := svc.validate.Struct(us); err != nil {
		return Settings{}, err
	}

	s, err := svc.settings.GetByID(ctx, settingsID)
	switch {
	case entitystore.IsNotFound(err):
		s = svc.defaults()
		us.apply(&s, nowFunc())
		created, err := svc.settings.Create(ctx, s)
		if !entitystore.IsDuplicateID(err) {
			return created, err
		}
		// saved concurrently since the lookup: apply on top of it
		if s, err = svc.settings.GetByID(ctx, settingsID); err != nil {
			return Settings{}, err
		}
	case err != nil:
		return Settings{}, err
	}

	us.apply(&s, nowFunc())
	rec, err := entitystore.ToRecord(s)
	if err != nil {
		return Settings{}, err
	}
	return svc.settings.Update(ctx, settingsID, rec)
}

// SendFeeReminders emails the guardian of every active student owing more than
// the configured minimum balance.
func (svc *Service) SendFeeReminders(ctx context.Context) (ReminderReport, error) {
	report := ReminderReport{Skipped: []string{}}

	settings, err := svc.GetSettings(ctx)
	if err != nil {
		return report, err
	}
	if !settings.FeeRemindersEnabled {
		return report, ErrRemindersDisabled
	}

	students, err := svc.students.Filter(ctx, student.QueryFilter{Status: student.StatusActive})
	if err != nil {
		return report, errors.Wrap(err, "listing students")
	}

	messages := make([]*core.EmailMessage, 0)
	for _, stu := range students {
		bills, err := svc.bills.BillsByStudent(ctx, stu.ID)
		if err != nil {
			return report, errors.Wrapf(err, "listing bills of %s", stu.AdmissionNumber)
		}
		data := feeReminderData{
			GuardianName:    stu.GuardianName,
			StudentName:     stu.FullName(),
			AdmissionNumber: stu.AdmissionNumber,
		}
		for _, b := range bills {
			if b.Balance <= 0 {
				continue
			}
			data.Balance += b.Balance
			data.Bills = append(data.Bills, reminderBill{
				BillNumber:   b.BillNumber,
				Term:         b.Term,
				AcademicYear: b.AcademicYear,
				Balance:      b.Balance,
			})
		}
		data.Balance = core.RoundCents(data.Balance)
		if data.Balance <= 0 || data.Balance < settings.MinimumBalance {
			continue
		}
		if stu.GuardianEmail == "" {
			report.Skipped = append(report.Skipped, stu.AdmissionNumber)
			continue
		}
		if data.GuardianName == "" {
			data.GuardianName = "Parent/Guardian"
		}

		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: stu.GuardianName, Address: stu.GuardianEmail}},
			Subject:      "Outstanding fees for " + data.StudentName,
			TemplateName: feeReminderTemplate,
			TemplateData: data,
			SchoolName:   settings.SchoolName,
		})
	}

	if len(messages) > 0 {
		svc.mailer.SendMessages(messages...)
	}
	report.Sent = len(messages)
	return report, nil
}
