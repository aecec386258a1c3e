package notification

import (
	"time"

	"github.com/trezcool/shule/core"
)

const (
	Collection = "notificationSettings"

	// settingsID is the id of the single settings record.
	settingsID = "default"

	feeReminderTemplate = "fee_reminder"
)

type Settings struct {
	ID                  string    `json:"id,omitempty"`
	SchoolName          string    `json:"schoolName"`
	SenderName          string    `json:"senderName"`
	SenderEmail         string    `json:"senderEmail"`
	FeeRemindersEnabled bool      `json:"feeRemindersEnabled"`
	MinimumBalance      float64   `json:"minimumBalance"`
	UpdatedAt           time.Time `json:"updatedAt"` // UTC
}

type UpdateSettings struct {
	SchoolName          *string  `json:"schoolName" validate:"omitnil,notblank"`
	SenderName          *string  `json:"senderName"`
	SenderEmail         *string  `json:"senderEmail" validate:"omitnil,email"`
	FeeRemindersEnabled *bool    `json:"feeRemindersEnabled"`
	MinimumBalance      *float64 `json:"minimumBalance" validate:"omitnil,gte=0"`
}

func (us *UpdateSettings) Clean() {
	if us.SchoolName != nil {
		*us.SchoolName = core.CleanString(*us.SchoolName)
	}
	if us.SenderName != nil {
		*us.SenderName = core.CleanString(*us.SenderName)
	}
	if us.SenderEmail != nil {
		*us.SenderEmail = core.CleanString(*us.SenderEmail, true /* lower */)
	}
	if us.MinimumBalance != nil {
		*us.MinimumBalance = core.RoundCents(*us.MinimumBalance)
	}
}

func (us UpdateSettings) apply(s *Settings, now time.Time) {
	if us.SchoolName != nil {
		s.SchoolName = *us.SchoolName
	}
	if us.SenderName != nil {
		s.SenderName = *us.SenderName
	}
	if us.SenderEmail != nil {
		s.SenderEmail = *us.SenderEmail
	}
	if us.FeeRemindersEnabled != nil {
		s.FeeRemindersEnabled = *us.FeeRemindersEnabled
	}
	if us.MinimumBalance != nil {
		s.MinimumBalance = *us.MinimumBalance
	}
	s.UpdatedAt = now
}

// feeReminderData is what the fee_reminder templates render.
type feeReminderData struct {
	GuardianName    string
	StudentName     string
	AdmissionNumber string
	Balance         float64
	Bills           []reminderBill
}

type reminderBill struct {
	BillNumber   string
	Term         string
	AcademicYear string
	Balance      float64
}

// ReminderReport tells what a SendFeeReminders run did.
type ReminderReport struct {
	Sent    int      `json:"sent"`
	Skipped []string `json:"skipped"` // admission numbers with a balance but no guardian email
}
