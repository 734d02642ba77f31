package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/camilavaldes/splitabill-backend/pkg/db/models"
	"github.com/camilavaldes/splitabill-backend/pkg/enums"
	pkgerrors "github.com/camilavaldes/splitabill-backend/pkg/errors"
	"github.com/camilavaldes/splitabill-backend/pkg/logger"
)

// ReminderRepository persists reminder bookkeeping for pending invoices.
type ReminderRepository interface {
	WithTx(tx *gorm.DB) ReminderRepository
	ListRecurringPending(ctx context.Context) ([]models.Invoice, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.PaymentReminder, error)
	Create(ctx context.Context, reminder *models.PaymentReminder) error
	Touch(ctx context.Context, reminderID uuid.UUID, sentAt time.Time) error
}

type reminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) WithTx(tx *gorm.DB) ReminderRepository {
	if tx == nil {
		return r
	}
	return &reminderRepository{db: tx}
}

func (r *reminderRepository) ListRecurringPending(ctx context.Context) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := r.db.WithContext(ctx).
		Where("status = ? AND frequency_cycle <> ?", enums.InvoiceStatusPending, enums.ReminderFrequencyNone).
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *reminderRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.PaymentReminder, error) {
	var reminder models.PaymentReminder
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		First(&reminder).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reminder, nil
}

func (r *reminderRepository) Create(ctx context.Context, reminder *models.PaymentReminder) error {
	return r.db.WithContext(ctx).Create(reminder).Error
}

func (r *reminderRepository) Touch(ctx context.Context, reminderID uuid.UUID, sentAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentReminder{}).
		Where("id = ?", reminderID).
		Update("last_sent_at", sentAt).Error
}

// ReminderServiceParams groups dependencies for the reminder service.
type ReminderServiceParams struct {
	Repo     ReminderRepository
	Notifier Notifier
	Logger   *logger.Logger
}

// ReminderService nudges payers of recurring pending invoices on their
// invoice's cycle.
type ReminderService struct {
	repo     ReminderRepository
	notifier Notifier
	logg     *logger.Logger
	now      func() time.Time
}

func NewReminderService(params ReminderServiceParams) (*ReminderService, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &ReminderService{
		repo:     params.Repo,
		notifier: params.Notifier,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func cycleInterval(frequency enums.ReminderFrequency) time.Duration {
	switch frequency {
	case enums.ReminderFrequencyDaily:
		return 24 * time.Hour
	case enums.ReminderFrequencyWeekly:
		return 7 * 24 * time.Hour
	case enums.ReminderFrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// SendDue walks recurring pending invoices and notifies payers whose cycle
// has elapsed since the last reminder. Returns how many were sent.
func (s *ReminderService) SendDue(ctx context.Context) (int, error) {
	invoices, err := s.repo.ListRecurringPending(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recurring invoices")
	}

	now := s.now()
	sent := 0
	for _, invoice := range invoices {
		interval := cycleInterval(invoice.FrequencyCycle)
		if interval == 0 {
			continue
		}
		reminder, err := s.repo.FindByInvoice(ctx, invoice.ID)
		if err != nil {
			return sent, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find reminder")
		}
		if reminder == nil {
			reminder = &models.PaymentReminder{InvoiceID: invoice.ID, UserID: invoice.FromUserID}
			if err := s.repo.Create(ctx, reminder); err != nil {
				return sent, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reminder")
			}
		}
		if reminder.LastSentAt != nil && now.Sub(*reminder.LastSentAt) < interval {
			continue
		}

		text := fmt.Sprintf("You have a pending bill of %d %s", invoice.TotalAmount, invoice.Currency)
		if err := s.notifier.Notify(ctx, invoice.FromUserID, text); err != nil {
			s.logg.Error(ctx, "reminder delivery failed", err)
			continue
		}
		if err := s.repo.Touch(ctx, reminder.ID, now); err != nil {
			return sent, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record reminder")
		}
		sent++
	}
	return sent, nil
}

// Run fires SendDue on the interval until ctx is cancelled.
func (s *ReminderService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SendDue(ctx); err != nil {
				s.logg.Error(ctx, "reminder sweep failed", err)
			}
		}
	}
}
