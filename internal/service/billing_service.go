package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/internal/models"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/config"
	appErrors "github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/errors"
	"github.com/Nvda06042005/website-quan-ly-ky-tuc-xa-sinh-vien/pkg/jobs"
)

type billingInvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	BillingCandidates(ctx context.Context, periodStart, periodEnd time.Time) ([]models.BillingCandidate, error)
}

type billingContractRepository interface {
	MarkExpired(ctx context.Context, asOf time.Time) (int64, error)
}

// BillingResult summarises one billing cycle run.
type BillingResult struct {
	Period           string `json:"period"`
	InvoicesCreated  int    `json:"invoices_created"`
	InvoicesOverdue  int64  `json:"invoices_overdue"`
	ContractsExpired int64  `json:"contracts_expired"`
}

// BillingService derives rent amounts and due dates, and runs the
// recurring monthly billing cycle.
type BillingService struct {
	invoices  billingInvoiceRepository
	contracts billingContractRepository
	runner    *jobs.Runner
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       config.BillingConfig
	now       func() time.Time
}

// NewBillingService constructs a BillingService.
func NewBillingService(invoices billingInvoiceRepository, contracts billingContractRepository, logger *zap.Logger, cfg config.BillingConfig) *BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DueDay <= 0 || cfg.DueDay > 28 {
		cfg.DueDay = 5
	}
	if cfg.ContractMonths <= 0 {
		cfg.ContractMonths = 5
	}
	return &BillingService{invoices: invoices, contracts: contracts, logger: logger, cfg: cfg, now: time.Now}
}

// WithMetrics attaches billing cycle counters.
func (s *BillingService) WithMetrics(metrics *MetricsService) *BillingService {
	s.metrics = metrics
	return s
}

// MonthlyRent derives the monthly rent from the semester price, rounded
// to the nearest whole amount.
func (s *BillingService) MonthlyRent(pricePerSemester int64) int64 {
	return int64(math.Round(float64(pricePerSemester) / float64(s.cfg.ContractMonths)))
}

// ContractEndDate returns the end of a tenancy started at the given time.
func (s *BillingService) ContractEndDate(start time.Time) time.Time {
	return start.AddDate(0, s.cfg.ContractMonths, 0)
}

// FirstDueDate returns the due date of the first invoice for a contract
// starting at the given time. The due day of the starting month is used
// unless it has already passed, in which case billing rolls to the same
// day next month.
func (s *BillingService) FirstDueDate(start time.Time) time.Time {
	due := time.Date(start.Year(), start.Month(), s.cfg.DueDay, 0, 0, 0, 0, start.Location())
	if !due.After(start) {
		due = due.AddDate(0, 1, 0)
	}
	return due
}

// StartWorker attaches the billing runner and periodic trigger. The
// runner serialises cycle runs so a manual trigger and the ticker never
// bill the same period concurrently.
func (s *BillingService) StartWorker(ctx context.Context) {
	s.runner = jobs.NewRunner("billing", func(ctx context.Context) error {
		_, err := s.RunCycle(ctx)
		return err
	}, jobs.RunnerConfig{Logger: s.logger})
	s.runner.Start(ctx)

	if s.cfg.Interval > 0 {
		go s.tick(ctx)
	}
}

// StopWorker waits for any in-flight billing cycle to finish.
func (s *BillingService) StopWorker() {
	if s.runner != nil {
		s.runner.Stop()
	}
}

// Trigger requests a billing cycle run.
func (s *BillingService) Trigger() error {
	if s.runner == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "billing worker is not running")
	}
	return s.runner.Trigger()
}

// RunCycle executes one billing pass: expire finished contracts, flag
// overdue invoices, then create the current period's rent invoices for
// active contracts that do not have one yet. Creation is idempotent per
// period, so re-running a cycle never double-bills.
func (s *BillingService) RunCycle(ctx context.Context) (*BillingResult, error) {
	now := s.now().UTC()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0).Add(-time.Nanosecond)
	dueDate := time.Date(now.Year(), now.Month(), s.cfg.DueDay, 0, 0, 0, 0, time.UTC)

	result := &BillingResult{Period: periodStart.Format("2006-01")}

	expired, err := s.contracts.MarkExpired(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire contracts")
	}
	result.ContractsExpired = expired

	overdue, err := s.invoices.MarkOverdue(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag overdue invoices")
	}
	result.InvoicesOverdue = overdue

	candidates, err := s.invoices.BillingCandidates(ctx, periodStart, periodEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load billing candidates")
	}

	for _, candidate := range candidates {
		// A contract started after this period's due day gets its first
		// invoice at approval time, dated next month. Billing it here
		// would double-charge the first month with an invoice that is
		// already overdue.
		if s.FirstDueDate(candidate.StartDate).After(periodEnd) {
			continue
		}
		invoice := &models.Invoice{
			UserID:     candidate.UserID,
			ContractID: candidate.ContractID,
			Amount:     candidate.MonthlyRent,
			DueDate:    dueDate,
			Status:     models.InvoiceStatusPending,
			Type:       models.InvoiceTypeRoomRent,
		}
		if err := s.invoices.Create(ctx, invoice); err != nil {
			s.logger.Error("failed to create rent invoice",
				zap.String("contractId", candidate.ContractID),
				zap.Error(err))
			continue
		}
		result.InvoicesCreated++
	}

	s.metrics.RecordBillingCycle(result.InvoicesCreated)
	s.logger.Info("billing cycle complete",
		zap.String("period", result.Period),
		zap.Int("created", result.InvoicesCreated),
		zap.Int64("overdue", result.InvoicesOverdue),
		zap.Int64("expired", result.ContractsExpired))

	return result, nil
}

func (s *BillingService) tick(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Trigger(); err != nil {
				s.logger.Warn("failed to enqueue billing cycle", zap.Error(err))
			}
		}
	}
}
