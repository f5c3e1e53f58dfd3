package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"schoolhub/internal/config"
	"schoolhub/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
)

// Job names, also used as metric labels
const (
	JobOverdueScan      = "overdue_scan"
	JobConsistencyAudit = "consistency_audit"
	JobTokenCleanup     = "token_cleanup"
)

// jobTimeout bounds a single scheduled run
const jobTimeout = 5 * time.Minute

// CronService runs the scheduled maintenance jobs. Jobs only read, except token cleanup.
type CronService struct {
	cron    *cron.Cron
	assets  *AssetService
	loans   *LoanService
	auth    *AuthService
	cfg     config.CronConfig
	metrics *metrics.Metrics
}

// NewCronService creates a new cron service
func NewCronService(
	assets *AssetService,
	loans *LoanService,
	auth *AuthService,
	cfg config.CronConfig,
	m *metrics.Metrics,
) *CronService {
	logger := cron.PrintfLogger(log.Default())

	return &CronService{
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		)),
		assets:  assets,
		loans:   loans,
		auth:    auth,
		cfg:     cfg,
		metrics: m,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{JobOverdueScan, s.cfg.OverdueSpec, func(ctx context.Context) error {
			_, err := s.RunOverdueScan(ctx)
			return err
		}},
		{JobConsistencyAudit, s.cfg.AuditSpec, func(ctx context.Context) error {
			_, err := s.RunConsistencyAudit(ctx)
			return err
		}},
		{JobTokenCleanup, s.cfg.TokenCleanupSpec, func(ctx context.Context) error {
			_, err := s.RunTokenCleanup(ctx)
			return err
		}},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cron.AddFunc(job.spec, func() { s.run(job.name, job.run) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
	}

	s.cron.Start()
	log.Println("🚀 CronService started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	log.Println("🛑 CronService stopped")
}

// Entries returns the number of scheduled jobs
func (s *CronService) Entries() int {
	return len(s.cron.Entries())
}

func (s *CronService) run(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	started := time.Now()
	if err := fn(ctx); err != nil {
		log.Printf("❌ Cron %s failed: %v", name, err)
	}
	s.metrics.JobFinished(name, started)
}

// RunOverdueScan counts processing loans past their return date
func (s *CronService) RunOverdueScan(ctx context.Context) (int, error) {
	loans, err := s.loans.ListOverdue(ctx)
	if err != nil {
		return 0, err
	}

	for _, loan := range loans {
		log.Printf("⏰ Overdue loan %d: book %d, borrower %d, due %s",
			loan.ID, loan.BookID, loan.BorrowerID, loan.ReturnDate.Format(dateLayout))
	}

	s.metrics.SetOverdueLoans(len(loans))
	if len(loans) > 0 {
		log.Printf("⏰ %d overdue loans", len(loans))
	}
	return len(loans), nil
}

// RunConsistencyAudit replays every asset history against its row and checks book
// availability against open loans
func (s *CronService) RunConsistencyAudit(ctx context.Context) (*AuditResult, error) {
	result, err := s.assets.Audit(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range result.Mismatches {
		log.Printf("⚠️ Asset %d (%s) inconsistent: %s", m.AssetID, m.Tag, m.Reason)
	}
	s.metrics.SetConsistencyMismatches(len(result.Mismatches))

	books, err := s.loans.AvailabilityMismatches(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range books {
		log.Printf("⚠️ Book %d availability disagrees with its open loans", id)
	}

	log.Printf("🔍 Consistency audit: %d assets checked, %d mismatched, %d books mismatched",
		result.Checked, len(result.Mismatches), len(books))
	return result, nil
}

// RunTokenCleanup deletes expired refresh tokens
func (s *CronService) RunTokenCleanup(ctx context.Context) (int64, error) {
	n, err := s.auth.CleanupExpiredTokens(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Printf("🧹 Deleted %d expired refresh tokens", n)
	}
	return n, nil
}
