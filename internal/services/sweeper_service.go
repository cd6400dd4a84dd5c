package services

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/viettravel/booking-backend/internal/database"
)

// SweeperService is the background job that keeps abandoned checkouts from
// leaking inventory: expired seat holds go back to the pool and stale
// INITIATED payment attempts are marked abandoned.
type SweeperService struct {
	inventory    *InventoryService
	transactions *database.PaymentTransactionRepository
	schedule     string
	staleAfter   time.Duration
	cron         *cron.Cron
}

// NewSweeperService creates the sweeper. schedule is a cron spec with
// seconds; staleAfter is how long an INITIATED transaction may sit before
// it is considered abandoned.
func NewSweeperService(inventory *InventoryService, transactions *database.PaymentTransactionRepository,
	schedule string, staleAfter time.Duration) *SweeperService {
	return &SweeperService{
		inventory:    inventory,
		transactions: transactions,
		schedule:     schedule,
		staleAfter:   staleAfter,
	}
}

// Start registers the sweep and begins the scheduler
func (s *SweeperService) Start() error {
	s.cron = cron.New(cron.WithSeconds())

	if _, err := s.cron.AddFunc(s.schedule, s.runSweep); err != nil {
		return err
	}

	s.cron.Start()
	logrus.WithField("schedule", s.schedule).Info("Hold expiry sweeper started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish
func (s *SweeperService) Stop() {
	if s.cron == nil {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	logrus.Info("Hold expiry sweeper stopped")
}

// RunNow triggers one sweep outside the schedule (manual operations)
func (s *SweeperService) RunNow() {
	s.runSweep()
}

func (s *SweeperService) runSweep() {
	released, err := s.inventory.SweepExpired()
	if err != nil {
		logrus.WithField("error", err.Error()).Error("Hold expiry sweep failed")
	} else if released > 0 {
		logrus.WithField("released", released).Info("Expired seat holds released")
	}

	cutoff := time.Now().Add(-s.staleAfter)
	abandoned, err := s.transactions.AbandonStale(cutoff)
	if err != nil {
		logrus.WithField("error", err.Error()).Error("Stale transaction sweep failed")
	} else if abandoned > 0 {
		logrus.WithField("abandoned", abandoned).Info("Stale payment attempts abandoned")
	}
}
