package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/plevandm/repairhub-backend/internal/logger"
)

// EscrowJobs операции эскроу, выполняемые по расписанию от имени системы.
type EscrowJobs interface {
	ReleaseStalePayments(ctx context.Context, olderThan time.Duration) int
	ResolveExpiredDisputes(ctx context.Context, olderThan time.Duration) int
}

// Scheduler выполняет фоновые политики платформы: автовыплату по
// зависшим заказам и автозакрытие просроченных споров.
type Scheduler struct {
	cron            *cron.Cron
	escrow          EscrowJobs
	autoRelease     time.Duration
	disputeDeadline time.Duration
}

// New создаёт планировщик.
func New(escrow EscrowJobs, autoRelease, disputeDeadline time.Duration) *Scheduler {
	return &Scheduler{
		cron:            cron.New(),
		escrow:          escrow,
		autoRelease:     autoRelease,
		disputeDeadline: disputeDeadline,
	}
}

// Start регистрирует задачи и запускает расписание.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop останавливает расписание и дожидается выполняющихся задач.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	released := s.escrow.ReleaseStalePayments(ctx, s.autoRelease)
	resolved := s.escrow.ResolveExpiredDisputes(ctx, s.disputeDeadline)

	if (released > 0 || resolved > 0) && logger.Log != nil {
		logger.Log.WithFields(map[string]interface{}{
			"released": released,
			"resolved": resolved,
		}).Info("scheduler: фоновый проход завершён")
	}
}
