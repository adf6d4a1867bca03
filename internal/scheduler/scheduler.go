package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"chatbot/internal/storage"
	"chatbot/internal/web"
)

// Scheduler runs the background maintenance of the service: expired
// sessions are pruned hourly and a daily usage summary is written to
// the log for admin review.
type Scheduler struct {
	cron     *cron.Cron
	sessions *web.SessionManager
	recorder storage.Recorder
	log      *zap.SugaredLogger
}

func New(sessions *web.SessionManager, recorder storage.Recorder, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		sessions: sessions,
		recorder: recorder,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 * * * *", s.pruneSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 21 * * *", s.logUsageSummary); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("maintenance scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	s.log.Infof("maintenance scheduler stopped")
}

func (s *Scheduler) pruneSessions() {
	if n := s.sessions.PruneExpired(); n > 0 {
		s.log.Infow("pruned expired sessions", "count", n)
	}
}

func (s *Scheduler) logUsageSummary() {
	if s.recorder == nil {
		return
	}
	events, err := s.recorder.LoadEvents()
	if err != nil {
		s.log.Errorw("daily usage summary failed", "error", err)
		return
	}
	for _, sum := range storage.Summarize(events) {
		s.log.Infow("daily usage",
			"user_id", sum.UserID, "text", sum.Text, "images", sum.Images, "failures", sum.Failures)
	}
}
