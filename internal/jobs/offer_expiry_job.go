package jobs

import (
	"context"
	"time"

	"github.com/winefeed/winefeed-api/internal/config"
	"github.com/winefeed/winefeed-api/internal/service"
	"go.uber.org/zap"
)

// offerExpiryTimeout bounds one full sweep run
const offerExpiryTimeout = 5 * time.Minute

// OfferExpiryJob sweeps sent offers whose validity window has passed and
// transitions them to expired.
type OfferExpiryJob struct {
	offers *service.OfferService
	logger *zap.Logger
}

func NewOfferExpiryJob(offers *service.OfferService, logger *zap.Logger) *OfferExpiryJob {
	return &OfferExpiryJob{offers: offers, logger: logger}
}

// Run executes one sweep
func (j *OfferExpiryJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), offerExpiryTimeout)
	defer cancel()

	expired, err := j.offers.ExpireDueOffers(ctx)
	if err != nil {
		j.logger.Error("offer expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		j.logger.Info("offer expiry sweep completed",
			zap.Int("offers_expired", expired))
	}
}

// Register adds the job to the scheduler when enabled in configuration
func Register(scheduler *Scheduler, cfg *config.JobsConfig, offers *service.OfferService, logger *zap.Logger) error {
	if !cfg.OfferExpiryEnabled {
		logger.Info("offer expiry job disabled")
		return nil
	}
	job := NewOfferExpiryJob(offers, logger)
	return scheduler.AddJob("offer-expiry", cfg.OfferExpiryCron, job.Run)
}
