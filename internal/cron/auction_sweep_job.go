package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/tefamart/tefamart-backend/pkg/logger"
)

// auctionSweeper is the slice of the auction lifecycle the sweep job drives.
type auctionSweeper interface {
	ActivateDue(ctx context.Context, now time.Time) (int, error)
	CloseDue(ctx context.Context, now time.Time) (int, error)
}

type AuctionSweepJobParams struct {
	Logger    *logger.Logger
	Lifecycle auctionSweeper
}

func NewAuctionSweepJob(params AuctionSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lifecycle == nil {
		return nil, fmt.Errorf("auction lifecycle required")
	}
	return &auctionSweepJob{
		logg:      params.Logger,
		lifecycle: params.Lifecycle,
		now:       time.Now,
	}, nil
}

type auctionSweepJob struct {
	logg      *logger.Logger
	lifecycle auctionSweeper
	now       func() time.Time
}

func (j *auctionSweepJob) Name() string { return "auction-sweep" }

// Run opens due auctions before closing expired ones so an auction whose
// whole window fell between two sweeps still gets a close pass next cycle.
// A failure in one phase does not stop the other.
func (j *auctionSweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs []error

	activated, err := j.lifecycle.ActivateDue(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("activate due auctions: %w", err))
	}
	closed, err := j.lifecycle.CloseDue(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("close due auctions: %w", err))
	}
	if len(errs) > 0 {
		return multierr.Combine(errs...)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"activated": activated,
		"closed":    closed,
	})
	j.logg.Info(logCtx, "auction sweep complete")
	return nil
}
