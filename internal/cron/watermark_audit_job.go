package cron

import (
	"context"
	"fmt"

	"github.com/tefamart/tefamart-backend/pkg/logger"
)

type watermarkAuditor interface {
	AuditWatermarks(ctx context.Context) (int, error)
}

type WatermarkAuditJobParams struct {
	Logger    *logger.Logger
	Lifecycle watermarkAuditor
}

func NewWatermarkAuditJob(params WatermarkAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lifecycle == nil {
		return nil, fmt.Errorf("auction lifecycle required")
	}
	return &watermarkAuditJob{
		logg:      params.Logger,
		lifecycle: params.Lifecycle,
	}, nil
}

type watermarkAuditJob struct {
	logg      *logger.Logger
	lifecycle watermarkAuditor
}

func (j *watermarkAuditJob) Name() string { return "watermark-audit" }

func (j *watermarkAuditJob) Run(ctx context.Context) error {
	repaired, err := j.lifecycle.AuditWatermarks(ctx)
	if err != nil {
		return fmt.Errorf("watermark audit: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "repaired", repaired)
	j.logg.Info(logCtx, "watermark audit complete")
	return nil
}
