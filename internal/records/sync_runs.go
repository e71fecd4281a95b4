package records

import (
	"context"

	"github.com/localnerve/layersync/internal/models"
)

// RecordSyncRun stores the outcome of a reconciliation run.
func (s *Store) RecordSyncRun(ctx context.Context, run *models.SyncRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

// LatestSyncRuns returns the most recent runs, newest first.
func (s *Store) LatestSyncRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	var runs []models.SyncRun
	err := s.quiet(ctx).Order("id desc").Limit(limit).Find(&runs).Error
	return runs, err
}
