// Package job holds the scheduled maintenance tasks of the panel.
package job

import (
	"gradebook/database"
	"gradebook/logger"
)

// CheckpointJob periodically flushes the SQLite WAL into the main database
// file so the on-disk copy stays current between shutdowns.
type CheckpointJob struct{}

func NewCheckpointJob() *CheckpointJob {
	return new(CheckpointJob)
}

// Run implements cron.Job.
func (j *CheckpointJob) Run() {
	if err := database.Checkpoint(); err != nil {
		logger.Warning("wal checkpoint job err:", err)
	}
}
