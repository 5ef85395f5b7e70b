package utils

import (
	"time"

	"github.com/bazaarche/bazaarche/config"
	"github.com/bazaarche/bazaarche/models"
)

// StartOrphanSweeper launches a background goroutine that periodically
// retries deletion of upload files recorded as orphaned (removed from a
// listing but not deletable at the time). Best-effort; failures are logged
// and retried on the next pass.
func StartOrphanSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup.
			time.Sleep(interval)
			db := config.DB()
			if db == nil {
				continue
			}
			var orphans []models.OrphanFile
			if err := db.Order("created_at").Limit(100).Find(&orphans).Error; err != nil {
				Sugar.Warnf("orphan sweeper query failed: %v", err)
				continue
			}
			for _, o := range orphans {
				if err := RemoveUpload(o.Path); err != nil {
					Sugar.Warnf("orphan sweeper remove failed path=%s attempts=%d err=%v", o.Path, o.Attempts+1, err)
					_ = db.Model(&models.OrphanFile{}).Where("id = ?", o.ID).Update("attempts", o.Attempts+1).Error
					continue
				}
				if err := db.Delete(&models.OrphanFile{}, o.ID).Error; err != nil {
					Sugar.Warnf("orphan sweeper delete row failed: %v", err)
				}
			}
		}
	}()
}

// RecordOrphan registers a public upload path for later deletion by the
// sweeper. Used when inline cleanup fails after a listing update commits.
func RecordOrphan(path string) {
	db := config.DB()
	if db == nil || path == "" {
		return
	}
	if err := db.Create(&models.OrphanFile{Path: path}).Error; err != nil {
		Sugar.Warnf("failed to record orphan file %s: %v", path, err)
	}
}
