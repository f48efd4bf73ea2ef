package services

import (
	"context"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/acadex/acadex-api/model"
)

// AuditService records mutating operations. Writes are best-effort: an audit
// failure is logged but never fails the operation it describes.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Log writes one audit entry. actorID is nil for system actions.
func (s *AuditService) Log(ctx context.Context, actorID *uint, action, resource string, resourceID uint, details map[string]interface{}) {
	entry := model.AuditLog{
		ActorID:    actorID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
	}
	if details != nil {
		entry.Details = datatypes.JSONMap(details)
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("[AUDIT] failed to record %s on %s/%d: %v", action, resource, resourceID, err)
	}
}

// CleanupOld deletes audit entries created before the cutoff and returns how
// many rows were removed.
func (s *AuditService) CleanupOld(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.AuditLog{})
	return result.RowsAffected, result.Error
}
