package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records a mutating operation performed through the API
type AuditLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
	ActorID    *uint             `gorm:"index" json:"actor_id,omitempty"` // nil for system actions (cron, seeder)
	Action     string            `gorm:"type:varchar(50);not null;index" json:"action"`
	Resource   string            `gorm:"type:varchar(30);not null" json:"resource"` // user, department, subject, grade
	ResourceID uint              `json:"resource_id,omitempty"`
	Details    datatypes.JSONMap `gorm:"type:jsonb" json:"details,omitempty"`

	Actor *User `gorm:"foreignKey:ActorID" json:"-"`
}

// Audit actions
const (
	AuditUserCreate       = "user_create"
	AuditUserUpdate       = "user_update"
	AuditUserDeactivate   = "user_deactivate"
	AuditUserDelete       = "user_delete"
	AuditDepartmentCreate = "department_create"
	AuditDepartmentUpdate = "department_update"
	AuditDepartmentDelete = "department_delete"
	AuditHODAssign        = "hod_assign"
	AuditSubjectCreate    = "subject_create"
	AuditSubjectUpdate    = "subject_update"
	AuditSubjectDelete    = "subject_delete"
	AuditGradeUpsert      = "grade_upsert"
	AuditGradePublish     = "grade_publish"
	AuditGradeDelete      = "grade_delete"
)
