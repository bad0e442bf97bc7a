package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Course is the marketplace aggregate the discussion subsystem hangs off of.
// Only the fields the chat core consumes live here; catalog, pricing and
// content delivery belong to other services.
type Course struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title string    `gorm:"not null;column:title" json:"title"`

	Metadata datatypes.JSON `gorm:"type:jsonb;column:metadata;not null;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Course) TableName() string { return "course" }

// CourseCreator links a course to the users who run it. Creators are
// auto-added to every discussion room opened on their course.
type CourseCreator struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index;index:idx_course_creator_course_user,unique,priority:1" json:"course_id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index;index:idx_course_creator_course_user,unique,priority:2" json:"user_id"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (CourseCreator) TableName() string { return "course_creator" }
