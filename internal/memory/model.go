package memory

import (
	"time"

	"github.com/lib/pq"
)

// Valid classification values. The LLM is instructed to pick from these;
// anything it invents falls back to the defaults at classification time.
const (
	DefaultCategory   = "general"
	DefaultType       = "fact"
	DefaultImportance = "medium"
)

// Memory is a persisted, normalized fact about the user. Rows are never
// removed on single-item delete; is_active flips false and deleted_at is
// set. Only Clear truly deletes rows.
type Memory struct {
	ID              string         `gorm:"primaryKey" json:"id"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	RawInput        string         `gorm:"type:text;not null" json:"raw_input"`
	Category        string         `gorm:"index;not null;default:'general'" json:"category"`
	MemoryType      string         `gorm:"not null;default:'fact'" json:"memory_type"`
	ImportanceLevel string         `gorm:"index;not null;default:'medium'" json:"importance_level"`
	// Stored in pq array text form so one model works against both the
	// production Postgres and the sqlite test database.
	Tags            pq.StringArray `gorm:"type:text;not null;default:'{}'" json:"tags"`
	RelatedEntities pq.StringArray `gorm:"type:text;not null;default:'{}'" json:"related_entities"`
	Context         *string        `gorm:"type:text" json:"context"`
	IsActive        bool           `gorm:"index;not null;default:true" json:"is_active"`
	CreatedAt       time.Time      `gorm:"index;not null" json:"created_at"`
	DeletedAt       *time.Time     `json:"deleted_at"`
}

func (Memory) TableName() string { return "memories" }

// HasTag reports whether tag is present, exact match.
func (m Memory) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
