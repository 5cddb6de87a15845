package notes

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusUploading  = "uploading"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

// Document is an uploaded note file and its extracted text.
type Document struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`

	FileName   string `gorm:"type:text;not null" json:"file_name"`
	MimeType   string `gorm:"type:text;not null;default:''" json:"mime_type"`
	SizeBytes  int64  `gorm:"not null;default:0" json:"size_bytes"`
	StorageKey string `gorm:"type:text;not null;default:''" json:"storage_key,omitempty"`

	Status string `gorm:"type:text;not null;default:'uploading';index" json:"status"`
	Error  string `gorm:"type:text;not null;default:''" json:"error,omitempty"`
	Text   string `gorm:"type:text;not null;default:''" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Document) TableName() string { return "document" }

func (d *Document) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
