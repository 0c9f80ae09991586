package database

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Email          string `gorm:"size:255;not null;uniqueIndex"`
	HashedPassword string `gorm:"size:255"`
	FullName       string `gorm:"size:255"`
	IsActive       bool   `gorm:"default:true"`
	IsSuperuser    bool   `gorm:"default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Posts []Post `gorm:"foreignKey:AuthorId;constraint:OnDelete:CASCADE"`
}

type Post struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Title           string         `gorm:"size:255;not null"`
	Slug            string         `gorm:"size:255;not null;uniqueIndex"`
	Content         datatypes.JSON `gorm:"type:jsonb;not null"`
	Excerpt         string         `gorm:"size:500"`
	FeatureImageUrl string         `gorm:"size:255"`
	IsPublished     bool           `gorm:"default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time

	AuthorId uuid.UUID `gorm:"type:uuid;not null"`
	Author   *User     `gorm:"foreignKey:AuthorId"`

	Tags []Tag `gorm:"many2many:post_tags;constraint:OnDelete:CASCADE"`
}

type Tag struct {
	Id   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name string    `gorm:"size:50;not null;uniqueIndex"`

	Posts []Post `gorm:"many2many:post_tags"`
}

// MediaObject is the durable record of a stored (usually generated) asset.
// Rows are written once after a successful upload and never updated.
type MediaObject struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Filename   string `gorm:"size:255;not null"`
	Prompt     string
	Model      string `gorm:"size:40"`
	Url        string `gorm:"not null"`
	Provider   string `gorm:"size:20;not null"`
	ProviderId string `gorm:"size:255"`
	MediaType  string `gorm:"size:20;default:image"`

	CreatedAt time.Time
}

type RefreshToken struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	User      *User     `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	Revoked   bool      `gorm:"default:false"`

	CreatedAt time.Time
}
