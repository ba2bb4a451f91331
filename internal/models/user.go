package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq" // required for pq.StringArray
	"gorm.io/gorm"
)

// User is a directory entry for anyone who can act on a complaint.
// Roles hold slugs ("student", "faculty", "warden", "security", "admin");
// legacy numeric IDs from old tokens are normalized by the rbac package.
type User struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	VitID     string         `gorm:"uniqueIndex" json:"vit_id"`
	FullName  string         `json:"full_name"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone"`
	Roles     pq.StringArray `gorm:"type:text[]" json:"roles"`
	BlockCode string         `json:"block_code"` // hostel block for wardens
}

// BeforeCreate is a GORM hook that assigns a UUID when none is set.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
