package models

import "time"

// Complaint is one incident record. Status and lock fields are only ever
// written through the ledger; handlers must not update them directly.
type Complaint struct {
	ComplaintID  string `gorm:"primaryKey"`
	Title        string
	TitlePreview string
	SecretJSON   string // sealed payload, base64(nonce|tag|ciphertext)
	Severity     string
	Category     string
	Subcategory  string
	Status       string

	FiledBy      string // role slug of the filer
	CreatedByVit string `gorm:"index"`

	AssignedBlock string
	AssignedTo    string

	VerificationCode string

	IsLocked     bool
	LockOwnerVit string
	LockReason   string
	LockedOn     *time.Time

	CreatedOn time.Time
	UpdatedOn time.Time
}

// ComplaintParty links a participant (victim/witness/accused) to a complaint.
type ComplaintParty struct {
	CpID        uint   `gorm:"primaryKey;autoIncrement"`
	ComplaintID string `gorm:"index"`
	VitID       string
	PartyRole   string
	IsPrimary   bool
	Notes       string
}

// LogRecord is one immutable entry in a complaint's hash chain.
// PrevHash and RecordHash are 64-char lowercase hex sha256 digests.
type LogRecord struct {
	LogID       uint   `gorm:"primaryKey;autoIncrement"`
	ComplaintID string `gorm:"index"`
	ActorVitID  string
	Action      string
	StatusAfter *string
	Notes       string
	CreatedOn   time.Time
	PrevHash    string `gorm:"type:char(64)"`
	RecordHash  string `gorm:"type:char(64)"`
}

// LogEvent is the wire form of a committed LogRecord, published to Redis
// and pushed to connected staff clients.
type LogEvent struct {
	ComplaintID string  `json:"complaint_id"`
	Action      string  `json:"action"`
	StatusAfter *string `json:"status_after"`
	ActorVitID  string  `json:"actor_vit_id"`
	RecordHash  string  `json:"record_hash"`
}
