package db

import (
	"time"

	"gorm.io/datatypes"
)

// Tenant is an independent bot identity. Projects, users' roles, messages
// and embeddings are isolated per tenant.
type Tenant struct {
	ID                  int64   `gorm:"primaryKey"`
	Name                string  `gorm:"not null"`
	TelegramBotToken    string  `gorm:"uniqueIndex;not null"`
	TelegramBotUsername *string `gorm:"index"`
	IsActive            bool    `gorm:"default:true"`
	CreatedAt           time.Time
}

func (Tenant) TableName() string { return "tenants" }

// User is a person known to the system. Platform IDs are nullable so a
// placeholder user can be created during an invitation before the person
// has ever talked to the bot.
type User struct {
	ID           int64   `gorm:"primaryKey"`
	TelegramID   *int64  `gorm:"uniqueIndex"`
	WhatsAppID   *string `gorm:"uniqueIndex"`
	FullName     string  `gorm:"not null"`
	Phone        *string
	IsBotStarted bool `gorm:"default:false"`
	CreatedAt    time.Time
}

func (User) TableName() string { return "users" }

type Project struct {
	ID             int64  `gorm:"primaryKey"`
	TenantID       *int64 `gorm:"index"`
	Name           string `gorm:"not null"`
	Address        *string
	AreaSqm        *float64
	RenovationType string `gorm:"not null"`
	TotalBudget    *float64
	TelegramChatID *int64 `gorm:"uniqueIndex"`
	IsActive       bool   `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Stages []Stage `gorm:"foreignKey:ProjectID"`
	Roles  []ProjectRole
}

func (Project) TableName() string { return "projects" }

// ProjectRole links a user to a project with one role. A user may hold
// several rows for the same project.
type ProjectRole struct {
	ID        int64  `gorm:"primaryKey"`
	ProjectID int64  `gorm:"uniqueIndex:ux_project_user_role;not null"`
	UserID    int64  `gorm:"uniqueIndex:ux_project_user_role;not null"`
	Role      string `gorm:"uniqueIndex:ux_project_user_role;not null"`
	CreatedAt time.Time

	User *User `gorm:"foreignKey:UserID"`
}

func (ProjectRole) TableName() string { return "project_roles" }

// Stage is one step of the renovation pipeline. Main stages hold orders
// 1..13; parallel furniture stages hold orders >= 100. The order is unique
// within a project.
type Stage struct {
	ID                 int64  `gorm:"primaryKey"`
	ProjectID          int64  `gorm:"uniqueIndex:ux_stage_project_order;not null"`
	Name               string `gorm:"not null"`
	Order              int    `gorm:"column:order;uniqueIndex:ux_stage_project_order;not null"`
	Status             string `gorm:"default:planned"`
	PaymentStatus      string `gorm:"default:recorded"`
	Budget             *float64
	StartDate          *time.Time
	EndDate            *time.Time
	ResponsibleUserID  *int64
	ResponsibleContact *string
	IsParallel         bool `gorm:"default:false"`
	IsCheckpoint       bool `gorm:"default:false"`
	LastActivityAt     *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	SubStages       []SubStage `gorm:"foreignKey:StageID;constraint:OnDelete:CASCADE"`
	ResponsibleUser *User      `gorm:"foreignKey:ResponsibleUserID"`
}

func (Stage) TableName() string { return "stages" }

type SubStage struct {
	ID                int64  `gorm:"primaryKey"`
	StageID           int64  `gorm:"index;not null"`
	Name              string `gorm:"not null"`
	Order             int    `gorm:"column:order;not null"`
	Status            string `gorm:"default:planned"`
	StartDate         *time.Time
	EndDate           *time.Time
	ResponsibleUserID *int64
	CreatedAt         time.Time
}

func (SubStage) TableName() string { return "sub_stages" }

type BudgetItem struct {
	ID                int64  `gorm:"primaryKey"`
	ProjectID         int64  `gorm:"index;not null"`
	StageID           *int64 `gorm:"index"`
	Category          string `gorm:"index;not null"`
	Description       *string
	WorkCost          float64 `gorm:"default:0"`
	MaterialCost      float64 `gorm:"default:0"`
	Prepayment        float64 `gorm:"default:0"`
	IsConfirmed       bool    `gorm:"default:false"`
	ConfirmedByUserID *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (BudgetItem) TableName() string { return "budget_items" }

// ChangeLog is append-only; rows are never updated or deleted.
type ChangeLog struct {
	ID                int64  `gorm:"primaryKey"`
	ProjectID         int64  `gorm:"index;not null"`
	UserID            *int64
	EntityType        string `gorm:"not null"`
	EntityID          int64  `gorm:"not null"`
	FieldName         string `gorm:"not null"`
	OldValue          *string
	NewValue          *string
	ConfirmedByUserID *int64
	CreatedAt         time.Time
}

func (ChangeLog) TableName() string { return "change_logs" }

// Message is the raw conversation log. Project and user references are
// weak: either may be null, and the row outlives both.
type Message struct {
	ID                int64   `gorm:"primaryKey"`
	ProjectID         *int64  `gorm:"index"`
	UserID            *int64  `gorm:"index"`
	Platform          string  `gorm:"uniqueIndex:ux_platform_message;not null"`
	PlatformChatID    string  `gorm:"index;not null"`
	PlatformMessageID *string `gorm:"uniqueIndex:ux_platform_message"`
	MessageType       string  `gorm:"default:text"`
	RawText           *string
	FileRef           *string
	TranscribedText   *string
	IsFromBot         bool `gorm:"default:false"`
	CreatedAt         time.Time

	User *User `gorm:"foreignKey:UserID"`
}

func (Message) TableName() string { return "messages" }

// CanonicalText returns the transcribed text when present, the raw text
// otherwise.
func (m *Message) CanonicalText() string {
	if m.TranscribedText != nil && *m.TranscribedText != "" {
		return *m.TranscribedText
	}
	if m.RawText != nil {
		return *m.RawText
	}
	return ""
}

// Embedding holds one indexed chunk. The dense vector column and the
// generated search_tsv column are managed by raw SQL in Migrate; gorm only
// sees the scalar fields.
type Embedding struct {
	ID        int64  `gorm:"primaryKey"`
	ProjectID int64  `gorm:"index;not null"`
	Content   string `gorm:"not null"`
	Metadata  datatypes.JSON
	CreatedAt time.Time
}

func (Embedding) TableName() string { return "embeddings" }

// EmbeddingMetadata is the structured payload stored in Embedding.Metadata.
type EmbeddingMetadata struct {
	Source    string `json:"source"`
	MessageID int64  `json:"message_id,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	Date      string `json:"date,omitempty"`
}
