package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusOpen           ProjectStatus = "open"
	ProjectStatusInProgress     ProjectStatus = "in_progress"
	ProjectStatusAwaitingReview ProjectStatus = "awaiting_review"
	ProjectStatusCompleted      ProjectStatus = "completed"
)

// projectStatusRank orders the lifecycle; a transition may only move forward.
var projectStatusRank = map[ProjectStatus]int{
	ProjectStatusOpen:           0,
	ProjectStatusInProgress:     1,
	ProjectStatusAwaitingReview: 2,
	ProjectStatusCompleted:      3,
}

// CanTransitionTo reports whether moving from s to next goes forward by exactly
// one step. There is no backward transition in the normal flow.
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	from, ok1 := projectStatusRank[s]
	to, ok2 := projectStatusRank[next]
	return ok1 && ok2 && to == from+1
}

type Project struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID     uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	FreelancerID *uuid.UUID `gorm:"type:uuid;index" json:"freelancer_id,omitempty"`

	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Budget      *float64       `json:"budget,omitempty"`
	Deadline    *time.Time     `json:"deadline,omitempty"`
	Tags        datatypes.JSON `json:"tags,omitempty"`

	Status ProjectStatus `gorm:"type:varchar(20);default:'open';index" json:"status"`

	// Version guards concurrent status transitions (compare-and-swap on update).
	Version int `gorm:"default:1" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client     *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Freelancer *User `gorm:"foreignKey:FreelancerID" json:"freelancer,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return
}
