package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Timesheet approval statuses.
const (
	ApprovalStatusSubmitted = "submitted"
	ApprovalStatusApproved  = "approved"
	ApprovalStatusRejected  = "rejected"
)

// TimesheetApproval tracks one user's submitted week through the
// approval workflow. A rejected week may be resubmitted, which moves
// the same record back to submitted.
type TimesheetApproval struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`
	SpaceID primitive.ObjectID `bson:"space_id" json:"space_id"`

	// WeekStart is the Monday of the submitted week, at 00:00 UTC.
	WeekStart time.Time `bson:"week_start" json:"week_start"`

	// TotalMinutes is the tracked total at submission time, kept for
	// the reviewer's reference.
	TotalMinutes int `bson:"total_minutes" json:"total_minutes"`

	Status     string              `bson:"status" json:"status"`
	ReviewerID *primitive.ObjectID `bson:"reviewer_id,omitempty" json:"reviewer_id,omitempty"`
	ReviewNote string              `bson:"review_note,omitempty" json:"review_note,omitempty"`
	ReviewedAt *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`

	SubmittedAt time.Time `bson:"submitted_at" json:"submitted_at"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
