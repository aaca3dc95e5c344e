package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimeEntry is one span of tracked time. A running timer is a time
// entry with EndedAt unset; each user has at most one running entry
// at a time (starting a new timer stops the previous one).
type TimeEntry struct {
	ID      primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID  primitive.ObjectID  `bson:"user_id" json:"user_id"`
	SpaceID primitive.ObjectID  `bson:"space_id" json:"space_id"`
	Project primitive.ObjectID  `bson:"project_id" json:"project_id"`
	TaskID  *primitive.ObjectID `bson:"task_id,omitempty" json:"task_id,omitempty"`

	Note string `bson:"note,omitempty" json:"note,omitempty"`

	StartedAt time.Time  `bson:"started_at" json:"started_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Running reports whether the entry is an active timer.
func (e TimeEntry) Running() bool {
	return e.EndedAt == nil
}

// DurationMinutes returns the entry's duration in whole minutes.
// Running entries are measured against now.
func (e TimeEntry) DurationMinutes(now time.Time) int {
	end := now
	if e.EndedAt != nil {
		end = *e.EndedAt
	}
	d := end.Sub(e.StartedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}
