package models

import "time"

type FlagStatus string

const (
	FlagPending       FlagStatus = "pending"
	FlagReviewing     FlagStatus = "reviewing"
	FlagResolved      FlagStatus = "resolved"
	FlagFalsePositive FlagStatus = "false_positive"
)

// Valid reports whether s is one of the review workflow statuses.
func (s FlagStatus) Valid() bool {
	switch s {
	case FlagPending, FlagReviewing, FlagResolved, FlagFalsePositive:
		return true
	}
	return false
}

// Flag is the durable, teacher-reviewable record of a confirmed concern.
// At most one exists per MessageID.
type Flag struct {
	ID                  string     `json:"flag_id" db:"flag_id"`
	MessageID           string     `json:"message_id" db:"message_id"`
	StudentID           string     `json:"student_id" db:"student_id"`
	TeacherID           string     `json:"teacher_id" db:"teacher_id"`
	RoomID              string     `json:"room_id" db:"room_id"`
	ConcernType         string     `json:"concern_type" db:"concern_type"`
	ConcernLevel        int        `json:"concern_level" db:"concern_level"`
	AnalysisExplanation string     `json:"analysis_explanation" db:"analysis_explanation"`
	Status              FlagStatus `json:"status" db:"status"`
	Notes               string     `json:"notes" db:"notes"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	ReviewedAt          *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
}

// Alert is what the dispatcher sends to the responsible teacher
type Alert struct {
	TeacherEmail       string `json:"teacher_email"`
	StudentDisplayName string `json:"student_display_name"`
	RoomName           string `json:"room_name"`
	ConcernType        string `json:"concern_type"`
	ConcernLevel       int    `json:"concern_level"`
	MessageExcerpt     string `json:"message_excerpt"`
	ReviewURL          string `json:"review_url"`
}
