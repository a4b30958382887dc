package models

import "time"

// Role of a message author
type Role string

const (
	RoleLearner   Role = "learner"
	RoleTeacher   Role = "teacher"
	RoleAssistant Role = "assistant"
)

// Message represents a stored chat message in a room
type Message struct {
	ID        string    `json:"id" db:"id"`
	RoomID    string    `json:"room_id" db:"room_id"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	ChatbotID string    `json:"chatbot_id,omitempty" db:"chatbot_id"`
	Role      Role      `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Room carries the per-room moderation settings the ingestion layer knows about
type Room struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TeacherID  string `json:"teacher_id"`
	IsUnder13  bool   `json:"is_under_13"`
	StrictMode bool   `json:"strict_mode"`
}

// Profile is the relational profile lookup used to address alerts
type Profile struct {
	ID          string `json:"id" db:"id"`
	Email       string `json:"email" db:"email"`
	DisplayName string `json:"display_name" db:"display_name"`
	Role        Role   `json:"role" db:"role"`
}

// ContextTurn is one prior conversation turn handed to the verifier
type ContextTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
