package store

import "time"

// Role values for User.Role.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Status values for User.Status.
const (
	UserPending  = "pending"
	UserActive   = "active"
	UserDisabled = "disabled"
)

// Status values for AccountRequest.Status.
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// User is an account able to log in. Emails are stored lowercase and are
// unique case-insensitively.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         string     `gorm:"not null;default:user" json:"role"`
	Status       string     `gorm:"not null;default:pending" json:"status"`
	TempPassword bool       `gorm:"default:false" json:"temp_password"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool { return u.Status == UserActive }

// AccountRequest is a pending/processed request for an account. The
// pending→approved and pending→rejected transitions are terminal.
type AccountRequest struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Email           string     `gorm:"index;not null" json:"email"`
	Status          string     `gorm:"not null;default:pending" json:"status"`
	RequestedAt     time.Time  `gorm:"autoCreateTime" json:"requested_at"`
	ProcessedAt     *time.Time `json:"processed_at"`
	ProcessedBy     *uint      `json:"processed_by"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
}

// Transcript is one transcription owned by one user. Among rows with
// IsDuplicate false, YoutubeURL is unique; duplicates always reference
// the non-duplicate row they were copied from.
type Transcript struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"index:idx_user_transcripts" json:"user_id"`
	YoutubeURL           string    `gorm:"index;not null" json:"youtube_url"`
	VideoTitle           string    `json:"video_title"`
	Transcript           string    `gorm:"not null" json:"transcript"`
	FormattedTranscript  *string   `json:"formatted_transcript"`
	IsDuplicate          bool      `gorm:"default:false" json:"is_duplicate"`
	OriginalTranscriptID *uint     `json:"original_transcript_id"`
	CreatedAt            time.Time `gorm:"autoCreateTime;index:idx_user_transcripts,sort:desc" json:"created_at"`
}

// TranscriptSummary is the listing projection: full text is replaced by
// a short preview.
type TranscriptSummary struct {
	ID                   uint      `json:"id"`
	UserID               uint      `json:"user_id"`
	YoutubeURL           string    `json:"youtube_url"`
	VideoTitle           string    `json:"video_title"`
	Preview              string    `json:"preview"`
	IsDuplicate          bool      `json:"is_duplicate"`
	OriginalTranscriptID *uint     `json:"original_transcript_id"`
	CreatedAt            time.Time `json:"created_at"`
}

// Stats aggregates admin dashboard counters. APICallsSaved equals the
// duplicate count: each duplicate skipped a full pipeline run.
type Stats struct {
	TotalUsers           int64 `json:"total_users"`
	ActiveUsers          int64 `json:"active_users"`
	PendingRequests      int64 `json:"pending_requests"`
	TotalTranscripts     int64 `json:"total_transcripts"`
	OriginalTranscripts  int64 `json:"original_transcripts"`
	DuplicateTranscripts int64 `json:"duplicate_transcripts"`
	APICallsSaved        int64 `json:"api_calls_saved"`
}
