package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/skillsenselab/tubescribe/internal/apperr"
)

const previewLen = 200

// SaveTranscript inserts a new transcript row.
func (s *Store) SaveTranscript(ctx context.Context, t *Transcript) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return apperr.DatabaseError(err)
	}
	return nil
}

// FindOriginalByURL returns the newest non-duplicate transcript for the
// exact URL, or nil when none exists. This lookup is the dedup gate: a
// hit means the pipeline is skipped entirely.
func (s *Store) FindOriginalByURL(ctx context.Context, url string) (*Transcript, error) {
	var t Transcript
	err := s.db.WithContext(ctx).
		Where("youtube_url = ? AND is_duplicate = ?", url, false).
		Order("created_at DESC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return &t, nil
}

// CopyTranscriptForUser clones an existing transcript for another user,
// flagged as a duplicate referencing the original.
func (s *Store) CopyTranscriptForUser(ctx context.Context, originalID, userID uint) (*Transcript, error) {
	original, err := s.GetTranscript(ctx, originalID, 0)
	if err != nil {
		return nil, err
	}

	dup := &Transcript{
		UserID:               userID,
		YoutubeURL:           original.YoutubeURL,
		VideoTitle:           original.VideoTitle,
		Transcript:           original.Transcript,
		FormattedTranscript:  original.FormattedTranscript,
		IsDuplicate:          true,
		OriginalTranscriptID: &original.ID,
	}
	if err := s.db.WithContext(ctx).Create(dup).Error; err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return dup, nil
}

// GetTranscript fetches one transcript. A non-zero userID restricts the
// lookup to that owner; admins pass zero to bypass the check.
func (s *Store) GetTranscript(ctx context.Context, id, userID uint) (*Transcript, error) {
	q := s.db.WithContext(ctx)
	if userID != 0 {
		q = q.Where("id = ? AND user_id = ?", id, userID)
	} else {
		q = q.Where("id = ?", id)
	}

	var t Transcript
	err := q.First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("transcript", "")
	}
	if err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return &t, nil
}

// ListUserTranscripts returns the owner's transcripts, newest first,
// with previews instead of full text.
func (s *Store) ListUserTranscripts(ctx context.Context, userID uint) ([]TranscriptSummary, error) {
	return s.listTranscripts(ctx, s.db.WithContext(ctx).Where("user_id = ?", userID))
}

// ListAllTranscripts returns every transcript (admin view).
func (s *Store) ListAllTranscripts(ctx context.Context) ([]TranscriptSummary, error) {
	return s.listTranscripts(ctx, s.db.WithContext(ctx))
}

func (s *Store) listTranscripts(_ context.Context, q *gorm.DB) ([]TranscriptSummary, error) {
	var summaries []TranscriptSummary
	err := q.Model(&Transcript{}).
		Select("id, user_id, youtube_url, video_title, substr(transcript, 1, ?) AS preview, is_duplicate, original_transcript_id, created_at", previewLen).
		Order("created_at DESC").
		Scan(&summaries).Error
	if err != nil {
		return nil, apperr.DatabaseError(err)
	}
	return summaries, nil
}

// DeleteTranscript removes a transcript. A non-zero userID restricts
// deletion to the owner.
func (s *Store) DeleteTranscript(ctx context.Context, id, userID uint) error {
	q := s.db.WithContext(ctx)
	if userID != 0 {
		q = q.Where("id = ? AND user_id = ?", id, userID)
	} else {
		q = q.Where("id = ?", id)
	}

	res := q.Delete(&Transcript{})
	if res.Error != nil {
		return apperr.DatabaseError(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("transcript", "")
	}
	return nil
}

// GetStats aggregates the admin dashboard counters.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	var stats Stats

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, db.Model(&User{})},
		{&stats.ActiveUsers, db.Model(&User{}).Where("status = ?", UserActive)},
		{&stats.PendingRequests, db.Model(&AccountRequest{}).Where("status = ?", RequestPending)},
		{&stats.TotalTranscripts, db.Model(&Transcript{})},
		{&stats.OriginalTranscripts, db.Model(&Transcript{}).Where("is_duplicate = ?", false)},
		{&stats.DuplicateTranscripts, db.Model(&Transcript{}).Where("is_duplicate = ?", true)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dest).Error; err != nil {
			return nil, apperr.DatabaseError(err)
		}
	}

	stats.APICallsSaved = stats.DuplicateTranscripts
	return &stats, nil
}
