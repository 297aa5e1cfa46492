package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apresai/podcastos/internal/model"
)

// PersistEpisode atomically creates the Episode row, one Segment row per
// audio segment, and one TopicHistory row per entry in history — the
// persisting-stage write (spec.md §4.7).
func (s *Store) PersistEpisode(ctx context.Context, ep model.Episode, segments []model.AudioSegment, history []model.TopicHistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist episode: begin tx: %w", err)
	}
	defer tx.Rollback()

	script, err := marshalJSON(ep.Script)
	if err != nil {
		return err
	}
	topics, err := marshalJSON(ep.Topics)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO episodes (id, profile_id, title, description, published_at, duration_seconds, audio_url, script, topics, newsletter_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ep.ID, ep.ProfileID, ep.Title, ep.Description, ep.PublishedAt, ep.DurationSeconds, ep.AudioURL, script, topics, ep.NewsletterURL,
	)
	if err != nil {
		return fmt.Errorf("persist episode: insert episode: %w", err)
	}

	for i, seg := range segments {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO segments (episode_id, ordinal, topic_id, content_type, topic_headline, transcript, start_time_seconds, duration_seconds, local_path)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			ep.ID, i, seg.TopicID, seg.ContentType, seg.TopicHeadline, seg.Transcript, seg.StartTimeSeconds, seg.DurationSeconds, seg.LocalPath,
		)
		if err != nil {
			return fmt.Errorf("persist episode: insert segment %d: %w", i, err)
		}
	}

	for _, h := range history {
		keyPoints, err := marshalJSON(h.KeyPoints)
		if err != nil {
			return err
		}
		facts, err := marshalJSON(h.FactsMentioned)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO topic_history (profile_id, episode_id, headline, category, summary, key_points, facts_mentioned, ongoing, follow_up_notes, importance, covered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			h.ProfileID, ep.ID, h.Headline, h.Category, h.Summary, keyPoints, facts, h.Ongoing, h.FollowUpNotes, h.Importance, h.CoveredAt,
		)
		if err != nil {
			return fmt.Errorf("persist episode: insert topic history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist episode: commit: %w", err)
	}
	return nil
}

// GetEpisode retrieves one episode with its segments.
func (s *Store) GetEpisode(ctx context.Context, id string) (model.Episode, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, profile_id, title, description, published_at, duration_seconds, audio_url, script, topics, newsletter_url
		FROM episodes WHERE id=$1`, id)

	var ep model.Episode
	var script, topics []byte
	var newsletterURL sql.NullString
	err := row.Scan(&ep.ID, &ep.ProfileID, &ep.Title, &ep.Description, &ep.PublishedAt, &ep.DurationSeconds,
		&ep.AudioURL, &script, &topics, &newsletterURL)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Episode{}, ErrNotFound
	}
	if err != nil {
		return model.Episode{}, fmt.Errorf("get episode: %w", err)
	}
	ep.NewsletterURL = newsletterURL.String
	if err := unmarshalJSON(script, &ep.Script); err != nil {
		return model.Episode{}, err
	}
	if err := unmarshalJSON(topics, &ep.Topics); err != nil {
		return model.Episode{}, err
	}

	segRows, err := s.db.QueryContext(ctx, `
		SELECT ordinal, topic_id, content_type, topic_headline, transcript, start_time_seconds, duration_seconds, local_path
		FROM segments WHERE episode_id=$1 ORDER BY ordinal`, id)
	if err != nil {
		return model.Episode{}, fmt.Errorf("get episode: segments: %w", err)
	}
	defer segRows.Close()
	for segRows.Next() {
		var seg model.AudioSegment
		if err := segRows.Scan(&seg.SequenceIndex, &seg.TopicID, &seg.ContentType, &seg.TopicHeadline, &seg.Transcript,
			&seg.StartTimeSeconds, &seg.DurationSeconds, &seg.LocalPath); err != nil {
			return model.Episode{}, fmt.Errorf("get episode: segments: %w", err)
		}
		ep.Segments = append(ep.Segments, seg)
	}
	return ep, segRows.Err()
}

// ListEpisodesByProfile returns a profile's episodes, newest first.
func (s *Store) ListEpisodesByProfile(ctx context.Context, profileID string, limit int) ([]model.Episode, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, title, description, published_at, duration_seconds, audio_url, script, topics, newsletter_url
		FROM episodes WHERE profile_id=$1 ORDER BY published_at DESC LIMIT $2`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var out []model.Episode
	for rows.Next() {
		var ep model.Episode
		var script, topics []byte
		var newsletterURL sql.NullString
		if err := rows.Scan(&ep.ID, &ep.ProfileID, &ep.Title, &ep.Description, &ep.PublishedAt, &ep.DurationSeconds,
			&ep.AudioURL, &script, &topics, &newsletterURL); err != nil {
			return nil, fmt.Errorf("list episodes: %w", err)
		}
		ep.NewsletterURL = newsletterURL.String
		if err := unmarshalJSON(script, &ep.Script); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(topics, &ep.Topics); err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, rows.Err()
}
