package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apresai/podcastos/internal/model"
)

// CreateProfile inserts a new profile row.
func (s *Store) CreateProfile(ctx context.Context, p model.Profile) error {
	hosts, err := marshalJSON(p.Hosts)
	if err != nil {
		return err
	}
	sources, err := marshalJSON(p.Sources)
	if err != nil {
		return err
	}
	avoidance, err := marshalJSON(p.AvoidanceRules)
	if err != nil {
		return err
	}
	schedule, err := marshalJSON(p.Schedule)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, tone, audience, target_duration_min, topic_count, hosts, sources, avoidance_rules, schedule, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Name, p.Tone, p.Audience, p.TargetDurationMin, p.TopicCount,
		hosts, sources, avoidance, schedule, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// UpdateProfile overwrites a profile's mutable fields in place.
func (s *Store) UpdateProfile(ctx context.Context, p model.Profile) error {
	hosts, err := marshalJSON(p.Hosts)
	if err != nil {
		return err
	}
	sources, err := marshalJSON(p.Sources)
	if err != nil {
		return err
	}
	avoidance, err := marshalJSON(p.AvoidanceRules)
	if err != nil {
		return err
	}
	schedule, err := marshalJSON(p.Schedule)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET name=$2, tone=$3, audience=$4, target_duration_min=$5, topic_count=$6,
			hosts=$7, sources=$8, avoidance_rules=$9, schedule=$10, updated_at=$11
		WHERE id=$1`,
		p.ID, p.Name, p.Tone, p.Audience, p.TargetDurationMin, p.TopicCount,
		hosts, sources, avoidance, schedule, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetProfile retrieves one profile by id.
func (s *Store) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, tone, audience, target_duration_min, topic_count, hosts, sources, avoidance_rules, schedule, created_at, updated_at
		FROM profiles WHERE id=$1`, id)

	var p model.Profile
	var hosts, sources, avoidance, schedule []byte
	err := row.Scan(&p.ID, &p.Name, &p.Tone, &p.Audience, &p.TargetDurationMin, &p.TopicCount,
		&hosts, &sources, &avoidance, &schedule, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if err := unmarshalJSON(hosts, &p.Hosts); err != nil {
		return model.Profile{}, err
	}
	if err := unmarshalJSON(sources, &p.Sources); err != nil {
		return model.Profile{}, err
	}
	if err := unmarshalJSON(avoidance, &p.AvoidanceRules); err != nil {
		return model.Profile{}, err
	}
	if err := unmarshalJSON(schedule, &p.Schedule); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// ListProfiles returns every profile, used by the scheduler's reconcile loop.
func (s *Store) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, tone, audience, target_duration_min, topic_count, hosts, sources, avoidance_rules, schedule, created_at, updated_at
		FROM profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		var p model.Profile
		var hosts, sources, avoidance, schedule []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Tone, &p.Audience, &p.TargetDurationMin, &p.TopicCount,
			&hosts, &sources, &avoidance, &schedule, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list profiles: %w", err)
		}
		if err := unmarshalJSON(hosts, &p.Hosts); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(sources, &p.Sources); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(avoidance, &p.AvoidanceRules); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(schedule, &p.Schedule); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// RecentTopicHistory returns a profile's most recently covered topics, used
// to apply avoidance rules during clustering.
func (s *Store) RecentTopicHistory(ctx context.Context, profileID string, limit int) ([]model.TopicHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_id, episode_id, headline, category, summary, key_points, facts_mentioned, ongoing, follow_up_notes, importance, covered_at
		FROM topic_history WHERE profile_id=$1 ORDER BY covered_at DESC LIMIT $2`, profileID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent topic history: %w", err)
	}
	defer rows.Close()

	var out []model.TopicHistoryEntry
	for rows.Next() {
		var e model.TopicHistoryEntry
		var keyPoints, facts []byte
		if err := rows.Scan(&e.ProfileID, &e.EpisodeID, &e.Headline, &e.Category, &e.Summary,
			&keyPoints, &facts, &e.Ongoing, &e.FollowUpNotes, &e.Importance, &e.CoveredAt); err != nil {
			return nil, fmt.Errorf("recent topic history: %w", err)
		}
		if err := unmarshalJSON(keyPoints, &e.KeyPoints); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(facts, &e.FactsMentioned); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
