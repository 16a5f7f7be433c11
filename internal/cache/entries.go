package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind names a cached subtitle artifact type.
type Kind string

const (
	// KindRawTrack is the subtitle track as downloaded (VTT payload).
	KindRawTrack Kind = "raw_track"
	// KindCleanText is the normalized prose derived from a raw track.
	KindCleanText Kind = "clean_text"
)

// Kinds lists the valid artifact kinds in storage order.
func Kinds() []Kind {
	return []Kind{KindRawTrack, KindCleanText}
}

func validKind(kind Kind) error {
	switch kind {
	case KindRawTrack, KindCleanText:
		return nil
	default:
		return fmt.Errorf("unknown cache kind %q", string(kind))
	}
}

// Info describes a cached artifact without its content.
type Info struct {
	VideoID   string
	Kind      Kind
	Bytes     int64
	UpdatedAt time.Time
}

// Stats summarizes cache contents.
type Stats struct {
	Entries    int64
	Videos     int64
	TotalBytes int64
}

// Get returns the cached content for a video and kind. The boolean reports
// whether an entry existed.
func (s *Store) Get(ctx context.Context, videoID string, kind Kind) (string, bool, error) {
	if strings.TrimSpace(videoID) == "" {
		return "", false, errors.New("video id is empty")
	}
	if err := validKind(kind); err != nil {
		return "", false, err
	}
	ctx = ensureContext(ctx)

	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM subtitle_cache WHERE video_id = ? AND kind = ?`,
		videoID, string(kind),
	).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cache entry: %w", err)
	}
	return content, true, nil
}

// Put stores content for a video and kind, replacing any previous entry.
func (s *Store) Put(ctx context.Context, videoID string, kind Kind, content string) error {
	if strings.TrimSpace(videoID) == "" {
		return errors.New("video id is empty")
	}
	if err := validKind(kind); err != nil {
		return err
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO subtitle_cache (video_id, kind, content, bytes, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(video_id, kind) DO UPDATE SET
             content = excluded.content,
             bytes = excluded.bytes,
             updated_at = excluded.updated_at`,
		videoID, string(kind), content, int64(len(content)), timestamp,
	); err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

// Delete removes every cached artifact for a video and reports how many
// entries were removed.
func (s *Store) Delete(ctx context.Context, videoID string) (int64, error) {
	if strings.TrimSpace(videoID) == "" {
		return 0, errors.New("video id is empty")
	}
	res, err := s.execWithRetry(ctx, `DELETE FROM subtitle_cache WHERE video_id = ?`, videoID)
	if err != nil {
		return 0, fmt.Errorf("delete cache entries: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all cached artifacts.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM subtitle_cache`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return res.RowsAffected()
}

// List returns metadata for every cached artifact, most recently updated
// first.
func (s *Store) List(ctx context.Context) ([]Info, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, kind, bytes, updated_at
         FROM subtitle_cache
         ORDER BY updated_at DESC, video_id, kind`)
	if err != nil {
		return nil, fmt.Errorf("list cache entries: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var (
			videoID    string
			kindStr    string
			size       int64
			updatedRaw string
		)
		if err := rows.Scan(&videoID, &kindStr, &size, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan cache entry: %w", err)
		}
		info := Info{VideoID: videoID, Kind: Kind(kindStr), Bytes: size}
		if updated, err := parseTimeString(updatedRaw); err == nil {
			info.UpdatedAt = updated
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Stats summarizes the cache: entry count, distinct videos, total bytes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COUNT(DISTINCT video_id), COALESCE(SUM(bytes), 0) FROM subtitle_cache`,
	).Scan(&stats.Entries, &stats.Videos, &stats.TotalBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	return stats, nil
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
