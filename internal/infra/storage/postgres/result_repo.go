package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vietddude/fanstats/internal/core/domain"
)

// ResultRepo implements storage.ResultSink using PostgreSQL.
// Rows are upserted by run, so re-collecting a page is idempotent.
type ResultRepo struct {
	db *DB
}

// NewResultRepo creates a new PostgreSQL result repository.
func NewResultRepo(db *DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// WriteArtists upserts artist rows in a single transaction.
func (r *ResultRepo) WriteArtists(ctx context.Context, artists []domain.Artist) error {
	if len(artists) == 0 {
		return nil
	}

	query := `
		INSERT INTO artists (
			run_id, chartmetric_artist_id, name,
			avg_spotify_followers, avg_fb_engagement, avg_fb_likes,
			avg_youtube_subscribers, avg_youtube_engagement,
			spotify_popularity, spotify_followers, spotify_monthly_listeners,
			spotify_listeners_to_followers_ratio, facebook_likes, facebook_talks,
			youtube_views, youtube_subscribers, wikipedia_views, soundcloud_followers
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (run_id, chartmetric_artist_id) DO UPDATE SET
			name = EXCLUDED.name,
			avg_spotify_followers = EXCLUDED.avg_spotify_followers,
			avg_fb_engagement = EXCLUDED.avg_fb_engagement,
			avg_fb_likes = EXCLUDED.avg_fb_likes,
			avg_youtube_subscribers = EXCLUDED.avg_youtube_subscribers,
			avg_youtube_engagement = EXCLUDED.avg_youtube_engagement,
			spotify_popularity = EXCLUDED.spotify_popularity,
			spotify_followers = EXCLUDED.spotify_followers,
			spotify_monthly_listeners = EXCLUDED.spotify_monthly_listeners,
			spotify_listeners_to_followers_ratio = EXCLUDED.spotify_listeners_to_followers_ratio,
			facebook_likes = EXCLUDED.facebook_likes,
			facebook_talks = EXCLUDED.facebook_talks,
			youtube_views = EXCLUDED.youtube_views,
			youtube_subscribers = EXCLUDED.youtube_subscribers,
			wikipedia_views = EXCLUDED.wikipedia_views,
			soundcloud_followers = EXCLUDED.soundcloud_followers,
			collected_at = NOW()
	`

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, a := range artists {
			_, err := tx.ExecContext(ctx, query,
				a.RunID,
				a.ChartmetricArtistID,
				a.Name,
				a.Stats.AvgSpotifyFollowers,
				a.Stats.AvgFBEngagement,
				a.Stats.AvgFBLikes,
				a.Stats.AvgYoutubeSubscribers,
				a.Stats.AvgYoutubeEngagement,
				a.SpotifyPopularity,
				a.SpotifyFollowers,
				a.SpotifyMonthlyListeners,
				a.SpotifyListenersToFollowersRatio,
				a.FacebookLikes,
				a.FacebookTalks,
				a.YoutubeViews,
				a.YoutubeSubscribers,
				a.WikipediaViews,
				a.SoundcloudFollowers,
			)
			if err != nil {
				return fmt.Errorf("failed to save artist %d: %w", a.ChartmetricArtistID, err)
			}
		}
		return nil
	})
}

// WriteTracks upserts track rows in a single transaction.
func (r *ResultRepo) WriteTracks(ctx context.Context, tracks []domain.Track) error {
	if len(tracks) == 0 {
		return nil
	}

	query := `
		INSERT INTO tracks (run_id, artist_id, track_id, name, release_dates)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, artist_id, track_id) DO UPDATE SET
			name = EXCLUDED.name,
			release_dates = EXCLUDED.release_dates,
			collected_at = NOW()
	`

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, t := range tracks {
			dates := t.ReleaseDates
			if dates == nil {
				dates = []string{}
			}
			_, err := tx.ExecContext(ctx, query, t.RunID, t.ArtistID, t.TrackID, t.Name, pq.Array(dates))
			if err != nil {
				return fmt.Errorf("failed to save track %s: %w", t.TrackID, err)
			}
		}
		return nil
	})
}

// Close is a no-op; the connection is owned by the caller.
func (r *ResultRepo) Close() error { return nil }

// Counts returns the number of stored artist and track rows.
func (r *ResultRepo) Counts(ctx context.Context) (artists, tracks int, err error) {
	if err := r.db.GetContext(ctx, &artists, `SELECT COUNT(*) FROM artists`); err != nil {
		return 0, 0, fmt.Errorf("failed to count artists: %w", err)
	}
	if err := r.db.GetContext(ctx, &tracks, `SELECT COUNT(*) FROM tracks`); err != nil {
		return 0, 0, fmt.Errorf("failed to count tracks: %w", err)
	}
	return artists, tracks, nil
}

// ArtistTracks returns the stored tracks of one artist.
func (r *ResultRepo) ArtistTracks(ctx context.Context, artistID int64) ([]domain.Track, error) {
	var rows []struct {
		RunID        string         `db:"run_id"`
		ArtistID     int64          `db:"artist_id"`
		TrackID      string         `db:"track_id"`
		Name         string         `db:"name"`
		ReleaseDates pq.StringArray `db:"release_dates"`
	}
	query := `
		SELECT run_id, artist_id, track_id, name, release_dates
		FROM tracks
		WHERE artist_id = $1
		ORDER BY run_id, track_id
	`
	if err := r.db.SelectContext(ctx, &rows, query, artistID); err != nil {
		return nil, fmt.Errorf("failed to get tracks: %w", err)
	}

	tracks := make([]domain.Track, 0, len(rows))
	for _, row := range rows {
		tracks = append(tracks, domain.Track{
			RunID:        row.RunID,
			ArtistID:     row.ArtistID,
			TrackID:      row.TrackID,
			Name:         row.Name,
			ReleaseDates: []string(row.ReleaseDates),
		})
	}
	return tracks, nil
}

func (r *ResultRepo) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
