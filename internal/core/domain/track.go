package domain

// Track represents one track of an artist
type Track struct {
	RunID        string   `db:"run_id"`
	ArtistID     int64    `db:"artist_id"`
	TrackID      string   `db:"track_id"`
	Name         string   `db:"name"`
	ReleaseDates []string `db:"-"`
}
