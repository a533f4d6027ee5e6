package domain

// Artist represents one artist row collected from the artist list
type Artist struct {
	RunID                            string   `json:"-"                                    db:"run_id"`
	ChartmetricArtistID              int64    `json:"chartmetric_artist_id"                db:"chartmetric_artist_id"`
	Name                             string   `json:"name"                                 db:"name"`
	SpotifyPopularity                *float64 `json:"spotify_popularity"                   db:"spotify_popularity"`
	SpotifyFollowers                 *float64 `json:"spotify_followers"                    db:"spotify_followers"`
	SpotifyMonthlyListeners          *float64 `json:"spotify_monthly_listeners"            db:"spotify_monthly_listeners"`
	SpotifyListenersToFollowersRatio *float64 `json:"spotify_listeners_to_followers_ratio" db:"spotify_listeners_to_followers_ratio"`
	FacebookLikes                    *float64 `json:"facebook_likes"                       db:"facebook_likes"`
	FacebookTalks                    *float64 `json:"facebook_talks"                       db:"facebook_talks"`
	YoutubeViews                     *float64 `json:"youtube_views"                        db:"youtube_views"`
	YoutubeSubscribers               *float64 `json:"youtube_subscribers"                  db:"youtube_subscribers"`
	WikipediaViews                   *float64 `json:"wikipedia_views"                      db:"wikipedia_views"`
	SoundcloudFollowers              *float64 `json:"soundcloud_followers"                 db:"soundcloud_followers"`

	Stats FanStats `json:"-"`
}

// FanStats holds averages over the previous month of fan metrics.
// A nil field means the source returned nothing worth averaging.
type FanStats struct {
	AvgSpotifyFollowers   *float64 `db:"avg_spotify_followers"`
	AvgFBEngagement       *float64 `db:"avg_fb_engagement"`
	AvgFBLikes            *float64 `db:"avg_fb_likes"`
	AvgYoutubeSubscribers *float64 `db:"avg_youtube_subscribers"`
	AvgYoutubeEngagement  *float64 `db:"avg_youtube_engagement"`
}

// Merge copies the fields set in o.
func (s *FanStats) Merge(o FanStats) {
	if o.AvgSpotifyFollowers != nil {
		s.AvgSpotifyFollowers = o.AvgSpotifyFollowers
	}
	if o.AvgFBEngagement != nil {
		s.AvgFBEngagement = o.AvgFBEngagement
	}
	if o.AvgFBLikes != nil {
		s.AvgFBLikes = o.AvgFBLikes
	}
	if o.AvgYoutubeSubscribers != nil {
		s.AvgYoutubeSubscribers = o.AvgYoutubeSubscribers
	}
	if o.AvgYoutubeEngagement != nil {
		s.AvgYoutubeEngagement = o.AvgYoutubeEngagement
	}
}

// FanStatSource is a platform exposing fan statistics.
type FanStatSource string

const (
	SourceSpotify        FanStatSource = "spotify"
	SourceFacebook       FanStatSource = "facebook"
	SourceYoutubeChannel FanStatSource = "youtube_channel"
)
