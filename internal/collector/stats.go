package collector

import (
	"math"

	"github.com/vietddude/fanstats/internal/chartmetric"
	"github.com/vietddude/fanstats/internal/core/domain"
)

// aggregator turns a fan statistics response into averaged fields.
type aggregator func(chartmetric.FanStats) domain.FanStats

// statSources are queried for every artist, in this order.
var statSources = []struct {
	source    domain.FanStatSource
	aggregate aggregator
}{
	{domain.SourceSpotify, SpotifyStats},
	{domain.SourceFacebook, FacebookStats},
	{domain.SourceYoutubeChannel, YoutubeStats},
}

// SpotifyStats averages followers over the samples. Missing values count
// toward the number of samples but not the total.
func SpotifyStats(stats chartmetric.FanStats) domain.FanStats {
	var out domain.FanStats
	followers := stats["followers"]
	if total := sum(followers, false); total != 0 {
		out.AvgSpotifyFollowers = ptr(total / float64(len(followers)))
	}
	return out
}

// FacebookStats averages likes, and likes plus talks as engagement.
func FacebookStats(stats chartmetric.FanStats) domain.FanStats {
	var out domain.FanStats
	likes, talks := stats["likes"], stats["talks"]

	totalLikes := sum(likes, true)
	if totalLikes != 0 {
		out.AvgFBLikes = ptr(totalLikes / float64(len(likes)))
	}
	out.AvgFBEngagement = engagement(totalLikes, likes, sum(talks, true), talks)
	return out
}

// YoutubeStats averages subscribers, and views plus comments as engagement.
func YoutubeStats(stats chartmetric.FanStats) domain.FanStats {
	var out domain.FanStats
	subscribers := stats["subscribers"]
	views, comments := stats["views"], stats["comments"]

	if total := sum(subscribers, true); total != 0 {
		out.AvgYoutubeSubscribers = ptr(total / float64(len(subscribers)))
	}
	out.AvgYoutubeEngagement = engagement(sum(views, true), views, sum(comments, true), comments)
	return out
}

// engagement divides the combined total by the primary series length, or by
// the secondary one when the primary total is zero.
func engagement(primaryTotal float64, primary []chartmetric.StatPoint, secondaryTotal float64, secondary []chartmetric.StatPoint) *float64 {
	total := primaryTotal + secondaryTotal
	if total == 0 {
		return nil
	}
	if primaryTotal != 0 {
		return ptr(total / float64(len(primary)))
	}
	return ptr(total / float64(len(secondary)))
}

// sum adds the valid sample values, truncating each to an integer when asked.
func sum(points []chartmetric.StatPoint, truncate bool) float64 {
	var total float64
	for _, p := range points {
		if !p.Value.Valid {
			continue
		}
		v := p.Value.Value
		if truncate {
			v = math.Trunc(v)
		}
		total += v
	}
	return total
}

func ptr(v float64) *float64 { return &v }
