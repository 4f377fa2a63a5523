package domain

import (
	"sort"
	"strings"
)

// SortMode selects the ordering applied by Project.
type SortMode string

const (
	SortLatest    SortMode = "latest"
	SortOldest    SortMode = "oldest"
	SortMostLiked SortMode = "mostLiked"
)

// Stats summarizes the raw post collection.
type Stats struct {
	TotalPosts int `json:"total_posts"`
	TotalLikes int `json:"total_likes"`
}

// Project derives the display view of the feed: posts whose text contains
// filter (case-insensitive, empty keeps all), ordered by mode. Sorting is
// stable, so posts with equal keys keep their relative order. An
// unrecognized mode leaves the filtered order untouched. The input slice is
// never modified.
func Project(posts []Post, filter string, mode SortMode) []Post {
	needle := strings.ToLower(filter)

	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if needle == "" || strings.Contains(strings.ToLower(p.Text), needle) {
			out = append(out, p)
		}
	}

	switch mode {
	case SortLatest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	case SortMostLiked:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].LikeCount() > out[j].LikeCount()
		})
	}

	return out
}

// ComputeStats counts posts and the likes across all of them.
func ComputeStats(posts []Post) Stats {
	stats := Stats{TotalPosts: len(posts)}
	for i := range posts {
		stats.TotalLikes += posts[i].LikeCount()
	}
	return stats
}
