package domain

import "time"

// Post is a single feed entry. LikedBy is the sole source of truth for the
// like count; Likes is kept in sync on save so blobs written by older
// builds that only understood a bare counter stay readable.
type Post struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Likes     int       `json:"likes"`
	LikedBy   []string  `json:"liked_by"`
	Comments  []Comment `json:"comments"`
}

// Comment is an immutable reply attached to a post, ordered oldest first.
type Comment struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// LikeCount reports how many distinct users liked the post.
func (p *Post) LikeCount() int {
	return len(p.LikedBy)
}

// LikedByUser reports whether the given identifier is in the like set.
func (p *Post) LikedByUser(identifier string) bool {
	for _, id := range p.LikedBy {
		if id == identifier {
			return true
		}
	}
	return false
}

// Normalize repairs a post decoded from storage: nil slices become empty,
// duplicate like entries collapse, and the legacy Likes counter is
// re-derived from LikedBy. Loaders call this once per post instead of
// branching at every read site.
func (p *Post) Normalize() {
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	} else if len(p.LikedBy) > 1 {
		seen := make(map[string]struct{}, len(p.LikedBy))
		deduped := p.LikedBy[:0]
		for _, id := range p.LikedBy {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			deduped = append(deduped, id)
		}
		p.LikedBy = deduped
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	p.Likes = len(p.LikedBy)
}
