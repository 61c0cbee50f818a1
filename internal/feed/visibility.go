package feed

import (
	"github.com/chirpnet/chirp/internal/models"
)

// HideReason explains why a post was filtered from a viewer's results
type HideReason int16

// Hide reason constants
const (
	HideNone    HideReason = 0
	HideDeleted HideReason = 1
	HideBlocked HideReason = 2
	HideMuted   HideReason = 3
	HidePrivate HideReason = 4
	HideBanned  HideReason = 5
)

// String returns the reason name
func (r HideReason) String() string {
	switch r {
	case HideNone:
		return "visible"
	case HideDeleted:
		return "deleted"
	case HideBlocked:
		return "blocked"
	case HideMuted:
		return "muted"
	case HidePrivate:
		return "private"
	case HideBanned:
		return "banned"
	default:
		return "unknown"
	}
}

// Decision is the tagged visibility outcome for one candidate post
type Decision struct {
	Post   *models.Post
	Reason HideReason
}

// Visible reports whether the post may be shown
func (d Decision) Visible() bool {
	return d.Reason == HideNone
}

// Decide returns the visibility decision for one candidate post. Pure
// function over the provided snapshot; viewer may be nil for anonymous
// contexts. Must run before page truncation, never after.
func Decide(viewer *models.User, snap *RelationSnapshot, post *models.Post, author *models.User) Decision {
	if post.IsDeleted || author == nil {
		return Decision{Post: post, Reason: HideDeleted}
	}

	// Authors always see their own posts, including their archival view
	// of a banned account.
	if viewer != nil && viewer.ID == author.ID {
		return Decision{Post: post, Reason: HideNone}
	}

	// Blocks hide in both directions regardless of who created the block.
	if snap.Blocked[author.ID] {
		return Decision{Post: post, Reason: HideBlocked}
	}

	if snap.Muted[author.ID] {
		return Decision{Post: post, Reason: HideMuted}
	}

	if author.State == models.UserStateBanned {
		if viewer == nil || !viewer.IsAdmin() {
			return Decision{Post: post, Reason: HideBanned}
		}
	}

	if author.IsPrivate {
		if viewer == nil || (!snap.Following[author.ID] && !viewer.IsModerator()) {
			return Decision{Post: post, Reason: HidePrivate}
		}
	}

	return Decision{Post: post, Reason: HideNone}
}

// FilterVisible applies Decide across a candidate set, preserving order and
// returning only the visible posts.
func FilterVisible(viewer *models.User, snap *RelationSnapshot, posts []*models.Post, authors map[int64]*models.User) []*models.Post {
	kept := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		if Decide(viewer, snap, p, authors[p.AuthorID]).Visible() {
			kept = append(kept, p)
		}
	}
	return kept
}
