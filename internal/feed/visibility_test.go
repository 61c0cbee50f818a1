package feed

import (
	"testing"

	"github.com/chirpnet/chirp/internal/models"
)

func TestDecide(t *testing.T) {
	viewer := &models.User{ID: 1, Handle: "viewer"}
	admin := &models.User{ID: 2, Handle: "admin", Role: models.RoleAdmin}
	moderator := &models.User{ID: 3, Handle: "mod", Role: models.RoleModerator}

	author := &models.User{ID: 10, Handle: "author"}
	privateAuthor := &models.User{ID: 11, Handle: "private", IsPrivate: true}
	bannedAuthor := &models.User{ID: 12, Handle: "banned", State: models.UserStateBanned}

	post := func(authorID int64, deleted bool) *models.Post {
		return &models.Post{ID: 100, AuthorID: authorID, IsDeleted: deleted}
	}

	snapWith := func(mutate func(*RelationSnapshot)) *RelationSnapshot {
		snap := EmptySnapshot()
		if mutate != nil {
			mutate(snap)
		}
		return snap
	}

	tests := []struct {
		name   string
		viewer *models.User
		snap   *RelationSnapshot
		post   *models.Post
		author *models.User
		want   HideReason
	}{
		{
			name:   "public post visible",
			viewer: viewer,
			snap:   snapWith(nil),
			post:   post(author.ID, false),
			author: author,
			want:   HideNone,
		},
		{
			name:   "deleted post hidden",
			viewer: viewer,
			snap:   snapWith(nil),
			post:   post(author.ID, true),
			author: author,
			want:   HideDeleted,
		},
		{
			name:   "missing author treated as deleted",
			viewer: viewer,
			snap:   snapWith(nil),
			post:   post(99, false),
			author: nil,
			want:   HideDeleted,
		},
		{
			name:   "blocked author hidden",
			viewer: viewer,
			snap:   snapWith(func(s *RelationSnapshot) { s.Blocked[author.ID] = true }),
			post:   post(author.ID, false),
			author: author,
			want:   HideBlocked,
		},
		{
			name:   "muted author hidden",
			viewer: viewer,
			snap:   snapWith(func(s *RelationSnapshot) { s.Muted[author.ID] = true }),
			post:   post(author.ID, false),
			author: author,
			want:   HideMuted,
		},
		{
			name:   "private author hidden from non-follower",
			viewer: viewer,
			snap:   snapWith(nil),
			post:   post(privateAuthor.ID, false),
			author: privateAuthor,
			want:   HidePrivate,
		},
		{
			name:   "private author visible to follower",
			viewer: viewer,
			snap:   snapWith(func(s *RelationSnapshot) { s.Following[privateAuthor.ID] = true }),
			post:   post(privateAuthor.ID, false),
			author: privateAuthor,
			want:   HideNone,
		},
		{
			name:   "private author visible to moderator",
			viewer: moderator,
			snap:   snapWith(nil),
			post:   post(privateAuthor.ID, false),
			author: privateAuthor,
			want:   HideNone,
		},
		{
			name:   "private author hidden from anonymous",
			viewer: nil,
			snap:   snapWith(nil),
			post:   post(privateAuthor.ID, false),
			author: privateAuthor,
			want:   HidePrivate,
		},
		{
			name:   "banned author hidden",
			viewer: viewer,
			snap:   snapWith(nil),
			post:   post(bannedAuthor.ID, false),
			author: bannedAuthor,
			want:   HideBanned,
		},
		{
			name:   "banned author visible to admin",
			viewer: admin,
			snap:   snapWith(nil),
			post:   post(bannedAuthor.ID, false),
			author: bannedAuthor,
			want:   HideNone,
		},
		{
			name:   "banned author hidden from moderator",
			viewer: moderator,
			snap:   snapWith(nil),
			post:   post(bannedAuthor.ID, false),
			author: bannedAuthor,
			want:   HideBanned,
		},
		{
			name:   "anonymous sees public post",
			viewer: nil,
			snap:   snapWith(nil),
			post:   post(author.ID, false),
			author: author,
			want:   HideNone,
		},
		{
			name:   "author sees own private post",
			viewer: privateAuthor,
			snap:   snapWith(nil),
			post:   post(privateAuthor.ID, false),
			author: privateAuthor,
			want:   HideNone,
		},
		{
			name:   "author does not see own deleted post",
			viewer: author,
			snap:   snapWith(nil),
			post:   post(author.ID, true),
			author: author,
			want:   HideDeleted,
		},
		{
			name: "block outranks mute",
			viewer: viewer,
			snap: snapWith(func(s *RelationSnapshot) {
				s.Blocked[author.ID] = true
				s.Muted[author.ID] = true
			}),
			post:   post(author.ID, false),
			author: author,
			want:   HideBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.viewer, tt.snap, tt.post, tt.author)
			if got.Reason != tt.want {
				t.Errorf("Decide() reason = %v, want %v", got.Reason, tt.want)
			}
			if got.Visible() != (tt.want == HideNone) {
				t.Errorf("Visible() = %v inconsistent with reason %v", got.Visible(), got.Reason)
			}
		})
	}
}

func TestFilterVisiblePreservesOrder(t *testing.T) {
	viewer := &models.User{ID: 1}
	blocked := &models.User{ID: 2}
	open := &models.User{ID: 3}

	authors := map[int64]*models.User{2: blocked, 3: open}
	snap := EmptySnapshot()
	snap.Blocked[blocked.ID] = true

	posts := []*models.Post{
		{ID: 5, AuthorID: open.ID},
		{ID: 4, AuthorID: blocked.ID},
		{ID: 3, AuthorID: open.ID},
		{ID: 2, AuthorID: open.ID, IsDeleted: true},
		{ID: 1, AuthorID: open.ID},
	}

	kept := FilterVisible(viewer, snap, posts, authors)

	wantIDs := []int64{5, 3, 1}
	if len(kept) != len(wantIDs) {
		t.Fatalf("FilterVisible() kept %d posts, want %d", len(kept), len(wantIDs))
	}
	for i, id := range wantIDs {
		if kept[i].ID != id {
			t.Errorf("kept[%d].ID = %d, want %d", i, kept[i].ID, id)
		}
	}
}

func TestHideReasonString(t *testing.T) {
	tests := []struct {
		reason HideReason
		want   string
	}{
		{HideNone, "visible"},
		{HideDeleted, "deleted"},
		{HideBlocked, "blocked"},
		{HideMuted, "muted"},
		{HidePrivate, "private"},
		{HideBanned, "banned"},
		{HideReason(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.reason.String(); got != tt.want {
			t.Errorf("HideReason(%d).String() = %q, want %q", tt.reason, got, tt.want)
		}
	}
}
