package feed

import (
	"testing"
	"time"

	"github.com/chirpnet/chirp/internal/models"
)

func TestFilterSuggestions(t *testing.T) {
	viewer := &models.User{ID: 1, Handle: "viewer"}
	followed := UserView{User: &models.User{ID: 2, Handle: "followed"}, FollowerCount: 90}
	blocked := UserView{User: &models.User{ID: 3, Handle: "blocked"}, FollowerCount: 80}
	muted := UserView{User: &models.User{ID: 4, Handle: "muted"}, FollowerCount: 70}
	fresh := UserView{User: &models.User{ID: 5, Handle: "fresh"}, FollowerCount: 60}
	other := UserView{User: &models.User{ID: 6, Handle: "other"}, FollowerCount: 50}
	self := UserView{User: viewer, FollowerCount: 40}

	snap := EmptySnapshot()
	snap.Following[followed.User.ID] = true
	snap.Blocked[blocked.User.ID] = true
	snap.Muted[muted.User.ID] = true

	candidates := []UserView{followed, blocked, muted, fresh, other, self}

	got := filterSuggestions(viewer, snap, candidates, 5)

	wantHandles := []string{"fresh", "other"}
	if len(got) != len(wantHandles) {
		t.Fatalf("filterSuggestions() kept %d accounts, want %d", len(got), len(wantHandles))
	}
	for i, handle := range wantHandles {
		if got[i].User.Handle != handle {
			t.Errorf("got[%d] = %q, want %q", i, got[i].User.Handle, handle)
		}
	}
	for _, v := range got {
		if snap.Muted[v.User.ID] {
			t.Errorf("muted account %q was suggested to its muter", v.User.Handle)
		}
	}
}

func TestFilterSuggestionsRespectsLimit(t *testing.T) {
	candidates := make([]UserView, 0, 10)
	for i := int64(2); i < 12; i++ {
		candidates = append(candidates, UserView{User: &models.User{ID: i}})
	}

	got := filterSuggestions(&models.User{ID: 1}, EmptySnapshot(), candidates, 5)
	if len(got) != 5 {
		t.Errorf("filterSuggestions() kept %d accounts, want 5", len(got))
	}
}

func TestFilterSuggestionsAnonymous(t *testing.T) {
	candidates := []UserView{
		{User: &models.User{ID: 1}},
		{User: &models.User{ID: 2}},
	}

	got := filterSuggestions(nil, EmptySnapshot(), candidates, 5)
	if len(got) != 2 {
		t.Errorf("filterSuggestions(nil viewer) kept %d accounts, want 2", len(got))
	}
}

func TestTrendingScore(t *testing.T) {
	tests := []struct {
		name                   string
		likes, reposts, replies int64
		want                   int64
	}{
		{"no engagement", 0, 0, 0, 0},
		{"likes only", 5, 0, 0, 5},
		{"reposts weigh double", 0, 3, 0, 6},
		{"replies weigh single", 0, 0, 4, 4},
		{"mixed", 5, 3, 4, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := trendingScore(tt.likes, tt.reposts, tt.replies); got != tt.want {
				t.Errorf("trendingScore(%d, %d, %d) = %d, want %d",
					tt.likes, tt.reposts, tt.replies, got, tt.want)
			}
		})
	}
}

func TestSortTrending(t *testing.T) {
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	view := func(id int64, at time.Time, likes, reposts, replies int64) *PostView {
		return &PostView{
			Post:        &models.Post{ID: id, CreatedAt: at},
			LikeCount:   likes,
			RepostCount: reposts,
			ReplyCount:  replies,
		}
	}

	views := []*PostView{
		view(1, base, 2, 0, 0),                   // score 2
		view(2, base.Add(-time.Hour), 0, 5, 0),   // score 10
		view(3, base.Add(time.Hour), 4, 0, 0),    // score 4, newest of the 4s
		view(4, base, 0, 2, 0),                   // score 4
		view(5, base, 4, 0, 0),                   // score 4, ties with 4 on time, higher id
	}

	sortTrending(views)

	wantIDs := []int64{2, 3, 5, 4, 1}
	for i, id := range wantIDs {
		if views[i].Post.ID != id {
			t.Errorf("views[%d].Post.ID = %d, want %d", i, views[i].Post.ID, id)
		}
	}
}

func TestSortTagCounts(t *testing.T) {
	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	// Two posts used #cat, one used #dog: cat ranks first on count alone.
	tags := []TagCount{
		{Tag: "dog", Count: 1, LastUsed: base.Add(time.Hour)},
		{Tag: "cat", Count: 2, LastUsed: base},
	}
	sortTagCounts(tags)
	if tags[0].Tag != "cat" || tags[1].Tag != "dog" {
		t.Errorf("count ordering = [%s %s], want [cat dog]", tags[0].Tag, tags[1].Tag)
	}

	// Equal counts fall back to most recent use
	tags = []TagCount{
		{Tag: "older", Count: 3, LastUsed: base.Add(-time.Hour)},
		{Tag: "newer", Count: 3, LastUsed: base},
	}
	sortTagCounts(tags)
	if tags[0].Tag != "newer" {
		t.Errorf("recency tie-break put %q first, want newer", tags[0].Tag)
	}

	// Full ties order by tag name for determinism
	tags = []TagCount{
		{Tag: "zebra", Count: 1, LastUsed: base},
		{Tag: "apple", Count: 1, LastUsed: base},
	}
	sortTagCounts(tags)
	if tags[0].Tag != "apple" {
		t.Errorf("name tie-break put %q first, want apple", tags[0].Tag)
	}
}
