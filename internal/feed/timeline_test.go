package feed

import (
	"errors"
	"testing"
	"time"

	"github.com/chirpnet/chirp/internal/models"
)

// stubSource simulates the candidate query over an ordered backlog, hiding
// the posts whose IDs appear in hidden.
type stubSource struct {
	backlog []*models.Post
	hidden  map[int64]bool
	calls   int
}

func (s *stubSource) fetch(after Cursor, n int) (batch, error) {
	s.calls++

	start := 0
	if !after.IsZero() {
		for i, p := range s.backlog {
			if p.CreatedAt.Before(after.TS) || (p.CreatedAt.Equal(after.TS) && p.ID < after.ID) {
				start = i
				break
			}
			start = len(s.backlog)
		}
	}

	end := start + n
	if end > len(s.backlog) {
		end = len(s.backlog)
	}
	rows := s.backlog[start:end]

	b := batch{exhausted: len(rows) < n, next: after}
	if len(rows) > 0 {
		last := rows[len(rows)-1]
		b.next = Cursor{TS: last.CreatedAt, ID: last.ID}
	}
	for _, p := range rows {
		if !s.hidden[p.ID] {
			b.kept = append(b.kept, p)
		}
	}
	return b, nil
}

func makeBacklog(n int) []*models.Post {
	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		id := int64(n - i)
		posts = append(posts, &models.Post{
			ID:        id,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return posts
}

func TestFillPageSingleBatch(t *testing.T) {
	src := &stubSource{backlog: makeBacklog(30)}

	page, next, hasMore, err := fillPage(10, 3, Cursor{}, src.fetch)
	if err != nil {
		t.Fatalf("fillPage() error = %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("page length = %d, want 10", len(page))
	}
	if !hasMore {
		t.Error("hasMore = false, want true")
	}
	if src.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", src.calls)
	}
	if next.ID != page[len(page)-1].ID {
		t.Errorf("next cursor ID = %d, want %d", next.ID, page[len(page)-1].ID)
	}
}

func TestFillPageBackfillsFilteredBatches(t *testing.T) {
	// Hide the first 8 posts; the first batch of 11 keeps only 3, so the
	// page needs a second fetch to fill.
	hidden := map[int64]bool{}
	backlog := makeBacklog(40)
	for i := 0; i < 8; i++ {
		hidden[backlog[i].ID] = true
	}
	src := &stubSource{backlog: backlog, hidden: hidden}

	page, _, hasMore, err := fillPage(10, 3, Cursor{}, src.fetch)
	if err != nil {
		t.Fatalf("fillPage() error = %v", err)
	}
	if len(page) != 10 {
		t.Fatalf("page length = %d, want 10", len(page))
	}
	if !hasMore {
		t.Error("hasMore = false, want true")
	}
	if src.calls < 2 {
		t.Errorf("fetch calls = %d, want at least 2", src.calls)
	}
	for _, p := range page {
		if hidden[p.ID] {
			t.Errorf("hidden post %d leaked into page", p.ID)
		}
	}
}

func TestFillPageRespectsBackfillCap(t *testing.T) {
	// Everything hidden: the loop must stop at the cap, not chase the
	// backlog forever.
	backlog := makeBacklog(1000)
	hidden := map[int64]bool{}
	for _, p := range backlog {
		hidden[p.ID] = true
	}
	src := &stubSource{backlog: backlog, hidden: hidden}

	page, _, _, err := fillPage(10, 3, Cursor{}, src.fetch)
	if err != nil {
		t.Fatalf("fillPage() error = %v", err)
	}
	if len(page) != 0 {
		t.Errorf("page length = %d, want 0", len(page))
	}
	if src.calls != 4 {
		t.Errorf("fetch calls = %d, want 4 (initial + 3 retries)", src.calls)
	}
}

func TestFillPageExhaustedSource(t *testing.T) {
	src := &stubSource{backlog: makeBacklog(4)}

	page, _, hasMore, err := fillPage(10, 3, Cursor{}, src.fetch)
	if err != nil {
		t.Fatalf("fillPage() error = %v", err)
	}
	if len(page) != 4 {
		t.Fatalf("page length = %d, want 4", len(page))
	}
	if hasMore {
		t.Error("hasMore = true for exhausted source, want false")
	}
}

func TestFillPageResumesFromCursor(t *testing.T) {
	src := &stubSource{backlog: makeBacklog(30)}

	first, next, _, err := fillPage(10, 3, Cursor{}, src.fetch)
	if err != nil {
		t.Fatalf("fillPage() error = %v", err)
	}
	second, _, _, err := fillPage(10, 3, next, src.fetch)
	if err != nil {
		t.Fatalf("fillPage() second page error = %v", err)
	}

	if len(second) != 10 {
		t.Fatalf("second page length = %d, want 10", len(second))
	}
	if second[0].ID >= first[len(first)-1].ID {
		t.Errorf("second page starts at ID %d, want strictly older than %d",
			second[0].ID, first[len(first)-1].ID)
	}
	seen := map[int64]bool{}
	for _, p := range first {
		seen[p.ID] = true
	}
	for _, p := range second {
		if seen[p.ID] {
			t.Errorf("post %d appears on both pages", p.ID)
		}
	}
}

func TestFillPagePropagatesError(t *testing.T) {
	wantErr := errors.New("connection reset")
	fetch := func(after Cursor, n int) (batch, error) {
		return batch{}, wantErr
	}

	_, _, _, err := fillPage(10, 3, Cursor{}, fetch)
	if !errors.Is(err, wantErr) {
		t.Errorf("fillPage() error = %v, want %v", err, wantErr)
	}
}
