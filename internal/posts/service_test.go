package posts

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/chirpnet/chirp/internal/db"
	"github.com/chirpnet/chirp/internal/models"
)

func TestWithinEditWindow(t *testing.T) {
	window := 30 * time.Minute
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"immediately after posting", created.Add(time.Second), true},
		{"just inside the window", created.Add(29*time.Minute + 59*time.Second), true},
		{"exactly at the window", created.Add(30 * time.Minute), true},
		{"just past the window", created.Add(30*time.Minute + time.Second), false},
		{"well past the window", created.Add(24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := withinEditWindow(created, tt.now, window); got != tt.want {
				t.Errorf("withinEditWindow(now=%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestWithinEditWindowZeroWindow(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	if withinEditWindow(created, created.Add(time.Nanosecond), 0) {
		t.Error("zero window should reject any later edit")
	}
	if !withinEditWindow(created, created, 0) {
		t.Error("zero window should still allow an edit at the creation instant")
	}
}

func TestAppendEditHistory(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 15, 0, 0, time.UTC)

	first, err := appendEditHistory("[]", "original body", at)
	if err != nil {
		t.Fatalf("appendEditHistory() error = %v", err)
	}
	second, err := appendEditHistory(first, "revised body", at.Add(time.Minute))
	if err != nil {
		t.Fatalf("appendEditHistory() second append error = %v", err)
	}

	var entries []editEntry
	if err := json.Unmarshal([]byte(second), &entries); err != nil {
		t.Fatalf("history is not valid JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history length = %d, want 2", len(entries))
	}
	if entries[0].Body != "original body" || entries[1].Body != "revised body" {
		t.Errorf("history bodies = %q, %q; want original then revised", entries[0].Body, entries[1].Body)
	}
	if !entries[1].EditedAt.After(entries[0].EditedAt) {
		t.Error("history entries out of chronological order")
	}
}

func TestAppendEditHistoryEmptyString(t *testing.T) {
	got, err := appendEditHistory("", "body", time.Now())
	if err != nil {
		t.Fatalf("appendEditHistory(\"\") error = %v", err)
	}
	var entries []editEntry
	if err := json.Unmarshal([]byte(got), &entries); err != nil || len(entries) != 1 {
		t.Errorf("appendEditHistory(\"\") = %q, want single-entry JSON array", got)
	}
}

func TestAppendEditHistoryMalformed(t *testing.T) {
	if _, err := appendEditHistory("{not json", "body", time.Now()); err == nil {
		t.Error("appendEditHistory() with malformed history should error")
	}
}

func TestCheckPinnable(t *testing.T) {
	author := &models.User{ID: 1}
	other := &models.User{ID: 2}

	own := &models.Post{ID: 10, AuthorID: author.ID}
	deleted := &models.Post{ID: 11, AuthorID: author.ID, IsDeleted: true}
	wrapper := &models.Post{
		ID:       12,
		AuthorID: author.ID,
		RepostID: sql.NullInt64{Int64: own.ID, Valid: true},
	}

	tests := []struct {
		name     string
		actor    *models.User
		post     *models.Post
		wantKind error
	}{
		{"own live post", author, own, nil},
		{"missing post", author, nil, db.ErrNotFound},
		{"deleted post", author, deleted, db.ErrNotFound},
		{"someone else's post", other, own, db.ErrForbidden},
		{"repost wrapper", author, wrapper, db.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPinnable(tt.actor, tt.post)
			if tt.wantKind == nil {
				if err != nil {
					t.Errorf("checkPinnable() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("checkPinnable() error = %v, want %v kind", err, tt.wantKind)
			}
		})
	}
}
