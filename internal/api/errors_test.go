package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/chirpnet/chirp/internal/db"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", db.ErrNotFound, http.StatusNotFound},
		{"forbidden maps to 404", db.ErrForbidden, http.StatusNotFound},
		{"invalid state", db.ErrInvalidState, http.StatusConflict},
		{"wrapped not found", fmt.Errorf("post 7: %w", db.ErrNotFound), http.StatusNotFound},
		{"wrapped forbidden", fmt.Errorf("post 7 is private: %w", db.ErrForbidden), http.StatusNotFound},
		{"wrapped invalid state", fmt.Errorf("edit window closed: %w", db.ErrInvalidState), http.StatusConflict},
		{"unknown error", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
