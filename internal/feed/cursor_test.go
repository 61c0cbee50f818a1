package feed

import (
	"errors"
	"testing"
	"time"

	"github.com/chirpnet/chirp/internal/db"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589000, time.UTC)
	token := EncodeCursor(ts, 42)

	got, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if !got.TS.Equal(ts) {
		t.Errorf("TS = %v, want %v", got.TS, ts)
	}
	if got.ID != 42 {
		t.Errorf("ID = %d, want 42", got.ID)
	}
}

func TestDecodeCursorEmpty(t *testing.T) {
	got, err := DecodeCursor("")
	if err != nil {
		t.Fatalf("DecodeCursor(\"\") error = %v", err)
	}
	if !got.IsZero() {
		t.Errorf("DecodeCursor(\"\") = %+v, want zero cursor", got)
	}
}

func TestDecodeCursorMalformed(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"no separator", "MTIzNDU2"},           // "123456"
		{"non-numeric", "YWJjLmRlZg"},          // "abc.def"
		{"negative timestamp", "LTUuMTA"},       // "-5.10"
		{"zero id", "MTcwOTAwMDAwMDAwMDAwMC4w"}, // "1709000000000000.0"
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.token)
			if !errors.Is(err, db.ErrInvalidCursor) {
				t.Errorf("DecodeCursor(%q) error = %v, want ErrInvalidCursor", tt.token, err)
			}
		})
	}
}

func TestDecodeCursorOrZero(t *testing.T) {
	if got := DecodeCursorOrZero("garbage"); !got.IsZero() {
		t.Errorf("DecodeCursorOrZero(garbage) = %+v, want zero cursor", got)
	}

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	token := EncodeCursor(ts, 7)
	got := DecodeCursorOrZero(token)
	if got.IsZero() || got.ID != 7 {
		t.Errorf("DecodeCursorOrZero(valid) = %+v, want ID 7", got)
	}
}

func TestCursorIsZero(t *testing.T) {
	if !(Cursor{}).IsZero() {
		t.Error("zero-value cursor should report IsZero")
	}
	if (Cursor{TS: time.Now(), ID: 1}).IsZero() {
		t.Error("populated cursor should not report IsZero")
	}
}
