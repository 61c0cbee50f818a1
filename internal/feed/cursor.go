package feed

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chirpnet/chirp/internal/db"
)

// Cursor is a keyset pagination anchor: the effective timestamp and ID of
// the last item on the prior page. The next page selects strictly-older
// entries, so concurrent inserts cannot skip or duplicate items.
type Cursor struct {
	TS time.Time
	ID int64
}

// IsZero reports whether the cursor is unset (start from the top)
func (c Cursor) IsZero() bool {
	return c.TS.IsZero() && c.ID == 0
}

// EncodeCursor produces the opaque wire form of a cursor
func EncodeCursor(ts time.Time, id int64) string {
	raw := fmt.Sprintf("%d.%d", ts.UnixMicro(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses an opaque cursor token. Malformed tokens return
// db.ErrInvalidCursor; callers treat that as "start from the beginning".
func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %q", db.ErrInvalidCursor, token)
	}

	var micros, id int64
	if _, err := fmt.Sscanf(string(raw), "%d.%d", &micros, &id); err != nil {
		return Cursor{}, fmt.Errorf("%w: %q", db.ErrInvalidCursor, token)
	}
	if micros <= 0 || id <= 0 {
		return Cursor{}, fmt.Errorf("%w: %q", db.ErrInvalidCursor, token)
	}

	return Cursor{TS: time.UnixMicro(micros).UTC(), ID: id}, nil
}

// DecodeCursorOrZero parses a cursor token, falling back to the zero cursor
// on any malformed input.
func DecodeCursorOrZero(token string) Cursor {
	c, err := DecodeCursor(token)
	if err != nil {
		return Cursor{}
	}
	return c
}
