package script

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrInvalidChunkSet = errors.New("invalid chunk set")

// ValidationError describes the first structural problem found in a chunk set.
type ValidationError struct {
	Language Language
	Index    int // -1 when the problem is not tied to a chunk
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("chunk set %s: chunk %d: %s", e.Language, e.Index, e.Reason)
	}
	return fmt.Sprintf("chunk set %s: %s", e.Language, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidChunkSet
}

// Validate checks the chunk sets against the synthesis backend's hard limit
// before any network call is made. It never modifies the sets.
func Validate(limit int, sets ...ChunkSet) error {
	if limit <= 0 {
		return ErrInvalidMax
	}
	if len(sets) == 0 {
		return &ValidationError{Index: -1, Reason: "no chunk sets"}
	}
	for _, set := range sets {
		if err := validateSet(limit, set); err != nil {
			return err
		}
	}
	return nil
}

func validateSet(limit int, set ChunkSet) error {
	fail := func(index int, format string, args ...any) error {
		return &ValidationError{Language: set.Language, Index: index, Reason: fmt.Sprintf(format, args...)}
	}
	if set.Language == "" {
		return fail(-1, "language missing")
	}
	if !set.Language.Valid() {
		return fail(-1, "unsupported language")
	}
	if len(set.Chunks) == 0 {
		return fail(-1, "no chunks")
	}
	if set.Count != len(set.Chunks) {
		return fail(-1, "declared %d chunks, found %d", set.Count, len(set.Chunks))
	}
	for i, c := range set.Chunks {
		if c.Index != i {
			return fail(i, "index %d out of order", c.Index)
		}
		if c.Language != set.Language {
			return fail(i, "language %q does not match set", c.Language)
		}
		if strings.TrimSpace(c.Text) == "" {
			return fail(i, "empty text")
		}
		if n := utf8.RuneCountInString(c.Text); n > limit {
			return fail(i, "length %d exceeds limit %d", n, limit)
		}
	}
	return nil
}
