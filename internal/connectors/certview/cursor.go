package certview

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/certsync/internal/core/domain"
)

// dateLayout is the timestamp format the list API filters on.
const dateLayout = "2006-01-02T15:04:05Z"

// Cursor is a position in the validFromDate-ordered inventory.
// The inventory is walked one calendar-year window at a time and paged
// within each window. Its string form is "<window start>[#<page>]".
type Cursor struct {
	WindowStart time.Time
	Page        int
}

// FloorCursor is the cursor of a first or full sync.
func FloorCursor() Cursor {
	t, _ := time.Parse(time.RFC3339, domain.EpochFloor)
	return Cursor{WindowStart: t}
}

// ParseCursor decodes a cursor string. An empty string is the floor.
func ParseCursor(s string) (Cursor, error) {
	if s == "" {
		return FloorCursor(), nil
	}

	start, pageStr, hasPage := strings.Cut(s, "#")
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return Cursor{}, &domain.ValidationError{Field: "cursor", Reason: fmt.Sprintf("bad window start %q", start)}
	}

	c := Cursor{WindowStart: t.UTC()}
	if hasPage {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 0 {
			return Cursor{}, &domain.ValidationError{Field: "cursor", Reason: fmt.Sprintf("bad page %q", pageStr)}
		}
		c.Page = page
	}
	return c, nil
}

// String encodes the cursor. Page zero is omitted.
func (c Cursor) String() string {
	s := c.WindowStart.UTC().Format(time.RFC3339)
	if c.Page > 0 {
		s += "#" + strconv.Itoa(c.Page)
	}
	return s
}

// WindowEnd is the last second of the window's year, or now if that is earlier.
func (c Cursor) WindowEnd(now time.Time) time.Time {
	end := time.Date(c.WindowStart.Year(), time.December, 31, 23, 59, 59, 0, time.UTC)
	if now = now.UTC(); end.After(now) {
		return now
	}
	return end
}

// NextPage is the following page of the same window.
func (c Cursor) NextPage() Cursor {
	return Cursor{WindowStart: c.WindowStart, Page: c.Page + 1}
}

// NextWindow is the first page of the following year.
func (c Cursor) NextWindow() Cursor {
	return Cursor{WindowStart: time.Date(c.WindowStart.Year()+1, time.January, 1, 0, 0, 0, 0, time.UTC)}
}

// Exhausted reports whether the window starts after the current year.
func (c Cursor) Exhausted(now time.Time) bool {
	return c.WindowStart.Year() > now.UTC().Year()
}
