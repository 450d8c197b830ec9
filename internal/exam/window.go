package exam

import (
	"fmt"
	"time"
)

// clockRange resolves a test's date and HH:MM bounds in loc (UTC when nil).
func clockRange(date, start, end string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := time.ParseInLocation("2006-01-02 15:04", date+" "+start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	e, err := time.ParseInLocation("2006-01-02 15:04", date+" "+end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	return s, e, nil
}

// clockHHMM zero-pads a validated clock time ("9:05" -> "09:05") so stored
// times sort as strings.
func clockHHMM(s string) string {
	c, err := time.Parse("15:04", s)
	if err != nil {
		return s
	}
	return c.Format("15:04")
}

// Window returns when the test opens and closes.
func (t Test) Window(loc *time.Location) (opens, closes time.Time, err error) {
	return clockRange(t.Date, t.StartTime, t.EndTime, loc)
}

// checkWindow rejects now outside [opens, closes+grace]. Both bounds are
// inclusive. grace covers the client's auto-submit arriving just after the
// deadline.
func checkWindow(t Test, now time.Time, loc *time.Location, grace time.Duration) error {
	opens, closes, err := t.Window(loc)
	if err != nil {
		return fmt.Errorf("exam: test %s has an unreadable schedule: %w", t.ID, err)
	}
	switch {
	case now.Before(opens):
		return fmt.Errorf("%w: opens at %s", ErrOutOfWindow, opens.Format(time.RFC3339))
	case now.After(closes.Add(grace)):
		return fmt.Errorf("%w: closed at %s", ErrOutOfWindow, closes.Format(time.RFC3339))
	}
	return nil
}
