package leaderboard

import (
	"fmt"
	"time"
)

type Period string

const (
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	AllTime Period = "all-time"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case Weekly, Monthly, AllTime:
		return Period(s), nil
	case "":
		return AllTime, nil
	}
	return "", fmt.Errorf("unknown leaderboard period %q", s)
}

// Scope restricts a ranking to one community. The zero value is global.
type Scope struct {
	CommunityID string
}

func Global() Scope { return Scope{} }

func Community(id string) Scope { return Scope{CommunityID: id} }

func (s Scope) String() string {
	if s.CommunityID == "" {
		return "global"
	}
	return "community:" + s.CommunityID
}

// Window returns the half-open interval [start, end) for p at now, with
// calendar boundaries taken in loc. Weeks start on Sunday at 00:00.
func Window(p Period, now time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	y, m, d := local.Date()

	switch p {
	case Weekly:
		start = time.Date(y, m, d-int(local.Weekday()), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 7)
	case Monthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	default:
		start = time.Unix(0, 0).In(loc)
		end = now
	}
	return start, end
}
