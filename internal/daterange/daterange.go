// Package daterange converts user-facing date range inputs into the wire
// formats the Google APIs expect. GA4 accepts relative tokens like
// "7daysAgo"/"today"; Search Console only accepts absolute YYYY-MM-DD pairs.
package daterange

import (
	"regexp"
	"strconv"
	"time"
)

var shorthandPattern = regexp.MustCompile(`^(\d+)d$`)

// Range is a resolved start/end pair in whatever vocabulary the target API
// uses. For GA4 the values may be relative tokens; for Search Console they
// are always absolute dates.
type Range struct {
	Start string `json:"startDate"`
	End   string `json:"endDate"`
}

// Spec is a date range input, discriminated once at this boundary:
// either a shorthand token ("7d" = the last 7 days ending today) or an
// explicit start/end pair. An explicit pair always wins over a token.
type Spec struct {
	Token string
	Start string
	End   string
}

// Shorthand builds a Spec from a token like "7d".
func Shorthand(token string) Spec {
	return Spec{Token: token}
}

// Explicit builds a Spec from a start/end pair. The pair is not validated
// here; GA4 relative tokens and absolute dates are both legal.
func Explicit(start, end string) Spec {
	return Spec{Start: start, End: end}
}

// IsZero reports whether the Spec carries no input at all, which callers
// use to substitute the configured default range.
func (s Spec) IsZero() bool {
	return s.Token == "" && s.Start == "" && s.End == ""
}

// ForGA4 resolves the Spec into GA4's relative vocabulary:
// "7d" becomes {7daysAgo, today}. Explicit pairs pass through untouched.
// A token that is not valid shorthand is forwarded as-is and rejected by
// the API, not here.
func (s Spec) ForGA4() Range {
	if s.Start != "" || s.End != "" {
		return Range{Start: s.Start, End: s.End}
	}
	if m := shorthandPattern.FindStringSubmatch(s.Token); m != nil {
		return Range{Start: m[1] + "daysAgo", End: "today"}
	}
	return Range{Start: s.Token, End: s.Token}
}

// ForSearchConsole resolves the Spec into absolute YYYY-MM-DD dates relative
// to now: "7d" becomes {today-7d, today}. Explicit pairs pass through, so
// re-parsing its own output is a no-op. Search Console never accepts GA4
// relative tokens, so no translation path exists for them.
func (s Spec) ForSearchConsole(now time.Time) Range {
	if s.Start != "" || s.End != "" {
		return Range{Start: s.Start, End: s.End}
	}
	if m := shorthandPattern.FindStringSubmatch(s.Token); m != nil {
		days, _ := strconv.Atoi(m[1])
		return Range{
			Start: now.AddDate(0, 0, -days).Format("2006-01-02"),
			End:   now.Format("2006-01-02"),
		}
	}
	return Range{Start: s.Token, End: s.Token}
}
