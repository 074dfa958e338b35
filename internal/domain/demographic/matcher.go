package demographic

import (
	"strconv"
	"strings"
	"time"
)

// MatchParameters is the attribute set a facility searches on. Any subset may
// be provided; empty fields do not constrain the search.
type MatchParameters struct {
	HIN        string `json:"hin,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Gender     Gender `json:"gender,omitempty"`
	BirthYear  string `json:"birth_year,omitempty"`
	BirthMonth string `json:"birth_month,omitempty"`
	BirthDay   string `json:"birth_day,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

func (p *MatchParameters) Empty() bool {
	return p.HIN == "" && p.FirstName == "" && p.LastName == "" && p.Gender == "" &&
		p.BirthYear == "" && p.BirthMonth == "" && p.BirthDay == "" &&
		p.City == "" && p.Province == "" && p.Phone == ""
}

// BirthDateParts parses the year/month/day strings. ok is false when any
// provided part fails to parse; the caller then drops the date-of-birth
// predicate instead of failing the whole search.
func (p *MatchParameters) BirthDateParts() (year, month, day *int, ok bool) {
	parse := func(s string) (*int, bool) {
		if strings.TrimSpace(s) == "" {
			return nil, true
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n <= 0 {
			return nil, false
		}
		return &n, true
	}

	var good bool
	if year, good = parse(p.BirthYear); !good {
		return nil, nil, nil, false
	}
	if month, good = parse(p.BirthMonth); !good {
		return nil, nil, nil, false
	}
	if day, good = parse(p.BirthDay); !good {
		return nil, nil, nil, false
	}
	return year, month, day, true
}

// MatchScore pairs a candidate with the confidence of the match. Scores
// support human review of the fuzzy path; they never drive automatic action.
type MatchScore struct {
	Demographic *Demographic `json:"demographic"`
	Score       int          `json:"score"`
}

// Attribute weights. The health insurance number is the strongest single
// signal; everything else corroborates.
const (
	scoreHIN       = 4
	scoreLastName  = 2
	scoreFirstName = 2
	scoreBirthDate = 2
	scoreGender    = 1
	scoreCity      = 1
	scoreProvince  = 1
	scorePhone     = 1
)

// scoreCandidate rates how well d matches the searched attributes.
func scoreCandidate(p *MatchParameters, d *Demographic) int {
	score := 0
	if p.HIN != "" && d.HIN != nil && strings.EqualFold(p.HIN, *d.HIN) {
		score += scoreHIN
	}
	if p.LastName != "" && strings.EqualFold(p.LastName, d.LastName) {
		score += scoreLastName
	}
	if p.FirstName != "" && strings.EqualFold(p.FirstName, d.FirstName) {
		score += scoreFirstName
	}
	if p.Gender != "" && p.Gender == d.Gender {
		score += scoreGender
	}
	if p.City != "" && d.City != nil && strings.EqualFold(p.City, *d.City) {
		score += scoreCity
	}
	if p.Province != "" && d.Province != nil && strings.EqualFold(p.Province, *d.Province) {
		score += scoreProvince
	}
	if p.Phone != "" && (matchPhone(p.Phone, d.Phone1) || matchPhone(p.Phone, d.Phone2)) {
		score += scorePhone
	}
	if y, m, dd, ok := p.BirthDateParts(); ok && d.BirthDate != nil {
		if birthDateMatches(*d.BirthDate, y, m, dd) && (y != nil || m != nil || dd != nil) {
			score += scoreBirthDate
		}
	}
	return score
}

func birthDateMatches(bd time.Time, year, month, day *int) bool {
	if year != nil && bd.Year() != *year {
		return false
	}
	if month != nil && int(bd.Month()) != *month {
		return false
	}
	if day != nil && bd.Day() != *day {
		return false
	}
	return true
}

func matchPhone(search string, stored *string) bool {
	if stored == nil {
		return false
	}
	return digitsOnly(search) != "" && digitsOnly(search) == digitsOnly(*stored)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
