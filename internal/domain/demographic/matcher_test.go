package demographic

import (
	"testing"
	"time"
)

func TestBirthDatePartsParsing(t *testing.T) {
	p := &MatchParameters{BirthYear: "1980", BirthMonth: "3", BirthDay: "15"}
	y, m, d, ok := p.BirthDateParts()
	if !ok {
		t.Fatal("expected parseable parts")
	}
	if *y != 1980 || *m != 3 || *d != 15 {
		t.Errorf("got %d-%d-%d", *y, *m, *d)
	}

	// Partial dates are fine; missing parts stay nil.
	p = &MatchParameters{BirthYear: "1980"}
	y, m, d, ok = p.BirthDateParts()
	if !ok || y == nil || m != nil || d != nil {
		t.Errorf("partial date parse failed: %v %v %v %v", y, m, d, ok)
	}

	// Any unparsable part invalidates the whole date.
	p = &MatchParameters{BirthYear: "1980", BirthMonth: "March"}
	if _, _, _, ok := p.BirthDateParts(); ok {
		t.Error("unparsable month must fail the date parse")
	}
	p = &MatchParameters{BirthDay: "-3"}
	if _, _, _, ok := p.BirthDateParts(); ok {
		t.Error("negative day must fail the date parse")
	}
}

func TestMatchParametersEmpty(t *testing.T) {
	if !(&MatchParameters{}).Empty() {
		t.Error("no fields set must read as empty")
	}
	// Every searchable field on its own makes the parameter set non-empty,
	// the date-of-birth parts included.
	cases := []MatchParameters{
		{HIN: "123"},
		{FirstName: "Jane"},
		{LastName: "Doe"},
		{Gender: GenderFemale},
		{BirthYear: "1980"},
		{BirthMonth: "3"},
		{BirthDay: "15"},
		{City: "Toronto"},
		{Province: "ON"},
		{Phone: "4165550188"},
	}
	for _, p := range cases {
		if p.Empty() {
			t.Errorf("%+v must not read as empty", p)
		}
	}
}

func TestScoreCandidatePhoneNormalization(t *testing.T) {
	phone := "(416) 555-0188"
	d := &Demographic{FirstName: "Jane", LastName: "Doe", Phone1: &phone}

	score := scoreCandidate(&MatchParameters{LastName: "Doe", Phone: "416-555-0188"}, d)
	if score != scoreLastName+scorePhone {
		t.Errorf("score = %d, want %d", score, scoreLastName+scorePhone)
	}
}

func TestScoreCandidateCaseInsensitive(t *testing.T) {
	city := "Toronto"
	d := &Demographic{FirstName: "Jane", LastName: "Doe", City: &city}

	score := scoreCandidate(&MatchParameters{FirstName: "JANE", LastName: "doe", City: "toronto"}, d)
	if score != scoreFirstName+scoreLastName+scoreCity {
		t.Errorf("score = %d", score)
	}
}

func TestScoreCandidateBirthDate(t *testing.T) {
	bd := time.Date(1980, 3, 15, 0, 0, 0, 0, time.UTC)
	d := &Demographic{LastName: "Doe", BirthDate: &bd}

	if s := scoreCandidate(&MatchParameters{LastName: "Doe", BirthYear: "1980"}, d); s != scoreLastName+scoreBirthDate {
		t.Errorf("matching year should add the birth date score, got %d", s)
	}
	if s := scoreCandidate(&MatchParameters{LastName: "Doe", BirthYear: "1990"}, d); s != scoreLastName {
		t.Errorf("mismatched year must not score, got %d", s)
	}
}
