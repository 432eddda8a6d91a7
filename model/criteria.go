package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMissingDateRange = errors.New("date range is required")
	ErrInvalidAgeRange  = errors.New("invalid age range")
)

type AgeRange struct {
	Min, Max int
}

var AgeRanges = []AgeRange{
	{5, 8},
	{9, 12},
	{13, 16},
	{17, 20},
}

func ParseAgeRange(s string) (AgeRange, error) {
	for _, r := range AgeRanges {
		if r.String() == s {
			return r, nil
		}
	}
	return AgeRange{}, fmt.Errorf("%w: %q", ErrInvalidAgeRange, s)
}

func (r AgeRange) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// AgeAt returns the age in whole years on the date of now.
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

// Criteria selects responses. DateFrom and DateTo are both required; DateTo
// includes its whole day. Empty string criteria are not applied.
type Criteria struct {
	DateFrom    time.Time
	DateTo      time.Time
	SurveyType  SurveyType
	Institution string
	Grade       string
	Sex         string
	AgeRange    *AgeRange
	NewestFirst bool
}

func (c Criteria) Validate() error {
	if c.DateFrom.IsZero() || c.DateTo.IsZero() {
		return ErrMissingDateRange
	}
	return nil
}

func (c Criteria) start() time.Time {
	y, m, d := c.DateFrom.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.DateFrom.Location())
}

func (c Criteria) end() time.Time {
	y, m, d := c.DateTo.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), c.DateTo.Location())
}

// Match reports whether r satisfies every criterion. A response lacking the
// field a criterion needs never matches it. now is the reference for ages.
func (c Criteria) Match(r Response, now time.Time) bool {
	if r.SubmittedAt.Before(c.start()) || r.SubmittedAt.After(c.end()) {
		return false
	}
	if c.SurveyType != "" && r.SurveyType != c.SurveyType {
		return false
	}
	if !matchField(r.Answers, FieldInstitution, c.Institution) ||
		!matchField(r.Answers, FieldGrade, c.Grade) ||
		!matchField(r.Answers, FieldSex, c.Sex) {
		return false
	}
	if c.AgeRange != nil {
		v, ok := r.Answers[FieldBirthDate]
		if !ok {
			return false
		}
		birth, err := time.Parse(BirthDateLayout, v.String())
		if err != nil {
			return false
		}
		if !c.AgeRange.Contains(AgeAt(birth, now)) {
			return false
		}
	}
	return true
}

func matchField(answers Answers, field, want string) bool {
	if want == "" {
		return true
	}
	v, ok := answers[field]
	return ok && v.String() == want
}
