package model

import "time"

// Well-known answer fields.
const (
	FieldInstitution       = "institucion"
	FieldInstitutionLegacy = "institucion_educativa"
	FieldGrade             = "grado"
	FieldSex               = "sexo"
	FieldBirthDate         = "fecha_nacimiento"
)

const BirthDateLayout = "2006-01-02"

type Response struct {
	ID          string     `json:"id"`
	SurveyType  SurveyType `json:"type"`
	SubmittedAt time.Time  `json:"date"`
	Answers     Answers    `json:"data"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

func (r Response) Deleted() bool {
	return r.DeletedAt != nil
}

// WithDeletedAt returns a copy of r marked as deleted at t.
func (r Response) WithDeletedAt(t time.Time) Response {
	c := r.Clone()
	c.DeletedAt = &t
	return c
}

// Restored returns a copy of r with the deletion mark cleared.
func (r Response) Restored() Response {
	c := r.Clone()
	c.DeletedAt = nil
	return c
}

func (r Response) Clone() Response {
	c := r
	c.Answers = r.Answers.Clone()
	if r.DeletedAt != nil {
		t := *r.DeletedAt
		c.DeletedAt = &t
	}
	return c
}

// Institution returns the institution answer, accepting the legacy field name
// some forms still post. Filtering uses the exact institucion field only.
func (r Response) Institution() (string, bool) {
	if v, ok := r.Answers[FieldInstitution]; ok && v.String() != "" {
		return v.String(), true
	}
	if v, ok := r.Answers[FieldInstitutionLegacy]; ok && v.String() != "" {
		return v.String(), true
	}
	return "", false
}

type Stats struct {
	Total        int                `json:"total"`
	CountsByType map[SurveyType]int `json:"countsByType"`
	Deleted      int                `json:"deleted"`
}

// CountStats tallies responses by survey type.
func CountStats(active []Response, deleted int) Stats {
	stats := Stats{
		Total:        len(active),
		CountsByType: make(map[SurveyType]int, len(SurveyTypes)),
		Deleted:      deleted,
	}
	for _, t := range SurveyTypes {
		stats.CountsByType[t] = 0
	}
	for _, r := range active {
		stats.CountsByType[r.SurveyType]++
	}
	return stats
}
