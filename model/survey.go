package model

import "errors"

var ErrUnknownSurveyType = errors.New("unknown survey type")

type SurveyType string

const (
	RacionServida         SurveyType = "racion-servida"
	RacionIndustrializada SurveyType = "racion-industrializada"
	Coordinadores         SurveyType = "coordinadores"
	ComedoresComunitarios SurveyType = "comedores-comunitarios"
)

type surveyInfo struct {
	title       string
	displayName string
}

// New survey types must be added here and to SurveyTypes.
var surveys = map[SurveyType]surveyInfo{
	RacionServida: {
		title:       "Evaluación de Satisfacción - Ración Servida",
		displayName: "Ración Servida",
	},
	RacionIndustrializada: {
		title:       "Evaluación de Satisfacción - Ración Industrializada",
		displayName: "Ración Industrializada",
	},
	Coordinadores: {
		title:       "Evaluación para Coordinadores PAE",
		displayName: "Coordinadores",
	},
	ComedoresComunitarios: {
		title:       "Evaluación de Comedores Comunitarios",
		displayName: "Comedores Comunitarios",
	},
}

// SurveyTypes lists every known survey type in display order.
var SurveyTypes = []SurveyType{
	RacionServida,
	RacionIndustrializada,
	Coordinadores,
	ComedoresComunitarios,
}

func ParseSurveyType(s string) (SurveyType, error) {
	t := SurveyType(s)
	if !t.Valid() {
		return "", ErrUnknownSurveyType
	}
	return t, nil
}

func (t SurveyType) Valid() bool {
	_, ok := surveys[t]
	return ok
}

// Title is the heading of the survey form.
func (t SurveyType) Title() string {
	if info, ok := surveys[t]; ok {
		return info.title
	}
	return string(t)
}

// DisplayName is the short label used in tables, stats and exports.
func (t SurveyType) DisplayName() string {
	if info, ok := surveys[t]; ok {
		return info.displayName
	}
	return string(t)
}
