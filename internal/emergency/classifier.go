package emergency

import (
	"strings"

	"github.com/semcare/triage-api/internal/model"
)

// Keyword classes for the deterministic triage classifier. The service runs
// in a bilingual market, so each class carries Spanish and English phrasings.
// Longer phrases are matched by substring against the lowercased symptom
// text, so "dolor en el pecho al respirar" still classifies red.
var (
	redKeywords = []string{
		"chest pain",
		"dolor en el pecho",
		"heart attack",
		"infarto",
		"cardiac arrest",
		"paro cardiaco",
		"unconscious",
		"inconsciente",
		"not breathing",
		"no respira",
		"difficulty breathing",
		"dificultad para respirar",
		"severe bleeding",
		"hemorragia",
		"stroke",
		"acv",
	}

	yellowKeywords = []string{
		"fracture",
		"fractura",
		"broken",
		"quebradura",
		"trauma",
		"burn",
		"quemadura",
		"deep cut",
		"corte profundo",
		"fall",
		"caída",
		"high fever",
		"fiebre alta",
	}

	greenKeywords = []string{
		"headache",
		"dolor de cabeza",
		"cough",
		"tos",
		"sore throat",
		"dolor de garganta",
		"nausea",
		"náuseas",
		"rash",
		"sarpullido",
		"mild",
		"leve",
	}
)

// Classify maps a symptom list onto a triage level. Total and deterministic:
// any red-class symptom wins, then yellow, then green; an unrecognized but
// non-empty symptom set defaults to yellow so nothing novel gets deprioritized,
// and an empty set is green.
func Classify(symptoms []string) model.TriageLevel {
	if len(symptoms) == 0 {
		return model.TriageGreen
	}

	matched := model.TriageLevel("")
	for _, symptom := range symptoms {
		text := strings.ToLower(strings.TrimSpace(symptom))
		switch {
		case matchesAny(text, redKeywords):
			return model.TriageRed
		case matchesAny(text, yellowKeywords):
			matched = model.TriageYellow
		case matchesAny(text, greenKeywords):
			if matched == "" {
				matched = model.TriageGreen
			}
		}
	}

	if matched == "" {
		return model.TriageYellow
	}
	return matched
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
