package emergency

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/semcare/triage-api/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		symptoms []string
		want     model.TriageLevel
	}{
		{"chest pain", []string{"chest pain"}, model.TriageRed},
		{"chest pain in spanish", []string{"Dolor en el pecho"}, model.TriageRed},
		{"chest pain embedded in longer text", []string{"sudden chest pain while resting"}, model.TriageRed},
		{"red wins over yellow", []string{"fractura", "no respira"}, model.TriageRed},
		{"fracture", []string{"Fractura"}, model.TriageYellow},
		{"burn", []string{"quemadura en el brazo"}, model.TriageYellow},
		{"yellow wins over green", []string{"dolor de cabeza", "fractura"}, model.TriageYellow},
		{"mild headache", []string{"mild headache"}, model.TriageGreen},
		{"headache in spanish", []string{"Dolor de cabeza"}, model.TriageGreen},
		{"unrecognized defaults to yellow", []string{"mareo extraño"}, model.TriageYellow},
		{"empty is green", nil, model.TriageGreen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.symptoms))
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	symptoms := []string{"tos", "fiebre alta", "dolor de garganta"}
	first := Classify(symptoms)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(symptoms))
	}
}
