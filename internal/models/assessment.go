package models

import (
	"errors"
	"strings"
)

// AssessmentKind tags which payload an Assessment carries.
type AssessmentKind string

const (
	AssessmentVerification AssessmentKind = "verification"
	AssessmentAppliance    AssessmentKind = "appliance"
)

// DefaultVerificationQuestions are the checks a collector answers on site.
var DefaultVerificationQuestions = []string{
	"Is the e-waste item matching the description provided?",
	"What is the condition of the e-waste?",
	"Are there any visible damages?",
	"Is the item complete with all parts?",
	"Does it contain any hazardous materials?",
	"Approximate weight of the item",
}

var ErrAmbiguousAssessment = errors.New("assessment must carry either verification responses or appliance data, not both")

// Assessment is either free-form verification answers keyed by question text,
// or structured appliance attributes used as prediction input. Exactly one
// payload is populated and Kind names it.
type Assessment struct {
	Kind      AssessmentKind       `bson:"kind" json:"kind"`
	Responses map[string]string    `bson:"responses,omitempty" json:"responses,omitempty"`
	Appliance *ApplianceAttributes `bson:"appliance,omitempty" json:"appliance,omitempty"`
}

// ApplianceAttributes describes an appliance the way the price model expects it.
type ApplianceAttributes struct {
	ItemType            string     `bson:"itemType" json:"itemType"`
	Brand               string     `bson:"brand" json:"brand"`
	Age                 *float64   `bson:"age" json:"age"`
	Condition           string     `bson:"condition" json:"condition"`
	Weight              *float64   `bson:"weight" json:"weight"`
	MaterialComposition StringList `bson:"materialComposition" json:"materialComposition"`
	BatteryIncluded     string     `bson:"batteryIncluded" json:"batteryIncluded"`
	VisibleDamage       string     `bson:"visibleDamage" json:"visibleDamage"`
	ScreenCondition     string     `bson:"screenCondition" json:"screenCondition"`
	RustPresence        string     `bson:"rustPresence" json:"rustPresence"`
	WiringCondition     string     `bson:"wiringCondition" json:"wiringCondition"`
	ResalePotential     string     `bson:"resalePotential" json:"resalePotential"`
}

// NewAssessment picks the variant from whichever payload is populated.
// It returns nil when neither is.
func NewAssessment(responses map[string]string, appliance *ApplianceAttributes) (*Assessment, error) {
	hasResponses := len(responses) > 0
	hasAppliance := appliance != nil
	switch {
	case hasResponses && hasAppliance:
		return nil, ErrAmbiguousAssessment
	case hasResponses:
		copied := make(map[string]string, len(responses))
		for q, a := range responses {
			copied[strings.TrimSpace(q)] = strings.TrimSpace(a)
		}
		return &Assessment{Kind: AssessmentVerification, Responses: copied}, nil
	case hasAppliance:
		a := appliance.clone()
		return &Assessment{Kind: AssessmentAppliance, Appliance: &a}, nil
	}
	return nil, nil
}

func (a *Assessment) Clone() *Assessment {
	if a == nil {
		return nil
	}
	out := &Assessment{Kind: a.Kind}
	if a.Responses != nil {
		out.Responses = make(map[string]string, len(a.Responses))
		for q, v := range a.Responses {
			out.Responses[q] = v
		}
	}
	if a.Appliance != nil {
		c := a.Appliance.clone()
		out.Appliance = &c
	}
	return out
}

func (a ApplianceAttributes) clone() ApplianceAttributes {
	out := a
	if a.Age != nil {
		v := *a.Age
		out.Age = &v
	}
	if a.Weight != nil {
		v := *a.Weight
		out.Weight = &v
	}
	if a.MaterialComposition != nil {
		out.MaterialComposition = append(StringList(nil), a.MaterialComposition...)
	}
	return out
}

// Problems lists missing or invalid attributes, in field order.
func (a ApplianceAttributes) Problems() []string {
	var problems []string
	required := []struct {
		name  string
		value string
	}{
		{"itemType", a.ItemType},
		{"brand", a.Brand},
		{"condition", a.Condition},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.name+" is required")
		}
	}
	if a.Age == nil {
		problems = append(problems, "age is required")
	} else if *a.Age < 0 {
		problems = append(problems, "age is invalid")
	}
	if a.Weight == nil {
		problems = append(problems, "weight is required")
	} else if *a.Weight <= 0 {
		problems = append(problems, "weight is invalid")
	}
	if len(a.MaterialComposition) == 0 {
		problems = append(problems, "materialComposition is required")
	}
	rest := []struct {
		name  string
		value string
	}{
		{"batteryIncluded", a.BatteryIncluded},
		{"visibleDamage", a.VisibleDamage},
		{"screenCondition", a.ScreenCondition},
		{"rustPresence", a.RustPresence},
		{"wiringCondition", a.WiringCondition},
		{"resalePotential", a.ResalePotential},
	}
	for _, r := range rest {
		if strings.TrimSpace(r.value) == "" {
			problems = append(problems, r.name+" is required")
		}
	}
	return problems
}
