package catalog

import "strings"

// Vehicle classes used by the trip catalog.
const (
	ClassSUV     = "SUV électrique"
	ClassPremium = "Véhicule électrique premium"
	ClassCompact = "Véhicule électrique compact"
	ClassUrban   = "Véhicule électrique urbain"
)

// classRules are evaluated in order; the first token contained in the model wins.
// Matching is case-sensitive.
var classRules = []struct {
	token string
	class string
}{
	{token: "SUV", class: ClassSUV},
	{token: "Premium", class: ClassPremium},
	{token: "Compact", class: ClassCompact},
}

// ClassOf derives the vehicle class from a free-text model string.
// Models matching no rule fall into ClassUrban.
func ClassOf(model string) string {
	for _, r := range classRules {
		if strings.Contains(model, r.token) {
			return r.class
		}
	}
	return ClassUrban
}
