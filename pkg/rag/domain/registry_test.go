package domain

import (
	"testing"
)

func TestResolveKnownDomains(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		domainType Type
		wantStyle  CitationStyle
	}{
		{TypeGeneral, StyleNumeric},
		{TypeHistory, StyleChicago},
		{TypeScience, StyleAPA},
		{TypeLaw, StyleBluebook},
		{TypeMedicine, StyleVancouver},
		{TypeBusiness, StyleAPA},
		{TypeComputerScience, StyleNumeric},
		{TypeHumanities, StyleMLA},
	}

	for _, tt := range tests {
		t.Run(string(tt.domainType), func(t *testing.T) {
			p := r.Resolve(tt.domainType)
			if p.DomainType != tt.domainType {
				t.Errorf("DomainType = %v, want %v", p.DomainType, tt.domainType)
			}
			if p.CitationStyle != tt.wantStyle {
				t.Errorf("CitationStyle = %v, want %v", p.CitationStyle, tt.wantStyle)
			}
			if p.PromptEnhancement == "" {
				t.Error("PromptEnhancement must not be empty")
			}
		})
	}
}

func TestResolveFallsBackToGeneral(t *testing.T) {
	r := NewRegistry()

	for _, input := range []Type{"", "ASTROLOGY", "law school", Type("unknown")} {
		p := r.Resolve(input)
		if p.DomainType != TypeGeneral {
			t.Errorf("Resolve(%q) = %v, want GENERAL fallback", input, p.DomainType)
		}
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()

	if p := r.Resolve("law"); p.DomainType != TypeLaw {
		t.Errorf("Resolve(\"law\") = %v, want LAW", p.DomainType)
	}
	if p := r.Resolve(" computer_science "); p.DomainType != TypeComputerScience {
		t.Errorf("Resolve with padding = %v, want COMPUTER_SCIENCE", p.DomainType)
	}
}
