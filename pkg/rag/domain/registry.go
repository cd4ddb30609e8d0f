package domain

import (
	"strings"
)

// Type is a topic-style category controlling prompt specialization
type Type string

const (
	TypeGeneral         Type = "GENERAL"
	TypeHistory         Type = "HISTORY"
	TypeScience         Type = "SCIENCE"
	TypeLaw             Type = "LAW"
	TypeMedicine        Type = "MEDICINE"
	TypeBusiness        Type = "BUSINESS"
	TypeComputerScience Type = "COMPUTER_SCIENCE"
	TypeHumanities      Type = "HUMANITIES"
)

// CitationStyle names how retrieved sources should be referenced in answers
type CitationStyle string

const (
	StyleNumeric   CitationStyle = "NUMERIC"
	StyleChicago   CitationStyle = "CHICAGO"
	StyleAPA       CitationStyle = "APA"
	StyleBluebook  CitationStyle = "BLUEBOOK"
	StyleVancouver CitationStyle = "VANCOUVER"
	StyleMLA       CitationStyle = "MLA"
)

// Profile pairs a domain with its prompt enhancement and citation style
type Profile struct {
	DomainType        Type
	PromptEnhancement string
	CitationStyle     CitationStyle
}

// Registry is a read-only lookup of domain profiles, loaded once at startup
type Registry struct {
	profiles map[Type]Profile
}

// NewRegistry builds the fixed profile set. Profiles are immutable afterwards.
func NewRegistry() *Registry {
	profiles := map[Type]Profile{
		TypeGeneral: {
			DomainType:        TypeGeneral,
			PromptEnhancement: "You are a knowledgeable study assistant. Ground every answer in the provided course material and cite the sources you used.",
			CitationStyle:     StyleNumeric,
		},
		TypeHistory: {
			DomainType:        TypeHistory,
			PromptEnhancement: "You are a history tutor. Situate events in their period, distinguish primary from secondary sources, and note historiographical disagreements where the material shows them.",
			CitationStyle:     StyleChicago,
		},
		TypeScience: {
			DomainType:        TypeScience,
			PromptEnhancement: "You are a science tutor. Explain mechanisms step by step, state units and assumptions explicitly, and separate established results from open questions.",
			CitationStyle:     StyleAPA,
		},
		TypeLaw: {
			DomainType:        TypeLaw,
			PromptEnhancement: "You are a law tutor. Identify the issue, rule, application, and conclusion. Quote holdings precisely and never present dicta as holding.",
			CitationStyle:     StyleBluebook,
		},
		TypeMedicine: {
			DomainType:        TypeMedicine,
			PromptEnhancement: "You are a medical studies tutor. Use precise clinical terminology, distinguish diagnostic criteria from treatment guidance, and flag where the material is not a substitute for clinical judgment.",
			CitationStyle:     StyleVancouver,
		},
		TypeBusiness: {
			DomainType:        TypeBusiness,
			PromptEnhancement: "You are a business studies tutor. Frame answers around the relevant frameworks in the material, quantify where figures are given, and keep recommendations tied to the cited cases.",
			CitationStyle:     StyleAPA,
		},
		TypeComputerScience: {
			DomainType:        TypeComputerScience,
			PromptEnhancement: "You are a computer science tutor. Be precise about complexity, invariants, and edge cases. Prefer small worked examples over prose when the material permits.",
			CitationStyle:     StyleNumeric,
		},
		TypeHumanities: {
			DomainType:        TypeHumanities,
			PromptEnhancement: "You are a humanities tutor. Engage with the texts closely, attribute interpretations to their authors, and keep close readings anchored to the quoted passages.",
			CitationStyle:     StyleMLA,
		},
	}

	return &Registry{profiles: profiles}
}

// Resolve returns the profile for t, falling back to GENERAL for unknown or
// empty domain types. Lookup is case-insensitive.
func (r *Registry) Resolve(t Type) Profile {
	normalized := Type(strings.ToUpper(strings.TrimSpace(string(t))))
	if p, ok := r.profiles[normalized]; ok {
		return p
	}
	return r.profiles[TypeGeneral]
}

// Types lists all registered domain types
func (r *Registry) Types() []Type {
	types := make([]Type, 0, len(r.profiles))
	for t := range r.profiles {
		types = append(types, t)
	}
	return types
}
