package lookup

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

type diagnosisGroup struct {
	Name     string          `yaml:"name"`
	Keywords []string        `yaml:"keywords"`
	Codes    []DiagnosisCode `yaml:"codes"`
}

type procedureGroup struct {
	Name     string          `yaml:"name"`
	Keywords []string        `yaml:"keywords"`
	Codes    []ProcedureCode `yaml:"codes"`
}

type terminologyGroup struct {
	Name     string             `yaml:"name"`
	Keywords []string           `yaml:"keywords"`
	Entries  []TerminologyEntry `yaml:"entries"`
}

// KnowledgeBase is the static keyword-matched dataset used when a live
// registry call cannot be made. Lookups never fail; an unmatched query
// yields an empty, non-nil slice.
type KnowledgeBase struct {
	Diagnosis         []diagnosisGroup   `yaml:"diagnosis"`
	Procedures        []procedureGroup   `yaml:"procedures"`
	TerminologyGroups []terminologyGroup `yaml:"terminology"`
	SampleProviders   []ProviderRecord   `yaml:"sample_providers"`
}

// LoadKnowledgeBase parses the embedded dataset.
func LoadKnowledgeBase() (*KnowledgeBase, error) {
	return ParseKnowledgeBase(fallbackYAML)
}

// ParseKnowledgeBase parses a YAML dataset. Keywords are lower-cased.
func ParseKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if err := yaml.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	for i := range kb.Diagnosis {
		kb.Diagnosis[i].Keywords = lowerAll(kb.Diagnosis[i].Keywords)
	}
	for i := range kb.Procedures {
		kb.Procedures[i].Keywords = lowerAll(kb.Procedures[i].Keywords)
	}
	for i := range kb.TerminologyGroups {
		kb.TerminologyGroups[i].Keywords = lowerAll(kb.TerminologyGroups[i].Keywords)
	}
	return &kb, nil
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func matches(query string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(query, k) {
			return true
		}
	}
	return false
}

// DiagnosisCodes returns the fixed diagnosis codes for query.
func (kb *KnowledgeBase) DiagnosisCodes(query string) []DiagnosisCode {
	q := strings.ToLower(query)
	out := []DiagnosisCode{}
	for _, g := range kb.Diagnosis {
		if matches(q, g.Keywords) {
			out = append(out, g.Codes...)
		}
	}
	return out
}

// ProcedureCodes returns the fixed procedure codes for query.
func (kb *KnowledgeBase) ProcedureCodes(query string) []ProcedureCode {
	q := strings.ToLower(query)
	out := []ProcedureCode{}
	for _, g := range kb.Procedures {
		if matches(q, g.Keywords) {
			out = append(out, g.Codes...)
		}
	}
	return out
}

// Terminology returns the fixed terminology entries for query.
func (kb *KnowledgeBase) Terminology(query string) []TerminologyEntry {
	q := strings.ToLower(query)
	out := []TerminologyEntry{}
	for _, g := range kb.TerminologyGroups {
		if matches(q, g.Keywords) {
			out = append(out, g.Entries...)
		}
	}
	return out
}

// Providers returns the sample provider set. The query is not used to
// filter it.
func (kb *KnowledgeBase) Providers(string) []ProviderRecord {
	return cloneRecords(kb.SampleProviders)
}
