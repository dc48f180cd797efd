package lookup

import (
	"slices"

	"github.com/shopspring/decimal"
)

// DiagnosisCode represents an ICD-10-CM style diagnosis code.
type DiagnosisCode struct {
	Code             string `json:"code" yaml:"code"`
	Description      string `json:"description" yaml:"description"`
	Category         string `json:"category" yaml:"category"`
	ValidFrom        string `json:"valid_from" yaml:"valid_from"`
	ValidTo          string `json:"valid_to,omitempty" yaml:"valid_to"`
	IsHeader         bool   `json:"is_header" yaml:"is_header"`
	ShortDescription string `json:"short_description,omitempty" yaml:"short_description"`
}

// ProcedureCode represents a CPT style procedure code.
type ProcedureCode struct {
	Code               string           `json:"code" yaml:"code"`
	Description        string           `json:"description" yaml:"description"`
	Category           string           `json:"category" yaml:"category"`
	RelativeValueUnits *decimal.Decimal `json:"relative_value_units,omitempty" yaml:"relative_value_units"`
	Modifiers          []string         `json:"modifiers,omitempty" yaml:"modifiers"`
	ValidFrom          string           `json:"valid_from" yaml:"valid_from"`
	ValidTo            string           `json:"valid_to,omitempty" yaml:"valid_to"`
}

// TerminologyEntry is a clinical term or abbreviation with its definition.
// Synonyms and RelatedTerms hold distinct values.
type TerminologyEntry struct {
	Term         string   `json:"term" yaml:"term"`
	Definition   string   `json:"definition" yaml:"definition"`
	Category     string   `json:"category" yaml:"category"`
	Synonyms     []string `json:"synonyms,omitempty" yaml:"synonyms"`
	RelatedTerms []string `json:"related_terms,omitempty" yaml:"related_terms"`
}

// ProviderAddress is one practice or mailing location of a provider.
type ProviderAddress struct {
	Line1 string `json:"line1" yaml:"line1"`
	Line2 string `json:"line2,omitempty" yaml:"line2"`
	City  string `json:"city" yaml:"city"`
	State string `json:"state" yaml:"state"`
	Zip   string `json:"zip" yaml:"zip"`
	Phone string `json:"phone,omitempty" yaml:"phone"`
	Fax   string `json:"fax,omitempty" yaml:"fax"`
}

// ProviderRecord is a national provider registry entry.
type ProviderRecord struct {
	NPI                string            `json:"npi" yaml:"npi"`
	DisplayName        string            `json:"display_name" yaml:"display_name"`
	Specialty          string            `json:"specialty" yaml:"specialty"`
	PrimaryAddressText string            `json:"primary_address" yaml:"primary_address"`
	PrimaryPhone       string            `json:"primary_phone" yaml:"primary_phone"`
	OrganizationName   string            `json:"organization_name,omitempty" yaml:"organization_name"`
	IndividualName     string            `json:"individual_name,omitempty" yaml:"individual_name"`
	Taxonomies         []string          `json:"taxonomies" yaml:"taxonomies"`
	Addresses          []ProviderAddress `json:"addresses" yaml:"addresses"`
}

// clone returns a copy that shares no slices with r. A nil record clones to nil.
func (r *ProviderRecord) clone() *ProviderRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Taxonomies = slices.Clone(r.Taxonomies)
	c.Addresses = slices.Clone(r.Addresses)
	return &c
}

func cloneRecords(in []ProviderRecord) []ProviderRecord {
	out := make([]ProviderRecord, len(in))
	for i := range in {
		out[i] = *in[i].clone()
	}
	return out
}

// Result is the envelope returned by every Service operation. A failed
// result never carries data; Cached is true only when Data came from the
// cache store.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
	Cached  bool   `json:"cached"`

	cause error
}

// Cause returns the error behind a failed or degraded result, if any.
func (r Result[T]) Cause() error {
	return r.cause
}

func succeed[T any](data T, cached bool) Result[T] {
	return Result[T]{Success: true, Data: data, Cached: cached}
}

func degrade[T any](data T, cause error) Result[T] {
	return Result[T]{Success: true, Data: data, Error: MsgFallback, cause: cause}
}

func fail[T any](msg string, cause error) Result[T] {
	return Result[T]{Success: false, Error: msg, cause: cause}
}
