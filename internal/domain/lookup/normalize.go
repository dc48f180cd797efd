package lookup

import (
	"strings"
)

const (
	addressUnavailable = "Address not available"
	unknownSpecialty   = "Unknown"
)

// NormalizeDiagnosisCodes maps diagnosis registry items field for field.
// Missing fields take their zero value.
func NormalizeDiagnosisCodes(raw []RawDiagnosisCode) []DiagnosisCode {
	codes := make([]DiagnosisCode, 0, len(raw))
	for _, r := range raw {
		codes = append(codes, DiagnosisCode{
			Code:             r.Code,
			Description:      r.Description,
			Category:         r.Category,
			ValidFrom:        r.ValidFrom,
			ValidTo:          r.ValidTo,
			IsHeader:         r.IsHeader,
			ShortDescription: r.ShortDescription,
		})
	}
	return codes
}

// NormalizeNPIResponse returns the first registry record, or nil when the
// registry reports no match.
func NormalizeNPIResponse(raw *RawNPIResponse) *ProviderRecord {
	if raw == nil || raw.ResultCount == 0 || len(raw.Results) == 0 {
		return nil
	}
	rec := NormalizeProvider(raw.Results[0])
	return &rec
}

// NormalizeProvider maps a registry record onto ProviderRecord.
func NormalizeProvider(r RawNPIResult) ProviderRecord {
	rec := ProviderRecord{
		NPI:              r.Number.String(),
		OrganizationName: r.Basic.OrganizationName,
		Specialty:        unknownSpecialty,
		Taxonomies:       make([]string, 0, len(r.Taxonomies)),
		Addresses:        make([]ProviderAddress, 0, len(r.Addresses)),
	}

	if r.Basic.OrganizationName != "" {
		rec.DisplayName = r.Basic.OrganizationName
	} else {
		rec.DisplayName = strings.TrimSpace(r.Basic.NamePrefix + " " + r.Basic.FirstName + " " + r.Basic.LastName)
	}
	if name := strings.TrimSpace(r.Basic.FirstName + " " + r.Basic.LastName); name != "" {
		rec.IndividualName = name
	}

	for _, t := range r.Taxonomies {
		rec.Taxonomies = append(rec.Taxonomies, t.Desc)
	}
	if len(r.Taxonomies) > 0 {
		rec.Specialty = r.Taxonomies[0].Desc
	}

	for _, a := range r.Addresses {
		zip := a.Zip
		if zip == "" {
			zip = a.PostalCode
		}
		rec.Addresses = append(rec.Addresses, ProviderAddress{
			Line1: a.Address1,
			Line2: a.Address2,
			City:  a.City,
			State: a.State,
			Zip:   zip,
			Phone: a.TelephoneNumber,
			Fax:   a.FaxNumber,
		})
	}

	rec.PrimaryAddressText = addressUnavailable
	if len(rec.Addresses) > 0 {
		first := rec.Addresses[0]
		rec.PrimaryAddressText = FormatAddress(first)
		rec.PrimaryPhone = first.Phone
	}
	return rec
}

// FormatAddress joins the non-empty address parts with ", ".
func FormatAddress(a ProviderAddress) string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.Zip} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
