package lookup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDiagnosisCodes(t *testing.T) {
	got := NormalizeDiagnosisCodes([]RawDiagnosisCode{
		{Code: "I10", Description: "Essential (primary) hypertension", Category: "Circulatory", ValidFrom: "2015-10-01", ShortDescription: "HTN"},
		{Code: "I11"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, DiagnosisCode{
		Code: "I10", Description: "Essential (primary) hypertension", Category: "Circulatory",
		ValidFrom: "2015-10-01", ShortDescription: "HTN",
	}, got[0])
	assert.Equal(t, DiagnosisCode{Code: "I11"}, got[1])

	empty := NormalizeDiagnosisCodes(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestNormalizeProvider_Organization(t *testing.T) {
	rec := NormalizeProvider(RawNPIResult{
		Number: "1356402814",
		Basic:  RawNPIBasic{OrganizationName: "Riverside Family Medicine"},
	})
	assert.Equal(t, "Riverside Family Medicine", rec.DisplayName)
	assert.Equal(t, "Riverside Family Medicine", rec.OrganizationName)
	assert.Empty(t, rec.IndividualName)
	assert.Equal(t, "1356402814", rec.NPI)
}

func TestNormalizeProvider_Individual(t *testing.T) {
	tests := []struct {
		name  string
		basic RawNPIBasic
		want  string
	}{
		{"prefix first last", RawNPIBasic{NamePrefix: "Dr.", FirstName: "Sarah", LastName: "Chen"}, "Dr. Sarah Chen"},
		{"no prefix", RawNPIBasic{FirstName: "Sarah", LastName: "Chen"}, "Sarah Chen"},
		{"last only", RawNPIBasic{LastName: "Chen"}, "Chen"},
		{"nothing", RawNPIBasic{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NormalizeProvider(RawNPIResult{Basic: tt.basic})
			assert.Equal(t, tt.want, rec.DisplayName)
		})
	}
}

func TestNormalizeProvider_AddressAndSpecialty(t *testing.T) {
	rec := NormalizeProvider(RawNPIResult{
		Taxonomies: []RawNPITaxonomy{{Desc: "Ophthalmology"}, {Desc: "Retina Specialist"}},
		Addresses: []RawNPIAddress{
			{Address1: "100 Vision Way", Address2: "Suite 200", City: "Boston", State: "MA", Zip: "02115", TelephoneNumber: "617-555-0142", FaxNumber: "617-555-0143"},
			{Address1: "PO Box 9", City: "Boston", State: "MA", PostalCode: "02116"},
		},
	})

	assert.Equal(t, "Ophthalmology", rec.Specialty)
	assert.Equal(t, []string{"Ophthalmology", "Retina Specialist"}, rec.Taxonomies)
	assert.Equal(t, "100 Vision Way, Suite 200, Boston, MA, 02115", rec.PrimaryAddressText)
	assert.Equal(t, "617-555-0142", rec.PrimaryPhone)
	require.Len(t, rec.Addresses, 2)
	assert.Equal(t, "617-555-0143", rec.Addresses[0].Fax)
	assert.Equal(t, "02116", rec.Addresses[1].Zip)
}

func TestNormalizeProvider_Defaults(t *testing.T) {
	rec := NormalizeProvider(RawNPIResult{Basic: RawNPIBasic{LastName: "Chen"}})
	assert.Equal(t, "Unknown", rec.Specialty)
	assert.Equal(t, "Address not available", rec.PrimaryAddressText)
	assert.Empty(t, rec.PrimaryPhone)
	assert.NotNil(t, rec.Taxonomies)
	assert.NotNil(t, rec.Addresses)
}

func TestFormatAddress_SkipsEmptyParts(t *testing.T) {
	got := FormatAddress(ProviderAddress{Line1: "8 Riverside Drive", City: "Newton", State: "MA"})
	assert.Equal(t, "8 Riverside Drive, Newton, MA", got)
}

func TestNormalizeNPIResponse(t *testing.T) {
	assert.Nil(t, NormalizeNPIResponse(nil))
	assert.Nil(t, NormalizeNPIResponse(&RawNPIResponse{ResultCount: 0}))
	assert.Nil(t, NormalizeNPIResponse(&RawNPIResponse{ResultCount: 1}))

	rec := NormalizeNPIResponse(&RawNPIResponse{
		ResultCount: 1,
		Results:     []RawNPIResult{{Number: "1245319599", Basic: RawNPIBasic{FirstName: "Marcus", LastName: "Webb"}}},
	})
	require.NotNil(t, rec)
	assert.Equal(t, "Marcus Webb", rec.DisplayName)
	assert.Equal(t, "Marcus Webb", rec.IndividualName)
}
