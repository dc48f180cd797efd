package lookup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_String(t *testing.T) {
	assert.Equal(t, "icd10", RegistryICD10.String())
	assert.Equal(t, "cpt", RegistryCPT.String())
	assert.Equal(t, "terminology", RegistryTerminology.String())
	assert.Equal(t, "npi", RegistryNPI.String())
	assert.Equal(t, "registry(0)", Registry(0).String())
}

func TestUnwired_AlwaysDefers(t *testing.T) {
	u := NewUnwired[[]ProcedureCode](RegistryCPT)
	assert.Equal(t, RegistryCPT, u.Registry())

	got, err := u.Fetch(context.Background(), "92250")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrNoLiveClient)
}

func TestICD10Client_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "type 2 diabetes", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"code":"E11.9","description":"Type 2 diabetes mellitus without complications","category":"Endocrine","validFrom":"2015-10-01","isHeader":false,"shortDescription":"Type 2 DM"},
			{"code":"E11","description":"Type 2 diabetes mellitus","category":"Endocrine","validFrom":"2015-10-01","validTo":"2030-09-30","isHeader":true}
		]`))
	}))
	defer srv.Close()

	c := NewICD10Client(srv.URL+"/search")
	assert.Equal(t, RegistryICD10, c.Registry())

	items, err := c.Fetch(context.Background(), "type 2 diabetes")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "E11.9", items[0].Code)
	assert.Equal(t, "Type 2 DM", items[0].ShortDescription)
	assert.True(t, items[1].IsHeader)
	assert.Equal(t, "2030-09-30", items[1].ValidTo)
}

func TestICD10Client_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewICD10Client(srv.URL).Fetch(context.Background(), "diabetes")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Equal(t, RegistryICD10, te.Registry)
	assert.Contains(t, te.Error(), "503")
}

func TestICD10Client_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	}))
	defer srv.Close()

	_, err := NewICD10Client(srv.URL).Fetch(context.Background(), "diabetes")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, RegistryICD10, pe.Registry)
}

func TestICD10Client_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewICD10Client(url, WithTimeout(time.Second)).Fetch(context.Background(), "diabetes")
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.NotNil(t, errors.Unwrap(te))
}

func TestICD10Client_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewICD10Client(srv.URL, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	_, err := c.Fetch(context.Background(), "diabetes")
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}

func TestNPIClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2.1", r.URL.Query().Get("version"))
		assert.Equal(t, "1234567893", r.URL.Query().Get("number"))
		w.Write([]byte(`{"result_count":1,"results":[{"number":1234567893,
			"basic":{"name_prefix":"Dr.","first_name":"SARAH","last_name":"CHEN"},
			"taxonomies":[{"desc":"Ophthalmology"}],
			"addresses":[{"address_1":"100 VISION WAY","city":"BOSTON","state":"MA","postal_code":"021151234","telephone_number":"617-555-0142"}]}]}`))
	}))
	defer srv.Close()

	c := NewNPIClient(srv.URL+"/api/", "2.1")
	assert.Equal(t, RegistryNPI, c.Registry())

	resp, err := c.Fetch(context.Background(), "1234567893")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ResultCount)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "1234567893", resp.Results[0].Number.String())
	assert.Equal(t, "SARAH", resp.Results[0].Basic.FirstName)
	assert.Equal(t, "021151234", resp.Results[0].Addresses[0].PostalCode)
}

func TestNPIClient_InvalidBaseURL(t *testing.T) {
	_, err := NewNPIClient("://bad", "2.1").Fetch(context.Background(), "1234567893")
	var te *TransportError
	assert.ErrorAs(t, err, &te)
}
