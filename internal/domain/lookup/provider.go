package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Registry identifies one external reference-data provider.
type Registry int

const (
	RegistryICD10 Registry = iota + 1
	RegistryCPT
	RegistryTerminology
	RegistryNPI
)

// String returns the registry name used for rate-limit keys and logs.
func (r Registry) String() string {
	switch r {
	case RegistryICD10:
		return "icd10"
	case RegistryCPT:
		return "cpt"
	case RegistryTerminology:
		return "terminology"
	case RegistryNPI:
		return "npi"
	default:
		return fmt.Sprintf("registry(%d)", int(r))
	}
}

// Fetcher performs a single request against a registry and returns its raw,
// provider-shaped response. Fetchers never cache, rate limit or fall back.
type Fetcher[R any] interface {
	Registry() Registry
	Fetch(ctx context.Context, query string) (R, error)
}

// Unwired is the fetcher for registries with no live endpoint. Every call
// fails with ErrNoLiveClient so the caller resolves it from the knowledge base.
type Unwired[R any] struct {
	registry Registry
}

// NewUnwired creates an Unwired fetcher for r.
func NewUnwired[R any](r Registry) Unwired[R] {
	return Unwired[R]{registry: r}
}

func (u Unwired[R]) Registry() Registry { return u.registry }

func (Unwired[R]) unwired() {}

func (u Unwired[R]) Fetch(context.Context, string) (R, error) {
	var zero R
	return zero, ErrNoLiveClient
}

// -- raw provider shapes --

// RawDiagnosisCode is one item of the diagnosis-code search response.
type RawDiagnosisCode struct {
	Code             string `json:"code"`
	Description      string `json:"description"`
	Category         string `json:"category"`
	ValidFrom        string `json:"validFrom"`
	ValidTo          string `json:"validTo,omitempty"`
	IsHeader         bool   `json:"isHeader"`
	ShortDescription string `json:"shortDescription,omitempty"`
}

// RawNPIResponse is the provider registry response envelope.
type RawNPIResponse struct {
	ResultCount int            `json:"result_count"`
	Results     []RawNPIResult `json:"results"`
}

// RawNPIResult is a single provider registry record.
type RawNPIResult struct {
	Number     json.Number      `json:"number"`
	Basic      RawNPIBasic      `json:"basic"`
	Taxonomies []RawNPITaxonomy `json:"taxonomies"`
	Addresses  []RawNPIAddress  `json:"addresses"`
}

// RawNPIBasic holds the name fields of a registry record.
type RawNPIBasic struct {
	OrganizationName string `json:"organization_name,omitempty"`
	NamePrefix       string `json:"name_prefix,omitempty"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
}

// RawNPITaxonomy is a classified specialty.
type RawNPITaxonomy struct {
	Desc string `json:"desc"`
}

// RawNPIAddress is a registry address.
type RawNPIAddress struct {
	Address1        string `json:"address_1"`
	Address2        string `json:"address_2"`
	City            string `json:"city"`
	State           string `json:"state"`
	PostalCode      string `json:"postal_code"`
	Zip             string `json:"zip"`
	TelephoneNumber string `json:"telephone_number"`
	FaxNumber       string `json:"fax_number"`
}

// -- HTTP clients --

// ClientOption configures a registry HTTP client.
type ClientOption func(*httpGetter)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *httpGetter) { g.client = c }
}

// WithTimeout sets the request timeout of the default HTTP client. A timeout
// surfaces as a TransportError.
func WithTimeout(d time.Duration) ClientOption {
	return func(g *httpGetter) {
		if d > 0 {
			g.client = &http.Client{Timeout: d}
		}
	}
}

type httpGetter struct {
	registry Registry
	client   *http.Client
}

func newHTTPGetter(r Registry, opts []ClientOption) httpGetter {
	g := httpGetter{registry: r, client: &http.Client{Timeout: 10 * time.Second}}
	for _, o := range opts {
		o(&g)
	}
	return g
}

// getJSON issues a GET and decodes the JSON body into out.
func (g httpGetter) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &TransportError{Registry: g.registry, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return &TransportError{Registry: g.registry, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &TransportError{Registry: g.registry, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ParseError{Registry: g.registry, Err: err}
	}
	return nil
}

// ICD10Client searches the diagnosis-code registry.
type ICD10Client struct {
	baseURL string
	http    httpGetter
}

// NewICD10Client creates a client for the search endpoint at baseURL.
func NewICD10Client(baseURL string, opts ...ClientOption) *ICD10Client {
	return &ICD10Client{baseURL: baseURL, http: newHTTPGetter(RegistryICD10, opts)}
}

func (c *ICD10Client) Registry() Registry { return RegistryICD10 }

// Fetch performs GET <baseURL>?q=<query>.
func (c *ICD10Client) Fetch(ctx context.Context, query string) ([]RawDiagnosisCode, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, &TransportError{Registry: RegistryICD10, Err: err}
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	var items []RawDiagnosisCode
	if err := c.http.getJSON(ctx, u.String(), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// NPIClient reads the national provider registry.
type NPIClient struct {
	baseURL string
	version string
	http    httpGetter
}

// NewNPIClient creates a registry client. version is the API version query
// parameter, e.g. "2.1".
func NewNPIClient(baseURL, version string, opts ...ClientOption) *NPIClient {
	return &NPIClient{baseURL: baseURL, version: version, http: newHTTPGetter(RegistryNPI, opts)}
}

func (c *NPIClient) Registry() Registry { return RegistryNPI }

// Fetch performs GET <baseURL>?version=<v>&number=<npi>.
func (c *NPIClient) Fetch(ctx context.Context, npi string) (*RawNPIResponse, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, &TransportError{Registry: RegistryNPI, Err: err}
	}
	q := u.Query()
	q.Set("version", c.version)
	q.Set("number", npi)
	u.RawQuery = q.Encode()

	var resp RawNPIResponse
	if err := c.http.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
