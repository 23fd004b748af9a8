package registry

import "encoding/json"

// listPage is the envelope of GET /v0.1/servers. Entries are kept raw so one
// malformed entry does not invalidate the page.
type listPage struct {
	Servers  []json.RawMessage `json:"servers"`
	Metadata struct {
		NextCursor string `json:"nextCursor,omitempty"`
		Count      int    `json:"count"`
	} `json:"metadata"`
}

// ServerResponse is one entry of the servers list.
type ServerResponse struct {
	Server ServerJSON `json:"server"`
}

// ServerJSON is the subset of a server definition the walker reads.
type ServerJSON struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description string      `json:"description"`
	Remotes     []Transport `json:"remotes,omitempty"`
	Packages    []Package   `json:"packages,omitempty"`
}

// Transport is a remote endpoint or a package transport.
type Transport struct {
	Type    string            `json:"type"`
	URL     string            `json:"url,omitempty"`
	Headers []json.RawMessage `json:"headers,omitempty"`
}

// Package is an installable package; only its transport matters here.
type Package struct {
	RegistryType string    `json:"registryType,omitempty"`
	Identifier   string    `json:"identifier,omitempty"`
	Transport    Transport `json:"transport,omitempty"`
}

// AuthHeader is a header descriptor classified as authentication related.
type AuthHeader struct {
	Name        string `json:"name"`
	Required    bool   `json:"required"`
	Secret      bool   `json:"secret"`
	Description string `json:"description"`
}

// ServerRecord is one remote endpoint of a registry server.
type ServerRecord struct {
	Name          string            `json:"name"`
	Version       string            `json:"version"`
	Description   string            `json:"description"`
	URL           string            `json:"url"`
	TransportType string            `json:"transport_type"`
	AuthHeaders   []AuthHeader      `json:"auth_headers"`
	AllHeaders    []json.RawMessage `json:"all_headers"`
}

// dedupKey identifies a record across the whole walk.
type dedupKey struct {
	name string
	url  string
}

func (r ServerRecord) key() dedupKey {
	return dedupKey{name: r.Name, url: r.URL}
}
