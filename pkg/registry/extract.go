package registry

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Placeholders for missing server metadata.
const unknown = "unknown"

// remoteTransports are the package transport types that describe a remote
// endpoint rather than a local process.
var remoteTransports = map[string]bool{
	"sse":             true,
	"streamable-http": true,
}

// IsAuthHeader reports whether a header name looks authentication related.
// Substring matching over-matches names like "X-Turnkey-Id"; that is kept.
func IsAuthHeader(name string) bool {
	lower := strings.ToLower(name)
	if lower == "authorization" || lower == "x-api-key" {
		return true
	}
	return strings.Contains(lower, "auth") ||
		strings.Contains(lower, "key") ||
		strings.Contains(lower, "token")
}

// AuthHeaders returns the auth-related descriptors among headers in order.
// Classification uses the name alone; flags and description are read
// leniently so a mistyped field never hides a header. Descriptors that are
// not objects or have no string name are ignored.
func AuthHeaders(headers []json.RawMessage) []AuthHeader {
	auth := make([]AuthHeader, 0)
	for _, raw := range headers {
		h := gjson.ParseBytes(raw)
		if !h.IsObject() {
			continue
		}
		name := h.Get("name")
		if name.Type != gjson.String || !IsAuthHeader(name.Str) {
			continue
		}
		auth = append(auth, AuthHeader{
			Name:        name.Str,
			Required:    h.Get("isRequired").Bool(),
			Secret:      h.Get("isSecret").Bool(),
			Description: h.Get("description").String(),
		})
	}
	return auth
}

// ExtractRecords returns the remote endpoint records of one server entry:
// one per remote with a URL, then one per package whose transport is remote
// and whose URL was not already emitted for this entry.
func ExtractRecords(entry ServerResponse) []ServerRecord {
	server := entry.Server
	name := orDefault(server.Name, unknown)
	version := orDefault(server.Version, unknown)

	var records []ServerRecord
	for _, remote := range server.Remotes {
		if remote.URL == "" {
			continue
		}
		all := make([]json.RawMessage, 0, len(remote.Headers))
		all = append(all, remote.Headers...)
		records = append(records, ServerRecord{
			Name:          name,
			Version:       version,
			Description:   server.Description,
			URL:           remote.URL,
			TransportType: remote.Type,
			AuthHeaders:   AuthHeaders(remote.Headers),
			AllHeaders:    all,
		})
	}

	for _, pkg := range server.Packages {
		t := pkg.Transport
		if !remoteTransports[t.Type] || t.URL == "" || hasURL(records, t.URL) {
			continue
		}
		records = append(records, ServerRecord{
			Name:          name,
			Version:       version,
			Description:   server.Description,
			URL:           t.URL,
			TransportType: t.Type,
			AuthHeaders:   []AuthHeader{},
			AllHeaders:    []json.RawMessage{},
		})
	}

	return records
}

func hasURL(records []ServerRecord, url string) bool {
	for _, r := range records {
		if r.URL == url {
			return true
		}
	}
	return false
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
