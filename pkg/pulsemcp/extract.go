package pulsemcp

import (
	"bytes"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Extraction failures. Their messages are the reasons reported per slug.
var (
	ErrNoVersionsJSON = errors.New("no versions JSON found")
	ErrEmptyVersions  = errors.New("empty versions")
	ErrNoRemotes      = errors.New("no remotes")
)

// ScriptBlocks returns the text of every closed <script> element in document
// order. Script content is raw text, so entities are not decoded.
func ScriptBlocks(body []byte) []string {
	var (
		blocks   []string
		inScript bool
		buf      strings.Builder
	)

	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way nothing more to scan.
			return blocks
		case html.StartTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Script {
				inScript = true
				buf.Reset()
			}
		case html.TextToken:
			if inScript {
				buf.Write(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if inScript && atom.Lookup(name) == atom.Script {
				blocks = append(blocks, buf.String())
				inScript = false
			}
		}
	}
}

// findVersionsDocument returns the first script block that is a JSON object
// with a top-level "versions" key. Blocks that are not valid JSON are skipped.
func findVersionsDocument(body []byte) (gjson.Result, bool) {
	for _, block := range ScriptBlocks(body) {
		candidate := strings.TrimSpace(block)
		if candidate == "" || !gjson.Valid(candidate) {
			continue
		}
		doc := gjson.Parse(candidate)
		if !doc.IsObject() || !doc.Get("versions").Exists() {
			continue
		}
		return doc, true
	}
	return gjson.Result{}, false
}

// ExtractEndpoints parses a serverjson page and returns the remote endpoints
// of its latest version. The returned error is one of ErrNoVersionsJSON,
// ErrEmptyVersions or ErrNoRemotes.
func ExtractEndpoints(slug string, body []byte) ([]EndpointRecord, error) {
	doc, ok := findVersionsDocument(body)
	if !ok {
		return nil, ErrNoVersionsJSON
	}

	versions := doc.Get("versions")
	if !versions.IsArray() || len(versions.Array()) == 0 {
		return nil, ErrEmptyVersions
	}

	// versions[0] is the most current.
	latest := versions.Array()[0].Get("data")
	title := firstString(latest, "title", "name")
	if title == "" {
		title = slug
	}

	remotes := latest.Get("remotes")
	if !remotes.IsArray() {
		return nil, ErrNoRemotes
	}

	var endpoints []EndpointRecord
	for _, r := range remotes.Array() {
		if !r.IsObject() {
			continue
		}
		u := r.Get("url")
		if u.Type != gjson.String || u.String() == "" {
			continue
		}
		transport := DefaultTransport
		if t := r.Get("type"); t.Type == gjson.String && t.String() != "" {
			transport = t.String()
		}
		endpoints = append(endpoints, EndpointRecord{
			Name:      title,
			Slug:      slug,
			URL:       u.String(),
			Transport: transport,
		})
	}

	if len(endpoints) == 0 {
		return nil, ErrNoRemotes
	}
	return endpoints, nil
}

// firstString returns the first non-empty string value among keys.
func firstString(obj gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := obj.Get(key); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
