// Package etag serves fixed response bodies with ETag validation, answering
// If-None-Match hits with 304 Not Modified.
package etag

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"net/http"
	"strconv"
	"strings"
)

type Config struct {
	Strong bool
	Hash   func() hash.Hash
}

// Body is a precomputed response: its ETag is derived once from the bytes.
type Body struct {
	ContentType  string
	CacheControl string
	Data         []byte
	ETag         string
}

// New hashes data into a Body. Defaults to weak SHA-1 ETags.
func New(contentType string, data []byte, config ...*Config) *Body {
	var configToUse *Config
	if len(config) > 0 && config[0] != nil {
		configToUse = config[0]
	} else {
		configToUse = new(Config)
	}
	if configToUse.Hash == nil {
		configToUse.Hash = sha1.New
	}
	h := configToUse.Hash()
	h.Write(data)
	return &Body{
		ContentType: contentType,
		Data:        data,
		ETag:        format(h.Sum(nil), configToUse.Strong),
	}
}

// ServeHTTP writes the body, or a 304 when the request's If-None-Match
// already names it. Only GET and HEAD are allowed.
func (b *Body) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h := w.Header()
	if b.CacheControl != "" {
		h.Set("Cache-Control", b.CacheControl)
	}

	if inm := r.Header.Get("If-None-Match"); inm != "" && Matches(inm, b.ETag) {
		respondNotModified(w, b.ETag)
		return
	}

	h.Set("ETag", b.ETag)
	h.Set("Content-Type", b.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(b.Data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		w.Write(b.Data)
	}
}

func format(sum []byte, strong bool) string {
	tag := hex.EncodeToString(sum)
	if !strong {
		return `W/"` + tag + `"`
	}
	return `"` + tag + `"`
}

// Matches reports whether an If-None-Match header value names etag, using
// weak comparison.
func Matches(ifNoneMatch, etag string) bool {
	if strings.TrimSpace(ifNoneMatch) == "*" {
		return true
	}
	etagVal := extractETagValue(etag)
	for cand := range strings.SplitSeq(ifNoneMatch, ",") {
		if extractETagValue(strings.TrimSpace(cand)) == etagVal {
			return true
		}
	}
	return false
}

func extractETagValue(etag string) string {
	etag = strings.TrimPrefix(etag, "W/")
	return strings.Trim(etag, "\"")
}

func respondNotModified(w http.ResponseWriter, etag string) {
	h := w.Header()
	for header := range h {
		if isPayloadHeader(header) {
			h.Del(header)
		}
	}
	h.Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
}

func isPayloadHeader(header string) bool {
	switch strings.ToLower(header) {
	case "content-type", "content-length", "content-encoding",
		"content-language", "content-md5", "content-range",
		"content-disposition", "last-modified", "digest":
		return true
	default:
		return false
	}
}
