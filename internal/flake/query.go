package flake

import (
	"net/url"
	"strings"
)

// queryPair is a single key=value entry of a query string, kept in source order.
// raw holds the original text so untouched pairs serialize byte-for-byte.
type queryPair struct {
	key   string
	value string
	raw   string
}

// parseQuery splits a raw query string into its ordered pairs.
// Empty segments ("a=b&&c=d") are dropped.
func parseQuery(rawQuery string) []queryPair {
	var pairs []queryPair
	for _, segment := range strings.Split(rawQuery, "&") {
		if segment == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(segment, "=")
		pairs = append(pairs, queryPair{
			key:   unescapeOrRaw(rawKey),
			value: unescapeOrRaw(rawValue),
			raw:   segment,
		})
	}
	return pairs
}

func unescapeOrRaw(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func encodeQuery(pairs []queryPair) string {
	segments := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.raw != "" {
			segments = append(segments, p.raw)
			continue
		}
		segments = append(segments, url.QueryEscape(p.key)+"="+url.QueryEscape(p.value))
	}
	return strings.Join(segments, "&")
}

// UpdateOrAppend sets key to value in u's query string.
//
// Every existing occurrence of key is rewritten in place; all other pairs keep
// their position and their original encoding. When key is absent a new pair is
// appended after the last existing one. Applying the same update twice yields
// the same query as applying it once.
func UpdateOrAppend(u *url.URL, key, value string) {
	pairs := parseQuery(u.RawQuery)

	found := false
	for i := range pairs {
		if pairs[i].key != key {
			continue
		}
		found = true
		pairs[i] = queryPair{key: key, value: value}
	}
	if !found {
		pairs = append(pairs, queryPair{key: key, value: value})
	}

	u.RawQuery = encodeQuery(pairs)
	u.ForceQuery = false
}

// queryValue returns the first value stored under key.
func queryValue(u *url.URL, key string) (string, bool) {
	for _, p := range parseQuery(u.RawQuery) {
		if p.key == key {
			return p.value, true
		}
	}
	return "", false
}
