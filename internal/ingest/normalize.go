package ingest

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams is the query-parameter denylist stripped from a
// submitted URL before it becomes a resource's stable source_url
// (spec §4.4 step 1, "strip tracking query parameters per allow-list").
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "utm_id": true,
	"gclid": true, "fbclid": true, "msclkid": true, "mc_cid": true, "mc_eid": true,
	"ref": true, "ref_src": true, "igshid": true, "spm": true,
}

// NormalizeSourceURL computes the canonical source_url a resource is
// keyed on: lowercase host, tracking parameters stripped, fragment
// dropped (spec §4.4 step 1). Remaining query parameters are kept but
// sorted so equivalent URLs with reordered parameters compare equal.
func NormalizeSourceURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return ""
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	if u.RawQuery != "" {
		values := u.Query()
		for key := range values {
			if trackingParams[strings.ToLower(key)] {
				values.Del(key)
			}
		}
		keys := make([]string, 0, len(values))
		for key := range values {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		encoded := make([]string, 0, len(keys))
		for _, key := range keys {
			for _, v := range values[key] {
				encoded = append(encoded, url.QueryEscape(key)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(encoded, "&")
	}

	return u.String()
}
