package gnews

import (
	"errors"
	"net/url"
	"sort"
	"strings"
)

const (
	apiKeyParam = "apikey"
	redacted    = "REDACTED"
)

// BuildURL returns the fully qualified request URL for endpoint and params.
// apikey is always the first parameter; the remaining keys follow in sorted
// order. Absent values are skipped and a caller-supplied apikey is ignored.
// BuildURL has no side effects.
func (c *Client) BuildURL(endpoint string, params Params) string {
	return buildURL(c.baseURL, c.apiKey, endpoint, params)
}

func buildURL(baseURL, apiKey, endpoint string, params Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if strings.TrimSpace(k) == "" || k == apiKeyParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(strings.TrimRight(baseURL, "/"))
	b.WriteByte('/')
	b.WriteString(strings.TrimLeft(endpoint, "/"))
	b.WriteByte('?')
	b.WriteString(apiKeyParam)
	b.WriteByte('=')
	b.WriteString(url.QueryEscape(apiKey))

	for _, k := range keys {
		val, ok := formatValue(params[k])
		if !ok {
			continue
		}
		b.WriteByte('&')
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(val))
	}
	return b.String()
}

// redactURL hides the credential in raw so it can be logged or surfaced in errors.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if !q.Has(apiKeyParam) {
		return raw
	}
	q.Set(apiKeyParam, redacted)
	u.RawQuery = q.Encode()
	return u.String()
}

// redactError rewrites the URL carried by a *url.Error in err.
func redactError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = redactURL(uerr.URL)
	}
	return err
}
