package httpapi

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// OriginAllowlist matches the host of a request's Origin (or Host, when no
// Origin is sent) against glob patterns such as "localhost:*" or
// "*.example.com". An empty allowlist admits every request.
type OriginAllowlist struct {
	patterns []*regexp.Regexp
}

func NewOriginAllowlist(globs []string) (*OriginAllowlist, error) {
	ret := &OriginAllowlist{}
	for _, g := range globs {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(g), `\*`, ".*") + "$"
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid origin pattern %q", g)
		}
		ret.patterns = append(ret.patterns, re)
	}
	return ret, nil
}

func (o *OriginAllowlist) Allowed(r *http.Request) bool {
	if o == nil || len(o.patterns) == 0 {
		return true
	}
	host := requestOrigin(r)
	for _, re := range o.patterns {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

func requestOrigin(r *http.Request) string {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return r.Host
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return origin
	}
	return u.Host
}
