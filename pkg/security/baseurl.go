package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var ErrUnsafeBaseURL = errors.New("unsafe base url")

// BaseURLPolicy decides which API endpoints the role clients may talk to.
type BaseURLPolicy struct {
	// AllowInsecure permits plain http and local network hosts, e.g. for a
	// model served on the same machine.
	AllowInsecure bool
}

// Check rejects endpoints the dialogue must not send document content to.
// IP literals are checked without resolving names.
func (p BaseURLPolicy) Check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(err, "invalid base url %q", rawURL)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !p.AllowInsecure {
			return errors.Wrapf(ErrUnsafeBaseURL, "plain http to %s", u.Host)
		}
	default:
		return errors.Wrapf(ErrUnsafeBaseURL, "scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.Wrap(ErrUnsafeBaseURL, "missing host")
	}
	if p.AllowInsecure {
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return errors.Wrapf(ErrUnsafeBaseURL, "local host %s", host)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	if addr.Zone() != "" {
		return errors.Wrapf(ErrUnsafeBaseURL, "zoned address %s", host)
	}
	addr = addr.Unmap()
	switch {
	case addr.IsUnspecified(), addr.IsMulticast():
		return errors.Wrapf(ErrUnsafeBaseURL, "address %s", host)
	case addr.IsLoopback(), addr.IsPrivate(), addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return errors.Wrapf(ErrUnsafeBaseURL, "local network address %s", host)
	}
	return nil
}
