package photodedup

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"
	"time"
)

// dnsResolveTimeout bounds DNS resolution during URL validation (spec open
// question: unspecified, chosen here at the 5s ceiling).
const dnsResolveTimeout = 5 * time.Second

// defaultFetchTimeout is used when no per-manager timeout is configured.
const defaultFetchTimeout = 10 * time.Second

// Fetcher is the injectable one-method capability that performs the actual
// byte retrieval for a validated URL. Production code uses httpFetcher;
// tests supply an in-memory variant that bypasses networking. URL validation
// is not part of the Fetcher: DownloadManager.GetBytes runs
// ValidateDownloadURL before calling any Fetcher, in-memory ones included.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) ([]byte, error)
}

// httpFetcher performs an HTTPS GET using an *http.Client, optionally trying
// a stealth (TLS-fingerprinted) client first and falling back to the plain
// client on failure.
type httpFetcher struct {
	stealthClient *http.Client
	client        *http.Client
}

// NewHTTPFetcher builds a production Fetcher. stealthClient is optional and
// tried first when non-nil; client falls back to http.DefaultClient when nil.
func NewHTTPFetcher(stealthClient, client *http.Client) Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpFetcher{stealthClient: stealthClient, client: client}
}

func (f *httpFetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if f.stealthClient != nil {
		if data, err := doFetch(ctx, f.stealthClient, rawURL, headers, timeout); err == nil {
			return data, nil
		}
	}
	return doFetch(ctx, f.client, rawURL, headers, timeout)
}

func doFetch(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{status: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

type httpStatusError struct{ status int }

func (e *httpStatusError) Error() string {
	return "non-2xx response status"
}

// DownloadManager provides at-most-one network fetch per item per scan and
// validates URLs before any network call. It is scan-scoped: a fresh
// DownloadManager is created per Scan invocation and discarded on return.
type DownloadManager struct {
	fetcher      Fetcher
	allowedHosts []string // lowercased
	timeout      time.Duration
	headers      map[string]string

	mu            sync.Mutex
	cache         map[string][]byte
	downloadCount int
}

// NewDownloadManager constructs a manager with the given fetcher, allowed
// host whitelist, per-fetch timeout, and headers applied to every request.
func NewDownloadManager(fetcher Fetcher, allowedHosts []string, timeout time.Duration, headers map[string]string) *DownloadManager {
	lowered := make([]string, len(allowedHosts))
	for i, h := range allowedHosts {
		lowered[i] = strings.ToLower(h)
	}
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &DownloadManager{
		fetcher:      fetcher,
		allowedHosts: lowered,
		timeout:      timeout,
		headers:      headers,
		cache:        make(map[string][]byte),
	}
}

// DownloadCount is the number of successful network fetches performed so far
// (cache hits do not increment it).
func (m *DownloadManager) DownloadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.downloadCount
}

// GetBytes returns the content bytes for item, fetching at most once per
// item.ID for the lifetime of this manager.
func (m *DownloadManager) GetBytes(ctx context.Context, item PhotoItem) ([]byte, error) {
	if !item.HasDownloadURL() {
		return nil, newError(KindBadDownloadURL, item.ID, nil)
	}

	m.mu.Lock()
	if cached, ok := m.cache[item.ID]; ok {
		m.mu.Unlock()
		return cached, nil
	}
	m.mu.Unlock()

	if err := ValidateDownloadURL(ctx, item.DownloadURL, m.allowedHosts); err != nil {
		return nil, newError(KindBadDownloadURL, item.ID, err)
	}

	data, err := m.fetcher.Fetch(ctx, item.DownloadURL, m.headers, m.timeout)
	if err != nil {
		return nil, newError(KindFetchFailed, item.ID, err)
	}

	m.mu.Lock()
	m.cache[item.ID] = data
	m.downloadCount++
	m.mu.Unlock()

	return data, nil
}

// ValidateDownloadURL applies SSRF-safe validation: HTTPS only, a present
// host, a host that is (or is a subdomain of) an entry in allowedHosts, and
// every resolved (or literal) address globally routable. allowedHosts
// entries need not be pre-lowercased — both sides are lowercased here.
func ValidateDownloadURL(ctx context.Context, rawURL string, allowedHosts []string) error {
	if rawURL == "" {
		return errBadURL("missing download url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return errBadURL("unparseable url")
	}
	if u.Scheme != "https" {
		return errBadURL("scheme must be https")
	}
	host := u.Hostname()
	if host == "" {
		return errBadURL("missing host")
	}
	if !isAllowedHost(host, allowedHosts) {
		return errBadURL("host not in allowlist")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if !isGloballyRoutable(addr) {
			return errBadURL("literal IP is not globally routable")
		}
		return nil
	}

	resolveCtx, cancel := context.WithTimeout(ctx, dnsResolveTimeout)
	defer cancel()
	ips, err := net.DefaultResolver.LookupIPAddr(resolveCtx, host)
	if err != nil {
		return errBadURL("dns resolution failed")
	}
	if len(ips) == 0 {
		return errBadURL("dns resolution returned no addresses")
	}
	for _, ip := range ips {
		addr, ok := netip.AddrFromSlice(ip.IP)
		if !ok {
			return errBadURL("unresolvable address")
		}
		addr = addr.Unmap()
		if !isGloballyRoutable(addr) {
			return errBadURL("resolved address is not globally routable")
		}
	}
	return nil
}

func errBadURL(msg string) error { return &validationError{msg: msg} }

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

// isAllowedHost is case-insensitive on both host and each allowedHosts
// entry.
func isAllowedHost(host string, allowedHosts []string) bool {
	host = strings.ToLower(host)
	for _, h := range allowedHosts {
		h = strings.ToLower(h)
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// reservedPrefixes are IANA special-purpose ranges that netip's built-in
// predicates don't cover (documentation/test-net blocks, benchmarking,
// shared CGNAT space, etc.), none of which are globally routable.
var reservedPrefixes = mustParsePrefixes(
	"0.0.0.0/8",
	"100.64.0.0/10",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"192.88.99.0/24",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"240.0.0.0/4",
	"255.255.255.255/32",
	"100::/64",
	"2001:db8::/32",
	"3fff::/20",
)

func mustParsePrefixes(cidrs ...string) []netip.Prefix {
	prefixes := make([]netip.Prefix, len(cidrs))
	for i, c := range cidrs {
		prefixes[i] = netip.MustParsePrefix(c)
	}
	return prefixes
}

// isGloballyRoutable excludes loopback, private, link-local, multicast,
// reserved, and unspecified ranges.
func isGloballyRoutable(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsMulticast() || addr.IsUnspecified() ||
		addr.IsInterfaceLocalMulticast() {
		return false
	}
	for _, p := range reservedPrefixes {
		if p.Contains(addr) {
			return false
		}
	}
	return addr.IsGlobalUnicast()
}
