package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// ErrUnsupportedScheme is returned for URLs no fetcher is registered for.
var ErrUnsupportedScheme = errors.New("unsupported audio URL scheme")

// Fetcher streams a remote asset.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, u *url.URL) (io.ReadCloser, error)

func (f FetcherFunc) Fetch(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	return f(ctx, u)
}

// SchemeRouter maps URL schemes to fetchers.
type SchemeRouter struct {
	routes map[string]Fetcher
}

// NewSchemeRouter registers http, https and ftp.
func NewSchemeRouter(client *http.Client) *SchemeRouter {
	if client == nil {
		client = http.DefaultClient
	}
	r := &SchemeRouter{routes: make(map[string]Fetcher)}
	hf := &httpFetcher{client: client}
	r.routes["http"] = hf
	r.routes["https"] = hf
	r.routes["ftp"] = &ftpFetcher{timeout: 30 * time.Second}
	return r
}

// Register adds or replaces the fetcher for scheme.
func (r *SchemeRouter) Register(scheme string, f Fetcher) {
	r.routes[strings.ToLower(scheme)] = f
}

// Schemes lists the registered schemes, sorted.
func (r *SchemeRouter) Schemes() []string {
	out := make([]string, 0, len(r.routes))
	for s := range r.routes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Open resolves rawURL to a stream.
func (r *SchemeRouter) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	f, ok := r.routes[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w %q, supported: %s", ErrUnsupportedScheme, u.Scheme, strings.Join(r.Schemes(), ", "))
	}
	return f.Fetch(ctx, u)
}

type httpFetcher struct {
	client *http.Client
}

func (h *httpFetcher) Fetch(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: unexpected status %s", u.Redacted(), resp.Status)
	}
	return resp.Body, nil
}

type ftpFetcher struct {
	timeout time.Duration
}

// ftpStream closes the control connection together with the data stream.
type ftpStream struct {
	*ftp.Response
	conn *ftp.ServerConn
}

func (s *ftpStream) Close() error {
	err := s.Response.Close()
	if qerr := s.conn.Quit(); err == nil {
		err = qerr
	}
	return err
}

func (f *ftpFetcher) Fetch(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	if u.Path == "" || u.Path == "/" {
		return nil, fmt.Errorf("ftp: file path is required in %s", u.Redacted())
	}
	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}
	user, pass := "anonymous", "anonymous"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp: dial %s: %w", host, err)
	}
	if err := conn.Login(user, pass); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp: login: %w", err)
	}
	resp, err := conn.Retr(path.Clean(u.Path))
	if err != nil {
		conn.Quit()
		return nil, fmt.Errorf("ftp: retr %s: %w", u.Path, err)
	}
	return &ftpStream{Response: resp, conn: conn}, nil
}
