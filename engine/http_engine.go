package engine

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"

	"github.com/use-agent/dodf/cleaner"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBody caps how much of a response is read.
const maxBody = 10 << 20

// HTTPEngine fetches documents with a single GET and derives their text from
// the served markup. It cannot see text that the page renders with
// JavaScript; the dispatcher escalates to the browser when it comes back
// empty.
type HTTPEngine struct {
	client  *http.Client
	cleaner *cleaner.Cleaner
}

// chromeH1Spec is Chrome's ClientHello with ALPN narrowed to http/1.1.
// net/http cannot speak h2 over a utls connection, so h2 must never be
// negotiated.
var chromeH1Spec = func() tls.ClientHelloSpec {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return tls.ClientHelloSpec{}
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return spec
}()

// dialChromeTLS opens a TCP connection and performs a handshake that looks
// like Chrome's.
func dialChromeTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("http_engine: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// NewHTTPEngine creates an HTTPEngine with a Chrome-like TLS fingerprint
// that reads text through c.
func NewHTTPEngine(c *cleaner.Cleaner) *HTTPEngine {
	transport := &http.Transport{
		DialTLSContext:    dialChromeTLS,
		ForceAttemptHTTP2: false,
	}
	return &HTTPEngine{
		cleaner: c,
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
}

func (e *HTTPEngine) Name() string { return "http" }

func (e *HTTPEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("http_engine: build request: %w", err)
	}

	httpReq.Header.Set("User-Agent", chromeUA)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.5")
	httpReq.Header.Set("Accept-Encoding", "identity")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http_engine: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("http_engine: read body: %w", err)
	}

	// Non-HTML and error responses are failures so the dispatcher can
	// escalate to the browser.
	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 400 || !isHTMLContentType(ct) {
		return nil, fmt.Errorf("http_engine: non-html or error status %d (content-type: %s)", resp.StatusCode, ct)
	}

	rawHTML := string(body)
	text, err := e.cleaner.Text(rawHTML)
	if err != nil {
		return nil, fmt.Errorf("http_engine: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("http_engine: %s: %w", req.URL, ErrEmptyText)
	}

	return &FetchResult{
		Text:       text,
		HTML:       rawHTML,
		Title:      cleaner.Title(rawHTML),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		EngineName: e.Name(),
	}, nil
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
