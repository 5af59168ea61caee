// Package proxy forwards gateway requests to the service instance picked for
// the matching route.
package proxy

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/eaglebank/digibank/api-gateway/internal/route"
	"github.com/eaglebank/digibank/shared/logger"
	"github.com/eaglebank/digibank/shared/middleware"
	"github.com/eaglebank/digibank/shared/registry"
	"github.com/eaglebank/digibank/shared/tracing"
)

const unmatchedRoute = "unmatched"

// Hop-by-hop headers are meaningful for one connection only.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Dispatcher routes a request through the route table, resolves the target
// service and forwards the request to it. It never retries.
type Dispatcher struct {
	table    *route.Table
	resolver registry.Resolver
	client   *http.Client
	log      *logger.Logger
	now      func() time.Time
}

// NewHTTPClient returns the client used for forwarding. Redirects are passed
// back to the caller instead of being followed.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func NewDispatcher(table *route.Table, resolver registry.Resolver, client *http.Client, log *logger.Logger) *Dispatcher {
	if client == nil {
		client = NewHTTPClient(30 * time.Second)
	}
	return &Dispatcher{
		table:    table,
		resolver: resolver,
		client:   client,
		log:      log.With("component", "Dispatcher"),
		now:      time.Now,
	}
}

// Handle is installed as the engine's NoRoute handler so that every path not
// served by the gateway itself is dispatched.
func (d *Dispatcher) Handle(c *gin.Context) {
	start := time.Now()
	routeID := unmatchedRoute
	defer func() {
		status := strconv.Itoa(c.Writer.Status())
		metricRequests.WithLabelValues(routeID, status).Inc()
		metricLatency.WithLabelValues(routeID).Observe(time.Since(start).Seconds())
	}()

	tc := middleware.GetTraceContext(c)
	// Matching runs on the escaped form so that an encoded "?", "#" or "/" stays
	// part of the path segment it was sent in.
	m, err := d.table.Match(c.Request.URL.EscapedPath())
	if err != nil {
		d.log.Info("no route for path", "path", c.Request.URL.Path, "correlationId", tc.CorrelationID)
		middleware.RespondWithError(c, http.StatusNotFound, "No route found for "+c.Request.URL.Path)
		return
	}
	routeID = m.Rule.ID

	ctx := c.Request.Context()
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("digibank.route", routeID),
		attribute.String("digibank.target", m.Rule.Target),
	)
	inst, err := d.resolver.Resolve(ctx, m.Rule.Target)
	if err != nil {
		d.log.Warn("no instance for target",
			"route", routeID, "target", m.Rule.Target, "correlationId", tc.CorrelationID, "error", err)
		middleware.RespondWithError(c, http.StatusServiceUnavailable, "Service "+m.Rule.Target+" is unavailable")
		return
	}

	target, err := upstreamURL(inst, m.Path, c.Request.URL.RawQuery)
	if err != nil {
		d.log.Warn("rewritten path is not a valid URL path",
			"route", routeID, "path", m.Path, "correlationId", tc.CorrelationID, "error", err)
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request path")
		return
	}
	targetURL := target.String()

	var body io.Reader
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		body = c.Request.Body
	}
	req, err := http.NewRequestWithContext(ctx, c.Request.Method, targetURL, body)
	if err != nil {
		d.log.Error("failed to build upstream request", "url", targetURL, "error", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create request")
		return
	}
	req.ContentLength = c.Request.ContentLength

	copyHeaders(req.Header, c.Request.Header)
	setForwardedHeaders(req.Header, c, m.Rule)
	tracing.Inject(ctx, tc, req.Header)

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Error("error proxying request",
			"route", routeID, "instance", inst.Address, "correlationId", tc.CorrelationID, "error", err)
		middleware.RespondWithError(c, http.StatusBadGateway, "Service "+m.Rule.Target+" did not respond")
		return
	}
	defer resp.Body.Close()

	copyHeaders(c.Writer.Header(), resp.Header)
	now := d.now()
	for _, h := range m.Rule.ResponseHeaders {
		c.Writer.Header().Set(h.Name, h.Expand(m.Rule, now))
	}
	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	if _, err := io.Copy(c.Writer, resp.Body); err != nil && !errors.Is(err, ctx.Err()) {
		d.log.Warn("response body copy interrupted", "route", routeID, "error", err)
	}
}

// upstreamURL joins the instance base URL with an escaped path and the
// caller's raw query.
func upstreamURL(inst registry.Instance, escapedPath, rawQuery string) (*url.URL, error) {
	base, err := url.Parse(inst.BaseURL())
	if err != nil {
		return nil, err
	}
	path, err := url.PathUnescape(escapedPath)
	if err != nil {
		return nil, err
	}
	return &url.URL{
		Scheme:   base.Scheme,
		Host:     base.Host,
		Path:     strings.TrimRight(base.Path, "/") + path,
		RawPath:  strings.TrimRight(base.EscapedPath(), "/") + escapedPath,
		RawQuery: rawQuery,
	}, nil
}

// copyHeaders replaces every end-to-end header of dst that src carries. Hop-by-hop
// headers, including those listed in src's Connection header, are dropped.
func copyHeaders(dst, src http.Header) {
	connection := connectionTokens(src)
	for key, values := range src {
		if isHopHeader(key) || connection[http.CanonicalHeaderKey(key)] {
			continue
		}
		dst.Del(key)
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}

func connectionTokens(h http.Header) map[string]bool {
	tokens := make(map[string]bool)
	for _, value := range h.Values("Connection") {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				tokens[http.CanonicalHeaderKey(name)] = true
			}
		}
	}
	return tokens
}

func isHopHeader(key string) bool {
	for _, h := range hopHeaders {
		if strings.EqualFold(h, key) {
			return true
		}
	}
	return false
}

func setForwardedHeaders(h http.Header, c *gin.Context, rule route.Rule) {
	if ip, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		if prior := h.Get("X-Forwarded-For"); prior != "" {
			ip = prior + ", " + ip
		}
		h.Set("X-Forwarded-For", ip)
	}
	h.Set("X-Forwarded-Host", c.Request.Host)
	proto := "http"
	if c.Request.TLS != nil {
		proto = "https"
	}
	h.Set("X-Forwarded-Proto", proto)
	h.Set("X-Forwarded-Prefix", strings.TrimSuffix(rule.Prefix(), "/"))
}
