package fetchers

import (
	"fmt"
	"time"

	"github.com/maximhq/xmppstream/cache"
	"github.com/maximhq/xmppstream/interfaces"
	"github.com/valyala/fasthttp"
)

// DiscoResult is the value an HTTPDiscoFetcher delivers on success: the
// raw response from a Service Discovery endpoint, left unparsed since
// XML/stanza parsing is an external collaborator (out of scope per
// spec §1).
type DiscoResult struct {
	StatusCode int
	Body       []byte
}

// HTTPDiscoFetcher retrieves a Service Discovery response over HTTP
// using fasthttp, the teacher's HTTP client of choice across every
// providers/*.go file. Grounded on providers/anthropic.go's request
// construction and providers/utils.go's configureProxy.
type HTTPDiscoFetcher struct {
	*cache.BaseFetcher[string, any]

	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  interfaces.Logger
}

// NewHTTPDiscoFetcherFactory builds a cache.FetcherFactory[string, any]
// bound to a base URL, proxy configuration, and network tuning, for
// registration with a Cache or CacheSuite via SetFetcherFactory /
// RegisterFetcher.
func NewHTTPDiscoFetcherFactory(baseURL string, proxyConfig *interfaces.ProxyConfig, netConfig interfaces.NetworkConfig, logger interfaces.Logger) cache.FetcherFactory[string, any] {
	client := &fasthttp.Client{
		MaxConnsPerHost: 64,
	}
	configureProxy(client, proxyConfig, logger)

	dialTimeout := time.Duration(netConfig.DialTimeoutSeconds) * time.Second
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}

	return func(c *cache.Cache[string, any], params cache.FetchParams[string, any]) cache.Fetcher[string, any] {
		return &HTTPDiscoFetcher{
			BaseFetcher: cache.NewBaseFetcher[string, any](c, params),
			client:      client,
			baseURL:     baseURL,
			timeout:     dialTimeout,
			logger:      logger,
		}
	}
}

// Fetch issues the HTTP request in its own goroutine and resolves with
// exactly one of GotIt/ErrorOccurred. It never calls Timeout itself —
// per §4.2/§4.3, only the owning Cache's tick loop may do that; a slow
// request instead surfaces as an ErrorOccurred once its own deadline
// (independent of the Cache's timeout bookkeeping) elapses.
func (f *HTTPDiscoFetcher) Fetch() {
	go func() {
		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(f.baseURL + "/" + f.Address())
		req.Header.SetMethod(fasthttp.MethodGet)

		if err := f.client.DoTimeout(req, resp, f.timeout); err != nil {
			f.ErrorOccurred(fmt.Errorf("disco fetch %s: %w", f.Address(), err))
			return
		}

		body := append([]byte(nil), resp.Body()...)
		result := DiscoResult{StatusCode: resp.StatusCode(), Body: body}

		if resp.StatusCode() >= 400 {
			f.ErrorOccurred(fmt.Errorf("disco fetch %s: status %d", f.Address(), resp.StatusCode()))
			return
		}

		f.GotIt(result, cache.StateNew)
	}()
}
