// Package fetchers provides concrete cache.Fetcher implementations: an
// HTTP-backed Service Discovery fetcher (fasthttp) and a SigV4-signed
// directory-service fetcher (aws-sdk-go-v2). Grounded on the teacher's
// providers package, which implements each LLM provider as a
// fasthttp-based fetch-and-parse unit behind a common interface.
package fetchers

import (
	"fmt"
	"net/url"

	"github.com/maximhq/xmppstream/interfaces"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpproxy"
)

// configureProxy wires a proxy dialer into a fasthttp.Client, carried
// over in shape from the teacher's providers/utils.go configureProxy.
func configureProxy(client *fasthttp.Client, proxyConfig *interfaces.ProxyConfig, logger interfaces.Logger) *fasthttp.Client {
	if proxyConfig == nil {
		return client
	}

	var dialFunc fasthttp.DialFunc

	switch proxyConfig.Type {
	case interfaces.NoProxy:
		return client
	case interfaces.HTTPProxy:
		if proxyConfig.URL == "" {
			logger.Warn("HTTP proxy URL is required for setting up proxy")
			return client
		}
		dialFunc = fasthttpproxy.FasthttpHTTPDialer(proxyConfig.URL)
	case interfaces.Socks5Proxy:
		if proxyConfig.URL == "" {
			logger.Warn("SOCKS5 proxy URL is required for setting up proxy")
			return client
		}
		proxyURL := proxyConfig.URL
		if proxyConfig.Username != "" && proxyConfig.Password != "" {
			parsed, err := url.Parse(proxyConfig.URL)
			if err != nil {
				logger.Warn("invalid proxy configuration: invalid SOCKS5 proxy URL")
				return client
			}
			parsed.User = url.UserPassword(proxyConfig.Username, proxyConfig.Password)
			proxyURL = parsed.String()
		}
		dialFunc = fasthttpproxy.FasthttpSocksDialer(proxyURL)
	case interfaces.EnvProxy:
		dialFunc = fasthttpproxy.FasthttpProxyHTTPDialer()
	default:
		logger.Warn(fmt.Sprintf("unsupported proxy type: %s", proxyConfig.Type))
		return client
	}

	if dialFunc != nil {
		client.Dial = dialFunc
	}
	return client
}
