// Command xmppd bootstraps the xmppstream process configuration: it loads
// a .env file, builds a CacheSuite wired to the HTTP Service-Discovery and
// AWS-signed directory fetchers, and a stream.Registry populated with the
// RFC 6120 feature handlers. Socket acceptance and the concrete Transport
// implementation are external collaborators (§1, §6) and are not provided
// here; this binary demonstrates process wiring, not a running server.
//
// Configuration is read from environment variables, optionally populated
// from a .env file in the application directory:
//   - XMPPD_DOMAIN: the server's canonical domain name (required)
//   - XMPPD_DISCO_URL: base URL for the HTTP Service-Discovery fetcher
//   - XMPPD_DIRECTORY_ENDPOINT, XMPPD_DIRECTORY_REGION: the directory
//     service fetcher's AWS SigV4 target
//   - AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY: directory fetcher credentials
//   - XMPPD_TICK_INTERVAL_SECONDS: how often the CacheSuite is ticked
//     (default 30)
package main

import (
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/maximhq/xmppstream"
	"github.com/maximhq/xmppstream/cache"
	"github.com/maximhq/xmppstream/cache/fetchers"
	"github.com/maximhq/xmppstream/interfaces"
	"github.com/maximhq/xmppstream/stream"
)

var (
	envFile  string
	logLevel string
)

func init() {
	flag.StringVar(&envFile, "env-file", ".env", "Path to a .env file to load before reading process configuration")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, or error")
	flag.Parse()
}

const (
	discoObjectClass     cache.ObjectClass = "disco"
	directoryObjectClass cache.ObjectClass = "directory"
)

func main() {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		panic("xmppd: failed to load env file: " + err.Error())
	}

	logger := xmppstream.NewDefaultLogger(parseLogLevel(logLevel))

	domain := os.Getenv("XMPPD_DOMAIN")
	if domain == "" {
		logger.Error(&interfaces.ConfigurationError{Reason: "XMPPD_DOMAIN must be set"})
		os.Exit(1)
	}

	suite := buildCacheSuite(logger)
	registry := buildFeatureRegistry()

	tickInterval := 30 * time.Second
	if raw := os.Getenv("XMPPD_TICK_INTERVAL_SECONDS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			tickInterval = time.Duration(n) * time.Second
		}
	}

	stop := make(chan struct{})
	go runTickLoop(suite, tickInterval, stop)

	logger.Info("xmppd configured for domain " + domain + " with " + strconv.Itoa(registry.Len()) + " feature handlers")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	close(stop)
	logger.Info("xmppd shutting down")
}

// buildCacheSuite registers both domain fetchers named in the cache
// domain stack: an HTTP Service-Discovery fetcher and an AWS SigV4-signed
// directory lookup, each as its own ObjectClass.
func buildCacheSuite(logger interfaces.Logger) *cache.Suite {
	suite := cache.NewSuite(1000, 5*time.Minute, 30*time.Minute, time.Hour, logger)

	if discoURL := os.Getenv("XMPPD_DISCO_URL"); discoURL != "" {
		proxyConfig := &interfaces.ProxyConfig{Type: interfaces.EnvProxy}
		netConfig := interfaces.NetworkConfig{DialTimeoutSeconds: 10, MaxRetries: 2}
		suite.RegisterFetcher(discoObjectClass, fetchers.NewHTTPDiscoFetcherFactory(discoURL, proxyConfig, netConfig, logger))
	}

	if endpoint := os.Getenv("XMPPD_DIRECTORY_ENDPOINT"); endpoint != "" {
		region := os.Getenv("XMPPD_DIRECTORY_REGION")
		accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
		suite.RegisterFetcher(directoryObjectClass, fetchers.NewDirectoryFetcherFactory(endpoint, region, "execute-api", accessKey, secretKey, logger))
	}

	return suite
}

// buildFeatureRegistry installs the RFC 6120 stream feature handlers this
// module ships, in the order a receiver should offer them: StartTLS
// before SASL, SASL before bind, bind before session, compression last
// since it's opportunistic rather than required for progress. The
// concrete CertVerifier/SASLMechanism/ResourceBinder/SessionEstablisher
// collaborators are out of scope (§1) and left nil here; a real deployment
// supplies them before any stream actually negotiates these features.
func buildFeatureRegistry() *stream.Registry {
	registry := stream.NewRegistry()
	registry.Register(stream.NewStartTLSHandler(nil, true))
	registry.Register(stream.NewSASLHandler())
	registry.Register(stream.NewBindHandler(nil))
	registry.Register(stream.NewSessionHandler(nil, false))
	registry.Register(stream.NewCompressionHandler(nil))
	return registry
}

func runTickLoop(suite *cache.Suite, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			suite.Tick()
		case <-stop:
			return
		}
	}
}

func parseLogLevel(raw string) interfaces.LogLevel {
	switch raw {
	case "debug":
		return interfaces.LogLevelDebug
	case "warn":
		return interfaces.LogLevelWarn
	case "error":
		return interfaces.LogLevelError
	default:
		return interfaces.LogLevelInfo
	}
}
