package fetchers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maximhq/xmppstream/cache"
	"github.com/maximhq/xmppstream/interfaces"
)

func TestHTTPDiscoFetcherDeliversSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("disco-ok"))
	}))
	defer srv.Close()

	c := cache.NewCache[string, any](10, time.Hour, 2*time.Hour, 3*time.Hour, nil)
	factory := NewHTTPDiscoFetcherFactory(srv.URL, &interfaces.ProxyConfig{Type: interfaces.NoProxy}, interfaces.NetworkConfig{DialTimeoutSeconds: 5}, &capturingLogger{})
	c.SetFetcherFactory(factory)

	done := make(chan DiscoResult, 1)
	errs := make(chan error, 1)
	err := c.RequestObject("room@conference.example.com", cache.StateFresh, 5*time.Second, func(addr string, v any, s cache.State) {
		done <- v.(DiscoResult)
	}, cache.WithErrorHandler[string, any](func(addr string, e error) { errs <- e }))
	if err != nil {
		t.Fatalf("RequestObject: %v", err)
	}

	select {
	case result := <-done:
		if result.StatusCode != http.StatusOK || string(result.Body) != "disco-ok" {
			t.Fatalf("unexpected result: %+v", result)
		}
	case e := <-errs:
		t.Fatalf("unexpected error: %v", e)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for fetch to complete")
	}
}

func TestHTTPDiscoFetcherDeliversErrorOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := cache.NewCache[string, any](10, time.Hour, 2*time.Hour, 3*time.Hour, nil)
	factory := NewHTTPDiscoFetcherFactory(srv.URL, nil, interfaces.NetworkConfig{}, &capturingLogger{})
	c.SetFetcherFactory(factory)

	errs := make(chan error, 1)
	hits := make(chan any, 1)
	err := c.RequestObject("addr", cache.StateFresh, 5*time.Second, func(addr string, v any, s cache.State) {
		hits <- v
	}, cache.WithErrorHandler[string, any](func(addr string, e error) { errs <- e }))
	if err != nil {
		t.Fatalf("RequestObject: %v", err)
	}

	select {
	case <-hits:
		t.Fatal("expected no successful delivery for a 5xx response")
	case e := <-errs:
		if e == nil {
			t.Fatal("expected a non-nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for fetch to complete")
	}
}
