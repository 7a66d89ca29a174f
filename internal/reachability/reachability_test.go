package reachability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/fathomsec/urlscan-engine/pkg/scanmodel"
)

func testBudgets() Budgets {
	return Budgets{DNS: 2 * time.Second, TCP: 2 * time.Second, HTTP: 3 * time.Second}
}

func testProber() *Prober {
	return New(testBudgets(),
		[]string{"this domain is parked", "buy this domain"},
		[]string{"has been seized", "suspended by"},
		[]string{"checking your browser", "just a moment", "cf-ray"},
		nil,
	)
}

func serverPort(t *testing.T, srv *httptest.Server) (string, int) {
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parsing test server port: %v", err)
	}
	return u.Hostname(), port
}

func TestProbeOnlineClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>welcome</body></html>"))
	}))
	defer srv.Close()

	host, port := serverPort(t, srv)
	rec := testProber().Probe(context.Background(), srv.URL, host, port, false)
	if rec.State != scanmodel.StateOnline {
		t.Errorf("State = %v, want ONLINE", rec.State)
	}
	if !rec.DNS.Resolved || !rec.TCP.Connected || !rec.HTTP.OK {
		t.Errorf("expected all probes to succeed: %+v", rec)
	}
}

func TestProbeParkedClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>This domain is parked. Buy this domain today!</body></html>"))
	}))
	defer srv.Close()

	host, port := serverPort(t, srv)
	rec := testProber().Probe(context.Background(), srv.URL, host, port, false)
	if rec.State != scanmodel.StateParked {
		t.Errorf("State = %v, want PARKED", rec.State)
	}
}

func TestProbeSinkholeTakesPrecedenceOverWAF(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("checking your browser... this domain has been seized by law enforcement"))
	}))
	defer srv.Close()

	host, port := serverPort(t, srv)
	rec := testProber().Probe(context.Background(), srv.URL, host, port, false)
	if rec.State != scanmodel.StateSinkhole {
		t.Errorf("State = %v, want SINKHOLE (sinkhole must outrank WAF marker)", rec.State)
	}
}

func TestProbeWAFChallengeClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Just a moment... checking your browser before accessing"))
	}))
	defer srv.Close()

	host, port := serverPort(t, srv)
	rec := testProber().Probe(context.Background(), srv.URL, host, port, false)
	if rec.State != scanmodel.StateWAFChallenge {
		t.Errorf("State = %v, want WAF_CHALLENGE", rec.State)
	}
}

func TestProbeWAFChallengeClassificationFromHeaderOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cf-Ray", "8a1b2c3d4e5f6789-SJC")
		w.Write([]byte("<html><body>plain response, no challenge phrase</body></html>"))
	}))
	defer srv.Close()

	host, port := serverPort(t, srv)
	rec := testProber().Probe(context.Background(), srv.URL, host, port, false)
	if rec.State != scanmodel.StateWAFChallenge {
		t.Errorf("State = %v, want WAF_CHALLENGE from the cf-ray header alone", rec.State)
	}
}

func TestProbeTooManyRedirectsAborts(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	host, port := serverPort(t, srv)
	rec := testProber().Probe(context.Background(), srv.URL, host, port, false)
	if rec.HTTP.OK {
		t.Error("HTTP.OK = true, want false after exceeding MaxRedirects")
	}
	if rec.HTTP.Error != "too many redirects" {
		t.Errorf("HTTP.Error = %q, want %q", rec.HTTP.Error, "too many redirects")
	}
	if rec.State != scanmodel.StateOffline {
		t.Errorf("State = %v, want OFFLINE when the HTTP probe aborts", rec.State)
	}
}

func TestProbeDNSFailureShortCircuitsOffline(t *testing.T) {
	rec := testProber().Probe(context.Background(), "http://nonexistent.invalid-tld-zzz/", "nonexistent.invalid-tld-zzz", 80, false)
	if rec.State != scanmodel.StateOffline {
		t.Errorf("State = %v, want OFFLINE", rec.State)
	}
	if rec.TCP.Connected {
		t.Error("TCP probe ran after DNS failure, want short-circuit")
	}
}

func TestProbeTCPFailureShortCircuitsOffline(t *testing.T) {
	// Port 1 is reserved/unlikely to accept connections on localhost.
	rec := testProber().Probe(context.Background(), "http://127.0.0.1:1/", "127.0.0.1", 1, false)
	if rec.State != scanmodel.StateOffline {
		t.Errorf("State = %v, want OFFLINE", rec.State)
	}
	if rec.HTTP.OK {
		t.Error("HTTP probe ran after TCP failure, want short-circuit")
	}
}
