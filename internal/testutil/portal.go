package testutil

import (
	"embed"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

//go:embed testdata
var fixtures embed.FS

// Fixture returns the contents of a file under testdata.
func Fixture(t testing.TB, name string) []byte {
	t.Helper()
	data, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("missing fixture %s: %v", name, err)
	}
	return data
}

// PortalCall is one request received by a fake portal.
type PortalCall struct {
	Endpoint string
	Lang     string
	ID       string
	Body     map[string]any
}

// Portal is a fake statistics API backed by the testdata fixtures.
// It knows the FOLK1A table and answers every data request with
// folk1a.csv. Unknown tables get a 400 with the portal's error shape.
type Portal struct {
	*httptest.Server

	mu    sync.Mutex
	calls []PortalCall
}

// NewPortal starts a fake portal that is closed when the test ends.
func NewPortal(t testing.TB) *Portal {
	t.Helper()

	subjects := Fixture(t, "subjects.json")
	tables := map[string][]byte{"FOLK1A": Fixture(t, "folk1a.json")}
	data := Fixture(t, "folk1a.csv")

	p := &Portal{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/subjects", func(w http.ResponseWriter, r *http.Request) {
		p.record("subjects", r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(subjects)
	})

	mux.HandleFunc("POST /v1/tableinfo", func(w http.ResponseWriter, r *http.Request) {
		call := p.record("tableinfo", r)
		id, _ := call.Body["table"].(string)
		body, ok := tables[strings.ToUpper(id)]
		if !ok {
			portalError(w, "Tabellen "+id+" blev ikke fundet")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	mux.HandleFunc("POST /v1/data", func(w http.ResponseWriter, r *http.Request) {
		call := p.record("data", r)
		id, _ := call.Body["table"].(string)
		if _, ok := tables[strings.ToUpper(id)]; !ok {
			portalError(w, "Tabellen "+id+" blev ikke fundet")
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write(data)
	})

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

// BaseURL is the API root to hand to a client.
func (p *Portal) BaseURL() string { return p.URL + "/v1" }

// Calls returns the requests received so far.
func (p *Portal) Calls() []PortalCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PortalCall(nil), p.calls...)
}

// CallsTo returns the requests received by one endpoint.
func (p *Portal) CallsTo(endpoint string) []PortalCall {
	var out []PortalCall
	for _, c := range p.Calls() {
		if c.Endpoint == endpoint {
			out = append(out, c)
		}
	}
	return out
}

func (p *Portal) record(endpoint string, r *http.Request) PortalCall {
	raw, _ := io.ReadAll(r.Body)
	call := PortalCall{
		Endpoint: endpoint,
		Lang:     r.URL.Query().Get("lang"),
		ID:       r.Header.Get("X-Request-ID"),
	}
	_ = json.Unmarshal(raw, &call.Body)

	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
	return call
}

func portalError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"errorTypeCode": "TABLE_NOT_FOUND",
		"message":       msg,
	})
}
