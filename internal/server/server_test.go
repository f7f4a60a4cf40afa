package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matzehuels/mdcanvas/pkg/codec"
	"github.com/matzehuels/mdcanvas/pkg/diagram"
	"github.com/matzehuels/mdcanvas/pkg/docstore"
	"github.com/matzehuels/mdcanvas/pkg/errors"
	"github.com/matzehuels/mdcanvas/pkg/metadata"
	"github.com/matzehuels/mdcanvas/pkg/observability"
	"github.com/matzehuels/mdcanvas/pkg/session"
	"github.com/matzehuels/mdcanvas/pkg/shell"
)

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	docs, err := docstore.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(session.Options{Docs: docs})
	t.Cleanup(func() { sess.Close() })
	if err := sess.Update(func(s *diagram.Store) error {
		if err := s.InsertNode(diagram.Node{ID: "a", Data: metadata.DataBag{Text: metadata.Ptr("alpha")}}); err != nil {
			return err
		}
		if err := s.InsertNode(diagram.Node{ID: "b"}); err != nil {
			return err
		}
		return s.InsertEdge(diagram.Edge{ID: "e1", Source: diagram.Endpoint{Node: "a"}, Target: diagram.Endpoint{Node: "b"}})
	}); err != nil {
		t.Fatal(err)
	}
	opts.Session = sess
	ts := httptest.NewServer(New(opts).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func TestRoutes(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		status   int
		contains string
	}{
		{"Health", http.MethodGet, "/health", "", http.StatusOK, `"ok"`},
		{"GetNode", http.MethodGet, "/nodes/a", "", http.StatusOK, `"text":"alpha"`},
		{"GetMissingNode", http.MethodGet, "/nodes/zzz", "", http.StatusNotFound, `"NODE_NOT_FOUND"`},
		{"SetTextBadBody", http.MethodPut, "/nodes/a/text", "{", http.StatusBadRequest, `"INVALID_INPUT"`},
		{"SetTextUnknownField", http.MethodPut, "/nodes/a/text", `{"txt":"x"}`, http.StatusBadRequest, `"INVALID_INPUT"`},
		{"SetTextMissing", http.MethodPut, "/nodes/zzz/text", `{"text":"x"}`, http.StatusNotFound, `"NODE_NOT_FOUND"`},
		{"UnknownCommand", http.MethodPost, "/commands/explode", "", http.StatusNotFound, `"UNKNOWN_COMMAND"`},
		{"CommandNoBody", http.MethodPost, "/commands/toggle-markdown", "", http.StatusOK, `"Markdown off"`},
		{"CommandFails", http.MethodPost, "/commands/convert-node", `{"arg":"zzz"}`, http.StatusNotFound, `"success":false`},
		{"SaveUnnamed", http.MethodPost, "/save", "", http.StatusBadRequest, `document has no name`},
		{"SaveBadName", http.MethodPost, "/save", `{"name":"../x"}`, http.StatusBadRequest, `"INVALID_INPUT"`},
		{"NoMetrics", http.MethodGet, "/metrics", "", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, ts.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.status, body)
			}
			if !strings.Contains(string(body), tt.contains) {
				t.Errorf("body %s does not contain %s", body, tt.contains)
			}
		})
	}
}

func TestSetTextConvertsAndKeepsEdges(t *testing.T) {
	ts := newTestServer(t, Options{})

	resp, body := do(t, http.MethodPut, ts.URL+"/nodes/a/text", `{"text":"# Title"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var n codec.NodeSnapshot
	if err := json.Unmarshal(body, &n); err != nil {
		t.Fatal(err)
	}
	if n.ID != "a" || n.Shape != diagram.ShapeRichContent || n.Data == nil || n.Data.TextOr("") != "# Title" {
		t.Errorf("node = %+v", n)
	}

	resp, body = do(t, http.MethodGet, ts.URL+"/document", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get(FingerprintHeader) == "" {
		t.Error("missing fingerprint header")
	}
	var doc codec.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Nodes) != 2 || len(doc.Edges) != 1 || doc.Edges[0].Source.Node != "a" {
		t.Errorf("document = %+v", doc)
	}
}

func TestSave(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, body := do(t, http.MethodPost, ts.URL+"/save", `{"name":"board"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out saveResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "board" || len(out.Fingerprint) != 64 {
		t.Errorf("save = %+v", out)
	}
}

func TestCommandResult(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, body := do(t, http.MethodPost, ts.URL+"/commands/toggle-collapse", `{"arg":"a"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var res shell.Result
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Message != "Collapsed" || res.Node == nil || !res.Node.Data.IsCollapsed() {
		t.Errorf("result = %+v", res)
	}
}

func TestMetricsAndHooks(t *testing.T) {
	prom := observability.NewPrometheus("mdcanvas_test")
	observability.Install(prom)
	defer observability.Reset()

	ts := newTestServer(t, Options{Metrics: prom.Handler()})
	do(t, http.MethodGet, ts.URL+"/nodes/a", "")
	do(t, http.MethodGet, ts.URL+"/nodes/b", "")

	resp, body := do(t, http.MethodGet, ts.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := `mdcanvas_test_http_requests_total{method="GET",route="/nodes/{id}",status="200"} 2`
	if !strings.Contains(string(body), want) {
		t.Errorf("metrics missing %s", want)
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeInvalidInput, http.StatusBadRequest},
		{errors.ErrCodeDocumentNotFound, http.StatusNotFound},
		{errors.ErrCodeConversionFailed, http.StatusUnprocessableEntity},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errors.HTTPStatus(errors.New(tt.code, "x")); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
