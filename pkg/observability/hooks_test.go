package observability

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Conversion hooks
	c := NoopConversionHooks{}
	c.OnConversionStart(ctx, "n1")
	c.OnConversionComplete(ctx, "n1", 3, time.Millisecond, nil)

	// Scan hooks
	s := NoopScanHooks{}
	s.OnScanStart(ctx, "/tmp")
	s.OnScanComplete(ctx, "/tmp", 12, time.Second, nil)

	// Cache hooks
	ch := NoopCacheHooks{}
	ch.OnCacheHit(ctx, "document")
	ch.OnCacheMiss(ctx, "document")
	ch.OnCacheSet(ctx, "document", 1024)

	// Command hooks
	NoopCommandHooks{}.OnCommand(ctx, "save", true, time.Millisecond)

	// HTTP hooks
	NoopHTTPHooks{}.OnResponse(ctx, "GET", "/document", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Conversion().(NoopConversionHooks); !ok {
		t.Error("Conversion() should return NoopConversionHooks by default")
	}
	if _, ok := Scan().(NoopScanHooks); !ok {
		t.Error("Scan() should return NoopScanHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Command().(NoopCommandHooks); !ok {
		t.Error("Command() should return NoopCommandHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customConversion := &testConversionHooks{}
	SetConversionHooks(customConversion)
	if Conversion() != customConversion {
		t.Error("SetConversionHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Conversion().(NoopConversionHooks); !ok {
		t.Error("Reset() should restore NoopConversionHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testConversionHooks{}
	SetConversionHooks(custom)

	// Setting nil should be ignored
	SetConversionHooks(nil)

	if Conversion() != custom {
		t.Error("SetConversionHooks(nil) should be ignored")
	}

	Reset()
}

func TestPrometheusInstall(t *testing.T) {
	Reset()
	defer Reset()

	p := NewPrometheus("mdcanvas")
	Install(p)
	if Conversion() != ConversionHooks(p) || HTTP() != HTTPHooks(p) {
		t.Fatal("Install should register p for every category")
	}

	ctx := context.Background()
	Conversion().OnConversionComplete(ctx, "n1", 2, time.Millisecond, nil)
	Conversion().OnConversionComplete(ctx, "n2", 0, time.Millisecond, errors.New("rolled back"))
	Scan().OnScanComplete(ctx, "/tmp", 5, time.Millisecond, nil)
	Cache().OnCacheHit(ctx, "document")
	Command().OnCommand(ctx, "save", false, time.Millisecond)
	HTTP().OnResponse(ctx, "GET", "/document", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`mdcanvas_conversions_total{outcome="ok"} 1`,
		`mdcanvas_conversions_total{outcome="error"} 1`,
		`mdcanvas_conversion_rewired_edges_total 2`,
		`mdcanvas_folder_scans_total{outcome="ok"} 1`,
		`mdcanvas_cache_lookups_total{key_type="document",result="hit"} 1`,
		`mdcanvas_commands_total{command="save",outcome="failed"} 1`,
		`mdcanvas_http_requests_total{method="GET",route="/document",status="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNewPrometheusTwice(t *testing.T) {
	// Each instance owns its registry, so this must not panic.
	_ = NewPrometheus("a")
	_ = NewPrometheus("a")
}

// Test implementations
type testConversionHooks struct{ NoopConversionHooks }
type testCacheHooks struct{ NoopCacheHooks }
