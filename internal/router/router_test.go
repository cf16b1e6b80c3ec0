package router

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crawlerlog/internal/config"
	"github.com/gin-gonic/gin"
)

func TestSetupRouterServesStaticAndPing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r, err := SetupRouter(Deps{Config: config.AppConfig{SessionSecret: "test-secret"}})
	if err != nil {
		t.Fatalf("SetupRouter returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "pong") {
		t.Fatalf("unexpected ping response: %d %q", rr.Code, rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected /metrics to be disabled, got %d", rr.Code)
	}
}

func TestFuncMap(t *testing.T) {
	funcs := FuncMap()
	name := "Googlebot"
	ts := time.Date(2025, 12, 1, 12, 30, 5, 0, time.FixedZone("CST", 8*3600))

	tests := []struct {
		name     string
		tmpl     string
		data     interface{}
		expected string
	}{
		{name: "add", tmpl: `{{add 2 3}}`, expected: "5"},
		{name: "sub", tmpl: `{{sub 2 3}}`, expected: "-1"},
		{name: "date utc", tmpl: `{{date .}}`, data: ts, expected: "2025-12-01"},
		{name: "datetime utc", tmpl: `{{datetime .}}`, data: ts, expected: "2025-12-01 04:30:05"},
		{name: "percent", tmpl: `{{percent 1 3}}`, expected: "33.3"},
		{name: "percent empty", tmpl: `{{percent 1 0}}`, expected: "0.0"},
		{name: "deref", tmpl: `{{deref .}}`, data: &name, expected: "Googlebot"},
		{name: "deref nil", tmpl: `{{deref .}}`, data: (*string)(nil), expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := template.Must(template.New(tt.name).Funcs(funcs).Parse(tt.tmpl))
			var b strings.Builder
			if err := tmpl.Execute(&b, tt.data); err != nil {
				t.Fatalf("execute: %v", err)
			}
			if b.String() != tt.expected {
				t.Fatalf("expected %q, got %q", tt.expected, b.String())
			}
		})
	}
}
