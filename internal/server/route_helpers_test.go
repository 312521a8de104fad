package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteByPathSuffix(t *testing.T) {
	var hit string
	routes := []PathSuffixRouter{
		{Suffix: "/cancel", Handler: func(w http.ResponseWriter, r *http.Request) { hit = "cancel" }},
		{Suffix: "/download", Handler: func(w http.ResponseWriter, r *http.Request) { hit = "download" }},
	}

	tests := []struct {
		path    string
		matched bool
		want    string
	}{
		{"/api/bulk/jobs/abc/cancel", true, "cancel"},
		{"/api/bulk/jobs/abc/download", true, "download"},
		{"/api/bulk/jobs/abc/anything/cancel", false, ""},
		{"/api/bulk/jobs/abc/cancel/extra", false, ""},
		{"/api/bulk/jobs//cancel", false, ""},
		{"/api/bulk/jobs/abc", false, ""},
		{"/api/bulk/jobs/abccancel", false, ""},
		{"/api/bulk/jobs/", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			hit = ""
			r := httptest.NewRequest(http.MethodPost, tt.path, nil)
			matched := RouteByPathSuffix(httptest.NewRecorder(), r, "/api/bulk/jobs/", routes)
			assert.Equal(t, tt.matched, matched)
			assert.Equal(t, tt.want, hit)
		})
	}
}

func TestRouteByMethod(t *testing.T) {
	called := false
	routes := MethodRouter{"GET": func(w http.ResponseWriter, r *http.Request) { called = true }}

	rec := httptest.NewRecorder()
	RouteByMethod(rec, httptest.NewRequest(http.MethodGet, "/x", nil), routes)
	assert.True(t, called)

	rec = httptest.NewRecorder()
	RouteByMethod(rec, httptest.NewRequest(http.MethodDelete, "/x", nil), routes)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
}
