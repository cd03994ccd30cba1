package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aretw0/zonerules"
	"github.com/aretw0/zonerules/pkg/adapters/memory"
	zhttp "github.com/aretw0/zonerules/pkg/adapters/http"
	"github.com/aretw0/zonerules/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	provider := memory.NewProvider()
	for _, f := range ports.ContractFixtures() {
		require.NoError(t, provider.Add(f.Region, f.Version, f.Rules))
	}
	svc, err := zonerules.New("", zonerules.WithProvider("TZDB", provider))
	require.NoError(t, err)
	return zhttp.NewHandler(svc, "1.2.3\n", nil)
}

func get(t *testing.T, h http.Handler, path string, query url.Values, out any) int {
	t.Helper()
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func TestServer_HealthAndInfo(t *testing.T) {
	h := newHandler(t)

	var health map[string]string
	assert.Equal(t, http.StatusOK, get(t, h, "/health", nil, &health))
	assert.Equal(t, "ok", health["status"])

	var info map[string]string
	assert.Equal(t, http.StatusOK, get(t, h, "/info", nil, &info))
	assert.Equal(t, "1.2.3", info["version"])
}

func TestServer_CORS(t *testing.T) {
	h := newHandler(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/v1/offset", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Offset(t *testing.T) {
	h := newHandler(t)

	t.Run("Summer", func(t *testing.T) {
		var resp zhttp.OffsetResponse
		code := get(t, h, "/v1/offset", url.Values{"zone": {"Europe/Testland"}, "at": {"2025-07-01T00:00:00Z"}}, &resp)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "+02:00", resp.Offset)
		assert.Equal(t, "2025-07-01T00:00:00Z", resp.At)
	})

	t.Run("Missing Zone", func(t *testing.T) {
		var resp zhttp.ErrorResponse
		assert.Equal(t, http.StatusBadRequest, get(t, h, "/v1/offset", nil, &resp))
		assert.Contains(t, resp.Error, "zone parameter is required")
	})

	t.Run("Bad Instant", func(t *testing.T) {
		code := get(t, h, "/v1/offset", url.Values{"zone": {"Europe/Testland"}, "at": {"yesterday"}}, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("Unknown Zone", func(t *testing.T) {
		var resp zhttp.ErrorResponse
		code := get(t, h, "/v1/offset", url.Values{"zone": {"Europe/Atlantis"}}, &resp)
		assert.Equal(t, http.StatusNotFound, code)
		assert.NotEmpty(t, resp.Error)
	})
}

func TestServer_Resolve(t *testing.T) {
	h := newHandler(t)

	t.Run("Gap", func(t *testing.T) {
		var resp zhttp.ResolveResponse
		code := get(t, h, "/v1/resolve", url.Values{"zone": {"Europe/Testland"}, "local": {"2019-03-31T02:30"}}, &resp)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "gap", resp.Kind)
		assert.Empty(t, resp.Offsets)
		require.NotNil(t, resp.Transition)
		assert.Equal(t, "2019-03-31T01:00:00Z", resp.Transition.Instant)
		assert.Equal(t, "2019-03-31T02:00", resp.Transition.LocalBefore)
		assert.Equal(t, "2019-03-31T03:00", resp.Transition.LocalAfter)
	})

	t.Run("Overlap", func(t *testing.T) {
		var resp zhttp.ResolveResponse
		code := get(t, h, "/v1/resolve", url.Values{"zone": {"Europe/Testland"}, "local": {"2019-10-27T02:30"}}, &resp)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "overlap", resp.Kind)
		assert.Equal(t, []string{"+02:00", "+01:00"}, resp.Offsets)
	})

	t.Run("Normal", func(t *testing.T) {
		var resp zhttp.ResolveResponse
		code := get(t, h, "/v1/resolve", url.Values{"zone": {"Europe/Testland"}, "local": {"2019-12-25T12:00"}}, &resp)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "normal", resp.Kind)
		assert.Equal(t, []string{"+01:00"}, resp.Offsets)
		assert.Nil(t, resp.Transition)
	})

	t.Run("Malformed", func(t *testing.T) {
		code := get(t, h, "/v1/resolve", url.Values{"zone": {"Europe/Testland"}, "local": {"Christmas"}}, nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}

func TestServer_Valid(t *testing.T) {
	h := newHandler(t)

	var ok zhttp.ValidResponse
	code := get(t, h, "/v1/valid", url.Values{"zone": {"Europe/Testland"}, "at": {"2019-10-27T02:30+01:00"}}, &ok)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, ok.Valid)

	var rejected zhttp.ErrorResponse
	code = get(t, h, "/v1/valid", url.Values{"zone": {"Europe/Testland"}, "at": {"2019-07-01T12:00+01:00"}}, &rejected)
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, rejected.Error, "offset mismatch")
}

func TestServer_Transitions(t *testing.T) {
	h := newHandler(t)

	var resp zhttp.TransitionsResponse
	code := get(t, h, "/v1/transitions", url.Values{
		"zone": {"Europe/Testland"},
		"from": {"2018-01-01T00:00:00Z"},
		"to":   {"2020-01-01T00:00:00Z"},
	}, &resp)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Transitions, 4)
	assert.Equal(t, "gap", resp.Transitions[0].Kind)
	assert.Equal(t, "overlap", resp.Transitions[1].Kind)
	assert.Equal(t, "+01:00", resp.Transitions[2].OffsetBefore)
	assert.Equal(t, "+02:00", resp.Transitions[2].OffsetAfter)

	code = get(t, h, "/v1/transitions", url.Values{
		"zone": {"Europe/Testland"},
		"from": {"2020-01-01T00:00:00Z"},
		"to":   {"2018-01-01T00:00:00Z"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServer_Zones(t *testing.T) {
	h := newHandler(t)

	var resp zhttp.ZonesResponse
	require.Equal(t, http.StatusOK, get(t, h, "/v1/zones/TZDB", nil, &resp))
	assert.Equal(t, "TZDB", resp.Group)
	assert.Equal(t, []string{"Europe/Testland"}, resp.Zones)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/v1/zones/NOPE", nil, nil))
}
