package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/OpenVietcong/blender-plugin-vietcong/internal/export"
	"github.com/OpenVietcong/blender-plugin-vietcong/internal/testkit"
	"github.com/OpenVietcong/blender-plugin-vietcong/pkg/bes"
)

func newTestEcho(cfg Config) *echo.Echo {
	e := echo.New()
	NewServer(cfg).Register(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "application/octet-stream")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestEcho(Config{}), http.MethodGet, "/v1/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "ok", out.Status)
	assert.Contains(t, out.Formats, "0100")
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestEcho(Config{}), http.MethodPost, "/v1/decode?geometry=true", testkit.Sample())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "application/json")

	var doc export.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "0100", doc.Version)
	require.NotNil(t, doc.Root)
	assert.Equal(t, "Root", doc.Root.Name)
	assert.Len(t, doc.Root.Children[0].Meshes[0].Faces, 2)
}

func TestDecodeYAML(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestEcho(Config{}), http.MethodPost, "/v1/decode?format=yaml", testkit.Sample())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/yaml", rec.Header().Get(echo.HeaderContentType))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "0100", doc["version"])
}

func TestDecodeBadQuery(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	for path, param := range map[string]string{
		"/v1/decode?format=xml":     "format",
		"/v1/decode?geometry=maybe": "geometry",
	} {
		rec := do(t, e, http.MethodPost, path, testkit.Sample())
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		out := decodeError(t, rec)
		assert.Equal(t, "invalid_request_error", out.Error.Type)
		assert.Equal(t, param, out.Error.Param)
	}
}

func TestDecodeStructuralError(t *testing.T) {
	t.Parallel()

	data := testkit.File(testkit.Object("Root", 1, testkit.Identity()), testkit.UserInfo())
	rec := do(t, newTestEcho(Config{}), http.MethodPost, "/v1/decode", data)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	out := decodeError(t, rec)
	assert.Equal(t, "decode_error", out.Error.Type)
	assert.Equal(t, bes.ErrChildCountMismatch.Error(), out.Error.Kind)
	assert.Equal(t, "Object", out.Error.Path)
	assert.Equal(t, rec.Header().Get(headerRequestID), out.RequestID)
	assert.NotNil(t, out.Error.Offset)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	rec := do(t, e, http.MethodPost, "/v1/validate", testkit.Sample())
	require.Equal(t, http.StatusOK, rec.Code)
	var out ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Valid)
	assert.Equal(t, 3, out.Stats.Objects)
	assert.Equal(t, len(testkit.Sample()), out.Size)

	rec = do(t, e, http.MethodPost, "/v1/validate", testkit.Cat([]byte("BES\x000999"), make([]byte, 8)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, bes.ErrInvalidHeader.Error(), decodeError(t, rec).Error.Kind)
}

func TestEmptyAndOversizeBodies(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{MaxBodySize: 1024})
	rec := do(t, e, http.MethodPost, "/v1/validate", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPost, "/v1/validate", testkit.Sample())
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "body_too_large_error", decodeError(t, rec).Error.Type)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{RateLimit: 0.001, Burst: 1})
	first := do(t, e, http.MethodPost, "/v1/validate", testkit.Sample())
	assert.Equal(t, http.StatusOK, first.Code)
	second := do(t, e, http.MethodPost, "/v1/validate", testkit.Sample())
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	health := do(t, e, http.MethodGet, "/v1/healthz", nil)
	assert.Equal(t, http.StatusOK, health.Code, "health is not limited")
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestEcho(Config{Timeout: time.Nanosecond}), http.MethodPost, "/v1/validate", testkit.Sample())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDPassthrough(t *testing.T) {
	t.Parallel()

	e := newTestEcho(Config{})
	const id = "0b5f3a2e-6a43-4a8e-9e55-0d2c2f0f9c11"
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.Header.Set(headerRequestID, id)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(headerRequestID))

	req = httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.Header.Set(headerRequestID, "not-a-uuid")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get(headerRequestID))
}
