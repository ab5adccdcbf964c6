package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/cache"
)

func newTestAPI(t *testing.T) (*API, *httptest.Server) {
	t.Helper()
	store, err := cache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	a := &API{Store: store, Secret: []byte("test-secret"), UnauthDelay: 0}
	srv := httptest.NewServer(a.Router())
	t.Cleanup(srv.Close)
	return a, srv
}

func authedRequest(t *testing.T, secret []byte, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	tok, err := IssueToken(secret, time.Minute)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tok)
	return req
}

func Test_PostGrammars_RequiresAuth(t *testing.T) {
	_, srv := newTestAPI(t)

	resp, err := http.Post(srv.URL+PathPrefix+"/grammars", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func Test_PostGrammars_EmptyGrammarCompiles(t *testing.T) {
	a, srv := newTestAPI(t)

	req := authedRequest(t, a.Secret, http.MethodPost, srv.URL+PathPrefix+"/grammars", map[string]interface{}{
		"Kind":     0,
		"Children": []interface{}{},
	})
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got grammarResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.NotEmpty(t, got.ID)
	assert.NotEmpty(t, got.Key)

	// spec §8 scenario 1: parsing empty source against the empty grammar
	// yields an AST of kind Null (0) with 0 children and 0 diagnostics.
	parseReq := authedRequest(t, a.Secret, http.MethodPost, srv.URL+PathPrefix+"/grammars/"+got.ID+"/parse", map[string]interface{}{
		"name":   "<empty>",
		"source": "",
	})
	parseResp, err := http.DefaultClient.Do(parseReq)
	require.NoError(t, err)
	defer parseResp.Body.Close()

	require.Equal(t, http.StatusOK, parseResp.StatusCode)

	var parsed parseResponse
	require.NoError(t, json.NewDecoder(parseResp.Body).Decode(&parsed))
	require.NotNil(t, parsed.AST)
	assert.Equal(t, ast.Null, parsed.AST.Kind)
	assert.Empty(t, parsed.AST.Children)
	assert.Empty(t, parsed.Diagnostics)
}

func Test_GetGrammar_UnknownID_NotFound(t *testing.T) {
	_, srv := newTestAPI(t)

	resp, err := http.Get(srv.URL + PathPrefix + "/grammars/00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
