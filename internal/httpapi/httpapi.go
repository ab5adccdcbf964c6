// Package httpapi exposes the facade over HTTP (SPEC_FULL.md §3): compile a
// grammar-description AST into a cached parser artifact, fetch that
// artifact's metadata, and parse source text against it.
//
// Grounded on _examples/dekarrin-tunaq/server/api/api.go (the
// EndpointFunc/panic-recovery/logging wrapper shape) and server/token.go
// (bearer-JWT middleware), go-chi/chi/v5 for routing as the teacher uses.
// Unlike the teacher there is no user/password store to derive a per-user
// signing key from, so every valid token signed with the shared secret
// authorizes — the teacher's per-subject signing-key-with-logout-epoch
// derivation has no analogue here (there is no account to log out of).
package httpapi

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/calderwood/hoshi"
	"github.com/calderwood/hoshi/internal/ast"
	"github.com/calderwood/hoshi/internal/cache"
	"github.com/calderwood/hoshi/internal/diag"
)

// PathPrefix is the prefix every route is mounted under.
const PathPrefix = "/api/v1"

const issuer = "hoshigen"

// API holds the dependencies HTTP handlers need.
type API struct {
	// Store persists compiled artifacts, keyed by a hash of the submitted
	// grammar AST (see internal/cache).
	Store *cache.Store

	// Secret signs and validates bearer tokens for the write endpoints
	// (POST /grammars, POST /grammars/{id}/parse).
	Secret []byte

	// UnauthDelay is slept before any 401 response and before the 500 sent
	// for a recovered panic, to deprioritize such requests the same way the
	// teacher's API does.
	UnauthDelay time.Duration
}

// Router builds the chi router serving every endpoint under PathPrefix.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Route(PathPrefix, func(r chi.Router) {
		r.With(a.requireAuth).Post("/grammars", a.wrap(a.postGrammar))
		r.Get("/grammars/{id}", a.wrap(a.getGrammar))
		r.With(a.requireAuth).Post("/grammars/{id}/parse", a.wrap(a.postParse))
	})
	return r
}

type endpointFunc func(w http.ResponseWriter, req *http.Request)

// wrap adds panic recovery and access logging around an endpoint, matching
// the teacher's httpEndpoint wrapper.
func (a *API) wrap(ep endpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer a.panicTo500(w, req)
		ep(w, req)
	}
}

func (a *API) panicTo500(w http.ResponseWriter, req *http.Request) {
	if panicErr := recover(); panicErr != nil {
		logAccess("ERROR", req, http.StatusInternalServerError, fmt.Sprintf("panic: %v", panicErr))
		log.Printf("STACK TRACE: %s", debug.Stack())
		time.Sleep(a.UnauthDelay)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "an internal server error occurred"})
	}
}

func logAccess(level string, req *http.Request, status int, msg string) {
	remote := req.RemoteAddr
	if idx := strings.IndexByte(remote, ':'); idx >= 0 {
		remote = remote[:idx]
	}
	log.Printf("%-5s %s %s %s: HTTP-%d %s", level, remote, req.Method, req.URL.Path, status, msg)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) respondUnauthorized(w http.ResponseWriter, req *http.Request, msg string) {
	logAccess("ERROR", req, http.StatusUnauthorized, msg)
	time.Sleep(a.UnauthDelay)
	writeJSON(w, http.StatusUnauthorized, errorBody{Error: msg})
}

// requireAuth rejects any request with no valid bearer token signed by a.Secret.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		tok, err := getBearerToken(req)
		if err != nil {
			a.respondUnauthorized(w, req, err.Error())
			return
		}

		_, err = jwt.Parse(tok, func(t *jwt.Token) (interface{}, error) {
			return a.Secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer), jwt.WithLeeway(time.Minute))
		if err != nil {
			a.respondUnauthorized(w, req, err.Error())
			return
		}

		next.ServeHTTP(w, req)
	})
}

func getBearerToken(req *http.Request) (string, error) {
	authHeader := strings.TrimSpace(req.Header.Get("Authorization"))
	if authHeader == "" {
		return "", fmt.Errorf("no authorization header present")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(strings.TrimSpace(parts[0])) != "bearer" {
		return "", fmt.Errorf("authorization header not in Bearer format")
	}
	return strings.TrimSpace(parts[1]), nil
}

// IssueToken mints a bearer token callers can use against the write
// endpoints. Exposed for cmd/hoshigen, which has no login flow of its own
// and simply mints itself a token from the configured shared secret.
func IssueToken(secret []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"iss": issuer,
		"exp": time.Now().Add(ttl).Unix(),
		"sub": "hoshigen-cli",
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

type grammarResponse struct {
	ID      string `json:"id"`
	Key     string `json:"key"`
	Created string `json:"created"`
}

// postGrammar accepts a JSON-encoded grammar-description ast.Node (producing
// that AST from grammar-description text is out of this service's scope;
// see DESIGN.md), runs full generation, and caches the resulting artifact.
func (a *API) postGrammar(w http.ResponseWriter, req *http.Request) {
	bodyData, err := readBody(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	var root ast.Node
	if err := json.Unmarshal(bodyData, &root); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed JSON body: " + err.Error()})
		return
	}

	gen := hoshi.New()
	sink, err := gen.Generate(&root)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	if sink.HasErrors() {
		writeJSON(w, http.StatusUnprocessableEntity, diagnosticsBody(sink))
		return
	}

	blob, err := gen.Encode()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	key := cache.KeyOf(string(bodyData))
	entry, err := a.Store.Put(req.Context(), key, blob)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	logAccess("INFO", req, http.StatusCreated, "grammar compiled: "+entry.ID.String())
	writeJSON(w, http.StatusCreated, grammarResponse{
		ID:      entry.ID.String(),
		Key:     string(entry.Key),
		Created: entry.Created.UTC().Format(time.RFC3339),
	})
}

// getGrammar reports the metadata of a previously compiled artifact.
func (a *API) getGrammar(w http.ResponseWriter, req *http.Request) {
	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid grammar id"})
		return
	}

	entry, err := a.Store.GetByID(req.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if err == cache.ErrNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorBody{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, grammarResponse{
		ID:      entry.ID.String(),
		Key:     string(entry.Key),
		Created: entry.Created.UTC().Format(time.RFC3339),
	})
}

type parseRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

type parseResponse struct {
	AST         *ast.Node `json:"ast,omitempty"`
	Diagnostics []diagBody `json:"diagnostics,omitempty"`
}

// postParse loads a previously compiled artifact and parses the submitted
// source text against it.
func (a *API) postParse(w http.ResponseWriter, req *http.Request) {
	id, err := uuid.Parse(chi.URLParam(req, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid grammar id"})
		return
	}

	entry, err := a.Store.GetByID(req.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if err == cache.ErrNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorBody{Error: err.Error()})
		return
	}

	bodyData, err := readBody(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	var preq parseRequest
	if err := json.Unmarshal(bodyData, &preq); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed JSON body: " + err.Error()})
		return
	}

	gen := hoshi.New()
	if err := gen.Decode(entry.Blob); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	root, sink, err := gen.Parse(preq.Name, preq.Source)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	if sink.HasErrors() {
		writeJSON(w, http.StatusUnprocessableEntity, parseResponse{Diagnostics: diagnosticsOf(sink)})
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{AST: root})
}

type diagBody struct {
	Category string `json:"category"`
	Severity int    `json:"severity"`
	Location int64  `json:"location"`
	Short    string `json:"short"`
	Long     string `json:"long,omitempty"`
}

func diagnosticsOf(sink *diag.Sink) []diagBody {
	all := sink.All()
	out := make([]diagBody, len(all))
	for i, d := range all {
		out[i] = diagBody{
			Category: string(d.Category),
			Severity: int(d.Severity),
			Location: d.Location,
			Short:    d.Short,
			Long:     d.Long,
		}
	}
	return out
}

func diagnosticsBody(sink *diag.Sink) parseResponse {
	return parseResponse{Diagnostics: diagnosticsOf(sink)}
}

func readBody(req *http.Request) ([]byte, error) {
	contentType := req.Header.Get("Content-Type")
	if !strings.EqualFold(contentType, "application/json") {
		return nil, fmt.Errorf("request content-type is not application/json")
	}
	return jsonBody(req)
}

func jsonBody(req *http.Request) ([]byte, error) {
	dec := json.NewDecoder(req.Body)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("could not read request body: %w", err)
	}
	return []byte(raw), nil
}
