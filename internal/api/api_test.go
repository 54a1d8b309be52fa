package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notex/internal/index"
	"github.com/starford/notex/internal/noteservice"
	"github.com/starford/notex/internal/testutil"
)

var seed = map[string]string{
	"machine_learning/backprop.md":       "## Backpropagation\n\nGradients flow backwards.\n\n---\n\n**See also:** [mathematics/calculus/chain_rule.md](./../mathematics/calculus/chain_rule.md) - uses the chain rule\n",
	"mathematics/calculus/chain_rule.md": "## Chain rule\n\nDerivative of a composition.\n",
	"todo/list.txt":                      "buy uniqueword milk\n",
}

// testEnv sets up a synced output tree, catalog, service, and router.
// An empty authToken means auth is disabled.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	_, store := testutil.TestVault(t)
	testutil.WriteFiles(t, store, seed)
	db := testutil.TestDB(t)
	if err := index.Sync(db, store, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	svc := noteservice.NewService(store, db)
	return NewRouter(svc, authToken != "", authToken)
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestListFiles(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/files")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp FileListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 3 || len(resp.Files) != 3 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Files[0].Path != "machine_learning/backprop.md" || resp.Files[0].Category != "machine_learning" {
		t.Errorf("first = %+v", resp.Files[0])
	}

	w = get(t, router, "/files?category=todo&limit=5")
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Files[0].Path != "todo/list.txt" {
		t.Errorf("filtered = %+v", resp)
	}
}

func TestGetFile(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/files/mathematics/calculus/chain_rule.md")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var note NoteDetail
	_ = json.Unmarshal(w.Body.Bytes(), &note)
	if note.Title != "Chain rule" || note.Category != "mathematics" {
		t.Errorf("note = %+v", note)
	}
	if len(note.Backlinks) != 1 || note.Backlinks[0] != "machine_learning/backprop.md" {
		t.Errorf("backlinks = %v", note.Backlinks)
	}
}

func TestGetFile_EncodedSlashes(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/files/todo%2Flist.txt")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetFile_NotFound(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/files/nonexistent.md")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var body ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error != "not found" || body.Status != http.StatusNotFound {
		t.Errorf("body = %+v", body)
	}
}

func TestGetFile_Traversal(t *testing.T) {
	router := testEnv(t, "")
	if w := get(t, router, "/files/..%2F..%2Fetc%2Fpasswd"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestLinks(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/links/machine_learning/backprop.md")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var ls LinkSet
	_ = json.Unmarshal(w.Body.Bytes(), &ls)
	if len(ls.Outgoing) != 1 || ls.Outgoing[0].Target != "mathematics/calculus/chain_rule.md" {
		t.Errorf("outgoing = %+v", ls.Outgoing)
	}
	if len(ls.Backlinks) != 0 {
		t.Errorf("backlinks = %v", ls.Backlinks)
	}
}

func TestCategories(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/categories")
	var resp CategoryListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Categories) != 3 || resp.Categories[1].Name != "mathematics" {
		t.Errorf("categories = %+v", resp.Categories)
	}
}

func TestSearchEndpoint(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/search?q=uniqueword")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Path != "todo/list.txt" || resp.Results[0].Category != "todo" {
		t.Errorf("results = %+v", resp.Results)
	}
}

func TestSearchEndpoint_CategoryFilter(t *testing.T) {
	router := testEnv(t, "")
	w := get(t, router, "/search?q=chain&category=mathematics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 || resp.Results[0].Path != "mathematics/calculus/chain_rule.md" {
		t.Errorf("results = %+v", resp.Results)
	}

	w = get(t, router, "/search?q=uniqueword&category=mathematics")
	resp = SearchResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 0 {
		t.Errorf("filtered results = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	router := testEnv(t, "")
	if w := get(t, router, "/search"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")
	if w := get(t, router, "/files", "Authorization", "Bearer secret123"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")
	if w := get(t, router, "/files"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")
	if w := get(t, router, "/files", "Authorization", "Bearer wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestHealth(t *testing.T) {
	r := chi.NewRouter()
	Health(r, func() error { return errors.New("db closed") })
	if w := get(t, r, "/health/live"); w.Code != http.StatusOK {
		t.Errorf("live = %d", w.Code)
	}
	if w := get(t, r, "/health/ready"); w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready = %d, want 503", w.Code)
	}
}
