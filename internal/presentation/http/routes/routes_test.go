package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/AtRiskMedia/folio-go/internal/application/container"
	"github.com/AtRiskMedia/folio-go/internal/domain/entities/content"
	"github.com/AtRiskMedia/folio-go/pkg/config"
	"github.com/gin-gonic/gin"
)

type memoryStore struct {
	mu   sync.Mutex
	rows map[string]string
}

func (m *memoryStore) BulkRead(_ context.Context, names []string) ([]*content.ContentRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rows []*content.ContentRow
	for _, name := range names {
		if value, ok := m.rows[name]; ok {
			rows = append(rows, &content.ContentRow{Name: name, Content: value, UpdatedAt: time.Now()})
		}
	}
	return rows, nil
}

func (m *memoryStore) Upsert(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[name] = value
	return nil
}

func (m *memoryStore) get(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[name]
}

func newTestRouter(t *testing.T) (*gin.Engine, *memoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	previous := config.AdminPassword
	config.AdminPassword = "letmein"
	t.Cleanup(func() { config.AdminPassword = previous })

	store := &memoryStore{rows: map[string]string{"hero_title": "Stored Title"}}
	c, err := container.NewContainer(store, nil, nil)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return SetupRoutes(c), store
}

func do(r *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func login(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := do(r, http.MethodPost, "/api/v1/auth/login", map[string]string{"password": "letmein"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("login returned no token")
	}
	return resp.Token
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	if w := do(r, http.MethodGet, "/health", nil, ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestGetContentServesStoreAndFallbacks(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(r, http.MethodGet, "/api/v1/content?names=hero_title,hero_subtitle,not_a_name", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Content map[string]string `json:"content"`
		Static  []string          `json:"static"`
	}
	decode(t, w, &resp)

	if got := resp.Content["hero_title"]; got != "Stored Title" {
		t.Errorf("hero_title = %q, want stored value", got)
	}
	want, _ := content.Fallback("hero_subtitle")
	if got := resp.Content["hero_subtitle"]; got != want {
		t.Errorf("hero_subtitle = %q, want fallback %q", got, want)
	}
	if got, ok := resp.Content["not_a_name"]; !ok || got != "" {
		t.Errorf("not_a_name = %q (present %v), want empty", got, ok)
	}
	for _, name := range resp.Static {
		if name == "hero_title" {
			t.Error("hero_title reported static after a successful fetch")
		}
	}
}

func TestGetContentRequiresNames(t *testing.T) {
	r, _ := newTestRouter(t)
	if w := do(r, http.MethodGet, "/api/v1/content", nil, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPutContentRequiresAdmin(t *testing.T) {
	r, store := newTestRouter(t)

	w := do(r, http.MethodPut, "/api/v1/content/hero_title", map[string]string{"content": "Nope"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := store.get("hero_title"); got != "Stored Title" {
		t.Errorf("store changed without auth: %q", got)
	}

	w = do(r, http.MethodPut, "/api/v1/content/hero_title", map[string]string{"content": "Nope"}, "forged")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("forged token status = %d, want 401", w.Code)
	}
}

func TestLoginThenSave(t *testing.T) {
	r, store := newTestRouter(t)
	token := login(t, r)

	w := do(r, http.MethodPut, "/api/v1/content/hero_title", map[string]string{"content": "New Title"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", w.Code, w.Body.String())
	}
	if got := store.get("hero_title"); got != "New Title" {
		t.Errorf("store value = %q, want New Title", got)
	}

	w = do(r, http.MethodGet, "/api/v1/content/hero_title", nil, "")
	var item struct {
		Content  string `json:"content"`
		IsStatic bool   `json:"isStatic"`
		Unsaved  bool   `json:"unsaved"`
	}
	decode(t, w, &item)
	if item.Content != "New Title" || item.IsStatic || item.Unsaved {
		t.Errorf("item after save = %+v", item)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodPost, "/api/v1/auth/login", map[string]string{"password": "wrong"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthCheck(t *testing.T) {
	r, _ := newTestRouter(t)

	var resp struct {
		IsAdmin      bool `json:"isAdmin"`
		AdminEnabled bool `json:"adminEnabled"`
	}
	decode(t, do(r, http.MethodGet, "/api/v1/auth/check", nil, ""), &resp)
	if resp.IsAdmin || !resp.AdminEnabled {
		t.Errorf("anonymous check = %+v", resp)
	}

	decode(t, do(r, http.MethodGet, "/api/v1/auth/check", nil, login(t, r)), &resp)
	if !resp.IsAdmin {
		t.Error("token not accepted by auth check")
	}
}

func TestInvalidateByPattern(t *testing.T) {
	r, _ := newTestRouter(t)
	token := login(t, r)

	do(r, http.MethodGet, "/api/v1/content?names=hero_title,hero_subtitle", nil, "")

	w := do(r, http.MethodPost, "/api/v1/content/invalidate", map[string]string{"pattern": "^hero_"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/api/v1/content/invalidate", map[string]string{"pattern": "("}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad pattern status = %d, want 400", w.Code)
	}
}

func TestRetryRejectsMalformedBody(t *testing.T) {
	r, _ := newTestRouter(t)
	token := login(t, r)

	w := do(r, http.MethodPost, "/api/v1/content/retry", []byte(`{"names":`), token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", w.Code)
	}

	w = do(r, http.MethodPost, "/api/v1/content/retry", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("empty body status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		FailedItems []string `json:"failedItems"`
	}
	decode(t, w, &resp)
	if len(resp.FailedItems) != 0 {
		t.Fatalf("failedItems = %v, want none", resp.FailedItems)
	}

	w = do(r, http.MethodPost, "/api/v1/content/retry", map[string][]string{"names": {"hero_title"}}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("named retry status = %d, want 200", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/api/v1/page/readiness", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var state map[string]any
	decode(t, w, &state)
	if _, ok := state["isPageLoading"]; !ok {
		t.Errorf("readiness payload missing isPageLoading: %v", state)
	}
}

func TestSysOpLogLevels(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := do(r, http.MethodGet, "/api/sysop/logs/levels", nil, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", w.Code)
	}

	token := login(t, r)
	w := do(r, http.MethodPost, "/api/sysop/logs/levels", map[string]string{"channel": "cache", "level": "debug"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("set level status = %d, body %s", w.Code, w.Body.String())
	}

	var levels map[string]string
	decode(t, do(r, http.MethodGet, "/api/sysop/logs/levels", nil, token), &levels)
	if levels["cache"] != "DEBUG" {
		t.Errorf("cache level = %q, want DEBUG", levels["cache"])
	}

	w = do(r, http.MethodPost, "/api/sysop/logs/levels", map[string]string{"channel": "cache", "level": "loud"}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad level status = %d, want 400", w.Code)
	}
}
