package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"renttrack/internal/db"
	"renttrack/internal/live"
	"renttrack/internal/model"
	"renttrack/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, *store.Store, string) {
	t.Helper()
	database := db.NewTestDB(t)
	bus := EventBus.New()
	s := store.New(database, bus)
	hub := live.NewHub(s, bus)

	router := NewRouter(Deps{Store: s, Hub: hub, JWTSecret: testJWTSecret})
	server := httptest.NewServer(LoggingMiddleware(router))
	t.Cleanup(server.Close)

	// Create an approved user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if _, err := s.CreateUser(ctx, "tester", string(hash), model.ApprovalActive); err != nil {
		t.Fatalf("creating test user: %v", err)
	}

	return server, s, login(t, server, "tester", "password123")
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp["token"] == "" {
		t.Fatal("empty token from login")
	}
	return loginResp["token"]
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func doJSON(t *testing.T, req *http.Request, want int, out any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected %d, got %d", req.Method, req.URL.Path, want, resp.StatusCode)
	}
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	server, _, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "tester", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegisterStartsPending(t *testing.T) {
	server, s, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "newbie", "password": "password123"})
	resp, _ := http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A pending account can log in but not reach item routes.
	token := login(t, server, "newbie", "password123")
	req, _ := authRequest("GET", server.URL+"/api/items", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for pending account, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Approval opens the gate without a new token.
	user, _ := s.GetUserByUsername(context.Background(), "newbie")
	if err := s.UpdateUserStatus(context.Background(), user.ID, model.ApprovalActive); err != nil {
		t.Fatalf("approving user: %v", err)
	}
	req, _ = authRequest("GET", server.URL+"/api/items", token, nil)
	doJSON(t, req, http.StatusOK, nil)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	server, _, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "tester", "password": "password123"})
	resp, _ := http.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for taken username, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogoutRevokesToken(t *testing.T) {
	server, _, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	doJSON(t, req, http.StatusOK, nil)

	req, _ = authRequest("GET", server.URL+"/api/items", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestItemLifecycle(t *testing.T) {
	server, _, token := setupTestServer(t)

	// Create.
	req, _ := authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"name":     "Netflix",
		"category": "subscription",
		"end_date": "2030-01-01",
	})
	var created model.Item
	doJSON(t, req, http.StatusCreated, &created)
	if created.ID == "" || created.Status != model.StatusActive {
		t.Fatalf("unexpected created item: %+v", created)
	}

	// Partial update leaves absent fields alone.
	req, _ = authRequest("PATCH", server.URL+"/api/items/"+created.ID, token, map[string]any{
		"notes": "family plan",
	})
	var updated model.Item
	doJSON(t, req, http.StatusOK, &updated)
	if updated.Notes != "family plan" || updated.Name != "Netflix" {
		t.Errorf("unexpected updated item: %+v", updated)
	}

	// Status change.
	req, _ = authRequest("PUT", server.URL+"/api/items/"+created.ID+"/status", token, map[string]string{
		"status": model.StatusSoldOut,
	})
	doJSON(t, req, http.StatusOK, &updated)
	if updated.Status != model.StatusSoldOut {
		t.Errorf("expected sold_out, got %q", updated.Status)
	}

	// Delete requires archive first.
	req, _ = authRequest("DELETE", server.URL+"/api/items/"+created.ID, token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 deleting unarchived item, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("POST", server.URL+"/api/items/"+created.ID+"/archive", token, nil)
	doJSON(t, req, http.StatusOK, &updated)
	if updated.Status != model.StatusArchived || updated.ArchivedAt == nil {
		t.Errorf("expected archived item with timestamp, got %+v", updated)
	}

	req, _ = authRequest("DELETE", server.URL+"/api/items/"+created.ID, token, nil)
	doJSON(t, req, http.StatusOK, nil)

	req, _ = authRequest("GET", server.URL+"/api/items/"+created.ID, token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestManualExpireRejected(t *testing.T) {
	server, _, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"name":     "Gym",
		"end_date": "2030-01-01",
	})
	var created model.Item
	doJSON(t, req, http.StatusCreated, &created)

	req, _ = authRequest("PUT", server.URL+"/api/items/"+created.ID+"/status", token, map[string]string{
		"status": model.StatusExpired,
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for manual expire with future date, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCrossUserPermissionDenied(t *testing.T) {
	server, s, token := setupTestServer(t)

	// Second user owns an item.
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	other, _ := s.CreateUser(context.Background(), "other", string(hash), model.ApprovalActive)
	item, err := s.CreateItem(context.Background(), other.ID, &model.Item{Name: "Secret"})
	if err != nil {
		t.Fatalf("creating item: %v", err)
	}

	req, _ := authRequest("PUT", server.URL+"/api/items/"+item.ID+"/status", token, map[string]string{
		"status": model.StatusSoldOut,
	})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["code"] != "permission_denied" {
		t.Errorf("expected permission_denied code, got %+v", body)
	}
}

func TestDuplicateEndpoint(t *testing.T) {
	server, _, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"name": "Spotify", "username": "me@example.com",
	})
	var created model.Item
	doJSON(t, req, http.StatusCreated, &created)

	req, _ = authRequest("POST", server.URL+"/api/items/"+created.ID+"/duplicate", token, nil)
	var copy model.Item
	doJSON(t, req, http.StatusCreated, &copy)
	if copy.Name != "Spotify (Copy)" || copy.ID == created.ID {
		t.Errorf("unexpected duplicate: %+v", copy)
	}
	if copy.Username != created.Username {
		t.Errorf("expected credentials copied, got %q", copy.Username)
	}
}

func TestActivityEndpoint(t *testing.T) {
	server, _, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/items", token, map[string]any{"name": "VPN"})
	var created model.Item
	doJSON(t, req, http.StatusCreated, &created)

	req, _ = authRequest("PATCH", server.URL+"/api/items/"+created.ID, token, map[string]any{"notes": "x"})
	doJSON(t, req, http.StatusOK, nil)

	req, _ = authRequest("GET", server.URL+"/api/activity", token, nil)
	var entries []model.ActivityLog
	doJSON(t, req, http.StatusOK, &entries)
	if len(entries) != 2 {
		t.Fatalf("expected 2 activity entries, got %d", len(entries))
	}
	if entries[0].Action != model.ActionUpdated || entries[1].Action != model.ActionCreated {
		t.Errorf("unexpected order: %s, %s", entries[0].Action, entries[1].Action)
	}

	req, _ = authRequest("GET", server.URL+"/api/activity?item="+created.ID, token, nil)
	doJSON(t, req, http.StatusOK, &entries)
	if len(entries) != 2 {
		t.Errorf("expected 2 entries for item trail, got %d", len(entries))
	}
}

func TestSummaryEndpoint(t *testing.T) {
	server, _, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"name": "Netflix", "purchase_price": 20.0,
	})
	var master model.Item
	doJSON(t, req, http.StatusCreated, &master)

	req, _ = authRequest("POST", server.URL+"/api/items", token, map[string]any{
		"name": "Slot 1", "parent_id": master.ID, "purchase_price": 8.0,
	})
	doJSON(t, req, http.StatusCreated, nil)

	req, _ = authRequest("GET", server.URL+"/api/summary", token, nil)
	var summary store.Summary
	doJSON(t, req, http.StatusOK, &summary)
	if len(summary.Masters) != 1 {
		t.Fatalf("expected 1 master, got %d", len(summary.Masters))
	}
	if summary.Masters[0].Profit != -12 {
		t.Errorf("expected profit -12, got %v", summary.Masters[0].Profit)
	}
}

func TestSuggestUnconfigured(t *testing.T) {
	server, _, token := setupTestServer(t)

	req, _ := authRequest("POST", server.URL+"/api/suggest", token, map[string]string{
		"description": "monthly netflix",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a configured client, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestWatchStreamsSnapshots(t *testing.T) {
	server, s, token := setupTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/items/watch?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dialing watch endpoint: %v", err)
	}
	defer conn.Close()

	// Initial snapshot is empty.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var items []model.Item
	if err := conn.ReadJSON(&items); err != nil {
		t.Fatalf("reading initial snapshot: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d items", len(items))
	}

	// A mutation pushes a fresh snapshot.
	user, _ := s.GetUserByUsername(context.Background(), "tester")
	if _, err := s.CreateItem(context.Background(), user.ID, &model.Item{Name: "Hulu"}); err != nil {
		t.Fatalf("creating item: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&items); err != nil {
		t.Fatalf("reading change snapshot: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Hulu" {
		t.Fatalf("unexpected snapshot: %+v", items)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
