package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"darkroom/internal/auth"
	blobmem "darkroom/internal/blob/memory"
	"darkroom/internal/gallery"
	snapmem "darkroom/internal/snapshot/memory"
)

const testSecret = "correct-horse-battery-staple"

type testEnv struct {
	server *Server
	blobs  *blobmem.Store
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := auth.HashSecret(testSecret)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}

	blobs := blobmem.NewStore()
	store := gallery.NewStore(gallery.Config{
		Cache:   snapmem.NewStore(),
		Backing: snapmem.NewStore(),
		Prober:  blobs,
	})
	tokens := auth.NewTokenService([]byte("test-jwt-secret"), 7*24*time.Hour)

	srv := New(Config{
		Tokens:     tokens,
		SecretHash: hash,
		Gallery:    store,
		Blobs:      blobs,
	})

	token, _, err := tokens.Issue()
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	return &testEnv{server: srv, blobs: blobs, token: token}
}

// do runs a request against the engine. A non-empty token is attached as a
// bearer credential.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func (e *testEnv) registerPhoto(t *testing.T, name string, width, height int) adminPhoto {
	t.Helper()

	key := "photos/" + name + ".jpg"
	e.blobs.Put(key, width, height)
	w := e.do(t, http.MethodPost, "/api/admin/photos/register", e.token, map[string]any{
		"blobKey":     key,
		"displayName": name,
		"width":       width,
		"height":      height,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", name, w.Code, w.Body.String())
	}

	var rec adminPhoto
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"secret": testSecret})
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d: %s", w.Code, w.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("empty token")
	}

	// The issued token must open the admin surface.
	w = e.do(t, http.MethodGet, "/api/admin/photos", resp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin list with fresh token: status %d", w.Code)
	}
}

func TestLoginWrongSecret(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"secret": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestLoginMissingBody(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	e := newTestEnv(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/admin/photos"},
		{http.MethodGet, "/api/admin/sign"},
		{http.MethodPost, "/api/admin/photos/register"},
		{http.MethodPost, "/api/admin/publish"},
		{http.MethodPost, "/api/admin/photos/some-id/repair"},
		{http.MethodPost, "/api/admin/reorder"},
		{http.MethodDelete, "/api/admin/photos"},
	}

	for _, p := range paths {
		w := e.do(t, p.method, p.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", p.method, p.path, w.Code)
		}

		w = e.do(t, p.method, p.path, "garbage-token", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: expected 401, got %d", p.method, p.path, w.Code)
		}
	}
}

func TestPublicRoutesOpen(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/photos", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("public list: expected 200, got %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", w.Code)
	}
}

func TestSignUpload(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/admin/sign?name=beach.JPG", e.token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sign: status %d: %s", w.Code, w.Body.String())
	}

	var signed struct {
		URL    string `json:"url"`
		Key    string `json:"key"`
		Method string `json:"method"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &signed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if signed.URL == "" || signed.Key == "" {
		t.Fatalf("incomplete signed upload: %+v", signed)
	}
	// Scoped folder plus the original extension.
	if got := signed.Key; len(got) < 8 || got[:7] != "photos/" {
		t.Errorf("key not scoped under photos/: %q", got)
	}
	if ext := signed.Key[len(signed.Key)-4:]; ext != ".JPG" {
		t.Errorf("expected original extension preserved, got key %q", signed.Key)
	}
}

func TestRegisterAndList(t *testing.T) {
	e := newTestEnv(t)

	rec := e.registerPhoto(t, "sunset", 1920, 1080)
	if rec.Orientation != gallery.Landscape {
		t.Errorf("expected landscape, got %q", rec.Orientation)
	}
	if rec.Published {
		t.Error("new record must start unpublished")
	}
	if rec.URL == "" || rec.ThumbURL == "" {
		t.Error("admin projection must carry rendering URLs")
	}

	// Unpublished records are admin-only.
	w := e.do(t, http.MethodGet, "/api/photos", "", nil)
	var pub []publicPhoto
	if err := json.Unmarshal(w.Body.Bytes(), &pub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pub) != 0 {
		t.Errorf("unpublished record leaked into public projection")
	}

	w = e.do(t, http.MethodGet, "/api/admin/photos", e.token, nil)
	var adm []adminPhoto
	if err := json.Unmarshal(w.Body.Bytes(), &adm); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(adm) != 1 || adm[0].ID != rec.ID {
		t.Errorf("admin projection missing the registered record")
	}
}

func TestRegisterMissingBlobKey(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/admin/photos/register", e.token, map[string]any{
		"displayName": "no blob",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpdatePartial(t *testing.T) {
	e := newTestEnv(t)
	rec := e.registerPhoto(t, "a", 100, 100)

	w := e.do(t, http.MethodPut, "/api/admin/photos/"+rec.ID.String(), e.token, map[string]any{
		"displayName": "renamed",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update: status %d: %s", w.Code, w.Body.String())
	}

	var got adminPhoto
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DisplayName != "renamed" {
		t.Errorf("expected renamed, got %q", got.DisplayName)
	}
	if got.Order != rec.Order {
		t.Errorf("order changed by a name-only update")
	}
}

func TestUpdateNotFound(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPut, "/api/admin/photos/0190a0a0-0000-7000-8000-000000000000", e.token,
		map[string]any{"displayName": "x"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateMalformedID(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPut, "/api/admin/photos/not-a-uuid", e.token,
		map[string]any{"displayName": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestRepairDimensions(t *testing.T) {
	e := newTestEnv(t)

	// Registered without dimensions while the probe is down; the record
	// lands with unknown geometry.
	e.blobs.FailProbe = fmt.Errorf("blob store unavailable")
	key := "photos/late.jpg"
	w := e.do(t, http.MethodPost, "/api/admin/photos/register", e.token, map[string]any{
		"blobKey": key,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d: %s", w.Code, w.Body.String())
	}
	var rec adminPhoto
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Width != 0 || rec.Orientation != gallery.Square {
		t.Fatalf("expected unknown geometry, got %dx%d %q", rec.Width, rec.Height, rec.Orientation)
	}

	e.blobs.FailProbe = nil
	e.blobs.Put(key, 1920, 1080)

	w = e.do(t, http.MethodPost, "/api/admin/photos/"+rec.ID.String()+"/repair", e.token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("repair: status %d: %s", w.Code, w.Body.String())
	}
	var repaired adminPhoto
	if err := json.Unmarshal(w.Body.Bytes(), &repaired); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if repaired.Width != 1920 || repaired.Orientation != gallery.Landscape {
		t.Errorf("expected repaired landscape 1920x1080, got %dx%d %q",
			repaired.Width, repaired.Height, repaired.Orientation)
	}
}

func TestDeleteCleansUpBinary(t *testing.T) {
	e := newTestEnv(t)
	rec := e.registerPhoto(t, "a", 100, 100)

	w := e.do(t, http.MethodDelete, "/api/admin/photos/"+rec.ID.String(), e.token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status %d: %s", w.Code, w.Body.String())
	}

	deleted := e.blobs.Deleted()
	if len(deleted) != 1 || deleted[0] != rec.BlobKey {
		t.Errorf("expected binary %q deleted, got %v", rec.BlobKey, deleted)
	}

	// Second delete is a 404.
	w = e.do(t, http.MethodDelete, "/api/admin/photos/"+rec.ID.String(), e.token, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
}

func TestDeleteSucceedsWhenBlobCleanupFails(t *testing.T) {
	e := newTestEnv(t)
	rec := e.registerPhoto(t, "a", 100, 100)

	e.blobs.FailDelete = fmt.Errorf("blob store unavailable")

	w := e.do(t, http.MethodDelete, "/api/admin/photos/"+rec.ID.String(), e.token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metadata deletion must succeed despite cleanup failure: %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/admin/photos", e.token, nil)
	var adm []adminPhoto
	if err := json.Unmarshal(w.Body.Bytes(), &adm); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(adm) != 0 {
		t.Errorf("record still present after delete")
	}
}

func TestPublishSubsetAndAll(t *testing.T) {
	e := newTestEnv(t)
	a := e.registerPhoto(t, "a", 100, 100)
	e.registerPhoto(t, "b", 100, 100)
	c := e.registerPhoto(t, "c", 100, 100)

	w := e.do(t, http.MethodPost, "/api/admin/publish", e.token, map[string]any{
		"ids": []string{a.ID.String(), c.ID.String()},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("publish: status %d: %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/api/photos", "", nil)
	var pub []publicPhoto
	if err := json.Unmarshal(w.Body.Bytes(), &pub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pub) != 2 {
		t.Fatalf("expected 2 published, got %d", len(pub))
	}
	if pub[0].ID != a.ID || pub[1].ID != c.ID {
		t.Errorf("public order wrong: %q then %q", pub[0].DisplayName, pub[1].DisplayName)
	}

	// Publish with no body publishes everything.
	w = e.do(t, http.MethodPost, "/api/admin/publish", e.token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("publish all: status %d: %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodGet, "/api/photos", "", nil)
	pub = nil
	if err := json.Unmarshal(w.Body.Bytes(), &pub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pub) != 3 {
		t.Errorf("expected all 3 published, got %d", len(pub))
	}
}

func TestReorder(t *testing.T) {
	e := newTestEnv(t)
	a := e.registerPhoto(t, "a", 100, 100)
	b := e.registerPhoto(t, "b", 100, 100)
	c := e.registerPhoto(t, "c", 100, 100)

	w := e.do(t, http.MethodPost, "/api/admin/reorder", e.token, map[string]any{
		"ids": []string{b.ID.String(), a.ID.String()},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("reorder: status %d: %s", w.Code, w.Body.String())
	}

	var adm []adminPhoto
	if err := json.Unmarshal(w.Body.Bytes(), &adm); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(adm) != 3 {
		t.Fatalf("expected 3 records, got %d", len(adm))
	}
	if adm[0].ID != b.ID || adm[1].ID != a.ID || adm[2].ID != c.ID {
		t.Errorf("reorder result wrong: %q, %q, %q",
			adm[0].DisplayName, adm[1].DisplayName, adm[2].DisplayName)
	}
}

func TestReorderMissingIDs(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/admin/reorder", e.token, map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing ids, got %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/api/admin/reorder", e.token, map[string]any{"ids": "not-a-list"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-list ids, got %d", w.Code)
	}
}

func TestClear(t *testing.T) {
	e := newTestEnv(t)
	e.registerPhoto(t, "a", 100, 100)
	e.registerPhoto(t, "b", 100, 100)

	w := e.do(t, http.MethodDelete, "/api/admin/photos", e.token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear: status %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Cleared int `json:"cleared"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Cleared != 2 {
		t.Errorf("expected 2 cleared, got %d", resp.Cleared)
	}

	deleted := e.blobs.Deleted()
	if len(deleted) != 2 {
		t.Errorf("expected 2 binaries deleted, got %v", deleted)
	}

	w = e.do(t, http.MethodGet, "/api/admin/photos", e.token, nil)
	var adm []adminPhoto
	if err := json.Unmarshal(w.Body.Bytes(), &adm); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(adm) != 0 {
		t.Errorf("collection not empty after clear")
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	e.registerPhoto(t, "a", 100, 100)

	w := e.do(t, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: status %d", w.Code)
	}

	var resp struct {
		Status string `json:"status"`
		Photos int    `json:"photos"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %q", resp.Status)
	}
	if resp.Photos != 1 {
		t.Errorf("expected 1 photo, got %d", resp.Photos)
	}
}

func TestPublicProjectionHidesBlobKey(t *testing.T) {
	e := newTestEnv(t)
	a := e.registerPhoto(t, "a", 100, 100)

	w := e.do(t, http.MethodPost, "/api/admin/publish", e.token, map[string]any{
		"ids": []string{a.ID.String()},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("publish: %d", w.Code)
	}

	w = e.do(t, http.MethodGet, "/api/photos", "", nil)
	var raw []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != 1 {
		t.Fatalf("expected 1 record, got %d", len(raw))
	}
	if _, leaked := raw[0]["blobKey"]; leaked {
		t.Error("public projection leaks the raw blob reference")
	}
	if raw[0]["url"] == "" {
		t.Error("public projection missing the rendering URL")
	}
}
