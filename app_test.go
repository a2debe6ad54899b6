package harvestbook

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkern/harvestbook/blob"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := Config{
		DatabasePath:  filepath.Join(t.TempDir(), "app.db"),
		BlobDir:       filepath.Join(t.TempDir(), "blobs"),
		TokenSecret:   "test-token-secret",
		SessionSecret: "test-session-secret",
	}
	cfg.setDefaults()

	store, err := NewStore(cfg.DatabasePath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	blobs, err := blob.New(cfg.BlobDir, []byte(cfg.TokenSecret))
	if err != nil {
		t.Fatalf("failed to create blob store: %v", err)
	}

	a := &App{
		cfg:          cfg,
		echo:         echo.New(),
		store:        store,
		blobs:        blobs,
		posts:        newPostCache(store, cfg.PostCacheTTL),
		loginLimiter: newLoginLimiter(100, time.Minute),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// doJSON performs a JSON request against the app, optionally with a bearer
// token, and returns the recorded response.
func doJSON(t *testing.T, a *App, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// tokenFor creates an account directly in the store and issues a bearer
// token for it.
func tokenFor(t *testing.T, a *App, username, role string) (User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u, err := a.store.CreateUser(User{
		Username:     username,
		Email:        username + "@x.com",
		PasswordHash: string(hash),
		Role:         role,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	token, err := a.issueToken(u)
	if err != nil {
		t.Fatalf("issueToken failed: %v", err)
	}
	return u, token
}

func TestRegisterThenLoginCaseInsensitive(t *testing.T) {
	a := newTestApp(t)

	rec := doJSON(t, a, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "Bob",
		"email":    "bob@x.com",
		"password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, a, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "BOB",
		"password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp authResponse
	decodeJSON(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	claims, err := a.parseToken(resp.Token)
	if err != nil {
		t.Fatalf("parseToken failed: %v", err)
	}
	if claims.Role != RoleUser {
		t.Errorf("token role = %q, want user", claims.Role)
	}
	if claims.Username != "Bob" {
		t.Errorf("token username = %q, want Bob", claims.Username)
	}
}

func TestSuccessfulLoginsDoNotTripLimiter(t *testing.T) {
	a := newTestApp(t)
	a.loginLimiter = newLoginLimiter(2, time.Minute)
	tokenFor(t, a, "bob", RoleUser)

	good := map[string]string{"username": "bob", "password": "password1"}
	bad := map[string]string{"username": "bob", "password": "wrong"}

	for i := 0; i < 3; i++ {
		if rec := doJSON(t, a, http.MethodPost, "/auth/login", "", good); rec.Code != http.StatusOK {
			t.Fatalf("login %d: status = %d, body %s", i, rec.Code, rec.Body.String())
		}
	}
	for i := 0; i < 2; i++ {
		if rec := doJSON(t, a, http.MethodPost, "/auth/login", "", bad); rec.Code != http.StatusUnauthorized {
			t.Fatalf("bad login %d: status = %d", i, rec.Code)
		}
	}
	if rec := doJSON(t, a, http.MethodPost, "/auth/login", "", good); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status after max failures = %d, want 429", rec.Code)
	}
}

func TestDeletedUserTokenIsAnonymous(t *testing.T) {
	a := newTestApp(t)
	user, token := tokenFor(t, a, "bob", RoleUser)

	if err := a.store.DeleteUser(user.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	rec := doJSON(t, a, http.MethodGet, "/api/v1/profile", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("deleted account with live token: status = %d, want 401", rec.Code)
	}
}

func TestStoreFailureDuringAuthIsServerError(t *testing.T) {
	a := newTestApp(t)
	_, token := tokenFor(t, a, "bob", RoleUser)

	// A failing store must not demote the request to anonymous.
	if err := a.store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	rec := doJSON(t, a, http.MethodGet, "/api/v1/profile", token, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	a := newTestApp(t)
	tokenFor(t, a, "bob", RoleUser)

	rec := doJSON(t, a, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "bob",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAdminCannotChangeOwnRole(t *testing.T) {
	a := newTestApp(t)
	admin, token := tokenFor(t, a, "root", RoleAdmin)

	rec := doJSON(t, a, http.MethodPut, "/api/v1/admin/users/"+itoa(admin.ID)+"/role", token, map[string]string{"role": "user"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
	}

	got, err := a.store.GetUser(admin.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Role != RoleAdmin {
		t.Errorf("role = %q, want admin unchanged", got.Role)
	}
}

func TestAdminChangesOtherRole(t *testing.T) {
	a := newTestApp(t)
	_, adminToken := tokenFor(t, a, "root", RoleAdmin)
	other, _ := tokenFor(t, a, "bob", RoleUser)

	rec := doJSON(t, a, http.MethodPut, "/api/v1/admin/users/"+itoa(other.ID)+"/role", adminToken, map[string]string{"role": "admin"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got, err := a.store.GetUser(other.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got.Role != RoleAdmin {
		t.Errorf("role = %q, want admin", got.Role)
	}
}

func TestRoleEndpointsRequireAdmin(t *testing.T) {
	a := newTestApp(t)
	user, token := tokenFor(t, a, "bob", RoleUser)

	rec := doJSON(t, a, http.MethodGet, "/api/v1/admin/users", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("user listing as non-admin: status = %d, want 403", rec.Code)
	}
	rec = doJSON(t, a, http.MethodPut, "/api/v1/admin/users/"+itoa(user.ID)+"/role", "", map[string]string{"role": "admin"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous role change: status = %d, want 401", rec.Code)
	}
}

func TestPhotoTypeRejectsUnknownValue(t *testing.T) {
	a := newTestApp(t)
	_, token := tokenFor(t, a, "bob", RoleUser)
	e := mustCreateEvent(t, a.store, 2023)
	photo, err := a.store.CreatePhoto(Photo{EventID: e.ID, Filename: "turkey.jpg", Type: PhotoIndividual, ObjectKey: "k"})
	if err != nil {
		t.Fatalf("CreatePhoto failed: %v", err)
	}

	rec := doJSON(t, a, http.MethodPut, "/api/v1/photos/"+itoa(photo.ID)+"/type", token, map[string]string{"photo_type": "banner"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
	}

	got, err := a.store.GetPhoto(photo.ID)
	if err != nil {
		t.Fatalf("GetPhoto failed: %v", err)
	}
	if got.Type != PhotoIndividual {
		t.Errorf("stored type = %q, want individual unchanged", got.Type)
	}

	rec = doJSON(t, a, http.MethodPut, "/api/v1/photos/"+itoa(photo.ID)+"/type", token, map[string]string{"photo_type": "page"})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid type: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestJournalPageHydratesPhoto(t *testing.T) {
	a := newTestApp(t)
	_, token := tokenFor(t, a, "bob", RoleUser)

	e := mustCreateEvent(t, a.store, 2023)
	photo, err := a.store.CreatePhoto(Photo{EventID: e.ID, Filename: "turkey.jpg", Type: PhotoIndividual, ObjectKey: "obj-key"})
	if err != nil {
		t.Fatalf("CreatePhoto failed: %v", err)
	}
	page, err := a.store.CreateJournalPage(JournalPage{EventID: e.ID, Year: 2023, PageNumber: 1})
	if err != nil {
		t.Fatalf("CreateJournalPage failed: %v", err)
	}
	if _, err := a.store.CreateContentItem(JournalContentItem{
		PageID: page.ID, Type: ContentPhoto, ContentID: &photo.ID, DisplayOrder: 1, IsVisible: true,
	}); err != nil {
		t.Fatalf("CreateContentItem failed: %v", err)
	}

	rec := doJSON(t, a, http.MethodGet, "/api/v1/journal/pages/"+itoa(page.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var got JournalPage
	decodeJSON(t, rec, &got)
	if len(got.Items) != 1 {
		t.Fatalf("item count = %d, want 1", len(got.Items))
	}
	item := got.Items[0]
	if item.Photo == nil {
		t.Fatal("item.Photo should be hydrated")
	}
	if item.Photo.Filename != "turkey.jpg" {
		t.Errorf("hydrated filename = %q, want turkey.jpg", item.Photo.Filename)
	}
	if item.Photo.URL == "" {
		t.Error("hydrated photo should carry a signed URL")
	}
	if item.Missing {
		t.Error("item should not be marked missing")
	}
}

func TestJournalHydrationMarksDeletedReferenceMissing(t *testing.T) {
	a := newTestApp(t)
	_, token := tokenFor(t, a, "bob", RoleUser)

	e := mustCreateEvent(t, a.store, 2023)
	photo, err := a.store.CreatePhoto(Photo{EventID: e.ID, Filename: "p.jpg", Type: PhotoIndividual, ObjectKey: "k"})
	if err != nil {
		t.Fatalf("CreatePhoto failed: %v", err)
	}
	page, err := a.store.CreateJournalPage(JournalPage{EventID: e.ID, Year: 2023, PageNumber: 1})
	if err != nil {
		t.Fatalf("CreateJournalPage failed: %v", err)
	}
	if _, err := a.store.CreateContentItem(JournalContentItem{
		PageID: page.ID, Type: ContentPhoto, ContentID: &photo.ID, IsVisible: true,
	}); err != nil {
		t.Fatalf("CreateContentItem failed: %v", err)
	}

	// Delete the referenced photo out from under the journal item.
	if err := a.store.DeletePhoto(photo.ID); err != nil {
		t.Fatalf("DeletePhoto failed: %v", err)
	}

	rec := doJSON(t, a, http.MethodGet, "/api/v1/journal/pages/"+itoa(page.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got JournalPage
	decodeJSON(t, rec, &got)
	if len(got.Items) != 1 || !got.Items[0].Missing {
		t.Errorf("dangling reference should hydrate as missing, got %+v", got.Items)
	}
}

func TestReorderEndpointRoundTrip(t *testing.T) {
	a := newTestApp(t)
	_, token := tokenFor(t, a, "bob", RoleUser)

	e := mustCreateEvent(t, a.store, 2023)
	page, err := a.store.CreateJournalPage(JournalPage{EventID: e.ID, Year: 2023, PageNumber: 1})
	if err != nil {
		t.Fatalf("CreateJournalPage failed: %v", err)
	}
	first := mustCreateTextItem(t, a.store, page.ID, "first")
	second := mustCreateTextItem(t, a.store, page.ID, "second")

	rec := doJSON(t, a, http.MethodPut, "/api/v1/journal/pages/"+itoa(page.ID)+"/reorder", token, map[string]any{
		"items": []ItemOrder{
			{ItemID: second.ID, DisplayOrder: 1},
			{ItemID: first.ID, DisplayOrder: 2},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var items []JournalContentItem
	decodeJSON(t, rec, &items)
	if len(items) != 2 || items[0].ID != second.ID || items[1].ID != first.ID {
		t.Errorf("reorder response out of order: %+v", items)
	}
}

func TestUnpublishedJournalPageHiddenFromAnonymous(t *testing.T) {
	a := newTestApp(t)
	_, token := tokenFor(t, a, "bob", RoleUser)

	e := mustCreateEvent(t, a.store, 2023)
	page, err := a.store.CreateJournalPage(JournalPage{EventID: e.ID, Year: 2023, PageNumber: 1})
	if err != nil {
		t.Fatalf("CreateJournalPage failed: %v", err)
	}

	rec := doJSON(t, a, http.MethodGet, "/api/v1/journal/pages/"+itoa(page.ID), "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("anonymous fetch of unpublished page: status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, a, http.MethodGet, "/api/v1/journal/pages/"+itoa(page.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated fetch: status = %d, want 200", rec.Code)
	}
}

func TestContentItemEndpointValidatesType(t *testing.T) {
	a := newTestApp(t)
	_, token := tokenFor(t, a, "bob", RoleUser)

	e := mustCreateEvent(t, a.store, 2023)
	page, err := a.store.CreateJournalPage(JournalPage{EventID: e.ID, Year: 2023, PageNumber: 1})
	if err != nil {
		t.Fatalf("CreateJournalPage failed: %v", err)
	}

	rec := doJSON(t, a, http.MethodPost, "/api/v1/journal/pages/"+itoa(page.ID)+"/items", token, map[string]any{
		"content_type": "video",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown content_type: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, a, http.MethodPost, "/api/v1/journal/pages/"+itoa(page.ID)+"/items", token, map[string]any{
		"content_type": "blog", "content_id": 999,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("dangling reference: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, a, http.MethodPost, "/api/v1/journal/pages/"+itoa(page.ID)+"/items", token, map[string]any{
		"content_type": "heading", "custom_text": "Sides", "heading_level": 9,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("heading_level out of range: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, a, http.MethodPost, "/api/v1/journal/pages/"+itoa(page.ID)+"/items", token, map[string]any{
		"content_type": "heading", "custom_text": "Sides", "heading_level": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("valid heading: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, a, http.MethodPost, "/api/v1/journal/pages/"+itoa(page.ID)+"/items", token, map[string]any{
		"content_type": "text", "custom_text": "dup", "display_order": 1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("colliding display_order: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, a, http.MethodPost, "/api/v1/journal/pages/"+itoa(page.ID)+"/items", token, map[string]any{
		"content_type": "text", "custom_text": "neg", "display_order": -1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative display_order: status = %d, want 400", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
