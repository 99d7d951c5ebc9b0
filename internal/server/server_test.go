package server

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"regportal/internal/app"
	"regportal/internal/storage"
	"regportal/internal/store"
)

type testEnv struct {
	srv      *httptest.Server
	client   *http.Client
	store    *store.MemoryStore
	sessions *store.MemorySessionStore
	cookie   *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := store.NewMemoryStore()
	sessions := store.NewMemorySessionStore(time.Hour)
	files, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	appCore, err := app.New(app.Config{
		Store:    mem,
		Sessions: sessions,
		Files:    files,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	httpServer, err := New(Config{
		App:        appCore,
		SessionTTL: time.Hour,
		UploadDir:  files.BasePath(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(httpServer.Router())
	t.Cleanup(srv.Close)
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{srv: srv, client: client, store: mem, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "session_token" {
			if c.MaxAge < 0 {
				e.cookie = nil
			} else {
				e.cookie = c
			}
		}
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+path, nil)
	return e.do(t, req)
}

func (e *testEnv) postForm(t *testing.T, path string, values url.Values) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(t, req)
}

func (e *testEnv) signUp(t *testing.T, email string) {
	t.Helper()
	resp := e.postForm(t, "/signup", url.Values{
		"email":           {email},
		"password":        {"secret1"},
		"confirmPassword": {"secret1"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("signup expected redirect, got %d", resp.StatusCode)
	}
	if e.cookie == nil {
		t.Fatalf("signup must set a session cookie")
	}
}

func applicationFields() map[string]string {
	return map[string]string{
		"fullName":    "Asha Verma",
		"fatherName":  "Ram Verma",
		"dob":         "1999-01-15",
		"gender":      "female",
		"category":    "general",
		"mobile":      "9876543210",
		"email":       "asha@example.com",
		"graduation":  "B.Sc",
		"percentage":  "81.5",
		"passingYear": "2021",
	}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for field, filename := range files {
		fw, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create file part %s: %v", field, err)
		}
		if _, err := fw.Write([]byte("imagebytes")); err != nil {
			t.Fatalf("write file part %s: %v", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) postMultipart(t *testing.T, path string, fields map[string]string, files map[string]string) *http.Response {
	t.Helper()
	body, contentType := multipartBody(t, fields, files)
	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+path, body)
	req.Header.Set("Content-Type", contentType)
	return e.do(t, req)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

func TestSignupShortPasswordRejected(t *testing.T) {
	e := newTestEnv(t)
	resp := e.postForm(t, "/signup", url.Values{
		"email":           {"a@example.com"},
		"password":        {"abc12"},
		"confirmPassword": {"abc12"},
	})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", resp.StatusCode, body)
	}
	if has, _ := e.store.HasUserEmail("a@example.com"); has {
		t.Fatalf("no user may be created on rejected signup")
	}
}

func TestLoginBadCredentials(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "u@example.com")

	resp := e.postForm(t, "/login", url.Values{
		"email":    {"u@example.com"},
		"password": {"wrongpass"},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp = e.postForm(t, "/login", url.Values{"email": {"u@example.com"}})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing fields expected 400, got %d", resp.StatusCode)
	}
}

func TestGatedRouteRedirectsToLogin(t *testing.T) {
	e := newTestEnv(t)
	resp := e.get(t, "/apply")
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
}

func TestSessionExpiryRedirectsMidBrowsing(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "u@example.com")

	resp := e.get(t, "/apply")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("fresh session expected 200, got %d", resp.StatusCode)
	}

	e.sessions.Advance(2 * time.Hour)

	resp = e.get(t, "/apply")
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expired session expected login redirect, got %d -> %q",
			resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestApplyAndAdmitCardFlow(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "u@example.com")

	resp := e.postMultipart(t, "/apply", applicationFields(), map[string]string{
		"photo":     "photo.jpg",
		"signature": "sig.jpg",
	})
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply expected 200, got %d (%s)", resp.StatusCode, body)
	}
	if !strings.Contains(body, "GOV") {
		t.Fatalf("success page must show the registration ID")
	}

	page, _ := e.store.ListApplications("", 1, 5)
	if len(page.Items) != 1 {
		t.Fatalf("expected one stored application, got %d", len(page.Items))
	}
	regID := page.Items[0].RegistrationID

	resp = e.get(t, "/admitcard/"+regID)
	body = readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admit card expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, regID) || !strings.Contains(body, "Asha Verma") {
		t.Fatalf("admit card missing applicant details")
	}
}

func TestApplyMissingSignature(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "u@example.com")

	resp := e.postMultipart(t, "/apply", applicationFields(), map[string]string{
		"photo": "photo.jpg",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	page, _ := e.store.ListApplications("", 1, 5)
	if len(page.Items) != 0 {
		t.Fatalf("no record may exist after a rejected submission")
	}
}

func TestAdmitCardMissRendersNotFoundPage(t *testing.T) {
	e := newTestEnv(t)
	resp := e.get(t, "/admitcard/GOVXYZ")
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("miss renders as a page, expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Application Not Found") {
		t.Fatalf("expected not-found message, got: %s", body)
	}
}

func TestEditPreservesImagesWithoutNewUpload(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "u@example.com")

	resp := e.postMultipart(t, "/apply", applicationFields(), map[string]string{
		"photo":     "photo.jpg",
		"signature": "sig.jpg",
	})
	readBody(t, resp)
	page, _ := e.store.ListApplications("", 1, 5)
	created := page.Items[0]

	fields := applicationFields()
	fields["fullName"] = "Asha Sharma"
	resp = e.postMultipart(t, "/edit/"+created.ID, fields, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("edit expected redirect, got %d", resp.StatusCode)
	}

	updated, ok, _ := e.store.GetApplication(created.ID)
	if !ok {
		t.Fatalf("record vanished after edit")
	}
	if updated.FullName != "Asha Sharma" {
		t.Fatalf("edit did not overwrite fields: %+v", updated)
	}
	if updated.PhotoRef != created.PhotoRef || updated.SignatureRef != created.SignatureRef {
		t.Fatalf("image references must be preserved without new uploads")
	}
}

func TestEditReplacesImageWithNewUpload(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "u@example.com")

	resp := e.postMultipart(t, "/apply", applicationFields(), map[string]string{
		"photo":     "old.jpg",
		"signature": "sig.jpg",
	})
	readBody(t, resp)
	page, _ := e.store.ListApplications("", 1, 5)
	created := page.Items[0]

	resp = e.postMultipart(t, "/edit/"+created.ID, applicationFields(), map[string]string{
		"photo": "new.jpg",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("edit expected redirect, got %d", resp.StatusCode)
	}
	updated, _, _ := e.store.GetApplication(created.ID)
	if updated.PhotoRef == created.PhotoRef {
		t.Fatalf("expected new photo reference after re-upload")
	}
	if updated.SignatureRef != created.SignatureRef {
		t.Fatalf("signature must survive a photo-only edit")
	}
}

func TestDeleteTwice(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "u@example.com")

	resp := e.postMultipart(t, "/apply", applicationFields(), map[string]string{
		"photo":     "photo.jpg",
		"signature": "sig.jpg",
	})
	readBody(t, resp)
	page, _ := e.store.ListApplications("", 1, 5)
	created := page.Items[0]

	resp = e.postForm(t, "/delete/"+created.ID, url.Values{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("first delete expected redirect, got %d", resp.StatusCode)
	}
	resp = e.postForm(t, "/delete/"+created.ID, url.Values{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete expected 404, got %d", resp.StatusCode)
	}
}

func TestListingSearchAndPagination(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "u@example.com")

	names := []string{"Asha Verma", "Rohit Sharma", "ashish kumar", "Meena Rao", "Prakash Jha", "Priya Nair"}
	for _, name := range names {
		fields := applicationFields()
		fields["fullName"] = name
		resp := e.postMultipart(t, "/apply", fields, map[string]string{
			"photo":     "p.jpg",
			"signature": "s.jpg",
		})
		readBody(t, resp)
	}

	resp := e.get(t, "/?search=ash")
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search expected 200, got %d", resp.StatusCode)
	}
	for _, want := range []string{"Asha Verma", "ashish kumar", "Prakash Jha"} {
		if !strings.Contains(body, want) {
			t.Fatalf("search result missing %q", want)
		}
	}
	if strings.Contains(body, "Rohit Sharma") {
		t.Fatalf("search result must exclude non-matching names")
	}

	resp = e.get(t, "/?page=2")
	body = readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("page 2 expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Priya Nair") {
		t.Fatalf("page 2 should hold the sixth record")
	}

	// Out-of-range page renders an empty listing, not an error.
	resp = e.get(t, "/?page=99")
	body = readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "No applications found") {
		t.Fatalf("out-of-range page should render empty, got %d", resp.StatusCode)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "u@example.com")

	resp := e.get(t, "/logout")
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("logout expected redirect, got %d", resp.StatusCode)
	}
	resp = e.get(t, "/apply")
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("gated route after logout should redirect to login")
	}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	resp := e.get(t, "/healthz")
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "ok") {
		t.Fatalf("healthz: %d %q", resp.StatusCode, body)
	}
}

func TestUploadedFileServedLocally(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "u@example.com")

	resp := e.postMultipart(t, "/apply", applicationFields(), map[string]string{
		"photo":     "photo.jpg",
		"signature": "sig.jpg",
	})
	readBody(t, resp)
	page, _ := e.store.ListApplications("", 1, 5)
	ref := page.Items[0].PhotoRef

	resp = e.get(t, ref)
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || body != "imagebytes" {
		t.Fatalf("stored reference %q not servable: %d %q", ref, resp.StatusCode, body)
	}
}
