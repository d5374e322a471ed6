package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/loader"
	"github.com/Zachkp/folio/internal/render"
	"github.com/Zachkp/folio/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func fixtureFS() fstest.MapFS {
	file := func(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }
	return fstest.MapFS{
		"profile.json":    file(`{"name":"Omar","title":"Game Developer","bio":"Builds games."}`),
		"skills.json":     file(`[{"title":"Engines","skills":[{"name":"Unity","level":90}]}]`),
		"experience.json": file(`[{"type":"work","title":"Lead","organization":"Studio"}]`),
		"education.json":  file(`[{"school":"Uni","degree":"BSc"}]`),
		"projects.json": file(`[
			{"id":"a","name":"Alpha","gallery":["/images/a1.png","/images/a2.png","/images/a3.png"],"filterTags":["Unity"],
			 "videos":["dQw4w9WgXcQ"]},
			{"id":"b","name":"Beta","image":"/images/b.png","filterTags":["Web"]},
			{"id":"c","name":"Gamma","filterTags":["Open Source"]}
		]`),
		"contact.json": file(`[{"label":"Email","icon":"mail","url":"mailto:me@example.com"}]`),
	}
}

func loadedHolder(t *testing.T) *loader.Holder {
	t.Helper()
	h := loader.NewHolder(loader.New(loader.FSFetcher{FS: fixtureFS()}))
	require.NoError(t, h.Reload(context.Background()))
	return h
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:  config.ServerConfig{Port: "0", StaticDir: t.TempDir(), ImagesDir: t.TempDir()},
		Content: config.ContentConfig{Dir: t.TempDir(), LoadTimeout: time.Second},
		View:    config.ViewConfig{RevealThreshold: 0.8, SessionTTL: time.Minute},
		Admin:   config.AdminConfig{Username: "admin", Password: "secret"},
	}
}

func newTestServer(t *testing.T, source ContentSource, mutate func(*Options)) *Server {
	t.Helper()
	r, err := render.New()
	require.NoError(t, err)
	opts := Options{Config: testConfig(t), Content: source, Renderer: r, Logger: zap.NewNop()}
	if mutate != nil {
		mutate(&opts)
	}
	srv, err := New(opts)
	require.NoError(t, err)
	return srv
}

// client replays cookies between requests like a browser tab.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
	header  http.Header
}

func newClient(t *testing.T, srv *Server) *client {
	return &client{t: t, handler: srv.Handler(), cookies: map[string]*http.Cookie{}, header: http.Header{}}
}

func (cl *client) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	cl.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range cl.header {
		req.Header[k] = v
	}
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	cl.handler.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(cl.cookies, c.Name)
			continue
		}
		cl.cookies[c.Name] = c
	}
	return w
}

func (cl *client) get(target string) *httptest.ResponseRecorder {
	return cl.do(http.MethodGet, target, "", "")
}

func (cl *client) post(target string) *httptest.ResponseRecorder {
	return cl.do(http.MethodPost, target, "", "")
}

func (cl *client) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	return cl.do(http.MethodPost, target, "application/x-www-form-urlencoded", form.Encode())
}

func parse(t *testing.T, w *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(w.Body.String()))
	require.NoError(t, err)
	return doc
}

func gen(t *testing.T, doc *goquery.Document, selector string) string {
	t.Helper()
	g, ok := doc.Find(selector).First().Attr("data-gen")
	require.True(t, ok, "no data-gen on %s", selector)
	require.NotEqual(t, "0", g)
	return g
}

func TestPageRendersEverySection(t *testing.T) {
	srv := newTestServer(t, loadedHolder(t), nil)
	cl := newClient(t, srv)

	w := cl.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, cl.cookies, sessionCookie)

	doc := parse(t, w)
	assert.Equal(t, "Omar | Game Developer", doc.Find("title").Text())
	assert.Equal(t, "loaded", doc.Find("body").AttrOr("data-state", ""))
	for _, name := range render.Sections {
		assert.Equal(t, 1, doc.Find("[data-section='"+string(name)+"']").Length(), name)
	}
	assert.Zero(t, doc.Find(".section-placeholder").Length())
	assert.Equal(t, 3, doc.Find("#section-projects .project-card").Length())
	assert.Equal(t, 0, doc.Find(".project-card.is-hidden").Length())
	_, hidden := doc.Find("#project-modal").Attr("hidden")
	assert.True(t, hidden)
}

func TestPagePlaceholdersBeforeLoad(t *testing.T) {
	h := loader.NewHolder(loader.New(loader.FSFetcher{FS: fixtureFS()}))
	srv := newTestServer(t, h, nil)
	cl := newClient(t, srv)

	w := cl.get("/")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	doc := parse(t, w)
	assert.Equal(t, len(render.Sections), doc.Find(".section-placeholder[data-state='loading']").Length())
	assert.Zero(t, doc.Find(".project-card").Length())

	assert.Equal(t, http.StatusServiceUnavailable, cl.get("/sections/projects").Code)
}

func TestFailTogetherRendersNothing(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	files := fixtureFS()
	delete(files, "projects.json")
	h := loader.NewHolder(loader.New(loader.FSFetcher{FS: files}, loader.WithLogger(zap.New(core))))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, 1, logs.Len(), "one logged error for the whole load")

	srv := newTestServer(t, h, nil)
	cl := newClient(t, srv)

	w := cl.get("/")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	doc := parse(t, w)
	assert.Zero(t, doc.Find(".project-card").Length(), "no project cards without projects.json")
	assert.Zero(t, doc.Find(".hero-name").Length(), "profile is not rendered either")
	assert.Equal(t, "failed", doc.Find("#section-projects").AttrOr("data-state", ""))

	assert.Equal(t, http.StatusServiceUnavailable, cl.get("/sections/profile").Code)
	assert.Equal(t, http.StatusServiceUnavailable, cl.post("/filter?tag=Web&gen=1").Code)

	w = cl.get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"failed"`)
}

func TestFilter(t *testing.T) {
	srv := newTestServer(t, loadedHolder(t), nil)
	cl := newClient(t, srv)
	filters := gen(t, parse(t, cl.get("/")), "#section-filters")

	w := cl.post("/filter?tag=Unity&gen=" + filters)
	require.Equal(t, http.StatusOK, w.Code)
	var res filterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Unity", res.Filter)
	visible := map[string]bool{}
	for _, v := range res.Visibility {
		visible[v.ID] = v.Visible
	}
	assert.Equal(t, map[string]bool{"a": true, "b": false, "c": false}, visible)

	doc := parse(t, cl.get("/sections/projects"))
	assert.Equal(t, 2, doc.Find(".project-card.is-hidden").Length(), "re-render keeps the active filter")
	assert.False(t, doc.Find("[data-project-id='a']").HasClass("is-hidden"))

	w = cl.post("/filter?tag=all&gen=" + filters)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"filter":"All"`)
}

func TestStaleBindingIsIgnored(t *testing.T) {
	srv := newTestServer(t, loadedHolder(t), nil)
	cl := newClient(t, srv)
	old := gen(t, parse(t, cl.get("/")), "#section-filters")
	current := gen(t, parse(t, cl.get("/sections/filters")), "#section-filters")
	require.NotEqual(t, old, current)

	assert.Equal(t, http.StatusConflict, cl.post("/filter?tag=Web&gen="+old).Code)
	assert.Equal(t, http.StatusOK, cl.post("/filter?tag=Web&gen="+current).Code)

	stranger := newClient(t, srv)
	assert.Equal(t, http.StatusConflict, stranger.post("/filter?tag=Web&gen="+current).Code,
		"a session that never rendered the page has no bindings")
	assert.Equal(t, http.StatusBadRequest, cl.post("/filter?tag=Web").Code)
}

func TestProjectModal(t *testing.T) {
	srv := newTestServer(t, loadedHolder(t), nil)
	cl := newClient(t, srv)
	cards := gen(t, parse(t, cl.get("/")), "#section-projects")

	w := cl.get("/projects/a?gen=" + cards)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "folio:modal-opened", w.Header().Get("HX-Trigger"))
	doc := parse(t, w)
	modal := doc.Find("#project-modal.is-active")
	require.Equal(t, 1, modal.Length())
	assert.Equal(t, "a", modal.AttrOr("data-project-id", ""))
	assert.Equal(t, 1, doc.Find(".video-embed iframe").Length())
	modalGen := gen(t, doc, "#project-modal")

	w = cl.post("/modal/carousel/next?gen=" + modalGen)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", parse(t, w).Find("#project-carousel").AttrOr("data-index", ""))
	w = cl.post("/modal/carousel/prev?gen=" + modalGen)
	w = cl.post("/modal/carousel/prev?gen=" + modalGen)
	assert.Equal(t, "2", parse(t, w).Find("#project-carousel").AttrOr("data-index", ""), "prev wraps to the last image")
	assert.Equal(t, http.StatusNotFound, cl.post("/modal/carousel/sideways?gen="+modalGen).Code)

	w = cl.get("/projects/b?gen=" + cards)
	require.Equal(t, http.StatusOK, w.Code, "opening another project switches directly")
	assert.Equal(t, "b", parse(t, w).Find("#project-modal").AttrOr("data-project-id", ""))
	assert.Equal(t, http.StatusConflict, cl.post("/modal/carousel/next?gen="+modalGen).Code,
		"controls of the replaced modal are stale")

	assert.Equal(t, http.StatusNoContent, cl.post("/modal/key?key=Enter").Code)
	w = cl.post("/modal/key?key=Escape")
	require.Equal(t, http.StatusOK, w.Code)
	_, hidden := parse(t, w).Find("#project-modal").Attr("hidden")
	assert.True(t, hidden)
	w = cl.post("/modal/key?key=Escape")
	require.Equal(t, http.StatusOK, w.Code, "escape while closed answers with the closed modal again")
	_, hidden = parse(t, w).Find("#project-modal").Attr("hidden")
	assert.True(t, hidden)

	w = cl.get("/projects/a?gen=" + cards)
	require.Equal(t, http.StatusOK, w.Code)
	doc = parse(t, w)
	assert.Equal(t, "0", doc.Find("#project-carousel").AttrOr("data-index", ""), "carousel resets on open")
	reopened := gen(t, doc, "#project-modal")
	w = cl.post("/modal/close?reason=backdrop&gen=" + reopened)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "folio:modal-closed", w.Header().Get("HX-Trigger"))
	assert.Equal(t, http.StatusOK, cl.post("/modal/close?gen="+reopened).Code, "closing twice is harmless")
}

func closedModal(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "folio:modal-closed", w.Header().Get("HX-Trigger"))
	_, hidden := parse(t, w).Find("#project-modal").Attr("hidden")
	assert.True(t, hidden)
}

func TestModalClosesAfterAnotherTabResets(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	srv := newTestServer(t, loadedHolder(t), func(o *Options) { o.Logger = zap.New(core) })
	tabA := newClient(t, srv)
	cards := gen(t, parse(t, tabA.get("/")), "#section-projects")
	w := tabA.get("/projects/a?gen=" + cards)
	require.Equal(t, http.StatusOK, w.Code)
	modalGen := gen(t, parse(t, w), "#project-modal")

	tabB := newClient(t, srv)
	tabB.cookies = tabA.cookies
	require.Equal(t, http.StatusOK, tabB.get("/").Code)
	assert.Equal(t, 1, logs.FilterMessage("Stopping project media").Len(), "the reset stops the open project")

	closedModal(t, tabA.post("/modal/close?gen="+modalGen))
	closedModal(t, tabA.post("/modal/close?reason=backdrop&gen="+modalGen))
	closedModal(t, tabA.post("/modal/key?key=Escape"))
	assert.Equal(t, 1, logs.FilterMessage("Stopping project media").Len())
}

func TestModalClosesAfterContentReload(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := loadedHolder(t)
	srv := newTestServer(t, h, func(o *Options) { o.Logger = zap.New(core) })
	cl := newClient(t, srv)
	cards := gen(t, parse(t, cl.get("/")), "#section-projects")
	w := cl.get("/projects/a?gen=" + cards)
	require.Equal(t, http.StatusOK, w.Code)
	modalGen := gen(t, parse(t, w), "#project-modal")

	require.NoError(t, h.Reload(context.Background()))

	closedModal(t, cl.post("/modal/close?gen="+modalGen))
	assert.Equal(t, 1, logs.FilterMessage("Stopping project media").Len(), "the replaced controller stops the open project")
	closedModal(t, cl.post("/modal/key?key=Escape"))
	assert.Equal(t, http.StatusConflict, cl.post("/filter?tag=Web&gen="+cards).Code, "other controls still need fresh markup")
}

func TestSessionCookieSlides(t *testing.T) {
	srv := newTestServer(t, loadedHolder(t), nil)
	cl := newClient(t, srv)

	sessionCookieOf := func(w *httptest.ResponseRecorder) *http.Cookie {
		t.Helper()
		for _, c := range w.Result().Cookies() {
			if c.Name == sessionCookie {
				return c
			}
		}
		t.Fatalf("response carries no %s cookie", sessionCookie)
		return nil
	}

	w := cl.get("/")
	first := sessionCookieOf(w)
	assert.Equal(t, 60, first.MaxAge)
	filters := gen(t, parse(t, w), "#section-filters")

	for _, w := range []*httptest.ResponseRecorder{
		cl.post("/filter?tag=Web&gen=" + filters),
		cl.post("/modal/key?key=Enter"),
		cl.get("/sections/skills"),
	} {
		c := sessionCookieOf(w)
		assert.Equal(t, first.Value, c.Value)
		assert.Equal(t, 60, c.MaxAge, "every request extends the cookie")
	}
}

func TestUnknownProjectIsIgnored(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	srv := newTestServer(t, loadedHolder(t), func(o *Options) { o.Logger = zap.New(core) })
	cl := newClient(t, srv)
	cards := gen(t, parse(t, cl.get("/")), "#section-projects")

	w := cl.get("/projects/zzz?gen=" + cards)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	closedModal(t, cl.post("/modal/key?key=Escape"))
	assert.Zero(t, logs.FilterMessage("Stopping project media").Len(), "no modal was ever opened")
}

func TestUnknownSection(t *testing.T) {
	srv := newTestServer(t, loadedHolder(t), nil)
	assert.Equal(t, http.StatusNotFound, newClient(t, srv).get("/sections/sidebar").Code)
}

func TestReveal(t *testing.T) {
	srv := newTestServer(t, loadedHolder(t), nil)
	cl := newClient(t, srv)
	cl.get("/")

	w := cl.do(http.MethodPost, "/reveal", "application/json",
		`{"viewport":1000,"tops":{"projects-0":100,"projects-1":900,"profile-0":0}}`)
	require.Equal(t, http.StatusOK, w.Code)
	var res revealResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Reveals, 2)
	assert.Equal(t, "profile-0", res.Reveals[0].ID)
	assert.Equal(t, "projects-0", res.Reveals[1].ID)

	w = cl.do(http.MethodPost, "/reveal", "application/json", `{"viewport":1000,"tops":{"projects-0":100}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reveals":[]}`, w.Body.String(), "one-shot reveals do not replay")

	w = cl.do(http.MethodPost, "/reveal", "application/json", `{"viewport":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, loadedHolder(t), nil)
	cl := newClient(t, srv)

	w := cl.get("/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"loaded","version":1,"projects":3}`, w.Body.String())

	w = cl.get("/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "folio_http_request_duration_seconds")
}

func TestRawData(t *testing.T) {
	srv := newTestServer(t, loadedHolder(t), nil)
	dir := srv.cfg.Content.Dir
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profile.json"), []byte(`{"name":"Omar"}`), 0o644))

	w := newClient(t, srv).get("/data/profile.json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"name":"Omar"}`, w.Body.String())
}

type fakeMailer struct {
	sent []ContactMessage
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg ContactMessage) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func TestContactForm(t *testing.T) {
	mailer := &fakeMailer{}
	srv := newTestServer(t, loadedHolder(t), func(o *Options) { o.Mailer = mailer })
	cl := newClient(t, srv)

	doc := parse(t, cl.get("/contact-form"))
	assert.Equal(t, 1, doc.Find("form.contact-form input[name='fullName']").Length())

	w := cl.postForm("/contact", url.Values{"fullName": {"Ann"}, "email": {"ann@example.com"}, "message": {"Hi"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thank you for your message")
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, ContactMessage{Name: "Ann", Email: "ann@example.com", Message: "Hi"}, mailer.sent[0])

	w = cl.postForm("/contact", url.Values{"fullName": {"Ann"}, "email": {"not-an-email"}, "message": {"Hi"}})
	assert.Contains(t, w.Body.String(), "valid email address")
	assert.Len(t, mailer.sent, 1)
}

func TestContactWithoutMailer(t *testing.T) {
	srv := newTestServer(t, loadedHolder(t), nil)
	w := newClient(t, srv).postForm("/contact", url.Values{"fullName": {"Ann"}, "email": {"ann@example.com"}, "message": {"Hi"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "error sending your message")
}

func TestAdminDashboard(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	defer st.Close()
	rec := store.NewRecorder(st, zap.NewNop(), 1)

	srv := newTestServer(t, loadedHolder(t), func(o *Options) {
		o.Store = st
		o.Recorder = rec
	})

	visitor := newClient(t, srv)
	doc := parse(t, visitor.get("/"))
	cards := gen(t, doc, "#section-projects")
	filters := gen(t, doc, "#section-filters")
	require.Equal(t, http.StatusOK, visitor.get("/projects/a?gen="+cards).Code)
	require.Equal(t, http.StatusOK, visitor.post("/filter?tag=Web&gen="+filters).Code)

	private := newClient(t, srv)
	private.header.Set("DNT", "1")
	private.get("/")
	rec.Close()

	admin := newClient(t, srv)
	w := admin.get("/admin/dashboard")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))

	w = admin.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = admin.postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	require.Equal(t, http.StatusFound, w.Code)
	require.Contains(t, admin.cookies, adminCookie)

	w = admin.get("/admin/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats store.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats.TotalVisitors, "only the tracked page view counts")
	assert.Equal(t, int64(1), stats.ModalOpens)
	assert.Equal(t, int64(1), stats.FilterSelections)
	assert.Equal(t, []store.Count{{Key: "a", Count: 1}}, stats.TopProjects)

	w = admin.get("/admin/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, parse(t, w).Find("#top-projects tr").Length())

	w = admin.get("/admin/export/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "admin-stats.json")

	admin.get("/admin/logout")
	assert.NotContains(t, admin.cookies, adminCookie)
	assert.Equal(t, http.StatusFound, admin.get("/admin/dashboard").Code)
}

func TestAdminClosedWithoutPassword(t *testing.T) {
	srv := newTestServer(t, loadedHolder(t), func(o *Options) { o.Config.Admin.Password = "" })
	w := newClient(t, srv).postForm("/admin/login", url.Values{"username": {"admin"}, "password": {""}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWriteStatic(t *testing.T) {
	r, err := render.New()
	require.NoError(t, err)
	h := loadedHolder(t)
	state, _ := h.Current()
	m, ok := content.ModelOf(state)
	require.True(t, ok)

	var buf strings.Builder
	require.NoError(t, WriteStatic(&buf, r, m, 0.8))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, 3, doc.Find(".project-card").Length())
	doc.Find("[data-gen]").Each(func(_ int, s *goquery.Selection) {
		assert.Equal(t, "0", s.AttrOr("data-gen", ""))
	})
}
