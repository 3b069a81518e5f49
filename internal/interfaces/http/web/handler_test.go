package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sngm3741/delicious-stores/api/internal/directory/application"
	"github.com/sngm3741/delicious-stores/api/internal/infrastructure/memory"
	"github.com/sngm3741/delicious-stores/api/internal/interfaces/http/common"
	"github.com/sngm3741/delicious-stores/api/internal/interfaces/http/web"
	"github.com/sngm3741/delicious-stores/api/internal/validation"
)

type outbox struct {
	mu   sync.Mutex
	sent []application.MailMessage
}

func (o *outbox) Send(_ context.Context, msg application.MailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) last(t *testing.T) application.MailMessage {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	return o.sent[len(o.sent)-1]
}

type counter struct {
	mu      sync.Mutex
	created int
	hearts  map[bool]int
	resets  int
}

func (c *counter) StoreCreated() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created++
}

func (c *counter) HeartToggled(hearted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hearts[hearted]++
}

func (c *counter) ResetRequested() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
}

func (c *counter) snapshot() (created int, hearts map[bool]int, resets int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hearts = make(map[bool]int, len(c.hearts))
	for k, v := range c.hearts {
		hearts[k] = v
	}
	return c.created, hearts, c.resets
}

type harness struct {
	server   *httptest.Server
	mail     *outbox
	recorder *counter
}

func newHarness(t *testing.T, throttle func(http.Handler) http.Handler) *harness {
	t.Helper()
	db := memory.NewDB()
	validate := validation.New()
	mail := &outbox{}
	recorder := &counter{hearts: make(map[bool]int)}
	secret := []byte("handler-test-secret")

	handler := web.NewHandler(web.Config{
		Logger:        zap.NewNop(),
		Stores:        application.NewStoreService(db.Stores(), db.Reviews(), db.Users(), nil, validate, application.StoreOptions{}),
		Accounts:      application.NewAccountService(db.Users(), db.Stores(), validate, bcrypt.MinCost),
		Resets:        application.NewPasswordResetService(db.Users(), mail, validate, 0, bcrypt.MinCost),
		Reviews:       application.NewReviewService(db.Reviews(), db.Stores(), validate),
		Sessions:      common.NewSessions(common.SessionConfig{Secret: secret, Issuer: "test"}),
		Flashes:       common.NewFlashStore(secret, false),
		Recorder:      recorder,
		PublicBaseURL: "http://delicious.test/",
	})
	router := chi.NewRouter()
	handler.Register(router, throttle)
	router.NotFound(web.NotFound(zap.NewNop()))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &harness{server: server, mail: mail, recorder: recorder}
}

// browser is a client that keeps cookies and does not follow redirects.
type browser struct {
	t      *testing.T
	h      *harness
	client *http.Client
}

func (h *harness) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, h: h, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

type response struct {
	status   int
	location string
	body     []byte
}

func (r response) json(t *testing.T) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(r.body, &payload), string(r.body))
	return payload
}

func (b *browser) do(method, path string, body any, headers ...string) response {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.h.server.URL+path, reader)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	res, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer res.Body.Close()
	raw, err := io.ReadAll(res.Body)
	require.NoError(b.t, err)
	return response{status: res.StatusCode, location: res.Header.Get("Location"), body: raw}
}

func (b *browser) get(path string) response { return b.do(http.MethodGet, path, nil) }

func (b *browser) post(path string, body any) response { return b.do(http.MethodPost, path, body) }

func (b *browser) register(name, email string) {
	b.t.Helper()
	res := b.post("/register", map[string]string{
		"name": name, "email": email, "password": "secret", "password-confirm": "secret",
	})
	require.Equal(b.t, http.StatusSeeOther, res.status, string(res.body))
	require.Equal(b.t, "/", res.location)
}

func (b *browser) createStore(name string, tags ...string) response {
	b.t.Helper()
	return b.post("/add", map[string]any{
		"name":        name,
		"description": "Tasty " + name,
		"tags":        tags,
		"location": map[string]any{
			"address":     "123 King St W, Hamilton",
			"coordinates": []float64{-79.8711, 43.2557},
		},
	})
}

func flashes(t *testing.T, payload map[string]any, kind string) []string {
	t.Helper()
	all, ok := payload["flashes"].(map[string]any)
	require.True(t, ok, "flashes missing: %v", payload)
	raw, _ := all[kind].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, v.(string))
	}
	return out
}

func storeID(t *testing.T, b *browser, slug string) string {
	t.Helper()
	res := b.get("/store/" + slug)
	require.Equal(t, http.StatusOK, res.status)
	return res.json(t)["store"].(map[string]any)["id"].(string)
}

func TestRegisterLogsInAndFlashesOnce(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)
	b.register("Wes", "wes@example.com")

	home := b.get("/").json(t)
	assert.Equal(t, "Stores", home["title"])
	assert.Equal(t, []string{"Login Success"}, flashes(t, home, common.FlashSuccess))
	user := home["user"].(map[string]any)
	assert.Equal(t, "wes@example.com", user["email"])
	assert.Contains(t, user["gravatar"], "https://www.gravatar.com/avatar/")

	again := b.get("/").json(t)
	assert.Empty(t, flashes(t, again, common.FlashSuccess))
}

func TestRegisterFailureRendersForm(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	res := b.post("/register", map[string]string{
		"name": "Wes", "email": "not-an-email", "password": "a", "password-confirm": "b",
	})
	require.Equal(t, http.StatusBadRequest, res.status)
	payload := res.json(t)
	assert.Equal(t, "Register", payload["title"])
	assert.Equal(t, []string{"That email is not valid.", "Passwords do not match."}, flashes(t, payload, common.FlashError))
	assert.Equal(t, map[string]any{"name": "Wes", "email": "not-an-email"}, payload["body"])
	assert.Nil(t, payload["user"])

	b.register("Wes", "wes@example.com")
	other := h.browser(t)
	res = other.post("/register", map[string]string{
		"name": "Imposter", "email": "WES@example.com", "password": "x", "password-confirm": "x",
	})
	require.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, []string{"That email address is already registered."}, flashes(t, res.json(t), common.FlashError))
}

func TestLoginAndLogout(t *testing.T) {
	h := newHarness(t, nil)
	h.browser(t).register("Wes", "wes@example.com")
	b := h.browser(t)

	res := b.post("/login", map[string]string{"email": "wes@example.com", "password": "nope"})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", res.location)
	assert.Equal(t, []string{"Login Failed"}, flashes(t, b.get("/login").json(t), common.FlashError))

	res = b.post("/login", map[string]string{"email": "wes@example.com", "password": "secret"})
	assert.Equal(t, "/", res.location)
	assert.NotNil(t, b.get("/account").json(t)["user"])

	res = b.get("/logout")
	assert.Equal(t, "/", res.location)
	home := b.get("/").json(t)
	assert.Nil(t, home["user"])
	assert.Equal(t, []string{"You are now logged out"}, flashes(t, home, common.FlashSuccess))
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	for _, path := range []string{"/add", "/account", "/hearts"} {
		res := b.get(path)
		assert.Equal(t, http.StatusSeeOther, res.status, path)
		assert.Equal(t, "/login", res.location, path)
	}
	assert.Equal(t, []string{"Please log in."}, flashes(t, b.get("/login").json(t), common.FlashError))

	res := b.post("/api/stores/abc/heart", nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.JSONEq(t, `{"error":"You must be logged in to do that."}`, string(res.body))
}

func TestCreateAndUpdateStore(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)
	b.register("Wes", "wes@example.com")

	res := b.createStore("Cafe", "Wifi")
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/store/cafe", res.location)

	res = b.createStore("Cafe")
	assert.Equal(t, "/store/cafe-1", res.location)
	created, _, _ := h.recorder.snapshot()
	assert.Equal(t, 2, created)

	page := b.get("/store/cafe-1").json(t)
	assert.Equal(t, []string{"Successfully Created Cafe. Care to leave a review?"}, flashes(t, page, common.FlashSuccess))
	assert.Equal(t, "cafe-1", page["store"].(map[string]any)["slug"])

	id := storeID(t, b, "cafe")
	edit := b.get("/stores/" + id + "/edit")
	require.Equal(t, http.StatusOK, edit.status)
	assert.Equal(t, "Edit Cafe", edit.json(t)["title"])

	res = b.post("/add/"+id, map[string]any{
		"name": "Bakery",
		"location": map[string]any{
			"address":     "1 Main St",
			"coordinates": []float64{-79.9, 43.3},
		},
	})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/stores/"+id+"/edit", res.location)
	assert.Equal(t, []string{"Successfully updated Bakery. View it at /store/bakery"},
		flashes(t, b.get(res.location).json(t), common.FlashSuccess))
	assert.Equal(t, http.StatusNotFound, b.get("/store/cafe").status)
}

func TestCreateStoreValidationRedirectsBack(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)
	b.register("Wes", "wes@example.com")

	res := b.post("/add", map[string]any{"name": ""})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/add", res.location)
	assert.Equal(t, []string{
		"Please enter a store name",
		"You must supply coordinates!",
		"You must supply an address!",
	}, flashes(t, b.get("/add").json(t), common.FlashError))

	res = b.do(http.MethodPost, "/add", map[string]any{"name": ""}, "Referer", h.server.URL+"/add?draft=1")
	assert.Equal(t, "/add?draft=1", res.location)

	res = b.do(http.MethodPost, "/add", map[string]any{"name": ""}, "Referer", "https://evil.example/phish")
	assert.Equal(t, "/add", res.location)
}

func TestEditingSomeoneElsesStoreIsForbidden(t *testing.T) {
	h := newHarness(t, nil)
	owner := h.browser(t)
	owner.register("Wes", "wes@example.com")
	owner.createStore("Cafe")
	id := storeID(t, owner, "cafe")

	intruder := h.browser(t)
	intruder.register("Debbie", "debbie@example.com")

	res := intruder.get("/stores/" + id + "/edit")
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.JSONEq(t, `{"error":"You must own a store in order to edit it!"}`, string(res.body))

	res = intruder.post("/add/"+id, map[string]any{"name": "Mine now"})
	assert.Equal(t, http.StatusForbidden, res.status)

	assert.Equal(t, http.StatusNotFound, intruder.get("/stores/not-an-id/edit").status)
}

func TestPaginationRedirectsPastLastPage(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)
	b.register("Wes", "wes@example.com")
	for _, name := range []string{"One", "Two", "Three", "Four", "Five"} {
		b.createStore(name)
	}

	first := b.get("/stores").json(t)
	assert.Len(t, first["stores"], 4)
	assert.EqualValues(t, 2, first["pages"])
	assert.EqualValues(t, 5, first["count"])

	res := b.get("/stores/page/9")
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/stores/page/2", res.location)
	last := b.get(res.location).json(t)
	assert.Len(t, last["stores"], 1)
	assert.Equal(t, []string{"Hey! You asked for page 9. But that doesn't exist. So I put you on page 2"},
		flashes(t, last, common.FlashInfo))

	huge := b.get("/stores/page/9223372036854775807")
	assert.Equal(t, http.StatusSeeOther, huge.status)
	assert.Equal(t, "/stores/page/2", huge.location)
}

func TestTagsAndTopStores(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)
	b.register("Wes", "wes@example.com")
	b.createStore("Cafe", "Wifi", "Licensed")
	b.createStore("Pub", "Licensed")
	b.createStore("Diner")

	tags := b.get("/tags").json(t)
	assert.Equal(t, []any{
		map[string]any{"tag": "Licensed", "count": float64(2)},
		map[string]any{"tag": "Wifi", "count": float64(1)},
	}, tags["tags"])
	assert.Len(t, tags["stores"], 3)

	licensed := b.get("/tags/Licensed").json(t)
	assert.Equal(t, "Licensed", licensed["tag"])
	assert.Len(t, licensed["stores"], 2)

	cafe := storeID(t, b, "cafe")
	pub := storeID(t, b, "pub")
	for _, rv := range []struct {
		id     string
		rating int
	}{{cafe, 5}, {cafe, 4}, {pub, 5}} {
		res := b.post("/reviews/"+rv.id, map[string]any{"text": "Nice", "rating": rv.rating})
		require.Equal(t, http.StatusSeeOther, res.status)
		assert.Equal(t, "/stores", res.location)
	}

	top := b.get("/top").json(t)
	assert.Equal(t, "★ Top Stores!", top["title"])
	stores := top["stores"].([]any)
	require.Len(t, stores, 1)
	assert.Equal(t, "cafe", stores[0].(map[string]any)["slug"])
	assert.EqualValues(t, 4.5, stores[0].(map[string]any)["averageRating"])

	detail := b.get("/store/cafe").json(t)
	assert.Len(t, detail["reviews"], 2)

	res := b.post("/reviews/"+cafe, map[string]any{"text": "", "rating": 9})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, []string{"Your review must have text!", "Rating must be between 1 and 5."},
		flashes(t, b.get("/stores").json(t), common.FlashError))
}

func TestHeartToggleAPI(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)
	b.register("Wes", "wes@example.com")
	b.createStore("Cafe")
	id := storeID(t, b, "cafe")

	res := b.post("/api/stores/"+id+"/heart", nil)
	require.Equal(t, http.StatusOK, res.status)
	payload := res.json(t)
	assert.Equal(t, true, payload["hearted"])
	assert.Equal(t, []any{id}, payload["hearts"])

	hearted := b.get("/hearts").json(t)
	assert.Len(t, hearted["stores"], 1)

	payload = b.post("/api/stores/"+id+"/heart", nil).json(t)
	assert.Equal(t, false, payload["hearted"])
	assert.Empty(t, payload["hearts"])
	_, hearts, _ := h.recorder.snapshot()
	assert.Equal(t, map[bool]int{true: 1, false: 1}, hearts)

	assert.Equal(t, http.StatusNotFound, b.post("/api/stores/missing/heart", nil).status)
}

func TestSearchAndNearAPI(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)
	b.register("Wes", "wes@example.com")
	b.createStore("Coffee Corner")
	b.createStore("Tea House")

	var found []map[string]any
	require.NoError(t, json.Unmarshal(b.get("/api/search?q=coffee").body, &found))
	require.Len(t, found, 1)
	assert.Equal(t, "Coffee Corner", found[0]["name"])

	var near []map[string]any
	require.NoError(t, json.Unmarshal(b.get("/api/stores/near?lat=43.25&lng=-79.87").body, &near))
	assert.Len(t, near, 2)

	res := b.get("/api/stores/near?lat=43.25")
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t, nil)
	h.browser(t).register("Wes", "wes@example.com")
	b := h.browser(t)

	res := b.post("/account/forgot", map[string]string{"email": "wes@example.com"})
	assert.Equal(t, "/login", res.location)
	assert.Equal(t, []string{"You have been emailed a password link."}, flashes(t, b.get("/login").json(t), common.FlashSuccess))
	_, _, resets := h.recorder.snapshot()
	assert.Equal(t, 1, resets)

	msg := h.mail.last(t)
	resetURL := msg.Data["ResetURL"].(string)
	require.True(t, strings.HasPrefix(resetURL, "http://delicious.test/account/reset/"), resetURL)
	path := strings.TrimPrefix(resetURL, "http://delicious.test")

	form := b.get(path)
	require.Equal(t, http.StatusOK, form.status)
	assert.Equal(t, "Reset your password", form.json(t)["title"])

	res = b.post(path, map[string]string{"password": "new", "password-confirm": "typo"})
	assert.Equal(t, path, res.location)
	assert.Equal(t, []string{"Passwords do not match."}, flashes(t, b.get(path).json(t), common.FlashError))

	res = b.post(path, map[string]string{"password": "new", "password-confirm": "new"})
	assert.Equal(t, "/", res.location)
	home := b.get("/").json(t)
	assert.NotNil(t, home["user"])
	assert.Equal(t, []string{"Your password has been reset."}, flashes(t, home, common.FlashSuccess))

	res = b.get(path)
	assert.Equal(t, "/login", res.location)
	assert.Equal(t, []string{"Password reset token is invalid or expired."}, flashes(t, b.get("/login").json(t), common.FlashError))

	res = h.browser(t).post("/account/forgot", map[string]string{"email": "ghost@example.com"})
	assert.Equal(t, "/login", res.location)
}

func TestUpdateAccount(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)
	b.register("Wes", "wes@example.com")

	res := b.post("/account", map[string]string{"name": "Wesley", "email": "wesley@example.com"})
	assert.Equal(t, "/account", res.location)
	page := b.get("/account").json(t)
	assert.Equal(t, "Wesley", page["user"].(map[string]any)["name"])
	assert.Equal(t, []string{"Updated the profile!"}, flashes(t, page, common.FlashSuccess))

	res = b.post("/account", map[string]string{"name": "", "email": "wesley@example.com"})
	assert.Equal(t, "/account", res.location)
	assert.Equal(t, []string{"You must provide a name."}, flashes(t, b.get("/account").json(t), common.FlashError))
}

func TestMalformedBodyAndUnknownRoute(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	req, err := http.NewRequest(http.MethodPost, h.server.URL+"/login", strings.NewReader("{"))
	require.NoError(t, err)
	res, err := b.client.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	missing := b.get("/nowhere")
	assert.Equal(t, http.StatusNotFound, missing.status)
	assert.JSONEq(t, `{"error":"Not Found"}`, string(missing.body))
}

func TestCredentialRoutesAreThrottled(t *testing.T) {
	blocked := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	h := newHarness(t, blocked)
	b := h.browser(t)

	assert.Equal(t, http.StatusTooManyRequests, b.post("/login", map[string]string{}).status)
	assert.Equal(t, http.StatusTooManyRequests, b.post("/register", map[string]string{}).status)
	assert.Equal(t, http.StatusTooManyRequests, b.post("/account/forgot", map[string]string{}).status)
	assert.Equal(t, http.StatusOK, b.get("/login").status)
}

func TestStaleSessionIsCleared(t *testing.T) {
	h := newHarness(t, nil)
	b := h.browser(t)

	res := b.do(http.MethodGet, "/", nil, "Authorization", "Bearer garbage")
	require.Equal(t, http.StatusOK, res.status)
	assert.Nil(t, res.json(t)["user"])
}
