package console

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acme-console/admin-console/internal/directory"
	"github.com/acme-console/admin-console/internal/observability"
	"github.com/acme-console/admin-console/internal/shared"
	"github.com/acme-console/admin-console/internal/view"
)

type switchCall struct{ kind, outcome string }

type recordingMetrics struct{ calls []switchCall }

func (m *recordingMetrics) SessionSwitch(kind, outcome string) {
	m.calls = append(m.calls, switchCall{kind, outcome})
}

type handlerHarness struct {
	router  chi.Router
	sess    *shared.Session
	metrics *recordingMetrics
}

func newHarness(t *testing.T, dir *directory.Directory) *handlerHarness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	templates, err := view.NewEngine()
	require.NoError(t, err)

	metrics := &recordingMetrics{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, dir, templates, shared.NewCSRFManager("csrf"), metrics)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return &handlerHarness{router: r, sess: sess, metrics: metrics}
}

func (hh *handlerHarness) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req = req.WithContext(shared.ContextWithSession(req.Context(), hh.sess))
	rec := httptest.NewRecorder()
	hh.router.ServeHTTP(rec, req)
	return rec
}

func (hh *handlerHarness) snapshot(t *testing.T) map[string]any {
	t.Helper()
	rec := hh.do(http.MethodGet, "/api/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	return snap
}

func TestShowConsoleDefaultsToFirstUser(t *testing.T) {
	hh := newHarness(t, directory.Seed())

	rec := hh.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Super User")
	assert.Contains(t, body, "Superuser account switch")
	assert.Contains(t, body, "Acme Corp")
	assert.NotEmpty(t, hh.sess.Get(shared.CSRFSessionKey))
}

func TestSelectUserPersistsAcrossRequests(t *testing.T) {
	hh := newHarness(t, directory.Seed())

	rec := hh.do(http.MethodPost, "/session/user", url.Values{"user_id": {"3"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	id, ok := hh.sess.Int64(sessionUserKey)
	require.True(t, ok)
	assert.Equal(t, int64(3), id)
	account, ok := hh.sess.Int64(sessionAccountKey)
	require.True(t, ok)
	assert.Equal(t, int64(1), account)

	snap := hh.snapshot(t)
	user := snap["user"].(map[string]any)
	assert.Equal(t, "Casey Editor", user["name"])
	assert.Equal(t, "member", snap["role"])
	assert.Equal(t, []switchCall{{SwitchUser, observability.OutcomeApplied}}, hh.metrics.calls)

	page := hh.do(http.MethodGet, "/", nil).Body.String()
	assert.NotContains(t, page, "Superuser account switch")
	assert.Contains(t, page, "Role: Member")
}

func TestSelectUserRejectsMalformedID(t *testing.T) {
	hh := newHarness(t, directory.Seed())

	for _, v := range []string{"", "abc", "1.5"} {
		rec := hh.do(http.MethodPost, "/session/user", url.Values{"user_id": {v}})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "user_id=%q", v)
	}
	assert.Empty(t, hh.metrics.calls)
}

func TestSelectUserUnknownIDFallsBackToFirstUser(t *testing.T) {
	hh := newHarness(t, directory.Seed())

	rec := hh.do(http.MethodPost, "/session/user", url.Values{"user_id": {"999"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	_, ok := hh.sess.Int64(sessionAccountKey)
	assert.False(t, ok)
	snap := hh.snapshot(t)
	assert.Equal(t, "Super User", snap["user"].(map[string]any)["name"])
	assert.Nil(t, snap["active_account"])
}

func TestSelectAccountAsSuperuser(t *testing.T) {
	hh := newHarness(t, directory.Seed())

	rec := hh.do(http.MethodPost, "/session/account", url.Values{"account_id": {"3"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	snap := hh.snapshot(t)
	active := snap["active_account"].(map[string]any)
	assert.Equal(t, "Globex", active["name"])
	assert.Nil(t, snap["role"])

	rec = hh.do(http.MethodPost, "/session/account", url.Values{"account_id": {""}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	_, ok := hh.sess.Int64(sessionAccountKey)
	assert.False(t, ok)

	page := hh.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, page, NoAccountLabel)
	assert.Contains(t, page, NoAccountHint)
}

func TestSelectAccountForbiddenForNonSuperuser(t *testing.T) {
	hh := newHarness(t, directory.Seed())
	hh.do(http.MethodPost, "/session/user", url.Values{"user_id": {"2"}})

	rec := hh.do(http.MethodPost, "/session/account", url.Values{"account_id": {"1"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	account, ok := hh.sess.Int64(sessionAccountKey)
	require.True(t, ok)
	assert.Equal(t, int64(1), account)
}

func TestSelectAccountRejectsMissingAccount(t *testing.T) {
	hh := newHarness(t, directory.Seed())
	hh.do(http.MethodPost, "/session/user", url.Values{"user_id": {"1"}})

	rec := hh.do(http.MethodPost, "/session/account", url.Values{"account_id": {"42"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	account, ok := hh.sess.Int64(sessionAccountKey)
	require.True(t, ok)
	assert.Equal(t, int64(1), account)
	assert.Equal(t, []switchCall{
		{SwitchUser, observability.OutcomeApplied},
		{SwitchAccount, observability.OutcomeRejected},
	}, hh.metrics.calls)

	page := hh.do(http.MethodGet, "/", nil).Body.String()
	assert.Contains(t, page, "That account is not available to the current user")
	assert.Nil(t, hh.sess.PopFlash())
}

func TestSelectAccountRejectsMalformedID(t *testing.T) {
	hh := newHarness(t, directory.Seed())

	rec := hh.do(http.MethodPost, "/session/account", url.Values{"account_id": {"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListingEndpoints(t *testing.T) {
	hh := newHarness(t, directory.Seed())

	rec := hh.do(http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var accounts []directory.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accounts))
	assert.Len(t, accounts, 3)

	rec = hh.do(http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []UserView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 3)
	assert.Equal(t, []Chip{
		{AccountName: "Acme Corp", Role: directory.RoleMember},
		{AccountName: "Northwind Traders", Role: directory.RoleAdmin},
	}, users[2].Chips)
}

func TestUnknownAPIRouteIsProblem(t *testing.T) {
	hh := newHarness(t, directory.Seed())

	rec := hh.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestShowConsoleWithoutSessionStillRenders(t *testing.T) {
	hh := newHarness(t, directory.Seed())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	hh.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Super User")
}
