package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", "secret", time.Hour, false), mr
}

func roundTrip(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionPersistsValuesAcrossRequests(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.True(t, sess.IsNew())
	sess.SetInt64("user_id", 3)
	sess.AddFlash(FlashMessage{Kind: "success", Message: "hello"})

	cookie := roundTrip(t, sm, sess)
	assert.Equal(t, "test_session", cookie.Name)
	assert.True(t, mr.Exists("console:session:"+sess.ID))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.False(t, loaded.IsNew())
	assert.Equal(t, sess.ID, loaded.ID)

	id, ok := loaded.Int64("user_id")
	require.True(t, ok)
	assert.Equal(t, int64(3), id)

	flash := loaded.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "hello", flash.Message)
	assert.Nil(t, loaded.PopFlash())
}

func TestSessionUnknownCookieStartsFresh(t *testing.T) {
	sm, _ := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "stale"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, sess.IsNew())
	assert.NotEqual(t, "stale", sess.ID)
}

func TestSessionDestroy(t *testing.T) {
	sm, mr := newTestManager(t)
	sess, err := sm.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	roundTrip(t, sm, sess)
	require.True(t, mr.Exists("console:session:"+sess.ID))

	sm.Destroy(sess)
	cookie := roundTrip(t, sm, sess)

	assert.False(t, mr.Exists("console:session:"+sess.ID))
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestSessionInt64Malformed(t *testing.T) {
	sess := &Session{}
	sess.Set("user_id", "abc")

	_, ok := sess.Int64("user_id")
	assert.False(t, ok)

	_, ok = sess.Int64("missing")
	assert.False(t, ok)

	sess.Delete("user_id")
	assert.Equal(t, "", sess.Get("user_id"))
}
