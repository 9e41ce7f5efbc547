package plex

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cliparr/ddd/domain/vo"
	"cliparr/pkg/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc, paths config.PathsConfig) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.PlexConfig{
		URL:       srv.URL,
		ClientID:  "cliparr-test",
		Product:   "Cliparr",
		Timeout:   5 * time.Second,
		CacheSize: 8,
		CacheTTL:  time.Minute,
	}, paths, WithAccountURL(srv.URL))
}

const episodeJSON = `{"MediaContainer":{"Metadata":[{"ratingKey":"42","title":"Pilot","grandparentTitle":"Show",
"type":"episode","year":2008,"parentIndex":1,"index":3,
"Media":[{"Part":[{"file":"/data/tv/Show/S01E03.mkv","duration":3000000}]}]}]}}`

func TestResolveEpisodeRewritesPathAndCaches(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/library/metadata/42", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("X-Plex-Token"))
		assert.Equal(t, "cliparr-test", r.Header.Get("X-Plex-Client-Identifier"))
		_, _ = w.Write([]byte(episodeJSON))
	}, config.PathsConfig{PlexMediaPath: "/data", MediaDir: "/media"})

	item, err := c.Resolve(context.Background(), "tok", "42")
	require.NoError(t, err)
	assert.Equal(t, "/media/tv/Show/S01E03.mkv", item.FilePath)
	assert.Equal(t, vo.MediaTypeEpisode, item.Type)
	require.NotNil(t, item.SeasonEpisode())
	assert.Equal(t, "S01E03", *item.SeasonEpisode())
	assert.Equal(t, "Show – Pilot", item.DisplayTitle())

	_, err = c.Resolve(context.Background(), "tok", "42")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestResolveLeavesForeignPathsAlone(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(episodeJSON))
	}, config.PathsConfig{PlexMediaPath: "/dat", MediaDir: "/media"})

	item, err := c.Resolve(context.Background(), "tok", "42")
	require.NoError(t, err)
	assert.Equal(t, "/data/tv/Show/S01E03.mkv", item.FilePath)
}

func TestResolveErrors(t *testing.T) {
	cases := map[string]struct {
		body   string
		status int
		want   error
	}{
		"empty":   {body: `{"MediaContainer":{"Metadata":[]}}`, status: 200, want: ErrMediaNotFound},
		"no file": {body: `{"MediaContainer":{"Metadata":[{"title":"x","Media":[]}]}}`, status: 200, want: ErrNoFilePath},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}, config.PathsConfig{})
			_, err := c.Resolve(context.Background(), "tok", "1")
			assert.ErrorIs(t, err, tc.want)
		})
	}

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}, config.PathsConfig{})
	_, err := c.Resolve(context.Background(), "secret-token", "1")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Status)
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestPinFlow(t *testing.T) {
	var claimed atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v2/pins":
			_, _ = w.Write([]byte(`{"id":77,"code":"abcd"}`))
		case r.URL.Path == "/api/v2/pins/77":
			if claimed.Load() {
				_, _ = w.Write([]byte(`{"id":77,"code":"abcd","authToken":"plex-token"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":77,"code":"abcd","authToken":null}`))
		case r.URL.Path == "/api/v2/pins/78":
			http.NotFound(w, r)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, config.PathsConfig{})

	pin, err := c.CreatePin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(77), pin.ID)
	assert.Equal(t, "abcd", pin.Code)

	got, err := c.CheckPin(context.Background(), "77")
	require.NoError(t, err)
	assert.Empty(t, got.AuthToken)

	claimed.Store(true)
	got, err = c.CheckPin(context.Background(), "77")
	require.NoError(t, err)
	assert.Equal(t, "plex-token", got.AuthToken)

	got, err = c.CheckPin(context.Background(), "78")
	require.NoError(t, err)
	assert.Empty(t, got.AuthToken)

	_, err = c.CheckPin(context.Background(), "abc")
	assert.Error(t, err)
}

func TestAuthURL(t *testing.T) {
	c := NewClient(config.PlexConfig{ClientID: "cliparr-app", Product: "Cliparr"}, config.PathsConfig{})
	u := c.AuthURL("XYZ")
	require.True(t, strings.HasPrefix(u, "https://app.plex.tv/auth#?"))
	q, err := url.ParseQuery(strings.SplitN(u, "#?", 2)[1])
	require.NoError(t, err)
	assert.Equal(t, "cliparr-app", q.Get("clientID"))
	assert.Equal(t, "XYZ", q.Get("code"))
	assert.Equal(t, "Cliparr", q.Get("context[device][product]"))
}

func TestUserAndOwner(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/user":
			_, _ = w.Write([]byte(`{"id":1234,"title":"Fallback Name","email":"a@b.c","thumb":"https://x/t.png"}`))
		case "/":
			_, _ = w.Write([]byte(`{"MediaContainer":{"myPlexSigninState":"ok"}}`))
		}
	}, config.PathsConfig{})

	u, err := c.User(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "1234", u.ID)
	assert.Equal(t, "Fallback Name", u.Username)
	assert.Equal(t, "a@b.c", u.Email)

	owner, err := c.IsServerOwner(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, owner)
}
