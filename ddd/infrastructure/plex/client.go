package plex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"cliparr/ddd/domain/port"
	"cliparr/ddd/domain/vo"
	"cliparr/pkg/config"
)

var (
	// ErrMediaNotFound is returned when the server has no item for the rating key.
	ErrMediaNotFound = errors.New("plex media item not found")
	// ErrNoFilePath is returned when the item has no playable part on disk.
	ErrNoFilePath = errors.New("plex media item has no file path")
)

const appAuthURL = "https://app.plex.tv/auth"

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to plex.tv for sign-in and to the media server for metadata.
type Client struct {
	serverURL  string
	accountURL string
	clientID   string
	product    string

	plexMediaPath string
	mediaDir      string

	http  HTTPDoer
	cache *expirable.LRU[string, vo.MediaItem]
}

var (
	_ port.MediaResolver = (*Client)(nil)
	_ port.PlexAccount   = (*Client)(nil)
)

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP backend.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) { c.http = doer }
}

// WithAccountURL points sign-in calls at a different host (used in tests).
func WithAccountURL(u string) Option {
	return func(c *Client) { c.accountURL = strings.TrimRight(u, "/") }
}

// NewClient builds a client from the plex and paths config sections.
func NewClient(cfg config.PlexConfig, paths config.PathsConfig, opts ...Option) *Client {
	size := cfg.CacheSize
	if size <= 0 {
		size = 256
	}
	c := &Client{
		serverURL:     strings.TrimRight(cfg.URL, "/"),
		accountURL:    strings.TrimRight(cfg.AccountURL, "/"),
		clientID:      cfg.ClientID,
		product:       cfg.Product,
		plexMediaPath: strings.TrimRight(paths.PlexMediaPath, "/"),
		mediaDir:      strings.TrimRight(paths.MediaDir, "/"),
		http:          &http.Client{Timeout: cfg.Timeout},
		cache:         expirable.NewLRU[string, vo.MediaItem](size, nil, cfg.CacheTTL),
	}
	if c.accountURL == "" {
		c.accountURL = "https://plex.tv"
	}
	if c.product == "" {
		c.product = "Cliparr"
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type metadataResponse struct {
	MediaContainer struct {
		Metadata []struct {
			RatingKey        string `json:"ratingKey"`
			Title            string `json:"title"`
			GrandparentTitle string `json:"grandparentTitle"`
			Type             string `json:"type"`
			Year             *int   `json:"year"`
			ParentIndex      *int   `json:"parentIndex"`
			Index            *int   `json:"index"`
			Media            []struct {
				Part []struct {
					File     string `json:"file"`
					Duration int64  `json:"duration"`
				} `json:"Part"`
			} `json:"Media"`
		} `json:"Metadata"`
	} `json:"MediaContainer"`
}

// Resolve implements port.MediaResolver. Results are cached per token and rating key.
func (c *Client) Resolve(ctx context.Context, plexToken, ratingKey string) (*vo.MediaItem, error) {
	key := plexToken + "\x00" + ratingKey
	if item, ok := c.cache.Get(key); ok {
		return &item, nil
	}

	var resp metadataResponse
	path := "/library/metadata/" + url.PathEscape(ratingKey)
	if err := c.doJSON(ctx, http.MethodGet, c.serverURL+path, nil, plexToken, &resp); err != nil {
		return nil, err
	}
	if len(resp.MediaContainer.Metadata) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMediaNotFound, ratingKey)
	}
	m := resp.MediaContainer.Metadata[0]

	var file string
	if len(m.Media) > 0 && len(m.Media[0].Part) > 0 {
		file = m.Media[0].Part[0].File
	}
	if file == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoFilePath, ratingKey)
	}

	item := vo.MediaItem{
		RatingKey:        m.RatingKey,
		Title:            m.Title,
		GrandparentTitle: m.GrandparentTitle,
		Year:             m.Year,
		Type:             vo.MediaType(m.Type),
		ParentIndex:      m.ParentIndex,
		Index:            m.Index,
		FilePath:         c.localPath(file),
	}
	if item.RatingKey == "" {
		item.RatingKey = ratingKey
	}
	c.cache.Add(key, item)
	return &item, nil
}

// localPath maps the library path Plex reports onto the media mount seen by this process.
func (c *Client) localPath(file string) string {
	if c.plexMediaPath == "" || c.mediaDir == "" {
		return file
	}
	if file == c.plexMediaPath || strings.HasPrefix(file, c.plexMediaPath+"/") {
		return c.mediaDir + strings.TrimPrefix(file, c.plexMediaPath)
	}
	return file
}

type pinResponse struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	AuthToken string `json:"authToken"`
}

// CreatePin starts a PIN login on plex.tv.
func (c *Client) CreatePin(ctx context.Context) (*port.PlexPin, error) {
	var resp pinResponse
	body := map[string]bool{"strong": true}
	if err := c.doJSON(ctx, http.MethodPost, c.accountURL+"/api/v2/pins", body, "", &resp); err != nil {
		return nil, err
	}
	return &port.PlexPin{ID: resp.ID, Code: resp.Code}, nil
}

// CheckPin returns the pin with AuthToken set once the user has claimed it.
// An unknown or unreadable pin is reported as not yet claimed.
func (c *Client) CheckPin(ctx context.Context, pinID string) (*port.PlexPin, error) {
	id, err := strconv.ParseInt(pinID, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid pin id %q", pinID)
	}
	var resp pinResponse
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/api/v2/pins/%d", c.accountURL, id), nil, "", &resp); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return &port.PlexPin{ID: id}, nil
		}
		return nil, err
	}
	return &port.PlexPin{ID: id, Code: resp.Code, AuthToken: strings.TrimSpace(resp.AuthToken)}, nil
}

// AuthURL is the page the user visits to approve the PIN.
func (c *Client) AuthURL(code string) string {
	q := url.Values{}
	q.Set("clientID", c.clientID)
	q.Set("code", code)
	q.Set("context[device][product]", c.product)
	return appAuthURL + "#?" + q.Encode()
}

// User returns the plex.tv account behind the token.
func (c *Client) User(ctx context.Context, plexToken string) (*port.PlexUser, error) {
	var resp struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Title    string `json:"title"`
		Email    string `json:"email"`
		Thumb    string `json:"thumb"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.accountURL+"/api/v2/user", nil, plexToken, &resp); err != nil {
		return nil, err
	}
	name := resp.Username
	if name == "" {
		name = resp.Title
	}
	return &port.PlexUser{
		ID:       strconv.FormatInt(resp.ID, 10),
		Username: name,
		Email:    resp.Email,
		Thumb:    resp.Thumb,
	}, nil
}

// IsServerOwner reports whether the token is signed in as the media server's owner.
func (c *Client) IsServerOwner(ctx context.Context, plexToken string) (bool, error) {
	var resp struct {
		MediaContainer struct {
			MyPlexSigninState string `json:"myPlexSigninState"`
		} `json:"MediaContainer"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.serverURL+"/", nil, plexToken, &resp); err != nil {
		return false, err
	}
	return resp.MediaContainer.MyPlexSigninState == "ok", nil
}

// StatusError is a non-2xx answer from Plex.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("plex %s %s returned %d: %s", e.Method, e.URL, e.Status, e.Body)
}

func (c *Client) doJSON(ctx context.Context, method, target string, body any, token string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Plex-Client-Identifier", c.clientID)
	req.Header.Set("X-Plex-Product", c.product)
	req.Header.Set("X-Plex-Platform", runtime.GOOS)
	if token != "" {
		req.Header.Set("X-Plex-Token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("plex request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		// 不在错误里带上 token
		return &StatusError{Method: method, URL: req.URL.Path, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
