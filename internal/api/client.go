package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	appLog "nureschedule/internal/log"
)

// DefaultBaseURL is the production schedule API.
const DefaultBaseURL = "https://api.mindenit.org"

// Group is one entry of the /lists/groups endpoint.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Teacher is one entry of the /lists/teachers endpoint.
type Teacher struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	FullName  string `json:"fullName"`
}

// FetchResult is the outcome of fetching one endpoint.
type FetchResult struct {
	Body      []byte
	FromCache bool // true when the cached body was reused (304 or network failure)
}

// cacheEntry holds HTTP cache metadata for a single URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Client fetches the schedule API with ETag/Last-Modified conditional
// requests and a disk-backed response cache. On network failure it falls
// back to the last cached body, so a previously viewed schedule keeps
// working offline.
type Client struct {
	http     *http.Client
	baseURL  string
	cacheDir string
}

// NewClient creates a Client. baseURL defaults to DefaultBaseURL; cacheDir is
// where per-URL cache directories are kept.
func NewClient(baseURL, cacheDir string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cacheDir == "" {
		cacheDir = "./var/api-cache"
	}
	return &Client{
		http:     &http.Client{Timeout: 15 * time.Second},
		baseURL:  baseURL,
		cacheDir: cacheDir,
	}
}

// GroupSchedule fetches the raw schedule payload for a group.
func (c *Client) GroupSchedule(ctx context.Context, groupID int64) (FetchResult, error) {
	return c.fetch(ctx, fmt.Sprintf("%s/schedule/groups/%d", c.baseURL, groupID))
}

// TeacherSchedule fetches the raw schedule payload for a teacher.
func (c *Client) TeacherSchedule(ctx context.Context, teacherID int64) (FetchResult, error) {
	return c.fetch(ctx, fmt.Sprintf("%s/schedule/teachers/%d", c.baseURL, teacherID))
}

// Groups fetches and decodes the group list.
func (c *Client) Groups(ctx context.Context) ([]Group, error) {
	res, err := c.fetch(ctx, c.baseURL+"/lists/groups")
	if err != nil {
		return nil, err
	}
	var groups []Group
	if err := json.Unmarshal(res.Body, &groups); err != nil {
		return nil, fmt.Errorf("groups list decode: %w", err)
	}
	return groups, nil
}

// Teachers fetches and decodes the teacher list.
func (c *Client) Teachers(ctx context.Context) ([]Teacher, error) {
	res, err := c.fetch(ctx, c.baseURL+"/lists/teachers")
	if err != nil {
		return nil, err
	}
	var teachers []Teacher
	if err := json.Unmarshal(res.Body, &teachers); err != nil {
		return nil, fmt.Errorf("teachers list decode: %w", err)
	}
	return teachers, nil
}

// DisplayName returns the best available label for a teacher across API
// generations.
func (t Teacher) DisplayName() string {
	switch {
	case t.Name != "":
		return t.Name
	case t.ShortName != "":
		return t.ShortName
	default:
		return t.FullName
	}
}

// fetch performs one conditional GET with disk cache, mirroring the refresh
// discipline the mobile client uses: at most one request per call, cached
// body on 304 or on any network-level failure.
func (c *Client) fetch(ctx context.Context, url string) (FetchResult, error) {
	cachePath := c.cachePathForURL(url)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, err
	}

	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := os.ReadFile(filepath.Join(cachePath, "body.json"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{}, err
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("api fetch start", "url", url)

	resp, err := c.http.Do(req)
	if err != nil {
		if len(cachedBody) > 0 {
			appLog.Error("api fetch network error, using cached body", err, "url", url)
			return FetchResult{Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return FetchResult{}, readErr
		}
		newMeta := cacheEntry{
			URL:          url,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			UpdatedAt:    time.Now().UTC(),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("api cache save failed", err, "url", url)
		}
		appLog.Info("api fetch success", "url", url, "bytes", len(body))
		return FetchResult{Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("api fetch not modified; using cache", "url", url)
		return FetchResult{Body: cachedBody, FromCache: true}, nil

	default:
		if len(cachedBody) > 0 {
			appLog.Error("api fetch non-OK, using cached body", errors.New(resp.Status), "url", url, "status", resp.StatusCode)
			return FetchResult{Body: cachedBody, FromCache: true}, nil
		}
		return FetchResult{}, errors.New(resp.Status)
	}
}

func (c *Client) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Write body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.json"), body, 0o600); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}
