// Package backend provides a client for the search/streaming backend.
package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubeplay/internal/domain/track"
)

// Endpoint paths. The backend routes require the trailing slash.
const (
	searchPath   = "/search/"
	streamPath   = "/get_stream/"
	lyricsPath   = "/get_lyrics/"
	downloadPath = "/download_song/"
)

// Client is a backend API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config represents backend client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration // Per-request upper bound; zero means 10s
}

// SearchResponse represents the response from /search/.
type SearchResponse struct {
	Results []struct {
		VideoID   string `json:"videoId"`
		Title     string `json:"title"`
		Artist    string `json:"artist"`
		Thumbnail string `json:"thumbnail"`
		Duration  string `json:"duration"`
	} `json:"results"`
	Error string `json:"error"`
}

// StreamResponse represents the response from /get_stream/.
type StreamResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// LyricsResponse represents the response from /get_lyrics/.
type LyricsResponse struct {
	Lyrics string `json:"lyrics"`
	Error  string `json:"error"`
}

// Download is an open download of a track file.
type Download struct {
	Body        io.ReadCloser
	Size        int64 // -1 if unknown
	ContentType string
}

// New creates a new backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("invalid backend base URL: %q", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Search searches the backend for tracks matching query.
// An empty query returns no results without contacting the backend.
func (c *Client) Search(ctx context.Context, query string) ([]track.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []track.Track{}, nil
	}

	params := url.Values{}
	params.Set("q", query)

	var response SearchResponse
	if err := c.getJSON(ctx, searchPath, params, &response); err != nil {
		return nil, classify(errors.Wrapf(err, "search %q", query), ErrSearch)
	}

	tracks := make([]track.Track, 0, len(response.Results))
	for _, r := range response.Results {
		if r.VideoID == "" {
			continue
		}
		tracks = append(tracks, track.Track{
			ID:        r.VideoID,
			Title:     r.Title,
			Artist:    r.Artist,
			Thumbnail: r.Thumbnail,
			Duration:  r.Duration,
		})
	}

	zlog.Debug().Msgf("search results: query=%q count=%d", query, len(tracks))
	return tracks, nil
}

// ResolveStream resolves a playable, time-limited stream URL for a track ID.
func (c *Client) ResolveStream(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", errors.Mark(errors.New("track id is required"), ErrStreamResolution)
	}

	params := url.Values{}
	params.Set("id", id)

	var response StreamResponse
	if err := c.getJSON(ctx, streamPath, params, &response); err != nil {
		return "", classify(errors.Wrapf(err, "resolve stream for %s", id), ErrStreamResolution)
	}
	if response.Error != "" {
		return "", errors.Mark(errors.Wrapf(&APIError{StatusCode: http.StatusOK, Message: response.Error}, "resolve stream for %s", id), ErrStreamResolution)
	}
	if response.URL == "" {
		return "", errors.Mark(errors.Newf("resolve stream for %s: empty url", id), ErrStreamResolution)
	}

	return response.URL, nil
}

// GetLyrics fetches the lyrics text for a track ID.
func (c *Client) GetLyrics(ctx context.Context, id string) (string, error) {
	params := url.Values{}
	params.Set("id", id)

	var response LyricsResponse
	if err := c.getJSON(ctx, lyricsPath, params, &response); err != nil {
		return "", classify(errors.Wrapf(err, "lyrics for %s", id), ErrLyrics)
	}
	if response.Lyrics == "" {
		return "", errors.Mark(errors.Newf("no lyrics for %s", id), ErrLyrics)
	}
	return response.Lyrics, nil
}

// DownloadURL returns the download endpoint URL for a track.
func (c *Client) DownloadURL(t track.Track) string {
	params := url.Values{}
	params.Set("id", t.ID)
	params.Set("title", t.Title)
	params.Set("artist", t.Artist)
	return c.baseURL + downloadPath + "?" + params.Encode()
}

// Download opens the download endpoint for a track. The caller must close Body.
// Downloads are not bound by the client timeout; ctx controls their lifetime.
func (c *Client) Download(ctx context.Context, t track.Track) (*Download, error) {
	if err := t.Validate(); err != nil {
		return nil, errors.Mark(err, ErrDownload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(t), nil)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to create request"), ErrDownload)
	}

	client := &http.Client{Transport: c.httpClient.Transport}
	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(errors.Wrap(err, "failed to send request"), ErrDownload)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.Mark(&APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}, ErrDownload)
	}

	return &Download{
		Body:        resp.Body,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// getJSON performs a GET request and decodes a JSON body into out.
// Non-2xx responses are returned as *APIError, using the body's "error" field when present.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}
