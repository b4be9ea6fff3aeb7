// SPDX-License-Identifier: MIT

// Package nowplaying polls a metadata endpoint for the track currently
// on air and tags advertisement breaks.
package nowplaying

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	requestTimeout  = 5 * time.Second
	maxResponseSize = 64 << 10
	userAgent       = "barscreensaver/1.0"
)

// Track is one now-playing entry. Advert marks entries that matched
// the configured ad keywords.
type Track struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Advert bool   `json:"advert"`
}

// Display renders the track as "Artist - Title", degrading gracefully
// when either half is missing.
func (t Track) Display() string {
	switch {
	case t.Artist != "" && t.Title != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	default:
		return t.Artist
	}
}

// IsZero reports whether no metadata is present at all.
func (t Track) IsZero() bool {
	return t.Title == "" && t.Artist == ""
}

// Client fetches now-playing metadata over HTTP.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient builds a Client for the given endpoint URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   requestTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   requestTimeout,
				ResponseHeaderTimeout: requestTimeout,
				MaxIdleConns:          2,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

// metadataPayload covers the two response shapes we support: explicit
// title/artist fields, or a single "text" field in "Artist - Title"
// form as many stream status pages emit.
type metadataPayload struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Text   string `json:"text"`
}

// Fetch requests the endpoint once and returns the decoded track.
func (c *Client) Fetch(ctx context.Context) (Track, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Track{}, fmt.Errorf("building metadata request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Track{}, fmt.Errorf("fetching metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Track{}, fmt.Errorf("metadata endpoint returned %s", resp.Status)
	}

	var payload metadataPayload
	dec := json.NewDecoder(http.MaxBytesReader(nil, resp.Body, maxResponseSize))
	if err := dec.Decode(&payload); err != nil {
		return Track{}, fmt.Errorf("decoding metadata: %w", err)
	}

	return payload.toTrack(), nil
}

func (p metadataPayload) toTrack() Track {
	track := Track{
		Title:  strings.TrimSpace(p.Title),
		Artist: strings.TrimSpace(p.Artist),
	}
	if track.IsZero() && p.Text != "" {
		// "Artist - Title" convention; everything after the first
		// separator belongs to the title.
		artist, title, found := strings.Cut(p.Text, " - ")
		if found {
			track.Artist = strings.TrimSpace(artist)
			track.Title = strings.TrimSpace(title)
		} else {
			track.Title = strings.TrimSpace(p.Text)
		}
	}
	return track
}
