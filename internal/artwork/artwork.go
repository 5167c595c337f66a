// Package artwork looks up cover art for a detected track.
//
// The NetEase resolver queries the public cloudsearch API for the first
// matching song and returns its album picture URL. Lookups sit behind a
// circuit breaker: the catalog is an optional enrichment, and a flapping
// upstream must not slow the publish cycle down.
package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/musicfriend/roomstate/internal/metrics"
)

// Resolver finds a cover art URL for a track. An empty URL with nil error
// means no art was found; both outcomes leave the update's artUrl empty.
type Resolver interface {
	Resolve(ctx context.Context, title, artist string) (string, error)
}

const (
	defaultSearchURL = "https://music.163.com/api/search/get"
	lookupTimeout    = 5 * time.Second

	// sizeParam asks NetEase for a 200x200 rendition.
	sizeParam = "?param=200y200"
)

// NetEaseResolver resolves cover art via the NetEase cloud music search API.
type NetEaseResolver struct {
	searchURL string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker
}

// NewNetEaseResolver creates a resolver. searchURL overrides the API endpoint
// for tests; pass "" for the default.
func NewNetEaseResolver(searchURL string) *NetEaseResolver {
	if searchURL == "" {
		searchURL = defaultSearchURL
	}
	return &NetEaseResolver{
		searchURL: searchURL,
		client:    &http.Client{Timeout: lookupTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "netease-artwork",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

type searchResponse struct {
	Result struct {
		Songs []struct {
			Album struct {
				PicURL string `json:"picUrl"`
			} `json:"al"`
		} `json:"songs"`
	} `json:"result"`
}

// Resolve searches "title artist" and returns the first hit's album art URL,
// upgraded to https and with a size hint appended.
func (r *NetEaseResolver) Resolve(ctx context.Context, title, artist string) (string, error) {
	artURL, err := r.breaker.Execute(func() (interface{}, error) {
		return r.lookup(ctx, title, artist)
	})
	if err != nil {
		metrics.ArtworkLookupsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	if artURL.(string) == "" {
		metrics.ArtworkLookupsTotal.WithLabelValues("miss").Inc()
		return "", nil
	}
	metrics.ArtworkLookupsTotal.WithLabelValues("ok").Inc()
	return artURL.(string), nil
}

func (r *NetEaseResolver) lookup(ctx context.Context, title, artist string) (string, error) {
	query := url.Values{
		"s":     {strings.TrimSpace(title + " " + artist)},
		"type":  {"1"},
		"limit": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.searchURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	if len(result.Result.Songs) == 0 {
		return "", nil
	}
	picURL := result.Result.Songs[0].Album.PicURL
	if picURL == "" {
		return "", nil
	}

	// NetEase sometimes hands out plain http links.
	picURL = strings.Replace(picURL, "http://", "https://", 1)
	return picURL + sizeParam, nil
}
