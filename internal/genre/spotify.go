package genre

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// SpotifySource reads artist genres from the Spotify Web API using client credentials
type SpotifySource struct {
	ClientID     string
	ClientSecret string
	AccountsURL  string
	APIURL       string
	HTTPClient   *http.Client
	// KnownIDs maps lowercased artist names to Spotify artist IDs, skipping the search
	KnownIDs map[string]string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewSpotifySource creates a Spotify source. Empty credentials make every lookup return ErrNotConfigured.
func NewSpotifySource(clientID, clientSecret string, knownIDs map[string]string) *SpotifySource {
	return &SpotifySource{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AccountsURL:  "https://accounts.spotify.com",
		APIURL:       "https://api.spotify.com",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		KnownIDs: knownIDs,
	}
}

// Name returns SourceSpotify
func (s *SpotifySource) Name() SourceName { return SourceSpotify }

type spotifyToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type spotifyArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

type spotifySearch struct {
	Artists struct {
		Items []spotifyArtist `json:"items"`
	} `json:"artists"`
}

// Lookup resolves the artist ID and returns its genres
func (s *SpotifySource) Lookup(ctx context.Context, artist string) (*GenreInfo, error) {
	if s.ClientID == "" || s.ClientSecret == "" {
		return nil, ErrNotConfigured
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	id := s.KnownIDs[strings.ToLower(strings.TrimSpace(artist))]
	if id == "" {
		id, err = s.searchArtist(ctx, token, artist)
		if err != nil {
			return nil, err
		}
	}

	var a spotifyArtist
	if err := s.getJSON(ctx, token, "/v1/artists/"+url.PathEscape(id), &a); err != nil {
		return nil, fmt.Errorf("fetching artist: %w", err)
	}

	return infoFromTags(SourceSpotify, a.Genres)
}

func (s *SpotifySource) searchArtist(ctx context.Context, token, artist string) (string, error) {
	params := url.Values{}
	params.Set("q", artist)
	params.Set("type", "artist")
	params.Set("limit", "5")

	var result spotifySearch
	if err := s.getJSON(ctx, token, "/v1/search?"+params.Encode(), &result); err != nil {
		return "", fmt.Errorf("searching artist: %w", err)
	}

	items := result.Artists.Items
	if len(items) == 0 {
		return "", ErrNoMatch
	}
	for _, item := range items {
		if sameArtist(item.Name, artist) {
			return item.ID, nil
		}
	}
	return items[0].ID, nil
}

// accessToken returns a cached token or requests a new one
func (s *SpotifySource) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.tokenExpiry) {
		return s.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.AccountsURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.SetBasicAuth(s.ClientID, s.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tok spotifyToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("parsing token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	s.token = tok.AccessToken
	// refresh a minute early
	s.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return s.token, nil
}

func (s *SpotifySource) getJSON(ctx context.Context, token, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.APIURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
