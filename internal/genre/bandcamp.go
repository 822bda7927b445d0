package genre

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// BandcampSource reads genre and tags from Bandcamp's artist search
type BandcampSource struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

// NewBandcampSource creates a Bandcamp source pointed at bandcamp.com
func NewBandcampSource() *BandcampSource {
	return &BandcampSource{
		BaseURL: "https://bandcamp.com",
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		UserAgent: "Mozilla/5.0 (compatible; venue-events/1.0)",
	}
}

// Name returns SourceBandcamp
func (b *BandcampSource) Name() SourceName { return SourceBandcamp }

// Lookup searches for artist and returns the tags of the first result with a matching name
func (b *BandcampSource) Lookup(ctx context.Context, artist string) (*GenreInfo, error) {
	params := url.Values{}
	params.Set("q", artist)
	params.Set("item_type", "b")
	reqURL := fmt.Sprintf("%s/search?%s", b.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.UserAgent)

	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bandcamp returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing search page: %w", err)
	}

	var tags []string
	doc.Find(".searchresult").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name := strings.TrimSpace(s.Find(".heading").First().Text())
		if !sameArtist(name, artist) {
			return true
		}
		if g := stripLabel(s.Find(".genre").First().Text(), "genre:"); g != "" {
			tags = append(tags, g)
		}
		tags = append(tags, splitTags(stripLabel(s.Find(".tags").First().Text(), "tags:"))...)
		return len(tags) == 0
	})

	return infoFromTags(SourceBandcamp, tags)
}

// stripLabel removes a leading "label:" and collapses whitespace
func stripLabel(s, label string) string {
	s = strings.Join(strings.Fields(s), " ")
	if strings.HasPrefix(strings.ToLower(s), label) {
		s = strings.TrimSpace(s[len(label):])
	}
	return s
}

// sameArtist compares names ignoring case, punctuation, and a leading "the"
func sameArtist(a, b string) bool {
	norm := func(s string) string {
		var sb strings.Builder
		for _, r := range strings.ToLower(s) {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r > 127 {
				sb.WriteRune(r)
			}
		}
		return strings.TrimPrefix(sb.String(), "the")
	}
	na := norm(a)
	return na != "" && na == norm(b)
}
