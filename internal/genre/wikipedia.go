package genre

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// WikipediaSource reads the Genres row of an artist's infobox through the MediaWiki parse API
type WikipediaSource struct {
	APIURL     string
	HTTPClient *http.Client
	UserAgent  string
}

// NewWikipediaSource creates a source for English Wikipedia
func NewWikipediaSource() *WikipediaSource {
	return &WikipediaSource{
		APIURL: "https://en.wikipedia.org/w/api.php",
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		UserAgent: "venue-events/1.0 (github.com/proprogresja/venue-events)",
	}
}

// Name returns SourceWikipedia
func (w *WikipediaSource) Name() SourceName { return SourceWikipedia }

type parseResponse struct {
	Parse struct {
		Title string `json:"title"`
		Text  struct {
			HTML string `json:"*"`
		} `json:"text"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// pageSuffixes are tried in order until a page with a genre infobox is found
var pageSuffixes = []string{"", " (band)", " (musician)", " (rapper)"}

var citation = regexp.MustCompile(`\[[^\]]*\]`)

// Lookup returns the genres listed in the artist's infobox
func (w *WikipediaSource) Lookup(ctx context.Context, artist string) (*GenreInfo, error) {
	var lastErr error = ErrNoMatch

	for _, suffix := range pageSuffixes {
		html, err := w.parsePage(ctx, artist+suffix)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if html == "" {
			continue
		}

		genres, err := infoboxGenres(html)
		if err != nil {
			lastErr = err
			continue
		}
		if len(genres) > 0 {
			return infoFromTags(SourceWikipedia, genres)
		}
	}

	return nil, lastErr
}

// parsePage returns the rendered HTML of page, or "" when the page does not exist
func (w *WikipediaSource) parsePage(ctx context.Context, page string) (string, error) {
	params := url.Values{}
	params.Set("action", "parse")
	params.Set("page", page)
	params.Set("prop", "text")
	params.Set("format", "json")
	params.Set("redirects", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", w.UserAgent)

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wikipedia returned status %d", resp.StatusCode)
	}

	var pr parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if pr.Error != nil {
		// missingtitle is an ordinary miss
		return "", nil
	}
	return pr.Parse.Text.HTML, nil
}

// infoboxGenres extracts the Genres row from an infobox
func infoboxGenres(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	var genres []string
	doc.Find("table.infobox tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		header := strings.ToLower(strings.TrimSpace(row.Find("th").First().Text()))
		if header != "genres" && header != "genre" {
			return true
		}

		cell := row.Find("td").First()
		cell.Find("sup").Remove()

		add := func(s string) {
			s = strings.TrimSpace(citation.ReplaceAllString(s, ""))
			if s != "" {
				genres = append(genres, s)
			}
		}

		if items := cell.Find("li"); items.Length() > 0 {
			items.Each(func(_ int, li *goquery.Selection) { add(li.Text()) })
		} else if links := cell.Find("a"); links.Length() > 0 {
			links.Each(func(_ int, a *goquery.Selection) { add(a.Text()) })
		} else {
			for _, tag := range splitTags(cell.Text()) {
				add(tag)
			}
		}
		return false
	})

	return genres, nil
}
