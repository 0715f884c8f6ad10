// Package ytscrape fetches the two kinds of YouTube pages the ingest needs:
// a channel's search results and a video's watch page.
package ytscrape

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Jeffail/gabs/v2"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/niconiahi/olga.media/internal/ctxhttpclient"
	"github.com/niconiahi/olga.media/internal/listing"
	"github.com/niconiahi/olga.media/internal/ytutil"
)

var ErrWrongVideo = errors.New("watch page is for a different video")

type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GET %s: %s", e.URL, e.Err.Error())
	}

	return fmt.Sprintf("GET %s: status code %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

type Client struct {
	BaseURL string
	Channel string
}

func NewClient(channel string) *Client {
	return &Client{BaseURL: ytutil.BaseURL, Channel: channel}
}

func getPage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ytscrape.getPage: %w", err)
	}

	// without this youtube serves a cookie consent page in some regions
	req.Header.Set("Accept-Language", "es-AR,es;q=0.9")

	res, err := ctxhttpclient.GetHTTPClient(ctx).Do(req)
	if err != nil {
		return nil, fmt.Errorf("ytscrape.getPage: %w", &TransportError{URL: url, Err: err})
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ytscrape.getPage: %w", &TransportError{URL: url, StatusCode: res.StatusCode})
	}

	d, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("ytscrape.getPage: %w", &TransportError{URL: url, StatusCode: res.StatusCode, Err: err})
	}

	return d, nil
}

const (
	initialDataPrefix     = "var ytInitialData ="
	playerResponsePrefix  = "var ytInitialPlayerResponse ="
	playerVideoIDPath     = "videoDetails.videoId"
	playerVideoTitlePath  = "videoDetails.title"
	playerDescriptionPath = "videoDetails.shortDescription"
)

// scripts returns the text of every inline script that starts with one of
// the given prefixes, in document order.
func scripts(doc *goquery.Document, prefixes ...string) []string {
	var found []string

	for _, node := range doc.Find("script").Nodes {
		if node.FirstChild == nil || node.FirstChild.Type != html.TextNode {
			continue
		}

		jsContent := strings.TrimSpace(node.FirstChild.Data)

		for _, prefix := range prefixes {
			if strings.HasPrefix(jsContent, prefix) {
				found = append(found, jsContent)
				break
			}
		}
	}

	return found
}

// parseAssignment decodes the JSON value assigned in a script like
// `var x = {...};var y = ...`, ignoring whatever follows the value.
func parseAssignment(jsContent, prefix string) (*gabs.Container, error) {
	jsContent = strings.TrimPrefix(jsContent, prefix)

	j, err := gabs.ParseJSONDecoder(json.NewDecoder(strings.NewReader(jsContent)))
	if err != nil {
		return nil, fmt.Errorf("ytscrape.parseAssignment: %w", err)
	}

	return j, nil
}

// pageText narrows a page down to its embedded data scripts. Pages that
// don't have any are returned whole.
func pageText(d []byte, prefixes ...string) (string, *goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(d))
	if err != nil {
		return "", nil, fmt.Errorf("ytscrape.pageText: %w", err)
	}

	found := scripts(doc, prefixes...)
	if len(found) == 0 {
		return string(d), doc, nil
	}

	return strings.Join(found, "\n"), doc, nil
}

// SearchPage returns the data embedded in the channel's search results for
// day/month.
func (c *Client) SearchPage(ctx context.Context, day, month int) (string, error) {
	if err := listing.CheckDate(day, month); err != nil {
		return "", fmt.Errorf("ytscrape.Client.SearchPage: %w", err)
	}

	d, err := getPage(ctx, ytutil.SearchURL(c.BaseURL, c.Channel, listing.Query(day, month)))
	if err != nil {
		return "", fmt.Errorf("ytscrape.Client.SearchPage: %w", err)
	}

	text, _, err := pageText(d, initialDataPrefix)
	if err != nil {
		return "", fmt.Errorf("ytscrape.Client.SearchPage: %w", err)
	}

	return text, nil
}

type Video struct {
	ID          string
	Title       string
	Description string
}

// PlayerVideo reads the player response embedded in a watch page.
func PlayerVideo(doc *goquery.Document) (*Video, error) {
	for _, jsContent := range scripts(doc, playerResponsePrefix) {
		j, err := parseAssignment(jsContent, playerResponsePrefix)
		if err != nil {
			return nil, fmt.Errorf("ytscrape.PlayerVideo: %w", err)
		}

		var v Video

		if s, ok := j.Path(playerVideoIDPath).Data().(string); ok {
			v.ID = s
		}
		if s, ok := j.Path(playerVideoTitlePath).Data().(string); ok {
			v.Title = s
		}
		if s, ok := j.Path(playerDescriptionPath).Data().(string); ok {
			v.Description = s
		}

		if v.ID != "" {
			return &v, nil
		}
	}

	return nil, nil
}

// WatchPage returns the data embedded in a video's watch page. The
// description inside it is still JSON encoded, so its line breaks are the
// two characters `\n`.
func (c *Client) WatchPage(ctx context.Context, hash string) (string, error) {
	id, err := ytutil.ExtractVideoID(hash)
	if err != nil {
		return "", fmt.Errorf("ytscrape.Client.WatchPage: %w", err)
	}

	d, err := getPage(ctx, strings.TrimSuffix(c.BaseURL, "/")+"/watch?v="+id)
	if err != nil {
		return "", fmt.Errorf("ytscrape.Client.WatchPage: %w", err)
	}

	text, doc, err := pageText(d, playerResponsePrefix, initialDataPrefix)
	if err != nil {
		return "", fmt.Errorf("ytscrape.Client.WatchPage: %w", err)
	}

	// youtube answers unavailable or removed videos with some other page
	// rather than an error status
	if v, err := PlayerVideo(doc); err == nil && v != nil && v.ID != id {
		return "", fmt.Errorf("ytscrape.Client.WatchPage: asked for %s, got %s: %w", id, v.ID, ErrWrongVideo)
	}

	return text, nil
}
