package ytutil

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const BaseURL = "https://www.youtube.com"

func IsVideoID(id string) bool {
	if len(id) != 11 {
		return false
	}

	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}

	return true
}

func ExtractVideoID(urlOrID string) (string, error) {
	urlOrID = strings.TrimSpace(urlOrID)

	if IsVideoID(urlOrID) {
		return urlOrID, nil
	}

	parsed, err := url.Parse(urlOrID)
	if err != nil {
		return "", fmt.Errorf("ytutil.ExtractVideoID: %w", err)
	}

	if (parsed.Host == "www.youtube.com" || parsed.Host == "youtube.com") && parsed.Path == "/watch" {
		if id := parsed.Query().Get("v"); id != "" {
			if !IsVideoID(id) {
				return "", fmt.Errorf("ytutil.ExtractVideoID: invalid video id for v parameter in youtube.com url")
			}

			return id, nil
		}

		return "", fmt.Errorf("ytutil.ExtractVideoID: no v query parameter in youtube.com url")
	}

	if parsed.Host == "youtu.be" {
		if id := strings.TrimPrefix(parsed.Path, "/"); id != "" {
			if !IsVideoID(id) {
				return "", fmt.Errorf("ytutil.ExtractVideoID: invalid video id for youtu.be url")
			}

			return id, nil
		}

		return "", fmt.Errorf("ytutil.ExtractVideoID: no path content found in youtu.be url")
	}

	return "", fmt.Errorf("ytutil.ExtractVideoID: invalid url or id; could not find a known pattern")
}

// WatchURL links to a video, starting at the given second when it's
// positive.
func WatchURL(hash string, seconds int) string {
	u := BaseURL + "/watch?v=" + url.QueryEscape(hash)
	if seconds > 0 {
		u += "&t=" + strconv.Itoa(seconds) + "s"
	}

	return u
}

// ChannelHandle returns handle with exactly one leading "@".
func ChannelHandle(handle string) string {
	return "@" + strings.TrimLeft(strings.TrimSpace(handle), "@")
}

func SearchURL(base, handle, query string) string {
	return strings.TrimSuffix(base, "/") + "/" + ChannelHandle(handle) + "/search?query=" + url.QueryEscape(query)
}
