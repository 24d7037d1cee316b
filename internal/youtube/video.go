// Package youtube fetches the title, thumbnail and transcript of a video.
// Fetch never fails: problems surface as readable placeholders in VideoInfo.
package youtube

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL is reported when no video id can be found in the input.
var ErrInvalidURL = errors.New("not a recognisable YouTube video URL")

// Placeholders written into VideoInfo when a field could not be fetched.
const (
	TitlePlaceholder      = "Title not available"
	TranscriptPlaceholder = "Transcript not available"
)

// VideoInfo is everything the pipeline needs to know about a video.
type VideoInfo struct {
	URL          string `json:"url"`
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Transcript   string `json:"transcript"`
	ThumbnailURL string `json:"thumbnail_url"`
	Error        string `json:"error,omitempty"` // first problem met while fetching
}

// HasTranscript reports whether a real transcript was fetched.
func (v VideoInfo) HasTranscript() bool {
	t := strings.TrimSpace(v.Transcript)
	return t != "" && !strings.HasPrefix(t, TranscriptPlaceholder)
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID returns the 11-character id from a watch, short, embed,
// youtu.be link or a bare id.
func ExtractVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string
	switch {
	case host == "youtu.be":
		id = segments[0]
	case host == "youtube.com" || host == "music.youtube.com" || host == "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
		} else if len(segments) >= 2 {
			switch segments[0] {
			case "shorts", "embed", "live", "v":
				id = segments[1]
			}
		}
	}

	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return id, nil
}

// ThumbnailURL returns the high-quality thumbnail address for id.
func ThumbnailURL(id string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
}
