package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

const (
	fetchTimeout    = 20 * time.Second
	maxPageBody     = 8 << 20 // watch pages are large
	maxCaptionBody  = 4 << 20
	fetchUserAgent  = "Mozilla/5.0 (compatible; PocketELI5/1.0)"
	defaultBaseURL  = "https://www.youtube.com"
	defaultLanguage = "en"
)

// Fetcher downloads video metadata and transcripts from YouTube.
type Fetcher struct {
	client   *http.Client
	baseURL  string
	language string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithBaseURL points the fetcher at another host serving /watch pages.
func WithBaseURL(base string) Option {
	return func(f *Fetcher) { f.baseURL = strings.TrimRight(base, "/") }
}

// WithLanguage sets the preferred caption language code.
func WithLanguage(code string) Option {
	return func(f *Fetcher) {
		if code != "" {
			f.language = code
		}
	}
}

// NewFetcher returns a Fetcher talking to youtube.com.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: fetchTimeout},
		baseURL:  defaultBaseURL,
		language: defaultLanguage,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch resolves rawURL into a VideoInfo. It does not return an error:
// failures leave placeholder text in Title or Transcript and the first
// failure in Error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) VideoInfo {
	info := VideoInfo{URL: rawURL}

	id, err := ExtractVideoID(rawURL)
	if err != nil {
		info.Title = TitlePlaceholder
		info.Transcript = TranscriptPlaceholder + ": invalid video URL"
		info.Error = err.Error()
		return info
	}
	info.VideoID = id
	info.ThumbnailURL = ThumbnailURL(id)

	watch := f.baseURL + "/watch?v=" + url.QueryEscape(id)
	page, err := f.get(ctx, watch, maxPageBody)
	if err != nil {
		log.Printf("[YouTube] fetch %s failed: %v", id, err)
		info.Title = TitlePlaceholder
		info.Transcript = TranscriptPlaceholder + ": video page could not be loaded"
		info.Error = err.Error()
		return info
	}

	meta := parseWatchPage(page)
	info.Title = meta.title
	if info.Title == "" {
		info.Title = TitlePlaceholder
	}
	if meta.image != "" {
		info.ThumbnailURL = meta.image
	}

	track, ok := pickTrack(meta.tracks, f.language)
	if !ok {
		info.Transcript = TranscriptPlaceholder + ": no captions for this video"
		info.Error = "no caption tracks found"
		return info
	}

	transcript, err := f.fetchTranscript(ctx, watch, track)
	if err != nil {
		log.Printf("[YouTube] transcript %s failed: %v", id, err)
		info.Transcript = TranscriptPlaceholder + ": captions could not be downloaded"
		info.Error = err.Error()
		return info
	}
	if transcript == "" {
		info.Transcript = TranscriptPlaceholder + ": captions were empty"
		info.Error = "empty caption track"
		return info
	}
	info.Transcript = transcript
	return info
}

// get downloads target and returns it transcoded to UTF-8.
func (f *Fetcher) get(ctx context.Context, target string, limit int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept-Language", f.language)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	limited := io.LimitReader(resp.Body, limit)
	r, err := charset.NewReader(limited, resp.Header.Get("Content-Type"))
	if err != nil {
		r = limited
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" for auto-generated
}

type watchMeta struct {
	title  string
	image  string
	tracks []captionTrack
}

// parseWatchPage reads the title, og:image and caption tracks out of the
// watch page HTML.
func parseWatchPage(page string) watchMeta {
	var meta watchMeta
	var docTitle string
	var inTitle, inScript bool

	z := html.NewTokenizer(strings.NewReader(page))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if meta.title == "" {
				meta.title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(docTitle), "- YouTube"))
			}
			return meta

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "title":
				inTitle = true
			case "script":
				inScript = true
			case "meta":
				prop, content := attr(tok, "property"), attr(tok, "content")
				if prop == "" {
					prop = attr(tok, "name")
				}
				switch prop {
				case "og:title":
					meta.title = strings.TrimSpace(content)
				case "og:image":
					meta.image = strings.TrimSpace(content)
				}
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "title":
				inTitle = false
			case "script":
				inScript = false
			}

		case html.TextToken:
			text := string(z.Text())
			if inTitle {
				docTitle += text
			}
			if inScript && meta.tracks == nil {
				meta.tracks = captionTracks(text)
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// captionTracks decodes the captionTracks array embedded in the player
// response script, or nil when the script has none.
func captionTracks(script string) []captionTrack {
	idx := strings.Index(script, `"captionTracks":`)
	if idx < 0 {
		return nil
	}
	rest := script[idx+len(`"captionTracks":`):]
	var tracks []captionTrack
	if err := json.NewDecoder(strings.NewReader(rest)).Decode(&tracks); err != nil {
		log.Printf("[YouTube] caption tracks unreadable: %v", err)
		return nil
	}
	return tracks
}

// pickTrack prefers a manual track in lang, then an auto-generated one in
// lang, then whatever comes first.
func pickTrack(tracks []captionTrack, lang string) (captionTrack, bool) {
	if len(tracks) == 0 {
		return captionTrack{}, false
	}
	var auto *captionTrack
	for i := range tracks {
		t := &tracks[i]
		if !strings.HasPrefix(t.LanguageCode, lang) {
			continue
		}
		if t.Kind != "asr" {
			return *t, true
		}
		if auto == nil {
			auto = t
		}
	}
	if auto != nil {
		return *auto, true
	}
	return tracks[0], true
}

// timedText covers both the legacy <transcript><text> and the
// format=3 <timedtext><body><p> caption documents.
type timedText struct {
	Texts      []string `xml:"text"`
	Paragraphs []string `xml:"body>p"`
}

func (f *Fetcher) fetchTranscript(ctx context.Context, pageURL string, track captionTrack) (string, error) {
	if track.BaseURL == "" {
		return "", errors.New("caption track has no URL")
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(track.BaseURL)
	if err != nil {
		return "", fmt.Errorf("caption URL: %w", err)
	}

	body, err := f.get(ctx, base.ResolveReference(ref).String(), maxCaptionBody)
	if err != nil {
		return "", err
	}
	return parseTimedText(body)
}

// parseTimedText joins caption lines into one whitespace-normalised string.
func parseTimedText(doc string) (string, error) {
	var tt timedText
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&tt); err != nil {
		return "", fmt.Errorf("caption XML: %w", err)
	}

	lines := tt.Texts
	if len(lines) == 0 {
		lines = tt.Paragraphs
	}
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		// caption text is entity-encoded a second time inside the XML
		line = strings.Join(strings.Fields(html.UnescapeString(line)), " ")
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " "), nil
}
