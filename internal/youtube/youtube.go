// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package youtube

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alan-mat/qagent/internal/http"
)

const (
	Endpoint = "https://www.youtube.com"

	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	playerMarker = "ytInitialPlayerResponse = "
)

var ErrNoTranscript = errors.New("no transcript available")

// NoTranscriptError is returned when a video has no caption track
// matching the requested kind and languages.
type NoTranscriptError struct {
	VideoID string
	Langs   []string
	Reason  string
}

func (e NoTranscriptError) Error() string {
	msg := fmt.Sprintf("no generated transcript for video '%s' in languages %v", e.VideoID, e.Langs)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e NoTranscriptError) Is(target error) bool {
	return target == ErrNoTranscript
}

// Segment is a single caption line.
type Segment struct {
	Text     string
	Start    time.Duration
	Duration time.Duration
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	// "asr" marks automatically generated tracks
	Kind string `json:"kind"`
}

type playerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type timedText struct {
	Lines []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

// Client fetches published caption tracks of YouTube videos.
type Client struct {
	client http.Client
}

type ClientOption func(*clientConfig)

type clientConfig struct {
	endpoint string
	opts     []http.ClientOption
}

// WithEndpoint replaces the YouTube base URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *clientConfig) {
		c.endpoint = endpoint
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.opts = append(c.opts, http.WithTimeout(timeout))
	}
}

func NewClient(opts ...ClientOption) *Client {
	cfg := &clientConfig{
		endpoint: Endpoint,
		opts: []http.ClientOption{
			http.WithTimeout(30 * time.Second),
			http.WithMaxRetries(2),
			http.WithHeader("User-Agent", userAgent),
			http.WithHeader("Accept-Language", "en-US,en;q=0.9"),
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Client{
		client: http.NewClient(cfg.endpoint, cfg.opts...),
	}
}

// Generated returns the automatically generated transcript of a video,
// trying langs in order. Segments are sorted by start time.
func (c *Client) Generated(ctx context.Context, videoID string, langs []string) ([]Segment, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, errors.New("video id must not be empty")
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}

	player, err := c.player(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if player.Captions == nil {
		reason := "video has no captions"
		if player.PlayabilityStatus != nil && player.PlayabilityStatus.Reason != "" {
			reason = player.PlayabilityStatus.Reason
		}
		return nil, NoTranscriptError{VideoID: videoID, Langs: langs, Reason: reason}
	}

	track, ok := pickGenerated(player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks, langs)
	if !ok {
		return nil, NoTranscriptError{VideoID: videoID, Langs: langs}
	}
	slog.Debug("youtube: fetching caption track", "id", videoID, "lang", track.LanguageCode)

	resp, err := c.client.Do(ctx, http.MethodGet, track.BaseURL, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch caption track: %w", err)
	}
	return ParseTimedText(resp.Body)
}

func (c *Client) player(ctx context.Context, videoID string) (*playerResponse, error) {
	resp, err := c.client.Do(ctx, http.MethodGet, "/watch", url.Values{"v": {videoID}}, nil, map[string]string{
		"Accept": "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watch page: %w", err)
	}

	idx := bytes.Index(resp.Body, []byte(playerMarker))
	if idx < 0 {
		return nil, errors.New("player response not found in watch page")
	}

	// the decoder stops after the first complete JSON value
	var player playerResponse
	dec := json.NewDecoder(bytes.NewReader(resp.Body[idx+len(playerMarker):]))
	if err := dec.Decode(&player); err != nil {
		return nil, fmt.Errorf("failed to decode player response: %w", err)
	}
	return &player, nil
}

func pickGenerated(tracks []captionTrack, langs []string) (captionTrack, bool) {
	for _, lang := range langs {
		for _, t := range tracks {
			if t.Kind == "asr" && t.LanguageCode == lang {
				return t, true
			}
		}
	}
	return captionTrack{}, false
}

// ParseTimedText parses a timed-text XML caption document.
func ParseTimedText(data []byte) ([]Segment, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, fmt.Errorf("failed to parse timed text: %w", err)
	}

	segments := make([]Segment, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		// caption text is entity-encoded a second time
		text := strings.TrimSpace(html.UnescapeString(line.Text))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Text:     strings.Join(strings.Fields(text), " "),
			Start:    parseSeconds(line.Start),
			Duration: parseSeconds(line.Dur),
		})
	}

	slices.SortStableFunc(segments, func(a, b Segment) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return segments, nil
}

func parseSeconds(s string) time.Duration {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

// VideoID extracts the video id from a YouTube URL.
// Values that are not URLs are returned unchanged.
func VideoID(s string) string {
	s = strings.TrimSpace(s)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return s
	}

	host := strings.TrimPrefix(u.Hostname(), "www.")
	switch {
	case host == "youtu.be":
		return strings.Trim(u.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 && (parts[0] == "shorts" || parts[0] == "embed" || parts[0] == "live") {
			return parts[1]
		}
	}
	return s
}
