// Package media talks to the AI media collaborator: it turns a segment
// prompt into an image or video URL.
package media

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/lalith-99/storyverse/internal/models"
)

var (
	// ErrGenerationFailed wraps every failure coming out of a Generator.
	ErrGenerationFailed = errors.New("media generation failed")

	// ErrRejected marks failures that retrying won't fix, such as the
	// provider refusing the prompt. It is always wrapped together with
	// ErrGenerationFailed.
	ErrRejected = errors.New("media request rejected")
)

// Generator produces a media URL for an already-enhanced request.
type Generator interface {
	Generate(ctx context.Context, req models.MediaRequest) (string, error)
}

// placeholderImages are the stand-in illustrations served when no real
// provider is configured.
var placeholderImages = []string{
	"https://images.pexels.com/photos/1906658/pexels-photo-1906658.jpeg",
	"https://images.pexels.com/photos/924824/pexels-photo-924824.jpeg",
	"https://images.pexels.com/photos/302899/pexels-photo-302899.jpeg",
	"https://images.pexels.com/photos/1370295/pexels-photo-1370295.jpeg",
}

const placeholderVideo = "https://sample-videos.com/zip/10/mp4/SampleVideo_1280x720_1mb.mp4"

// PlaceholderGenerator returns canned URLs after an optional simulated
// latency. It never calls out.
type PlaceholderGenerator struct {
	ImageDelay time.Duration
	VideoDelay time.Duration
	pick       func(n int) int
}

func NewPlaceholderGenerator(imageDelay, videoDelay time.Duration) *PlaceholderGenerator {
	return &PlaceholderGenerator{ImageDelay: imageDelay, VideoDelay: videoDelay, pick: rand.IntN}
}

func (g *PlaceholderGenerator) Generate(ctx context.Context, req models.MediaRequest) (string, error) {
	delay := g.ImageDelay
	if req.Type == models.MediaVideo {
		delay = g.VideoDelay
	}
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", ErrGenerationFailed, ctx.Err())
		case <-timer.C:
		}
	}

	if req.Type == models.MediaVideo {
		return placeholderVideo, nil
	}
	pick := g.pick
	if pick == nil {
		pick = rand.IntN
	}
	return placeholderImages[pick(len(placeholderImages))], nil
}

// HTTPGenerator calls a provider that accepts
// POST {base}/v1/media/generate {"prompt","type","style","duration"}
// and answers {"url": "..."}.
type HTTPGenerator struct {
	client *resty.Client
}

func NewHTTPGenerator(baseURL, apiKey string, timeout time.Duration) *HTTPGenerator {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPGenerator{client: client}
}

type generateRequest struct {
	Prompt   string `json:"prompt"`
	Type     string `json:"type"`
	Style    string `json:"style,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

type generateResponse struct {
	URL string `json:"url"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, req models.MediaRequest) (string, error) {
	var out generateResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(generateRequest{
			Prompt:   req.Prompt,
			Type:     string(req.Type),
			Style:    req.Style,
			Duration: req.Duration,
		}).
		SetResult(&out).
		Post("/v1/media/generate")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	status := resp.StatusCode()
	switch {
	case status >= 400 && status < 500 && status != 429:
		return "", fmt.Errorf("%w: %w: status %d", ErrGenerationFailed, ErrRejected, status)
	case resp.IsError():
		return "", fmt.Errorf("%w: status %d", ErrGenerationFailed, status)
	case out.URL == "":
		return "", fmt.Errorf("%w: empty url in response", ErrGenerationFailed)
	}
	return out.URL, nil
}
