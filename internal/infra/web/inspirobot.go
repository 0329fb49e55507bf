package web

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// DefaultInspirobotURL is the inspirobot API endpoint
const DefaultInspirobotURL = "https://inspirobot.me/api?generate=true"

// InspirobotClient generates inspirational images
type InspirobotClient struct {
	web         *Client
	endpointURL string
}

// NewInspirobotClient creates a new inspirobot client
func NewInspirobotClient(web *Client, endpointURL string) *InspirobotClient {
	if endpointURL == "" {
		endpointURL = DefaultInspirobotURL
	}
	return &InspirobotClient{web: web, endpointURL: endpointURL}
}

// Generate returns the URL of a freshly generated image
func (c *InspirobotClient) Generate(ctx context.Context) (string, error) {
	body, err := c.web.Get(ctx, c.endpointURL)
	if err != nil {
		return "", fmt.Errorf("inspirobot: %w", err)
	}

	imageURL := strings.TrimSpace(string(body))
	u, err := url.Parse(imageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("inspirobot: invalid image URL %q", imageURL)
	}
	return imageURL, nil
}
