package web

import (
	"context"
	"fmt"
	"strings"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
)

// DefaultXkcdURL is the xkcd API root
const DefaultXkcdURL = "https://xkcd.com"

// XkcdClient fetches comic metadata from the xkcd JSON API
type XkcdClient struct {
	web     *Client
	baseURL string
}

// NewXkcdClient creates a new xkcd client
func NewXkcdClient(web *Client, baseURL string) *XkcdClient {
	if baseURL == "" {
		baseURL = DefaultXkcdURL
	}
	return &XkcdClient{web: web, baseURL: strings.TrimRight(baseURL, "/")}
}

// GetComic returns the numbered comic, or the latest one if num is nil
func (c *XkcdClient) GetComic(ctx context.Context, num *int) (*domain.Comic, error) {
	url := c.baseURL + "/info.0.json"
	if num != nil {
		url = fmt.Sprintf("%s/%d/info.0.json", c.baseURL, *num)
	}

	var comic domain.Comic
	if err := c.web.GetJSON(ctx, url, &comic); err != nil {
		return nil, fmt.Errorf("xkcd: %w", err)
	}
	if comic.Img == "" {
		return nil, fmt.Errorf("xkcd: comic %d has no image", comic.Num)
	}
	return &comic, nil
}
