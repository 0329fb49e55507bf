package repo

import (
	"context"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
)

// ComicRepo looks up comics
type ComicRepo interface {
	// GetComic returns the numbered comic, or the latest one if num is nil
	GetComic(ctx context.Context, num *int) (*domain.Comic, error)
}

// InspirationRepo generates inspirational images
type InspirationRepo interface {
	// Generate returns the URL of a freshly generated image
	Generate(ctx context.Context) (string, error)
}
