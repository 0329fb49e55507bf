package usecase

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/thetabots/xkcd-bot/internal/biz/domain"
	"github.com/thetabots/xkcd-bot/internal/biz/repo"
)

// PipelineStage names the step of the image pipeline that failed
type PipelineStage string

const (
	StageFetch  PipelineStage = "fetch"
	StageDecode PipelineStage = "decode"
	StageUpload PipelineStage = "upload"
)

// PipelineError is returned by every failure of ImagePipeline.Process
type PipelineError struct {
	Stage PipelineStage
	URL   string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("image %s failed for %s: %v", e.Stage, e.URL, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ImagePipeline fetches a remote image, reads its dimensions and uploads it to the chat service
type ImagePipeline struct {
	fetcher   repo.Fetcher
	mediaRepo repo.MediaRepo
}

// NewImagePipeline creates a new image pipeline
func NewImagePipeline(fetcher repo.Fetcher, mediaRepo repo.MediaRepo) *ImagePipeline {
	return &ImagePipeline{
		fetcher:   fetcher,
		mediaRepo: mediaRepo,
	}
}

// Process runs fetch, decode and upload. It returns either a complete image or a *PipelineError.
func (p *ImagePipeline) Process(ctx context.Context, url string) (*domain.Image, error) {
	data, err := p.fetcher.Get(ctx, url)
	if err != nil {
		return nil, &PipelineError{Stage: StageFetch, URL: url, Err: err}
	}
	return p.ProcessBytes(ctx, url, data)
}

// ProcessBytes runs decode and upload on an image that is already in memory.
// source only labels errors.
func (p *ImagePipeline) ProcessBytes(ctx context.Context, source string, data []byte) (*domain.Image, error) {
	info, err := DecodeImageInfo(data)
	if err != nil {
		return nil, &PipelineError{Stage: StageDecode, URL: source, Err: err}
	}

	ref, err := p.mediaRepo.Upload(ctx, data, info.MimeType)
	if err != nil {
		return nil, &PipelineError{Stage: StageUpload, URL: source, Err: err}
	}

	return &domain.Image{Ref: ref, Info: info}, nil
}

// DecodeImageInfo reads the format and dimensions of an encoded image
func DecodeImageInfo(data []byte) (domain.ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domain.ImageInfo{}, err
	}
	return domain.ImageInfo{
		MimeType: "image/" + format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     len(data),
	}, nil
}
