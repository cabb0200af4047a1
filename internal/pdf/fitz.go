package pdf

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// MuPDFRenderer renders and reads pages with github.com/gen2brain/go-fitz.
type MuPDFRenderer struct{}

func (MuPDFRenderer) PageTexts(path string) ([]string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	texts := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		s, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		texts = append(texts, s)
	}
	return texts, nil
}

func (MuPDFRenderer) PageSizes(path string) ([]PageSize, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	sizes := make([]PageSize, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		b, err := doc.Bound(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		sizes = append(sizes, PageSize{Width: float64(b.Dx()), Height: float64(b.Dy())})
	}
	return sizes, nil
}

func (MuPDFRenderer) RenderPages(ctx context.Context, path string, dpi int) ([]image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	images := make([]image.Image, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		images = append(images, img)
	}
	return images, nil
}
