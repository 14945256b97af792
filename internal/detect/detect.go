// Package detect turns a raw camera image into species records, an
// annotated image and the overlay text, by driving the object-detection
// model and the OCR engine behind narrow interfaces.
package detect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/sync/errgroup"

	"github.com/clementchangcheng/projectwildlife/internal/models"
)

// ErrDecode is returned when the image bytes cannot be decoded at all.
var ErrDecode = errors.New("image could not be decoded")

// Detector is the object-detection collaborator: one inference call per
// decoded image, returning raw class-indexed boxes plus the class table used
// to resolve labels.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]models.Detection, error)
	Labels() []string
}

// TextExtractor is the OCR collaborator. Implementations fail soft: any
// error or empty result must yield "" rather than aborting the attempt, but
// the error is still returned here so the adapter can log it.
type TextExtractor interface {
	DetectText(ctx context.Context, imageData []byte) (string, error)
}

// Result is the combined output of one adapter run.
type Result struct {
	AnnotatedJPEG []byte
	Species       []models.SpeciesRecord
	Text          string
}

// Adapter runs detection and OCR over one image. Detection failures abort
// the attempt; OCR failures degrade to empty text. The two collaborators are
// independent and run concurrently.
type Adapter struct {
	detector Detector
	ocr      TextExtractor
}

// NewAdapter wires the two collaborators together.
func NewAdapter(detector Detector, ocr TextExtractor) *Adapter {
	return &Adapter{detector: detector, ocr: ocr}
}

// Process decodes imageData, runs both collaborators, and normalizes their
// outputs: one SpeciesRecord per detected box with the label resolved from
// the class table, plus the annotated image and whatever text the OCR engine
// produced.
func (a *Adapter) Process(ctx context.Context, imageData []byte) (*Result, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	logCtx := slog.With("format", format, "bounds", img.Bounds().String())

	var (
		detections []models.Detection
		text       string
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		detections, err = a.detector.Detect(gctx, img)
		if err != nil {
			return fmt.Errorf("species detection failed: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		// Text extraction is supplementary; a broken OCR call must never
		// abort the attempt.
		ocrText, err := a.ocr.DetectText(gctx, imageData)
		if err != nil {
			logCtx.Warn("OCR failed, continuing without overlay text.", "error", err)
			return nil
		}
		text = ocrText
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	labels := a.detector.Labels()
	species := make([]models.SpeciesRecord, 0, len(detections))
	for _, det := range detections {
		species = append(species, models.SpeciesRecord{
			Species:    labelFor(labels, det.ClassIndex),
			Confidence: clamp01(det.Confidence),
		})
	}

	annotated, err := Annotate(img, detections, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to annotate image: %w", err)
	}

	logCtx.Info("Image analyzed.", "detections", len(detections), "textBytes", len(text))
	return &Result{
		AnnotatedJPEG: annotated,
		Species:       species,
		Text:          text,
	}, nil
}

func labelFor(labels []string, classIndex int) string {
	if classIndex >= 0 && classIndex < len(labels) {
		return labels[classIndex]
	}
	return fmt.Sprintf("class_%d", classIndex)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
