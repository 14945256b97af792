package gcp

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/vision/v1"
)

// VisionOCR extracts overlay text from camera images with the Cloud Vision
// API. Its caller treats text as supplementary, so errors surface here but
// are downgraded to empty text downstream.
type VisionOCR struct {
	svc *vision.Service
}

// NewVisionOCR builds the Vision client. With an empty credentialsFile the
// ambient credentials are used.
func NewVisionOCR(ctx context.Context, credentialsFile string) (*VisionOCR, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}
	return &VisionOCR{svc: svc}, nil
}

// DetectText runs TEXT_DETECTION over the image and returns the full text
// annotation. No detected text is not an error: it returns "".
func (v *VisionOCR) DetectText(ctx context.Context, imageData []byte) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(imageData)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}

	resp, err := v.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("text detection request failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", nil
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return "", fmt.Errorf("text detection failed: %s", r.Error.Message)
	}
	if len(r.TextAnnotations) == 0 {
		return "", nil
	}
	return r.TextAnnotations[0].Description, nil
}
