package llm

import (
	"context"

	"calorie-cam/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// VisionGenerator is an interface for generating text from a prompt plus an
// attached image. The image is passed as raw bytes with its MIME type.
type VisionGenerator interface {
	DescribeImage(ctx context.Context, prompt string, mimeType string, data []byte) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
