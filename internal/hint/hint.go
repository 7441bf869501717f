// Package hint produces the short festive message shown next to a
// participant's assignment. Generators never fail: any problem is replaced
// by a fixed fallback string.
package hint

import "context"

const (
	// FallbackEmpty is returned when the model answers with nothing.
	FallbackEmpty = "May the magic of the holidays light up your gift!"
	// FallbackError is returned when the hint could not be generated.
	FallbackError = "A special gift is waiting for you!"
)

// Generator returns a hint for the person receiving the gift.
type Generator interface {
	GenerateHint(ctx context.Context, receiverName string) string
}

// Static is used when no text generation service is configured.
type Static struct{}

// GenerateHint implements Generator.
func (Static) GenerateHint(context.Context, string) string {
	return FallbackEmpty
}
