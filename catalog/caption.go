package catalog

import (
	"context"
	"math/rand"
)

// Caption suggestions served when the caller asks for a generated caption.
// The upstream catalog has no such endpoint, so suggestions come from a
// fixed pool, mirroring the original feature.
var captionPool = []string{
	"When you finally find the bug in your code after 5 hours",
	"Me explaining to my mom why I need a new gaming PC",
	"When someone says they don't like memes",
	"That moment when you realize you've been scrolling memes for 3 hours",
	"My brain during an important exam",
	"How I look waiting for my food delivery",
	"When your code works on the first try",
	"Me trying to explain my job to my grandparents",
	"When you're the only one who gets the reference",
	"My reaction when someone asks if I'm productive today",
}

// GenerateCaption suggests a caption for the given image. The image URL is
// accepted for interface fidelity; the suggestion does not depend on it.
func (c *Client) GenerateCaption(ctx context.Context, imageURL string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return captionPool[rand.Intn(len(captionPool))], nil
}
