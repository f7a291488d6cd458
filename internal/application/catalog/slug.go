package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const maxSlugSuffix = 50

// uniqueSlug returns base, or base with the first free numeric suffix
// (base-2, base-3, ...). After maxSlugSuffix attempts a random suffix is used.
func uniqueSlug(ctx context.Context, base string, exists func(context.Context, string) (bool, error)) (string, error) {
	candidate := base
	for i := 2; i <= maxSlugSuffix+1; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return base + "-" + uuid.NewString()[:8], nil
}
