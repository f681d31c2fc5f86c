package driven

import (
	"context"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
)

// SiteMetadataSource loads the external site table.
type SiteMetadataSource interface {
	// Load returns every site row in table order.
	Load(ctx context.Context) ([]domain.SiteMetadata, error)
}
