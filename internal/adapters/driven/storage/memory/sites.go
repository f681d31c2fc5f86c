package memory

import (
	"context"

	"github.com/custodia-labs/permit-assets/internal/core/domain"
	"github.com/custodia-labs/permit-assets/internal/core/ports/driven"
)

// Ensure SiteTable implements the interface.
var _ driven.SiteMetadataSource = (*SiteTable)(nil)

// SiteTable is a fixed, in-memory site metadata table.
type SiteTable struct {
	rows []domain.SiteMetadata
}

// NewSiteTable creates a site table holding rows in order.
func NewSiteTable(rows ...domain.SiteMetadata) *SiteTable {
	return &SiteTable{rows: append([]domain.SiteMetadata(nil), rows...)}
}

// Load returns a copy of the rows.
func (t *SiteTable) Load(_ context.Context) ([]domain.SiteMetadata, error) {
	return append([]domain.SiteMetadata(nil), t.rows...), nil
}
