package domain

import "fmt"

// SiteMetadata is one row of the external site table. It is loaded once
// per run and never mutated.
type SiteMetadata struct {
	ID        string `json:"id"`
	Nummer    string `json:"nummer"`
	Naam      string `json:"naam"`
	Gemeente  string `json:"gemeente"`
	Postcode  string `json:"postcode"`
	SourceURL string `json:"source_url"`
}

// DocumentID returns the identity of the document this site row points to.
func (m SiteMetadata) DocumentID() DocumentID {
	return NewDocumentID(m.ID, m.SourceURL)
}

// Validate checks the fields needed to derive an identity.
func (m SiteMetadata) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("%w: site id is required", ErrInvalidInput)
	}
	if m.SourceURL == "" {
		return fmt.Errorf("%w: site %s has no source_url", ErrInvalidInput, m.ID)
	}
	return nil
}

// SiteIndex maps document identities to site metadata and keeps input order.
type SiteIndex struct {
	order []DocumentID
	sites map[DocumentID]SiteMetadata
}

// NewSiteIndex builds an index from rows in input order. Rows that resolve to
// an identity already present are ignored and returned as duplicates.
func NewSiteIndex(rows []SiteMetadata) (*SiteIndex, []SiteMetadata) {
	idx := &SiteIndex{
		order: make([]DocumentID, 0, len(rows)),
		sites: make(map[DocumentID]SiteMetadata, len(rows)),
	}
	var dups []SiteMetadata
	for _, row := range rows {
		id := row.DocumentID()
		if _, ok := idx.sites[id]; ok {
			dups = append(dups, row)
			continue
		}
		idx.order = append(idx.order, id)
		idx.sites[id] = row
	}
	return idx, dups
}

// Lookup returns the metadata for id.
func (x *SiteIndex) Lookup(id DocumentID) (SiteMetadata, bool) {
	if x == nil {
		return SiteMetadata{}, false
	}
	m, ok := x.sites[id]
	return m, ok
}

// Documents returns all identities in input order.
func (x *SiteIndex) Documents() []DocumentID {
	if x == nil {
		return nil
	}
	out := make([]DocumentID, len(x.order))
	copy(out, x.order)
	return out
}

// Len returns the number of indexed sites.
func (x *SiteIndex) Len() int {
	if x == nil {
		return 0
	}
	return len(x.order)
}
