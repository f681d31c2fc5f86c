package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// documentHashLen is the number of hex characters of the source URL hash
// carried in a DocumentID.
const documentHashLen = 12

// DocumentID is the stable key for one source document across every stage.
// It is derived from the site identifier and a hash of the source URL.
type DocumentID string

// NewDocumentID derives the identity of the document published for siteID at sourceURL.
// The same inputs always produce the same identity.
//
// The hash covers the source URL. When sanitising changes the site id, the
// raw site id is hashed too, so ids such as "1.0" and "1_0" stay distinct.
func NewDocumentID(siteID, sourceURL string) DocumentID {
	siteID = strings.TrimSpace(siteID)
	safe := sanitiseSiteID(siteID)
	input := strings.TrimSpace(sourceURL)
	if safe != siteID {
		input = siteID + "\x00" + input
	}
	sum := sha256.Sum256([]byte(input))
	return DocumentID(safe + "_" + hex.EncodeToString(sum[:])[:documentHashLen])
}

// sanitiseSiteID keeps identities safe to use as file names.
func sanitiseSiteID(siteID string) string {
	var b strings.Builder
	for _, r := range siteID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "site"
	}
	return b.String()
}

// String returns the string representation.
func (id DocumentID) String() string {
	return string(id)
}

// Validate checks that the identity has the site_hash shape.
func (id DocumentID) Validate() error {
	s := string(id)
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || len(s)-i-1 != documentHashLen {
		return fmt.Errorf("%w: malformed document id %q", ErrInvalidInput, s)
	}
	if _, err := hex.DecodeString(s[i+1:]); err != nil {
		return fmt.Errorf("%w: malformed document id %q", ErrInvalidInput, s)
	}
	if strings.ContainsAny(s[:i], "/\\. ") {
		return fmt.Errorf("%w: malformed document id %q", ErrInvalidInput, s)
	}
	return nil
}

// ParseDocumentID validates s and returns it as a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	id := DocumentID(strings.TrimSpace(s))
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}
