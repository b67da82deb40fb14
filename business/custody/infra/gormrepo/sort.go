package gormrepo

import (
	"slices"

	"github.com/fd1az/nft-auction/business/custody/domain"
)

// token ids are stored as decimal text, so SQL ordering is lexical.
func sortByID(tokens []*domain.Token) {
	slices.SortFunc(tokens, func(a, b *domain.Token) int {
		return a.ID.Cmp(b.ID)
	})
}
