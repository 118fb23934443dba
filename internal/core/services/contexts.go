package services

import (
	"errors"

	"github.com/custodia-labs/goldsmith/internal/core/domain"
)

// DirectContexts wraps caller-supplied passage lists as context groups.
// Groups are copied verbatim; every empty, blank or oversized group is
// reported as an InvalidContextError in the returned (joined) error. A ceiling
// of zero allows groups of any size.
func DirectContexts(raw [][]string, ceiling int) ([]domain.ContextGroup, error) {
	groups := make([]domain.ContextGroup, len(raw))
	var errs []error
	for i, passages := range raw {
		groups[i] = domain.ContextGroup(passages).Clone()
		if err := ValidateContextGroup(i, groups[i], ceiling); err != nil {
			errs = append(errs, err)
		}
	}
	return groups, errors.Join(errs...)
}
