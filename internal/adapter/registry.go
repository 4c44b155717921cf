package adapter

import (
	"fmt"

	"github.com/leadforge/outreach-engine/internal/domain"
)

// SearcherRegistry resolves the lead searcher for a scraping source.
type SearcherRegistry struct {
	searchers map[domain.LeadSource]LeadSearcher
}

func NewSearcherRegistry(searchers ...LeadSearcher) *SearcherRegistry {
	bySource := make(map[domain.LeadSource]LeadSearcher, len(searchers))
	for _, s := range searchers {
		if s != nil {
			bySource[s.Source()] = s
		}
	}
	return &SearcherRegistry{searchers: bySource}
}

func (r *SearcherRegistry) ForSource(source domain.LeadSource) (LeadSearcher, error) {
	if r == nil {
		return nil, fmt.Errorf("searcher registry is not initialized")
	}
	searcher, ok := r.searchers[source]
	if !ok {
		return nil, fmt.Errorf("%w: no searcher configured for source %q", domain.ErrValidation, source)
	}
	return searcher, nil
}

// Sources lists the configured scraping sources.
func (r *SearcherRegistry) Sources() []domain.LeadSource {
	if r == nil {
		return nil
	}
	sources := make([]domain.LeadSource, 0, len(r.searchers))
	for source := range r.searchers {
		sources = append(sources, source)
	}
	return sources
}
