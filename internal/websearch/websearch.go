package websearch

import (
	"context"

	"github.com/nvalmar/luma/internal/model"
)

// ISearcher finds web results for a query. Implementations must degrade to an
// empty result set on failure rather than blocking a chat turn.
type ISearcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.WebResult, error)
}

// Disabled is the no-op searcher wired when web search is turned off.
type Disabled struct{}

func (Disabled) Search(ctx context.Context, query string, maxResults int) ([]model.WebResult, error) {
	return nil, nil
}
