package search

import (
	"context"
	"errors"

	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/storage"
)

// expansionScore is the fixed score assigned to context neighbors. It sits
// below any primary-hit score so expansion never outranks a genuine hit.
const expansionScore float32 = 0.30

// expandContext collects the document-order neighbors of each vector hit,
// up to window hops in each direction. Positions past either end of the
// document are skipped. Neighbors that were already retrieved directly are
// not filtered here; deduplication keeps the higher-scored primary hit.
func expandContext(ctx context.Context, chunks storage.ChunkRepository, hits []*core.SearchResult, window int) ([]*core.SearchResult, error) {
	if window < 1 {
		return nil, nil
	}

	var neighbors []*core.SearchResult
	seen := make(map[core.ID]bool)

	for _, hit := range hits {
		for hop := -window; hop <= window; hop++ {
			if hop == 0 {
				continue
			}
			position := hit.Chunk.Position + hop
			if position < 1 {
				continue
			}

			neighbor, err := chunks.GetChunkAt(ctx, hit.Chunk.DocumentId, position)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				return nil, err
			}

			if seen[neighbor.Id] {
				continue
			}
			seen[neighbor.Id] = true

			neighbors = append(neighbors, &core.SearchResult{
				Chunk:  neighbor,
				Score:  expansionScore,
				Branch: core.BranchContext,
			})
		}
	}

	return neighbors, nil
}
