package deduplication

import "github.com/quizquotidien/quizgen/internal/types"

// Clean removes duplicates already present in a stored question list.
//
// Questions are walked in order and compared against the questions kept so
// far: a normalized match is an exact_duplicate, otherwise the first kept
// question scoring above cfg.SimilarityThreshold makes it a near_duplicate.
// With a non-zero cfg.SimilarityWindow only the most recently kept questions
// are scored. Rejections point into Result.Accepted (MatchedInBatch is set).
func Clean(questions []types.Question, cfg Config) *Result {
	res := &Result{
		Accepted:   make([]types.Question, 0, len(questions)),
		Rejections: []types.Rejection{},
		Stats:      Stats{TotalCandidates: len(questions)},
	}
	keptNormalized := make([]string, 0, len(questions))
	seen := make(map[string]int, len(questions))

	for i, q := range questions {
		normalized := Normalize(q.Text)

		if k, ok := seen[normalized]; ok {
			res.reject(types.Rejection{
				Candidate:      q,
				CandidateIndex: i,
				Reason:         types.ReasonExactDuplicate,
				Matched:        res.Accepted[k],
				MatchedIndex:   k,
				MatchedInBatch: true,
			})
			continue
		}

		start := 0
		if cfg.SimilarityWindow > 0 && len(keptNormalized) > cfg.SimilarityWindow {
			start = len(keptNormalized) - cfg.SimilarityWindow
		}
		similar := false
		for k := start; k < len(keptNormalized); k++ {
			res.Stats.ComparisonsMade++
			score := Similarity(normalized, keptNormalized[k])
			if score > cfg.SimilarityThreshold {
				res.reject(types.Rejection{
					Candidate:      q,
					CandidateIndex: i,
					Reason:         types.ReasonNearDuplicate,
					Matched:        res.Accepted[k],
					MatchedIndex:   k,
					MatchedInBatch: true,
					Similarity:     score,
				})
				similar = true
				break
			}
		}
		if similar {
			continue
		}

		seen[normalized] = len(res.Accepted)
		keptNormalized = append(keptNormalized, normalized)
		res.accept(q)
	}

	return res
}
