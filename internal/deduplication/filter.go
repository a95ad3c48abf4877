package deduplication

import (
	"fmt"

	"github.com/quizquotidien/quizgen/internal/types"
)

// Result is the outcome of filtering a batch of candidate questions.
type Result struct {
	// Accepted are the candidates that passed every check, in input order.
	Accepted []types.Question `json:"accepted"`

	// Rejections are the rejected candidates, in input order.
	Rejections []types.Rejection `json:"rejections"`

	Stats Stats `json:"stats"`
}

// Stats provides counts about one filtering pass.
type Stats struct {
	TotalCandidates          int `json:"total_candidates"`
	AcceptedCount            int `json:"accepted_count"`
	ExactDuplicateCount      int `json:"exact_duplicate_count"`
	NearDuplicateCount       int `json:"near_duplicate_count"`
	IntraBatchDuplicateCount int `json:"intra_batch_duplicate_count"`

	// ComparisonsMade counts similarity computations (edit-distance matrices).
	ComparisonsMade int `json:"comparisons_made"`
}

// RejectedCount is the number of rejected candidates.
func (s Stats) RejectedCount() int {
	return s.ExactDuplicateCount + s.NearDuplicateCount + s.IntraBatchDuplicateCount
}

// ByReason returns the rejections with the given reason, in input order.
func (r *Result) ByReason(reason types.RejectionReason) []types.Rejection {
	var out []types.Rejection
	for _, rej := range r.Rejections {
		if rej.Reason == reason {
			out = append(out, rej)
		}
	}
	return out
}

// Validate checks that the stats agree with the accepted and rejected lists.
func (r *Result) Validate() error {
	if r.Stats.AcceptedCount != len(r.Accepted) {
		return fmt.Errorf("stats.accepted_count (%d) does not match accepted length (%d)",
			r.Stats.AcceptedCount, len(r.Accepted))
	}
	counts := map[types.RejectionReason]int{}
	for i, rej := range r.Rejections {
		if !rej.Reason.IsValid() {
			return fmt.Errorf("rejections[%d] has invalid reason %q", i, rej.Reason)
		}
		if rej.CandidateIndex < 0 || rej.CandidateIndex >= r.Stats.TotalCandidates {
			return fmt.Errorf("rejections[%d] has invalid candidate index %d (total: %d)",
				i, rej.CandidateIndex, r.Stats.TotalCandidates)
		}
		counts[rej.Reason]++
	}
	if r.Stats.ExactDuplicateCount != counts[types.ReasonExactDuplicate] {
		return fmt.Errorf("stats.exact_duplicate_count (%d) does not match rejections (%d)",
			r.Stats.ExactDuplicateCount, counts[types.ReasonExactDuplicate])
	}
	if r.Stats.NearDuplicateCount != counts[types.ReasonNearDuplicate] {
		return fmt.Errorf("stats.near_duplicate_count (%d) does not match rejections (%d)",
			r.Stats.NearDuplicateCount, counts[types.ReasonNearDuplicate])
	}
	if r.Stats.IntraBatchDuplicateCount != counts[types.ReasonIntraBatchDuplicate] {
		return fmt.Errorf("stats.intra_batch_duplicate_count (%d) does not match rejections (%d)",
			r.Stats.IntraBatchDuplicateCount, counts[types.ReasonIntraBatchDuplicate])
	}
	total := len(r.Accepted) + len(r.Rejections)
	if r.Stats.TotalCandidates != total {
		return fmt.Errorf("stats.total_candidates (%d) does not match accepted + rejected (%d)",
			r.Stats.TotalCandidates, total)
	}
	return nil
}

func (r *Result) reject(rej types.Rejection) {
	r.Rejections = append(r.Rejections, rej)
	switch rej.Reason {
	case types.ReasonExactDuplicate:
		r.Stats.ExactDuplicateCount++
	case types.ReasonNearDuplicate:
		r.Stats.NearDuplicateCount++
	case types.ReasonIntraBatchDuplicate:
		r.Stats.IntraBatchDuplicateCount++
	}
}

func (r *Result) accept(q types.Question) {
	r.Accepted = append(r.Accepted, q)
	r.Stats.AcceptedCount++
}

// origin locates a normalized text: a corpus index, or an index into the
// accepted candidates of the current batch.
type origin struct {
	index   int
	inBatch bool
}

// matcher holds the per-call indexes over a reference corpus. It is rebuilt
// for every call and never shared.
type matcher struct {
	corpus      []types.Question
	normalized  []string
	seen        map[string]origin
	windowStart int
	threshold   float64
	comparisons int
}

func newMatcher(corpus []types.Question, cfg Config) *matcher {
	m := &matcher{
		corpus:     corpus,
		normalized: make([]string, len(corpus)),
		seen:       make(map[string]origin, len(corpus)),
		threshold:  cfg.SimilarityThreshold,
	}
	for i := range corpus {
		n := Normalize(corpus[i].Text)
		m.normalized[i] = n
		if _, ok := m.seen[n]; !ok {
			m.seen[n] = origin{index: i}
		}
	}
	if cfg.SimilarityWindow > 0 && len(corpus) > cfg.SimilarityWindow {
		m.windowStart = len(corpus) - cfg.SimilarityWindow
	}
	return m
}

// exact looks up a normalized text in the exact-match set.
func (m *matcher) exact(normalized string) (origin, bool) {
	o, ok := m.seen[normalized]
	return o, ok
}

// near scans the similarity window from its oldest to its newest entry and
// returns the first corpus index scoring above the threshold.
func (m *matcher) near(normalized string) (int, float64, bool) {
	for i := m.windowStart; i < len(m.normalized); i++ {
		m.comparisons++
		score := Similarity(normalized, m.normalized[i])
		if score > m.threshold {
			return i, score, true
		}
	}
	return -1, 0, false
}

// Filter decides which candidates are accepted against corpus.
//
// Candidates are processed in input order. For each one:
//  1. its text is normalized;
//  2. a normalized match anywhere in the corpus rejects it as exact_duplicate;
//  3. a similarity above cfg.SimilarityThreshold against one of the last
//     cfg.SimilarityWindow corpus entries rejects it as near_duplicate;
//  4. a normalized match with an earlier accepted candidate rejects it as
//     intra_batch_duplicate;
//  5. otherwise it is accepted and its normalized text joins the exact-match set.
//
// The order of the checks fixes which reason is reported when several apply.
// Candidates must have non-empty text; neither slice is modified.
func Filter(candidates, corpus []types.Question, cfg Config) *Result {
	m := newMatcher(corpus, cfg)
	res := &Result{
		Accepted:   make([]types.Question, 0, len(candidates)),
		Rejections: []types.Rejection{},
		Stats:      Stats{TotalCandidates: len(candidates)},
	}

	for ci, candidate := range candidates {
		normalized := Normalize(candidate.Text)
		o, seen := m.exact(normalized)

		if seen && !o.inBatch {
			res.reject(types.Rejection{
				Candidate:      candidate,
				CandidateIndex: ci,
				Reason:         types.ReasonExactDuplicate,
				Matched:        corpus[o.index],
				MatchedIndex:   o.index,
			})
			continue
		}

		if idx, score, ok := m.near(normalized); ok {
			res.reject(types.Rejection{
				Candidate:      candidate,
				CandidateIndex: ci,
				Reason:         types.ReasonNearDuplicate,
				Matched:        corpus[idx],
				MatchedIndex:   idx,
				Similarity:     score,
			})
			continue
		}

		if seen && o.inBatch {
			res.reject(types.Rejection{
				Candidate:      candidate,
				CandidateIndex: ci,
				Reason:         types.ReasonIntraBatchDuplicate,
				Matched:        res.Accepted[o.index],
				MatchedIndex:   o.index,
				MatchedInBatch: true,
			})
			continue
		}

		m.seen[normalized] = origin{index: len(res.Accepted), inBatch: true}
		res.accept(candidate)
	}

	res.Stats.ComparisonsMade = m.comparisons
	return res
}

// Check runs the corpus checks of Filter (exact match, then near match) for
// a single text. It returns nil when the text would be accepted.
func Check(text string, corpus []types.Question, cfg Config) *types.Rejection {
	m := newMatcher(corpus, cfg)
	candidate := types.Question{Text: text}
	normalized := Normalize(text)

	if o, ok := m.exact(normalized); ok {
		return &types.Rejection{
			Candidate:    candidate,
			Reason:       types.ReasonExactDuplicate,
			Matched:      corpus[o.index],
			MatchedIndex: o.index,
		}
	}
	if idx, score, ok := m.near(normalized); ok {
		return &types.Rejection{
			Candidate:    candidate,
			Reason:       types.ReasonNearDuplicate,
			Matched:      corpus[idx],
			MatchedIndex: idx,
			Similarity:   score,
		}
	}
	return nil
}
