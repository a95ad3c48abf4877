package types

import "math"

// RejectionReason says why a candidate question was not accepted.
type RejectionReason string

const (
	// ReasonExactDuplicate: normalized text equals a stored question.
	ReasonExactDuplicate RejectionReason = "exact_duplicate"
	// ReasonNearDuplicate: similarity to a stored question is above the threshold.
	ReasonNearDuplicate RejectionReason = "near_duplicate"
	// ReasonIntraBatchDuplicate: normalized text equals an earlier accepted
	// candidate of the same batch.
	ReasonIntraBatchDuplicate RejectionReason = "intra_batch_duplicate"
)

// IsValid reports whether r is a known reason.
func (r RejectionReason) IsValid() bool {
	switch r {
	case ReasonExactDuplicate, ReasonNearDuplicate, ReasonIntraBatchDuplicate:
		return true
	}
	return false
}

// Rejection records a rejected candidate and the question it collided with.
type Rejection struct {
	Candidate      Question        `json:"candidate"`
	CandidateIndex int             `json:"candidate_index"`
	Reason         RejectionReason `json:"reason"`

	// Matched is the stored (or earlier accepted) question that caused the rejection.
	Matched Question `json:"matched"`
	// MatchedIndex indexes the corpus, or the accepted batch when MatchedInBatch is set.
	MatchedIndex   int  `json:"matched_index"`
	MatchedInBatch bool `json:"matched_in_batch,omitempty"`

	// Similarity is only meaningful for near duplicates.
	Similarity float64 `json:"similarity,omitempty"`
}

// Percent returns the similarity as a rounded integer percentage.
func (r *Rejection) Percent() int {
	return int(math.Round(r.Similarity * 100))
}
