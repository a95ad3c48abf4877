package deduplication

import "github.com/quizquotidien/quizgen/internal/types"

// Summary is the reporting view of a Result: counts per outcome plus a
// bounded sample of each category.
type Summary struct {
	Added             int `json:"added"`
	DuplicatesAvoided int `json:"duplicatesAvoided"`
	SimilarAvoided    int `json:"similarAvoided"`
	IntraBatchAvoided int `json:"intraBatchAvoided"`
	TotalGenerated    int `json:"totalGenerated"`
	ComparisonsMade   int `json:"comparisonsMade"`

	Samples            []QuestionSample  `json:"samples"`
	DuplicatesExamples []DuplicateSample `json:"duplicatesExamples"`
	SimilarExamples    []SimilarSample   `json:"similarExamples"`
	IntraBatchExamples []DuplicateSample `json:"intraBatchExamples"`
}

// QuestionSample is an accepted question shown in a summary.
type QuestionSample struct {
	Question string `json:"question"`
	Category string `json:"category,omitempty"`
}

// DuplicateSample is an exact or intra-batch duplicate shown in a summary.
type DuplicateSample struct {
	Question    string `json:"question"`
	Index       int    `json:"index"`
	DuplicateOf string `json:"duplicate_of"`
}

// SimilarSample is a near duplicate shown in a summary.
type SimilarSample struct {
	Question   string `json:"question"`
	Index      int    `json:"index"`
	SimilarTo  string `json:"similar_to"`
	Similarity int    `json:"similarity"`
}

// Summarize builds a Summary keeping at most sampleSize examples per category.
func Summarize(res *Result, sampleSize int) Summary {
	s := Summary{
		Added:              res.Stats.AcceptedCount,
		DuplicatesAvoided:  res.Stats.ExactDuplicateCount,
		SimilarAvoided:     res.Stats.NearDuplicateCount,
		IntraBatchAvoided:  res.Stats.IntraBatchDuplicateCount,
		TotalGenerated:     res.Stats.TotalCandidates,
		ComparisonsMade:    res.Stats.ComparisonsMade,
		Samples:            []QuestionSample{},
		DuplicatesExamples: []DuplicateSample{},
		SimilarExamples:    []SimilarSample{},
		IntraBatchExamples: []DuplicateSample{},
	}

	for _, q := range res.Accepted {
		if len(s.Samples) >= sampleSize {
			break
		}
		s.Samples = append(s.Samples, QuestionSample{Question: q.Text, Category: q.Category})
	}

	for i := range res.Rejections {
		rej := &res.Rejections[i]
		switch rej.Reason {
		case types.ReasonExactDuplicate:
			if len(s.DuplicatesExamples) < sampleSize {
				s.DuplicatesExamples = append(s.DuplicatesExamples, duplicateSample(rej))
			}
		case types.ReasonNearDuplicate:
			if len(s.SimilarExamples) < sampleSize {
				s.SimilarExamples = append(s.SimilarExamples, SimilarSample{
					Question:   rej.Candidate.Text,
					Index:      rej.CandidateIndex,
					SimilarTo:  rej.Matched.Text,
					Similarity: rej.Percent(),
				})
			}
		case types.ReasonIntraBatchDuplicate:
			if len(s.IntraBatchExamples) < sampleSize {
				s.IntraBatchExamples = append(s.IntraBatchExamples, duplicateSample(rej))
			}
		}
	}

	return s
}

func duplicateSample(rej *types.Rejection) DuplicateSample {
	return DuplicateSample{
		Question:    rej.Candidate.Text,
		Index:       rej.CandidateIndex,
		DuplicateOf: rej.Matched.Text,
	}
}
