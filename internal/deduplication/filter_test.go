package deduplication

import (
	"fmt"
	"testing"

	"github.com/quizquotidien/quizgen/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func questions(texts ...string) []types.Question {
	qs := make([]types.Question, len(texts))
	for i, text := range texts {
		qs[i] = types.Question{
			Text:     text,
			Options:  []string{"A", "B", "C", "D"},
			Category: "Culture",
			ID:       fmt.Sprintf("q_%d", i),
		}
	}
	return qs
}

// fillers returns n short texts that are neither similar to the capital
// questions used below nor to each other's normalized form.
func fillers(n int) []types.Question {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("n%d", i)
	}
	return questions(texts...)
}

func TestFilterEndToEndPunctuationOnlyDifference(t *testing.T) {
	corpus := questions("Quelle est la capitale de la France ?")
	candidates := questions("Quelle est la capitale de la France?")

	res := Filter(candidates, corpus, GenerationConfig())

	assert.Empty(t, res.Accepted)
	require.Len(t, res.Rejections, 1)
	rej := res.Rejections[0]
	assert.Equal(t, types.ReasonExactDuplicate, rej.Reason)
	assert.Equal(t, 0, rej.MatchedIndex)
	assert.False(t, rej.MatchedInBatch)
	assert.Equal(t, corpus[0].Text, rej.Matched.Text)
	assert.NoError(t, res.Validate())
}

func TestFilterNearDuplicate(t *testing.T) {
	corpus := questions("Quelle est la capitale de la France ?", "Qui a peint la Joconde ?")
	candidates := questions("Quelle est la capitale de la Frange ?")

	res := Filter(candidates, corpus, GenerationConfig())

	require.Len(t, res.Rejections, 1)
	rej := res.Rejections[0]
	assert.Equal(t, types.ReasonNearDuplicate, rej.Reason)
	assert.Equal(t, 0, rej.MatchedIndex)
	assert.InDelta(t, 34.0/35.0, rej.Similarity, 1e-9)
	assert.Equal(t, 97, rej.Percent())
	assert.Equal(t, 1, res.Stats.NearDuplicateCount)
}

func TestFilterNearDuplicateScansOldestFirst(t *testing.T) {
	corpus := questions(
		"Quelle est la capitale de la Frange ?",
		"Quelle est la capitale de la France ?",
	)
	candidates := questions("Quelle est la capitale de la Francf ?")

	res := Filter(candidates, corpus, GenerationConfig())

	require.Len(t, res.Rejections, 1)
	rej := res.Rejections[0]
	assert.Equal(t, types.ReasonNearDuplicate, rej.Reason)
	assert.Equal(t, 0, rej.MatchedIndex, "first entry above the threshold wins")
	assert.Equal(t, 94, rej.Percent())
	assert.Equal(t, 1, res.Stats.ComparisonsMade, "scan stops at the first match")
}

func TestFilterIntraBatchDuplicate(t *testing.T) {
	corpus := questions("Qui a peint la Joconde ?")
	candidates := questions(
		"Combien de continents y a-t-il sur Terre ?",
		"Quel est le plus long fleuve du monde ?",
		"Combien de continents y a-t-il sur Terre",
	)

	res := Filter(candidates, corpus, GenerationConfig())

	require.Len(t, res.Accepted, 2)
	assert.Equal(t, candidates[0].Text, res.Accepted[0].Text)
	assert.Equal(t, candidates[1].Text, res.Accepted[1].Text)

	require.Len(t, res.Rejections, 1)
	rej := res.Rejections[0]
	assert.Equal(t, types.ReasonIntraBatchDuplicate, rej.Reason)
	assert.Equal(t, 2, rej.CandidateIndex)
	assert.True(t, rej.MatchedInBatch)
	assert.Equal(t, 0, rej.MatchedIndex)
	assert.Equal(t, candidates[0].Text, rej.Matched.Text)
	assert.NoError(t, res.Validate())
}

func TestFilterExactTakesPrecedenceOverNear(t *testing.T) {
	corpus := questions(
		"Quelle est la capitale de la Frange ?",
		"Quelle est la capitale de la France ?",
	)
	candidates := questions("quelle est la capitale de la france")

	res := Filter(candidates, corpus, GenerationConfig())

	require.Len(t, res.Rejections, 1)
	assert.Equal(t, types.ReasonExactDuplicate, res.Rejections[0].Reason)
	assert.Equal(t, 1, res.Rejections[0].MatchedIndex)
	assert.Equal(t, 0, res.Stats.ComparisonsMade)
}

func TestFilterExactMatchUsesWholeCorpus(t *testing.T) {
	corpus := append(questions("Quelle est la capitale de la France ?"), fillers(200)...)
	candidates := questions("QUELLE EST LA CAPITALE DE LA FRANCE")

	res := Filter(candidates, corpus, GenerationConfig())

	require.Len(t, res.Rejections, 1)
	assert.Equal(t, types.ReasonExactDuplicate, res.Rejections[0].Reason)
	assert.Equal(t, 0, res.Rejections[0].MatchedIndex)
}

func TestFilterSimilarityWindowBoundary(t *testing.T) {
	near := "Quelle est la capitale de la France ?"
	candidate := questions("Quelle est la capitale de la Frange ?")
	cfg := GenerationConfig()
	cfg.SimilarityWindow = 100

	t.Run("entry just outside the window is ignored", func(t *testing.T) {
		corpus := append(questions(near), fillers(100)...)
		res := Filter(candidate, corpus, cfg)
		assert.Len(t, res.Accepted, 1)
		assert.Empty(t, res.Rejections)
		assert.Equal(t, 100, res.Stats.ComparisonsMade)
	})

	t.Run("oldest entry inside the window is checked", func(t *testing.T) {
		corpus := append(questions(near), fillers(99)...)
		res := Filter(candidate, corpus, cfg)
		require.Len(t, res.Rejections, 1)
		assert.Equal(t, types.ReasonNearDuplicate, res.Rejections[0].Reason)
		assert.Equal(t, 0, res.Rejections[0].MatchedIndex)
	})

	t.Run("zero window scans the whole corpus", func(t *testing.T) {
		corpus := append(questions(near), fillers(500)...)
		whole := cfg
		whole.SimilarityWindow = 0
		res := Filter(candidate, corpus, whole)
		require.Len(t, res.Rejections, 1)
		assert.Equal(t, types.ReasonNearDuplicate, res.Rejections[0].Reason)
	})
}

func TestFilterThresholdIsStrict(t *testing.T) {
	corpus := questions("abcd")
	candidates := questions("abce") // similarity 0.75

	atThreshold := Config{SimilarityThreshold: 0.75, SimilarityWindow: 100}
	res := Filter(candidates, corpus, atThreshold)
	assert.Len(t, res.Accepted, 1, "a score equal to the threshold is accepted")

	below := Config{SimilarityThreshold: 0.74, SimilarityWindow: 100}
	res = Filter(candidates, corpus, below)
	require.Len(t, res.Rejections, 1)
	assert.Equal(t, types.ReasonNearDuplicate, res.Rejections[0].Reason)
}

func TestFilterThresholdsPerCallSite(t *testing.T) {
	// 0.875 similar: above the generation threshold, below the cleaning one.
	corpus := questions("abcdefgh")
	candidates := questions("abcdefgx")

	gen := Filter(candidates, corpus, GenerationConfig())
	assert.Len(t, gen.Rejections, 1)

	clean := Filter(candidates, corpus, CleaningConfig())
	assert.Len(t, clean.Accepted, 1)
}

func TestFilterPreservesOrderAndInputs(t *testing.T) {
	corpus := questions("Qui a peint la Joconde ?", "Quelle est la capitale de la France ?")
	candidates := questions(
		"Quel est le plus grand océan ?",
		"Qui a peint la Joconde?",
		"Combien de pattes a une araignée ?",
		"Quelle est la capitale de la Frange ?",
		"En quelle année a eu lieu la Révolution française ?",
		"Combien de pattes a une araignee",
	)
	corpusBefore := append([]types.Question(nil), corpus...)
	candidatesBefore := append([]types.Question(nil), candidates...)

	res := Filter(candidates, corpus, GenerationConfig())

	assert.Equal(t, corpusBefore, corpus)
	assert.Equal(t, candidatesBefore, candidates)

	require.Len(t, res.Accepted, 3)
	assert.Equal(t, []string{candidates[0].Text, candidates[2].Text, candidates[4].Text}, types.Texts(res.Accepted))

	reasons := make([]types.RejectionReason, len(res.Rejections))
	indexes := make([]int, len(res.Rejections))
	for i, rej := range res.Rejections {
		reasons[i] = rej.Reason
		indexes[i] = rej.CandidateIndex
	}
	assert.Equal(t, []types.RejectionReason{
		types.ReasonExactDuplicate,
		types.ReasonNearDuplicate,
		types.ReasonIntraBatchDuplicate,
	}, reasons)
	assert.Equal(t, []int{1, 3, 5}, indexes)

	assert.Equal(t, 6, res.Stats.TotalCandidates)
	assert.Equal(t, 3, res.Stats.RejectedCount())
	assert.Len(t, res.ByReason(types.ReasonNearDuplicate), 1)
	assert.NoError(t, res.Validate())
}

func TestFilterEmptyInputs(t *testing.T) {
	res := Filter(nil, nil, GenerationConfig())
	assert.Empty(t, res.Accepted)
	assert.Empty(t, res.Rejections)
	assert.NoError(t, res.Validate())

	res = Filter(questions("Qui a peint la Joconde ?"), nil, GenerationConfig())
	assert.Len(t, res.Accepted, 1)
}

func TestFilterPunctuationOnlyTexts(t *testing.T) {
	corpus := questions("!!!")
	candidates := questions("???")

	res := Filter(candidates, corpus, GenerationConfig())

	require.Len(t, res.Rejections, 1)
	assert.Equal(t, types.ReasonExactDuplicate, res.Rejections[0].Reason)
}

func TestResultValidate(t *testing.T) {
	res := Filter(questions("a", "b"), nil, GenerationConfig())
	require.NoError(t, res.Validate())

	res.Stats.AcceptedCount = 5
	assert.ErrorContains(t, res.Validate(), "accepted_count")

	res = Filter(questions("a", "a"), nil, GenerationConfig())
	res.Stats.IntraBatchDuplicateCount = 0
	assert.ErrorContains(t, res.Validate(), "intra_batch_duplicate_count")
}

func TestCheck(t *testing.T) {
	corpus := questions("Quelle est la capitale de la France ?", "Qui a peint la Joconde ?")

	rej := Check("quelle est la capitale de la france", corpus, GenerationConfig())
	require.NotNil(t, rej)
	assert.Equal(t, types.ReasonExactDuplicate, rej.Reason)
	assert.Equal(t, 0, rej.MatchedIndex)

	rej = Check("Qui a peint la Jaconde ?", corpus, GenerationConfig())
	require.NotNil(t, rej)
	assert.Equal(t, types.ReasonNearDuplicate, rej.Reason)
	assert.Equal(t, 1, rej.MatchedIndex)
	assert.Equal(t, 95, rej.Percent())

	assert.Nil(t, Check("Combien de pattes a une araignée ?", corpus, GenerationConfig()))
}
