// Package deduplication detects duplicate and near-duplicate quiz questions.
//
// # Overview
//
// Every question text is first canonicalized by Normalize (lower case, no
// diacritics, no punctuation, single spaces). Two questions are exact
// duplicates when their normalized texts are equal. Near duplicates are
// found with Similarity, a Levenshtein-based score in [0, 1].
//
// # Call sites
//
// Two call sites use the same engine with different configurations:
//
//  1. Filter: freshly generated candidates against the stored bank
//     (GenerationConfig: threshold 0.85, window of the 100 most recent questions)
//  2. Clean: the stored bank against itself
//     (CleaningConfig: threshold 0.90, every kept question)
//
// Check runs the corpus checks of Filter for a single text.
//
// # Usage
//
//	res := deduplication.Filter(generated, bank.Questions, deduplication.GenerationConfig())
//	for _, rej := range res.ByReason(types.ReasonNearDuplicate) {
//	    log.Printf("%q is %d%% similar to %q", rej.Candidate.Text, rej.Percent(), rej.Matched.Text)
//	}
//	summary := deduplication.Summarize(res, 3)
//
// # Cost
//
// Each near-duplicate check costs one O(n*m) edit-distance matrix per corpus
// entry in the window, so a run is bounded by
// candidates x window x average text length squared. The exact-match set is
// rebuilt on every call; nothing is cached between runs.
//
// All functions are pure and synchronous. They perform no I/O, do not log
// and never modify their inputs.
package deduplication
