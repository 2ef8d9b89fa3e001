package vsa

import (
	"context"

	"nerdkernel/internal/fact"
	"nerdkernel/internal/term"
)

// Ranker scores facts by hypervector similarity to a query term. It
// never decides
// which facts are true, it only orders an already-resolved candidate
// list for presentation. Callers obtain candidates from fact.Store
// themselves (e.g. via QueryByPredicate) and pass them here purely for
// ordering.
type Ranker struct {
	engine    Engine
	opts      term.Options
	threshold float64
}

// NewRanker builds a Ranker over engine, using opts for canonical
// serialization and threshold as the minimum cosine similarity to
// include a candidate.
func NewRanker(engine Engine, opts term.Options, threshold float64) *Ranker {
	return &Ranker{engine: engine, opts: opts, threshold: threshold}
}

// RankedFact pairs a candidate fact with its similarity score.
type RankedFact struct {
	Instance   fact.Instance
	Similarity float64
}

// Rank embeds query and every candidate's canonical serialization, then
// returns the candidates whose similarity to query meets the configured
// threshold, ordered most-similar first and capped at topK (topK <= 0
// means "no cap").
func (r *Ranker) Rank(ctx context.Context, query term.Term, candidates []fact.Instance, topK int) ([]RankedFact, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	canonQuery, err := term.Canonicalize(query, r.opts)
	if err != nil {
		return nil, err
	}
	queryVec, err := r.engine.Embed(ctx, term.Serialize(canonQuery, r.opts))
	if err != nil {
		return nil, err
	}

	serialized := make([]string, len(candidates))
	for i, c := range candidates {
		serialized[i] = term.Serialize(term.NewStruct(c.Predicate, c.Arguments), r.opts)
	}
	vectors, err := r.engine.EmbedBatch(ctx, serialized)
	if err != nil {
		return nil, err
	}

	ranked, err := TopK(queryVec, vectors, len(candidates), r.threshold)
	if err != nil {
		return nil, err
	}
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	out := make([]RankedFact, len(ranked))
	for i, rk := range ranked {
		out[i] = RankedFact{Instance: candidates[rk.Index], Similarity: rk.Similarity}
	}
	return out, nil
}
