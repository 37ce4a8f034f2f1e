package types

// MatchClass labels which signal dominated a hybrid-search result.
type MatchClass string

const (
	MatchHybrid   MatchClass = "hybrid"
	MatchKeyword  MatchClass = "keyword"
	MatchSemantic MatchClass = "semantic"
)

// LexicalHit is one candidate returned by the lexical searcher: a
// negative-log style rank score (less negative is better), preserved
// through to the fusion step rather than normalized at the source.
type LexicalHit struct {
	PassageID    int64
	FilePath     string
	Heading      *string
	Preview      string
	LexicalScore float64
}

// SemanticHit is one candidate returned by the semantic reranker.
type SemanticHit struct {
	PassageID int64
	Score     float64 // cosine, in [-1, 1]
}

// HybridHit is one result of the hybrid orchestrator: a fused, classified
// record ready for the wire boundary.
type HybridHit struct {
	PassageID     int64
	FilePath      string
	Heading       *string
	Preview       string
	Score         float64 // fused score in [0, 1]
	LexicalScore  float64 // raw, not normalized
	SemanticScore float64 // normalized to [0, 1] (max(0, cosine))
	MatchClass    MatchClass
}

// ClusterSuggestion is one entry in the cluster-suggest (topic routing)
// result list.
type ClusterSuggestion struct {
	ClusterID int64
	Name      string
	Score     float64 // in [0, 1]
}
