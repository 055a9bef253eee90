package pipeline

// OutcomeKind classifies what happened to a single product candidate as it
// moved through extraction and indexing.
type OutcomeKind string

// Outcome kinds.
const (
	OutcomeExtracted OutcomeKind = "extracted"
	OutcomeIndexed   OutcomeKind = "indexed"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeFailed    OutcomeKind = "failed"
)

// Skip reasons reported in Outcome.Reason.
const (
	SkipAlreadyIndexed   = "already_indexed"
	SkipNoDescription    = "no_description"
	SkipEmbeddingFailed  = "embedding_failed"
	SkipBudgetExhausted  = "budget_exhausted"
	FailRetriesExhausted = "retries_exhausted"
)

// Outcome is the explicit result value threaded through the pipeline in
// place of exception-driven skip control flow.
type Outcome struct {
	Kind   OutcomeKind
	URL    string
	Reason string
}

// Skipped builds a skip outcome for the given URL.
func Skipped(url, reason string) Outcome {
	return Outcome{Kind: OutcomeSkipped, URL: url, Reason: reason}
}

// Failed builds a failure outcome for the given URL.
func Failed(url, reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, URL: url, Reason: reason}
}

// SessionReport aggregates outcomes for one crawl session so skip and
// failure counts are observable without parsing logs.
type SessionReport struct {
	DomainsDiscovered int
	DomainsCrawled    int
	ProductsIndexed   int
	ProductsSkipped   int
	ProductsFailed    int
	BudgetExhausted   bool
}

// Count folds a single outcome into the report.
func (r *SessionReport) Count(o Outcome) {
	switch o.Kind {
	case OutcomeIndexed:
		r.ProductsIndexed++
	case OutcomeSkipped:
		r.ProductsSkipped++
		if o.Reason == SkipBudgetExhausted {
			r.BudgetExhausted = true
		}
	case OutcomeFailed:
		r.ProductsFailed++
	}
}
