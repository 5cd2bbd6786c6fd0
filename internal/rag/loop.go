package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultMaxRetries bounds corrective re-retrieval. Two retries exhaust the
// filter-relaxation ladder (drop topic, then drop condition); beyond that a
// poorly covered corpus cannot be retried into coverage.
const DefaultMaxRetries = 2

// loopState is the explicit state of one corrective pass. Keeping the retry
// machinery as a state machine with a counter, rather than recursion, makes
// termination inspectable.
type loopState int

const (
	stateInitial loopState = iota
	stateRetrieved
	stateVerified
	stateRetrying
	stateDone
)

// EvidenceRetriever is the retrieval surface the loop drives. Implemented
// by *Retriever.
type EvidenceRetriever interface {
	Retrieve(ctx context.Context, query string, opts ...RetrieveOption) ([]Result, error)
}

// AnswerFunc generates a draft answer from a query and its evidence. The
// loop calls it once per attempt; it is typically backed by the model the
// orchestration layer already holds.
type AnswerFunc func(ctx context.Context, query string, evidence []Result) (string, error)

// RunOption supplies per-run user context to the corrective loop. The
// rewriter folds it into retry queries so re-retrieval favors advice the
// user can actually follow.
type RunOption func(*runConfig)

type runConfig struct {
	profile     Profile
	constraints Constraints
}

// WithUserProfile sets the profile folded into rewritten retry queries.
func WithUserProfile(p Profile) RunOption {
	return func(c *runConfig) { c.profile = p }
}

// WithUserConstraints sets the constraints folded into rewritten retry
// queries.
func WithUserConstraints(con Constraints) RunOption {
	return func(c *runConfig) { c.constraints = con }
}

// LoopResult is the outcome of a corrective retrieval pass.
type LoopResult struct {
	Answer        string
	Verdict       Verdict
	Evidence      []Result
	Attempts      int
	LowConfidence bool // Retries exhausted below threshold; answer is best-effort
}

// CorrectiveLoop runs retrieve, answer, verify, and bounded retry. Each
// retry relaxes one filter dimension (topic first, then condition) so a
// query that found nothing under narrow filters gets a wider look at the
// corpus before the loop gives up.
type CorrectiveLoop struct {
	retriever  EvidenceRetriever
	critic     *Critic
	maxRetries int
	logger     *slog.Logger
}

// NewCorrectiveLoop creates a loop. maxRetries < 0 falls back to the
// default; 0 disables retrying entirely.
func NewCorrectiveLoop(retriever EvidenceRetriever, critic *Critic, maxRetries int, logger *slog.Logger) (*CorrectiveLoop, error) {
	if retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if critic == nil {
		return nil, fmt.Errorf("critic is required")
	}
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CorrectiveLoop{
		retriever:  retriever,
		critic:     critic,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

// Run executes the corrective loop for one question. condition and topic
// are the initial metadata filters (empty string for none); answer drafts
// the response each attempt. Retries widen the filters and retrieve with a
// rewritten, guideline-register query; the draft itself always answers the
// user's original question. When every attempt stays under the confidence
// threshold, the last draft is returned with LowConfidence set instead of
// looping further.
func (l *CorrectiveLoop) Run(ctx context.Context, query, condition, topic string, answer AnswerFunc, runOpts ...RunOption) (*LoopResult, error) {
	if answer == nil {
		return nil, fmt.Errorf("answer function is required")
	}

	runCfg := &runConfig{}
	for _, opt := range runOpts {
		opt(runCfg)
	}

	result := &LoopResult{}
	state := stateInitial
	retries := 0

	var evidence []Result
	var draft string
	var verdict Verdict

	for state != stateDone {
		switch state {
		case stateInitial, stateRetrying:
			attemptCondition, attemptTopic := relaxFilters(condition, topic, retries)
			opts := make([]RetrieveOption, 0, 2)
			if attemptCondition != "" {
				opts = append(opts, WithCondition(attemptCondition))
			}
			if attemptTopic != "" {
				opts = append(opts, WithTopic(attemptTopic))
			}

			// The first attempt uses the query as asked; retries retrieve
			// with the rewritten form so the wider filters get a
			// guideline-register query to match against.
			attemptQuery := query
			if retries > 0 {
				attemptQuery = RewriteQuery(query, runCfg.profile, runCfg.constraints).Query
			}

			var err error
			evidence, err = l.retriever.Retrieve(ctx, attemptQuery, opts...)
			if err != nil {
				return nil, fmt.Errorf("retrieving evidence (attempt %d): %w", result.Attempts+1, err)
			}
			result.Attempts++
			state = stateRetrieved

		case stateRetrieved:
			var err error
			draft, err = answer(ctx, query, evidence)
			if err != nil {
				return nil, fmt.Errorf("generating answer (attempt %d): %w", result.Attempts, err)
			}
			verdict = l.critic.Review(draft, evidence, query)
			state = stateVerified

		case stateVerified:
			if verdict.Supported || !l.critic.ShouldRetry(verdict) || retries >= l.maxRetries {
				state = stateDone
				break
			}
			retries++
			l.logger.Debug("retrying retrieval",
				"retry", retries,
				"confidence", verdict.Confidence)
			state = stateRetrying
		}
	}

	result.Answer = draft
	result.Verdict = verdict
	result.Evidence = evidence
	result.LowConfidence = !verdict.Supported
	if result.LowConfidence {
		l.logger.Info("answer below confidence threshold after retries",
			"confidence", verdict.Confidence,
			"attempts", result.Attempts)
	}
	return result, nil
}

// relaxFilters widens the metadata filters one dimension per retry:
// attempt 0 keeps both, retry 1 drops the topic, retry 2 drops the
// condition as well.
func relaxFilters(condition, topic string, retries int) (string, string) {
	switch {
	case retries >= 2:
		return "", ""
	case retries == 1:
		return condition, ""
	default:
		return condition, topic
	}
}
