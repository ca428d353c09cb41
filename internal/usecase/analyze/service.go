// Package analyze scans chunks against clause queries and grades the hits.
// Detection runs the IQL evaluator over per-chunk classifier scores;
// detections are then enriched with risk, mutuality, and an exact quote.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atrium-law/lexrag/internal/chunker"
	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/clause"
	"github.com/atrium-law/lexrag/internal/domain/iql"
	"github.com/atrium-law/lexrag/internal/logger"
)

// maxConcurrentCalls bounds the per-request fan-out to the classifier and
// QA providers, for both chunk scanning and detection enrichment.
const maxConcurrentCalls = 4

// Defaults applied when an enrichment call fails. Medium risk keeps the
// clause visible without inflating the high-risk list; mutuality defaults to
// mutual so one-sidedness is only ever claimed on classifier evidence.
const (
	defaultRisk       = clause.RiskMedium
	defaultConfidence = 0.5
)

// The "mutual" predicate is not a clause family; it scores whether the
// chunk's obligations bind both parties, for queries like
// "termination AND NOT mutual".
const (
	mutualPredicate  = "mutual"
	mutualHypothesis = "This text imposes obligations equally on both parties."
)

var riskLabels = []string{"high legal risk", "moderate legal risk", "low legal risk"}

var riskByLabel = map[string]clause.RiskLevel{
	riskLabels[0]: clause.RiskHigh,
	riskLabels[1]: clause.RiskMedium,
	riskLabels[2]: clause.RiskLow,
}

var mutualityLabels = []string{"mutual obligation", "unilateral obligation"}

// Service handles clause/risk analysis over a chunk set.
type Service struct {
	classifier Classifier
	extractor  Extractor
	source     ChunkSource
	chunkOpts  chunker.Options
	threshold  float64
}

// New creates an analysis service. defaultThreshold is the detection cutoff
// applied when a request does not supply one.
func New(classifier Classifier, extractor Extractor, defaultThreshold float64) *Service {
	if defaultThreshold <= 0 {
		defaultThreshold = 0.5
	}
	return &Service{classifier: classifier, extractor: extractor, threshold: defaultThreshold}
}

// WithChunkSource enables AnalyzeDocument and AnalyzeText: stored documents
// are loaded from src; ad hoc text is chunked with opts.
func (s *Service) WithChunkSource(src ChunkSource, opts chunker.Options) *Service {
	s.source = src
	s.chunkOpts = opts
	return s
}

// AnalyzeDocument loads a stored document's chunks and analyzes them.
func (s *Service) AnalyzeDocument(
	ctx context.Context, userID, docID, querySpec string, threshold float64,
) (clause.AnalysisResult, error) {
	if s.source == nil {
		return clause.AnalysisResult{}, errors.New("no chunk source configured")
	}
	chunks, err := s.source.ListChunks(ctx, userID, docID)
	if err != nil {
		return clause.AnalysisResult{}, fmt.Errorf("load document chunks: %w", err)
	}
	return s.Analyze(ctx, chunks, querySpec, threshold)
}

// AnalyzeText chunks ad hoc text and analyzes it without persisting anything.
func (s *Service) AnalyzeText(
	ctx context.Context, text, querySpec string, threshold float64,
) (clause.AnalysisResult, error) {
	cleaned := chunker.Clean(text)
	if cleaned == "" {
		return clause.AnalysisResult{}, fmt.Errorf("%w: no text to analyze", domain.ErrEmptyDocument)
	}
	return s.Analyze(ctx, chunker.Chunk(cleaned, s.chunkOpts), querySpec, threshold)
}

// Analyze resolves the query spec, scans the chunks, and enriches every
// detection. threshold <= 0 selects the configured default.
func (s *Service) Analyze(
	ctx context.Context, chunks []domain.Chunk, querySpec string, threshold float64,
) (clause.AnalysisResult, error) {
	queries, err := ResolveQueries(querySpec)
	if err != nil {
		return clause.AnalysisResult{}, err
	}
	if threshold <= 0 {
		threshold = s.threshold
	}

	detections, err := s.Scan(ctx, chunks, queries, threshold)
	if err != nil {
		return clause.AnalysisResult{}, err
	}

	return clause.NewAnalysisResult(s.enrichAll(ctx, detections)), nil
}

// ResolveQueries maps a request's query field to the clause queries to run:
// empty selects the all_clauses template, a template name selects that
// template, anything else is parsed as an IQL expression.
func ResolveQueries(spec string) ([]iql.Query, error) {
	if strings.TrimSpace(spec) == "" {
		spec = "all_clauses"
	}
	if t, ok := iql.LookupTemplate(spec); ok {
		return t.Queries, nil
	}
	expr, err := iql.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidQuery, err)
	}
	return []iql.Query{{Label: queryLabel(expr), Expr: expr}}, nil
}

// queryLabel picks the reported clause type for an ad hoc expression: the
// first known clause family among its leaves, else the canonical form.
func queryLabel(expr iql.Expr) string {
	for _, leaf := range iql.Leaves(expr) {
		if clause.Type(leaf).Known() {
			return leaf
		}
	}
	return expr.String()
}

// Scan classifies each chunk against the queries' leaf predicates and keeps
// detections whose folded score clears the threshold. Chunks are scored
// concurrently; a chunk whose classification fails is skipped, and the scan
// errors only when every chunk failed.
func (s *Service) Scan(
	ctx context.Context, chunks []domain.Chunk, queries []iql.Query, threshold float64,
) ([]clause.Detection, error) {
	if len(chunks) == 0 || len(queries) == 0 {
		return nil, nil
	}

	leaves, hypotheses := collectLeaves(queries)

	perChunk := make([][]clause.Detection, len(chunks))
	errs := make([]error, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCalls)
	for i := range chunks {
		i := i
		g.Go(func() error {
			scores, err := s.scoreLeaves(gctx, chunks[i].Content, leaves, hypotheses)
			if err != nil {
				errs[i] = err
				return nil
			}
			perChunk[i] = evaluate(&chunks[i], queries, scores, threshold)
			return nil
		})
	}
	_ = g.Wait()

	var out []clause.Detection
	var firstErr error
	failed := 0
	for i := range chunks {
		if errs[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		out = append(out, perChunk[i]...)
	}
	if failed == len(chunks) {
		return nil, fmt.Errorf("classify chunks: %w", firstErr)
	}
	if failed > 0 {
		logger.FromContext(ctx).Warn("Clause scan skipped chunks after classifier failures",
			zap.Int("skipped", failed),
			zap.Error(firstErr))
	}
	return out, nil
}

// collectLeaves returns the distinct leaf predicates across all queries with
// their zero-shot hypotheses, index-aligned.
func collectLeaves(queries []iql.Query) (leaves, hypotheses []string) {
	seen := make(map[string]bool)
	for _, q := range queries {
		for _, leaf := range iql.Leaves(q.Expr) {
			if seen[leaf] {
				continue
			}
			seen[leaf] = true
			leaves = append(leaves, leaf)
			hypotheses = append(hypotheses, leafHypothesis(leaf))
		}
	}
	return leaves, hypotheses
}

func leafHypothesis(leaf string) string {
	if leaf == mutualPredicate {
		return mutualHypothesis
	}
	return clause.Type(leaf).Hypothesis()
}

// scoreLeaves issues one zero-shot call covering every leaf hypothesis and
// maps the scores back to predicate names. Hypotheses the classifier did not
// echo back score zero.
func (s *Service) scoreLeaves(
	ctx context.Context, text string, leaves, hypotheses []string,
) (map[string]float64, error) {
	scored, err := s.classifier.Classify(ctx, text, hypotheses)
	if err != nil {
		return nil, err
	}

	byHypothesis := make(map[string]float64, len(scored))
	for _, l := range scored {
		byHypothesis[l.Label] = l.Score
	}

	scores := make(map[string]float64, len(leaves))
	for i, leaf := range leaves {
		scores[leaf] = byHypothesis[hypotheses[i]]
	}
	return scores, nil
}

func evaluate(chunk *domain.Chunk, queries []iql.Query, scores map[string]float64, threshold float64) []clause.Detection {
	var out []clause.Detection
	for _, q := range queries {
		score := q.Expr.Eval(scores)
		if score < threshold {
			continue
		}
		out = append(out, clause.Detection{
			Type:      clause.Type(q.Label),
			Score:     score,
			Text:      chunk.Content,
			TextIndex: chunk.Index,
		})
	}
	return out
}

// enrichAll enriches detections concurrently. Enrichment never drops a
// detection: provider failures leave the conservative defaults in place.
func (s *Service) enrichAll(ctx context.Context, detections []clause.Detection) []clause.Analyzed {
	out := make([]clause.Analyzed, len(detections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCalls)
	for i := range detections {
		i := i
		g.Go(func() error {
			out[i] = s.enrich(gctx, &detections[i])
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (s *Service) enrich(ctx context.Context, det *clause.Detection) clause.Analyzed {
	a := clause.Analyzed{
		Type:           det.Type,
		TypeLabel:      det.Type.Label(),
		IQLScore:       det.Score,
		RiskLevel:      defaultRisk,
		RiskConfidence: defaultConfidence,
		IsMutual:       true,
		ChunkText:      det.Text,
		ChunkIndex:     det.TextIndex,
	}
	s.classifyRisk(ctx, &a)
	s.classifyMutuality(ctx, &a)
	s.attachQuote(ctx, &a)
	return a
}

func (s *Service) classifyRisk(ctx context.Context, a *clause.Analyzed) {
	scored, err := s.classifier.Classify(ctx, a.ChunkText, riskLabels)
	if err != nil {
		logEnrichmentFailure(ctx, "risk", a, err)
		return
	}
	best, ok := domain.BestLabel(scored)
	if !ok {
		return
	}
	if level, known := riskByLabel[best.Label]; known {
		a.RiskLevel = level
		a.RiskConfidence = best.Score
	}
}

func (s *Service) classifyMutuality(ctx context.Context, a *clause.Analyzed) {
	scored, err := s.classifier.Classify(ctx, a.ChunkText, mutualityLabels)
	if err != nil {
		logEnrichmentFailure(ctx, "mutuality", a, err)
		return
	}
	if best, ok := domain.BestLabel(scored); ok {
		a.IsMutual = best.Label == mutualityLabels[0]
	}
}

// attachQuote pulls the best QA span for the detection. A span that cannot be
// matched back into the chunk text is dropped, leaving the quote empty.
func (s *Service) attachQuote(ctx context.Context, a *clause.Analyzed) {
	question := "What does the " + a.TypeLabel + " clause require?"
	spans, err := s.extractor.Extract(ctx, question, a.ChunkText)
	if err != nil {
		logEnrichmentFailure(ctx, "quote", a, err)
		return
	}

	var best *domain.Span
	for i := range spans {
		if best == nil || spans[i].Score > best.Score {
			best = &spans[i]
		}
	}
	if best == nil || best.Answer == "" {
		return
	}
	if !strings.Contains(a.ChunkText, strings.TrimSuffix(best.Answer, "...")) {
		logger.FromContext(ctx).Warn("Dropped ungrounded clause quote",
			zap.String("clause_type", string(a.Type)),
			zap.Int("chunk_index", a.ChunkIndex))
		return
	}

	a.ExactQuote = best.Answer
	a.QuoteConfidence = best.Score
	a.QuoteStart = best.StartChar
	a.QuoteEnd = best.EndChar
}

func logEnrichmentFailure(ctx context.Context, stage string, a *clause.Analyzed, err error) {
	log := logger.FromContext(ctx)
	if errors.Is(err, domain.ErrProviderUnavailable) {
		log.Debug("Clause enrichment provider not configured, keeping defaults",
			zap.String("stage", stage))
		return
	}
	log.Warn("Clause enrichment failed, keeping defaults",
		zap.String("stage", stage),
		zap.String("clause_type", string(a.Type)),
		zap.Int("chunk_index", a.ChunkIndex),
		zap.Error(err))
}
