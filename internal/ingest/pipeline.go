// ABOUTME: Batch ingestion of academic documents: embed each one, then insert it into a store.
// ABOUTME: Embedding runs in parallel; inserts run in input order so IDs follow the batch order.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/2389-research/scholar/internal/embeddings"
	"github.com/2389-research/scholar/internal/logging"
	"github.com/2389-research/scholar/internal/models"
	"github.com/2389-research/scholar/internal/storage"
)

// Policy decides what happens when a document cannot be embedded.
type Policy int

const (
	// ContinueOnError stores the document without an embedding and moves on.
	ContinueOnError Policy = iota
	// AbortOnError stops the run before anything is inserted.
	AbortOnError
)

func (p Policy) String() string {
	switch p {
	case ContinueOnError:
		return "continue"
	case AbortOnError:
		return "abort"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps "continue" or "abort" to a Policy. An empty string means continue.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continue":
		return ContinueOnError, nil
	case "abort":
		return AbortOnError, nil
	default:
		return ContinueOnError, fmt.Errorf("unknown ingest policy %q (want continue or abort)", s)
	}
}

// Report summarizes one ingestion run.
type Report struct {
	RunID         uuid.UUID     `json:"run_id"`
	Documents     int           `json:"documents"`
	Inserted      int           `json:"inserted"`
	Embedded      int           `json:"embedded"`
	EmbedFailures int           `json:"embed_failures"`
	FellBack      int           `json:"fell_back"`
	IDs           []int64       `json:"ids"`
	Duration      time.Duration `json:"duration"`
}

// resolver is satisfied by *embeddings.Gateway and exposes whether a vector came from a fallback.
type resolver interface {
	Resolve(ctx context.Context, text string) (embeddings.Result, error)
}

// Pipeline embeds documents and writes them to a SourceStore.
type Pipeline struct {
	embedder    embeddings.Embedder
	store       storage.SourceStore
	policy      Policy
	concurrency int
	logger      *log.Logger
}

// Option configures optional Pipeline settings.
type Option func(*Pipeline)

// WithPolicy sets the embedding failure policy.
func WithPolicy(p Policy) Option {
	return func(pl *Pipeline) {
		pl.policy = p
	}
}

// WithConcurrency bounds how many documents are embedded at once. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(pl *Pipeline) {
		if n < 1 {
			n = 1
		}
		pl.concurrency = n
	}
}

// WithLogger sets the logger for per-run and per-document messages.
func WithLogger(l *log.Logger) Option {
	return func(pl *Pipeline) {
		pl.logger = logging.OrDiscard(l)
	}
}

// NewPipeline creates a pipeline writing vectors from embedder into store.
func NewPipeline(embedder embeddings.Embedder, store storage.SourceStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:    embedder,
		store:       store,
		policy:      ContinueOnError,
		concurrency: 1,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the configured failure policy.
func (p *Pipeline) Policy() Policy {
	return p.policy
}

// EmbeddingText returns the text a document is embedded from: abstract and full text joined
// by a blank line and trimmed, or the title when both are blank.
func EmbeddingText(doc models.Document) string {
	text := strings.TrimSpace(doc.Abstract + "\n\n" + doc.FullText)
	if text == "" {
		return doc.Title
	}
	return text
}

type embedOutcome struct {
	vector   []float64
	err      error
	fellBack bool
}

// Ingest embeds every document and then inserts them in input order.
// The report reflects whatever was inserted before a returned error.
func (p *Pipeline) Ingest(ctx context.Context, docs []models.Document) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.New(), Documents: len(docs), IDs: make([]int64, 0, len(docs))}
	logger := p.logger.With("run", report.RunID.String())
	logger.Info("ingestion started", "documents", len(docs), "policy", p.policy, "concurrency", p.concurrency)

	outcomes, err := p.embedAll(ctx, docs)
	if err != nil {
		logger.Error("ingestion aborted during embedding", "err", err)
		report.Duration = time.Since(start)
		return report, err
	}

	for i, o := range outcomes {
		if o.err != nil {
			report.EmbedFailures++
			logger.Warn("embedding failed, storing without vector", "index", i, "title", docs[i].Title, "err", o.err)
			continue
		}
		report.Embedded++
		if o.fellBack {
			report.FellBack++
		}
	}

	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}
		rec := models.NewSourceRecord(doc)
		rec.Embedding = outcomes[i].vector

		id, err := p.store.Insert(ctx, rec)
		if err != nil {
			logger.Error("insert failed", "index", i, "title", doc.Title, "err", err)
			report.Duration = time.Since(start)
			return report, fmt.Errorf("insert document %d (%q): %w", i, doc.Title, err)
		}
		report.Inserted++
		report.IDs = append(report.IDs, id)
		logger.Debug("inserted source", "id", id, "title", doc.Title, "embedded", rec.HasEmbedding())
	}

	report.Duration = time.Since(start)
	logger.Info("ingestion complete",
		"inserted", report.Inserted,
		"embedded", report.Embedded,
		"embed_failures", report.EmbedFailures,
		"fell_back", report.FellBack,
		"duration", report.Duration,
	)
	return report, nil
}

// embedAll resolves a vector for every document with bounded parallelism.
// Under AbortOnError the first failure cancels the remaining work and is returned.
func (p *Pipeline) embedAll(ctx context.Context, docs []models.Document) ([]embedOutcome, error) {
	outcomes := make([]embedOutcome, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			o := p.embedOne(gctx, EmbeddingText(docs[i]))
			if o.err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if p.policy == AbortOnError {
					return fmt.Errorf("embed document %d (%q): %w", i, docs[i].Title, o.err)
				}
			}
			outcomes[i] = o
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (p *Pipeline) embedOne(ctx context.Context, text string) embedOutcome {
	if r, ok := p.embedder.(resolver); ok {
		res, err := r.Resolve(ctx, text)
		if err != nil {
			return embedOutcome{err: err}
		}
		return embedOutcome{vector: res.Vector, fellBack: res.FellBack}
	}
	vec, err := p.embedder.Embed(ctx, text)
	return embedOutcome{vector: vec, err: err}
}
