package server

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/scribechat/scribechat/internal/dispatch"
	"github.com/scribechat/scribechat/internal/extractor"
	"github.com/scribechat/scribechat/internal/prompt"
	"github.com/scribechat/scribechat/internal/retrieval"
	"github.com/scribechat/scribechat/models"
	"github.com/scribechat/scribechat/provider"
)

// Archiver persists a completed question/answer pair.
type Archiver interface {
	ArchiveTurn(ctx context.Context, userID, question, answer string, citations []models.Citation) (int64, error)
}

// Pipeline runs one chat turn end to end: context building, generation,
// incremental extraction and dispatch. Retrieval and generation failures
// degrade to an apology answer; only frame-level problems surface as errors
// to the connection.
type Pipeline struct {
	Builder     *retrieval.ContextBuilder
	Generator   provider.Generator
	Archive     Archiver
	QueueDepth  int
	JoinTimeout time.Duration
	logger      *log.Logger
}

func NewPipeline(builder *retrieval.ContextBuilder, gen provider.Generator, archive Archiver, queueDepth int, joinTimeout time.Duration) *Pipeline {
	if joinTimeout <= 0 {
		joinTimeout = 10 * time.Second
	}
	return &Pipeline{
		Builder:     builder,
		Generator:   gen,
		Archive:     archive,
		QueueDepth:  queueDepth,
		JoinTimeout: joinTimeout,
		logger:      log.New(log.Writer(), "[PIPE] ", log.LstdFlags),
	}
}

const degradedAnswer = "I ran into a problem answering this question. Please try again in a moment."

func degradedSnapshot() models.AnswerSnapshot {
	return models.AnswerSnapshot{Answer: []models.AnswerPart{{
		PartialAnswer: degradedAnswer,
		Citations:     []models.Citation{},
	}}}
}

// Run processes one reassembled chat turn. Finish reaches the dispatcher on
// every exit path; Run returns once the delivery queue has drained or the
// join bound elapsed.
func (p *Pipeline) Run(ctx context.Context, principal models.Principal, req models.ChatRequest, deliverer dispatch.Deliverer) {
	start := time.Now()
	defer func() { turnDuration.Observe(time.Since(start).Seconds()) }()

	d := dispatch.NewDispatcher(deliverer, p.QueueDepth)
	defer func() {
		d.Finish()
		d.Join(p.JoinTimeout)
	}()

	blocks, err := p.Builder.Build(ctx, principal.UserID, req)
	if err != nil {
		var rerr *models.RetrievalError
		if errors.As(err, &rerr) {
			p.logger.Printf("retrieval degraded for user %s: %v", principal.UserID, err)
		} else {
			p.logger.Printf("context build failed for user %s: %v", principal.UserID, err)
		}
		d.Deliver(degradedSnapshot())
		return
	}

	ex := extractor.New()
	var lastDelivered models.AnswerSnapshot
	delivered := false

	streamErr := p.Generator.Stream(ctx, prompt.Build(blocks, req.Turns), func(delta string) error {
		snap, changed := ex.Feed(delta)
		if changed {
			d.Deliver(snap)
			lastDelivered = snap
			delivered = true
		}
		return nil
	})

	final := ex.Final()
	if streamErr != nil {
		genErr := &models.GenerationError{Err: streamErr}
		p.logger.Printf("generation degraded for user %s: %v", principal.UserID, genErr)
		if !delivered && final.Text() == "" {
			d.Deliver(degradedSnapshot())
			return
		}
		// the stream died mid-answer: whatever stands is the answer
	}
	if !delivered || !final.Equal(lastDelivered) {
		d.Deliver(final)
	}

	if p.Archive != nil && final.Text() != "" {
		if _, err := p.Archive.ArchiveTurn(ctx, principal.UserID, req.Question(), final.Text(), final.Citations()); err != nil {
			p.logger.Printf("archive turn for user %s: %v", principal.UserID, err)
		}
	}
}
