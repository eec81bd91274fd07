// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jinterlante1206/AleutianRelay/services/chat/datatypes"
	"github.com/jinterlante1206/AleutianRelay/services/chat/events"
	"github.com/jinterlante1206/AleutianRelay/services/chat/observability"
	"github.com/jinterlante1206/AleutianRelay/services/llm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("aleutian.chat.assistant")

// EventFollowup is the event name for asynchronous continuation
// messages on the side channel.
const EventFollowup = "assistant_followup"

const (
	// defaultMaxIterations caps model invocations in the detached
	// continuation. Reaching the cap is a graceful stop, not an error.
	defaultMaxIterations = 5

	// defaultLoopTimeout bounds the lifetime of one detached
	// continuation. There is no per-client cancellation for a detached
	// loop; the timeout is what keeps an abandoned exchange from
	// holding resources indefinitely.
	defaultLoopTimeout = 5 * time.Minute
)

// Config tunes the Orchestrator.
type Config struct {
	// MaxIterations caps model invocations per detached continuation.
	// Zero means the default.
	MaxIterations int

	// LoopTimeout bounds one detached continuation. Zero means the
	// default.
	LoopTimeout time.Duration
}

// Orchestrator drives one assistant exchange through its states:
// assemble turns, invoke the model, parse directives, execute them,
// loop until the model stops asking or the cap is hit.
//
// # Description
//
// The first model call is synchronous: StartExchange returns its
// answer to the caller. If that answer contained directives, the rest
// of the exchange runs detached, publishing each iteration's answer to
// the side channel under the exchange ID the caller was handed. All
// loop state is local to the exchange; nothing is shared across
// concurrent exchanges.
//
// # Thread Safety
//
// Safe for concurrent use; each StartExchange call owns its own state.
type Orchestrator struct {
	llmClient     llm.LLMClient
	executor      *Executor
	retriever     ContextRetriever
	publisher     events.Publisher
	maxIterations int
	loopTimeout   time.Duration
}

// NewOrchestrator wires the loop's collaborators together.
func NewOrchestrator(llmClient llm.LLMClient, executor *Executor, retriever ContextRetriever,
	publisher events.Publisher, cfg Config) *Orchestrator {

	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.LoopTimeout <= 0 {
		cfg.LoopTimeout = defaultLoopTimeout
	}
	return &Orchestrator{
		llmClient:     llmClient,
		executor:      executor,
		retriever:     retriever,
		publisher:     publisher,
		maxIterations: cfg.MaxIterations,
		loopTimeout:   cfg.LoopTimeout,
	}
}

// StartExchange runs the synchronous part of one exchange.
//
// # Description
//
// Retrieves context, assembles the turn sequence, and makes the first
// model call. If the model's answer contains no directives the
// response comes back with Finished set and the exchange is over. If
// it does contain directives, the answer still comes back immediately,
// tagged with an ExchangeID the client subscribes to for follow-ups,
// and the remaining iterations run detached from this call.
//
// # Outputs
//
//   - *datatypes.AssistantChatResponse: The first model answer.
//   - error: Context retrieval failures and first-call model failures
//     are fatal and surface here. Later model failures do not; they
//     end the detached loop silently (logged server-side).
func (o *Orchestrator) StartExchange(ctx context.Context, userID string,
	req *datatypes.AssistantChatRequest) (*datatypes.AssistantChatResponse, error) {

	ctx, span := tracer.Start(ctx, "Orchestrator.StartExchange")
	defer span.End()

	snippets, err := o.retriever.Retrieve(ctx, userID, req.Message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("context retrieval failed: %w", err)
	}

	turns := BuildTurns(snippets, req.History, req.Message)

	answer, err := o.llmClient.Chat(ctx, turns, llm.GenerationParams{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("model invocation failed: %w", err)
	}

	directives := ParseDirectives(answer)
	recordDirectives(directives)
	span.SetAttributes(attribute.Int("assistant.num_directives", len(directives)))

	resp := datatypes.NewAssistantChatResponse(req.RequestID, answer)
	if len(directives) == 0 {
		recordExchange(observability.OutcomeNoActions)
		return resp, nil
	}

	exchangeID := uuid.NewString()
	resp.ExchangeID = exchangeID
	resp.Finished = false

	turns = append(turns, datatypes.Message{Role: "assistant", Content: answer})
	go o.runContinuation(exchangeID, userID, turns, directives)

	return resp, nil
}

// runContinuation executes the detached part of the exchange.
//
// Runs on its own goroutine with its own context; the original request
// context is gone by the time this runs. Panics and model failures are
// caught here so they never take down the host process, and a failure
// ends the loop with no further side-channel events.
func (o *Orchestrator) runContinuation(exchangeID, userID string,
	turns []datatypes.Message, directives []Directive) {

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in assistant continuation", "exchangeID", exchangeID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), o.loopTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "Orchestrator.runContinuation")
	defer span.End()
	span.SetAttributes(attribute.String("assistant.exchange_id", exchangeID))

	if m := observability.DefaultMetrics; m != nil {
		m.LoopStarted()
	}

	iteration := 0
	defer func() {
		if m := observability.DefaultMetrics; m != nil {
			m.LoopEnded(iteration)
		}
	}()

	for iteration = 1; ; iteration++ {
		results := o.executeAll(ctx, userID, directives)
		for _, result := range results {
			turns = append(turns, datatypes.Message{Role: "system", Content: "Action result:\n" + result})
		}

		answer, err := o.llmClient.Chat(ctx, turns, llm.GenerationParams{})
		if err != nil {
			// Silent from the client's perspective: no further
			// side-channel events for this exchange.
			slog.Error("Model invocation failed mid-exchange, stopping continuation",
				"exchangeID", exchangeID, "iteration", iteration, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			recordExchange(observability.OutcomeModelError)
			return
		}
		turns = append(turns, datatypes.Message{Role: "assistant", Content: answer})

		directives = ParseDirectives(answer)
		recordDirectives(directives)

		capReached := iteration >= o.maxIterations
		finished := len(directives) == 0 || capReached

		o.publisher.Publish(exchangeID, datatypes.ExchangeEvent{
			ExchangeID: exchangeID,
			Event:      EventFollowup,
			Content:    answer,
			Finished:   finished,
			Timestamp:  time.Now().UnixMilli(),
		})

		if finished {
			if capReached && len(directives) > 0 {
				slog.Warn("Iteration cap reached with directives still pending",
					"exchangeID", exchangeID, "cap", o.maxIterations)
				recordExchange(observability.OutcomeCapReached)
			} else {
				recordExchange(observability.OutcomeCompleted)
			}
			return
		}
	}
}

// executeAll resolves every directive and returns their results in
// parse order.
//
// Execution is concurrent; ordering is restored by writing each result
// into its directive's slot. Unknown kinds contribute no result.
func (o *Orchestrator) executeAll(ctx context.Context, userID string, directives []Directive) []string {
	results := make([]string, len(directives))
	produced := make([]bool, len(directives))

	g, ctx := errgroup.WithContext(ctx)
	for i, d := range directives {
		g.Go(func() error {
			results[i], produced[i] = o.executor.Execute(ctx, userID, d)
			return nil
		})
	}
	// Workers only report results through their slots.
	_ = g.Wait()

	ordered := make([]string, 0, len(directives))
	for i := range results {
		if produced[i] {
			ordered = append(ordered, results[i])
		}
	}
	return ordered
}

func recordDirectives(directives []Directive) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	for _, d := range directives {
		if _, unknown := d.(UnknownDirective); unknown {
			m.RecordDirective("unknown")
			continue
		}
		m.RecordDirective(d.Kind())
	}
}

func recordExchange(outcome observability.Outcome) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordExchange(outcome)
	}
}
