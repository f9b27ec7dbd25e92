// Package services – DeliveryService
//
// This file implements the delivery dispatcher: one call, one terminal
// outcome. A tagged content reference is tried against an ordered list of
// media strategies (the recorded kind first, then photo, video, document);
// the first success wins, and when every structured send fails the dispatcher
// emits a plain-text fallback carrying the raw reference so the recipient is
// never left in silence.
package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/selmak/go-content-bot/internal/domain"
)

// MediaSender delivers one media kind to a chat. A returned error means that
// channel failed for this reference; it is not a programming error and the
// dispatcher simply advances to the next strategy. Implemented by the
// telegram client; faked in tests.
type MediaSender interface {
	SendMedia(ctx context.Context, chatID int64, kind domain.MediaKind, ref domain.ContentReference, caption string) error
	SendText(ctx context.Context, chatID int64, text string) error
}

// DeliveryResult reports how a dispatch ended: either Kind holds the single
// strategy that succeeded, or Fallback is set and the plain-text path ran.
type DeliveryResult struct {
	Kind     domain.MediaKind
	Fallback bool
}

// DeliveryService sends content references to chats with per-channel
// failover.
type DeliveryService struct {
	Sender MediaSender
}

// NewDeliveryService constructs a DeliveryService around sender.
func NewDeliveryService(sender MediaSender) *DeliveryService {
	return &DeliveryService{Sender: sender}
}

// Deliver sends ref to chatID, trying the hinted kind first and then the
// remaining strategies in fixed order. Exactly one terminal outcome occurs:
// one successful structured send, or the textual fallback. The fallback path
// always succeeds from the caller's point of view; a send failure there is
// logged and absorbed.
func (s *DeliveryService) Deliver(ctx context.Context, chatID int64, ref domain.ContentReference, hint domain.MediaKind, caption string) (DeliveryResult, error) {
	tr := otel.Tracer("services/DeliveryService")
	ctx, span := tr.Start(ctx, "Deliver",
		trace.WithAttributes(
			attribute.Int64("chat.id", chatID),
			attribute.String("ref.kind", string(ref.Kind)),
			attribute.String("media.hint", string(hint)),
		),
	)
	defer span.End()

	var lastErr error
	for _, kind := range strategyOrder(hint) {
		err := s.Sender.SendMedia(ctx, chatID, kind, ref, caption)
		if err == nil {
			return DeliveryResult{Kind: kind}, nil
		}
		lastErr = err
		log.Debug().
			Int64("chat_id", chatID).
			Str("kind", string(kind)).
			Err(err).
			Msg("delivery strategy failed, trying next")
	}

	log.Warn().
		Int64("chat_id", chatID).
		Str("ref_kind", string(ref.Kind)).
		Err(lastErr).
		Msg("all structured delivery strategies failed, sending text fallback")

	fallback := fmt.Sprintf(
		"Your content: %s\n\nFile reference: %s\n\nSorry, there was an issue delivering the media directly. Please get in touch and it will be sent manually.",
		caption, ref.Value,
	)
	if err := s.Sender.SendText(ctx, chatID, fallback); err != nil {
		// The terminal strategy must not fail the call; the chat itself is
		// unreachable at this point and retrying is the caller's business.
		log.Error().Int64("chat_id", chatID).Err(err).Msg("text fallback delivery failed")
	}
	return DeliveryResult{Fallback: true}, nil
}

// strategyOrder builds the attempt list: hint first (when valid), then the
// fixed photo, video, document ladder, deduplicated.
func strategyOrder(hint domain.MediaKind) []domain.MediaKind {
	base := []domain.MediaKind{domain.MediaPhoto, domain.MediaVideo, domain.MediaDocument}
	if !hint.Valid() {
		return base
	}
	out := []domain.MediaKind{hint}
	for _, k := range base {
		if k != hint {
			out = append(out, k)
		}
	}
	return out
}
