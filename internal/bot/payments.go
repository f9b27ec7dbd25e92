// Payment flow: pre-checkout validation and post-payment fulfillment.
//
// Pre-checkout is the last gate before money moves: the expected price is
// recomputed from the live catalog and settings, so an invoice issued before
// a price change cannot be charged at the stale amount. Successful payments
// may be delivered more than once by the platform; fulfillment is idempotent
// and replays neither re-grant nor re-deliver.
package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/selmak/go-content-bot/internal/repo"
	"github.com/selmak/go-content-bot/internal/services"
)

// handlePrecheckout authorizes or rejects a pre-checkout query.
func (b *Bot) handlePrecheckout(ctx context.Context, q *tgbotapi.PreCheckoutQuery) {
	err := b.Ledger.ValidatePrecheckout(ctx, q.InvoicePayload, q.TotalAmount, q.Currency)
	if err == nil {
		if err := b.Platform.AnswerPrecheckout(ctx, q.ID, true, ""); err != nil {
			log.Error().Str("query_id", q.ID).Err(err).Msg("precheckout answer failed")
		}
		return
	}

	reason := "Payment could not be processed. Please try again."
	switch {
	case errors.Is(err, services.ErrPriceMismatch):
		reason = "The price has changed. Please request a fresh invoice."
	case errors.Is(err, services.ErrCurrencyMismatch):
		reason = "Unsupported payment currency."
	case errors.Is(err, services.ErrUnknownPayload):
		reason = "This item is no longer available."
	}
	log.Warn().
		Str("query_id", q.ID).
		Str("payload", q.InvoicePayload).
		Err(err).
		Msg("precheckout rejected")
	if err := b.Platform.AnswerPrecheckout(ctx, q.ID, false, reason); err != nil {
		log.Error().Str("query_id", q.ID).Err(err).Msg("precheckout answer failed")
	}
}

// handleSuccessfulPayment fulfills a completed payment.
func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) {
	sp := msg.SuccessfulPayment
	p, err := services.ParsePaymentPayload(sp.InvoicePayload)
	if err != nil {
		// Money moved but the payload is unreadable; this needs a human.
		log.Error().
			Str("payload", sp.InvoicePayload).
			Int("amount", sp.TotalAmount).
			Msg("successful payment with unparseable payload")
		b.notifyOwner(ctx, fmt.Sprintf(
			"⚠️ Payment of %d %s received with unreadable payload %q. Manual follow-up required.",
			sp.TotalAmount, sp.Currency, sp.InvoicePayload))
		return
	}

	switch p.Kind {
	case services.PayloadKindVip:
		b.fulfillVip(ctx, msg.Chat.ID, p.UserID, sp.TotalAmount)
	case services.PayloadKindContent:
		b.fulfillContent(ctx, msg.Chat.ID, p.UserID, p.ContentName, sp.TotalAmount)
	}
}

// fulfillVip activates or extends the subscription and confirms it.
func (b *Bot) fulfillVip(ctx context.Context, chatID, userID int64, amount int) {
	days, err := b.Ledger.ActivateOrRenewVip(ctx, userID, amount)
	if err != nil {
		log.Error().Int64("user_id", userID).Err(err).Msg("vip activation failed after payment")
		b.notifyOwner(ctx, fmt.Sprintf("⚠️ VIP payment by user %d could not be recorded: %v", userID, err))
		return
	}
	log.Info().Int64("user_id", userID).Int("days", days).Int("amount", amount).Msg("vip subscription recorded")

	if err := b.Platform.SendText(ctx, chatID,
		fmt.Sprintf("🎉 Welcome to VIP! Your access runs for %d day(s) from now (extensions stack). Use /buy to grab VIP content.", days)); err != nil {
		log.Warn().Int64("chat_id", chatID).Err(err).Msg("vip confirmation failed")
	}
	b.notifyOwner(ctx, fmt.Sprintf("💎 VIP payment: user %d paid %d for %d day(s).", userID, amount, days))
}

// fulfillContent records the purchase and delivers the item. A replayed
// payment event changes nothing and sends nothing.
func (b *Bot) fulfillContent(ctx context.Context, chatID, userID int64, name string, amount int) {
	created, err := b.Ledger.RecordContentPurchase(ctx, userID, name, amount)
	if err != nil {
		log.Error().
			Int64("user_id", userID).
			Str("content", name).
			Err(err).
			Msg("purchase recording failed after payment")
		b.notifyOwner(ctx, fmt.Sprintf("⚠️ Purchase of %q by user %d could not be recorded: %v", name, userID, err))
		return
	}
	if !created {
		return
	}
	log.Info().Int64("user_id", userID).Str("content", name).Int("amount", amount).Msg("content purchase recorded")

	item, err := repo.GetContentItem(ctx, b.DB, name)
	if err != nil {
		log.Error().Str("content", name).Err(err).Msg("purchased item missing from catalog")
		b.notifyOwner(ctx, fmt.Sprintf("⚠️ User %d paid for %q but the item is gone from the catalog.", userID, name))
		return
	}
	if err := b.deliverItem(ctx, chatID, item); err != nil {
		log.Error().Int64("chat_id", chatID).Str("content", name).Err(err).Msg("post-payment delivery failed")
	}
	b.notifyOwner(ctx, fmt.Sprintf("💰 Sale: user %d bought %q for %d.", userID, name, amount))
}
