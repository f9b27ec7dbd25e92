// Package bot implements the chat-side of the service: command routing over
// the long-poll update stream, invoice issuance, pre-checkout validation, and
// post-payment fulfillment. The package talks to the platform exclusively
// through the Platform interface so the dispatch logic is testable without a
// network.
package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/selmak/go-content-bot/internal/config"
	"github.com/selmak/go-content-bot/internal/services"
	"github.com/selmak/go-content-bot/internal/token"
)

// Platform is the outbound surface the dispatcher needs from the chat
// platform. Implemented by the telegram client; faked in tests.
type Platform interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendInvoice(ctx context.Context, chatID int64, title, description, payload, currency string, amount int) error
	AnswerPrecheckout(ctx context.Context, queryID string, ok bool, errMessage string) error
}

// Bot routes incoming updates to command, payment, and fulfillment logic.
type Bot struct {
	DB       *gorm.DB
	Platform Platform

	Entitlements *services.EntitlementService
	Ledger       *services.LedgerService
	Delivery     *services.DeliveryService
	Catalog      *services.CatalogService

	Signer *token.Signer

	OwnerID       int64
	PublicBaseURL string
	Currency      string
}

// New wires a Bot from its dependencies.
func New(db *gorm.DB, platform Platform, ent *services.EntitlementService, ledger *services.LedgerService,
	delivery *services.DeliveryService, catalog *services.CatalogService, signer *token.Signer, cfg config.Config) *Bot {
	return &Bot{
		DB:            db,
		Platform:      platform,
		Entitlements:  ent,
		Ledger:        ledger,
		Delivery:      delivery,
		Catalog:       catalog,
		Signer:        signer,
		OwnerID:       cfg.OwnerID,
		PublicBaseURL: cfg.PublicBaseURL,
		Currency:      cfg.PayCurrency,
	}
}

// Run consumes updates until ctx is canceled or the channel closes. Each
// update is handled with a bounded per-update timeout so one slow delivery
// cannot stall the stream.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	log.Info().Msg("bot update loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("bot update loop stopping")
			return
		case upd, ok := <-updates:
			if !ok {
				log.Info().Msg("bot update channel closed")
				return
			}
			uctx, cancel := context.WithTimeout(ctx, 90*time.Second)
			b.HandleUpdate(uctx, upd)
			cancel()
		}
	}
}

// HandleUpdate dispatches one update. Errors are logged, never returned: the
// update stream must keep draining whatever a single handler does.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("update handler panicked")
		}
	}()

	switch {
	case upd.PreCheckoutQuery != nil:
		b.handlePrecheckout(ctx, upd.PreCheckoutQuery)
	case upd.Message != nil && upd.Message.SuccessfulPayment != nil:
		b.handleSuccessfulPayment(ctx, upd.Message)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

// handleMessage records the sender and routes commands.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	b.rememberUser(ctx, msg)

	if !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID
	userID := msg.From.ID

	var err error
	switch msg.Command() {
	case "start":
		err = b.cmdStart(ctx, chatID)
	case "buy":
		err = b.cmdBuy(ctx, chatID, userID, msg.CommandArguments())
	case "vip":
		err = b.cmdVip(ctx, chatID, userID)
	case "mycontent":
		err = b.cmdMyContent(ctx, chatID, userID)
	case "teasers":
		err = b.cmdTeasers(ctx, chatID, userID)
	case "preview":
		err = b.cmdPreview(ctx, chatID, userID, msg.CommandArguments())
	case "stats":
		err = b.cmdStats(ctx, chatID, userID)
	default:
		err = b.Platform.SendText(ctx, chatID, msgUnknownCommand)
	}
	if err != nil {
		log.Error().
			Int64("chat_id", chatID).
			Str("command", msg.Command()).
			Err(err).
			Msg("command handler failed")
	}
}

// rememberUser upserts the sender so purchases and subscriptions always have
// a user row to hang off.
func (b *Bot) rememberUser(ctx context.Context, msg *tgbotapi.Message) {
	err := b.upsertUser(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName)
	if err != nil {
		log.Warn().Int64("user_id", msg.From.ID).Err(err).Msg("user upsert failed")
	}
}

// notifyOwner sends an operator notification on a best-effort basis.
func (b *Bot) notifyOwner(ctx context.Context, text string) {
	if b.OwnerID == 0 {
		return
	}
	if err := b.Platform.SendText(ctx, b.OwnerID, text); err != nil {
		log.Warn().Err(err).Msg("owner notification failed")
	}
}

// previewURL builds the operator's browser link for a catalog entry.
func (b *Bot) previewURL(name string) string {
	return fmt.Sprintf("%s/content/preview/%s?token=%s", b.PublicBaseURL, escapePath(name), b.Signer.Preview(name))
}
