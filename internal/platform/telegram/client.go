// Package telegram wraps the Bot API client behind the narrow interfaces the
// service layer depends on: uploading staged files, sending media and text,
// resolving file ids for the preview proxy, and the payment plumbing
// (invoices, pre-checkout answers). Services and handlers never import the
// Bot API library directly.
package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/selmak/go-content-bot/internal/domain"
)

// ErrNoFileID is returned when an upload succeeds but the response carries no
// usable file id.
var ErrNoFileID = errors.New("telegram: response contains no file id")

// Client is a thin adapter over the Bot API. StagingChatID is where re-host
// uploads land (the operator's own chat); the resulting file ids are global
// to the bot and reusable in any chat.
type Client struct {
	bot           *tgbotapi.BotAPI
	stagingChatID int64
}

// New dials the Bot API with token and verifies the credentials.
func New(token string, stagingChatID int64) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram bot authorized")
	return &Client{bot: bot, stagingChatID: stagingChatID}, nil
}

// Updates opens the long-poll update stream.
func (c *Client) Updates(timeoutSeconds int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSeconds
	return c.bot.GetUpdatesChan(u)
}

// StopUpdates tears down the long-poll loop.
func (c *Client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

// UploadFile re-hosts a staged local file by sending it to the staging chat
// and returns the permanent file id from the response.
func (c *Client) UploadFile(ctx context.Context, path string, kind domain.MediaKind) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	msg, err := c.sendOne(c.stagingChatID, kind, tgbotapi.FilePath(path), "")
	if err != nil {
		return "", err
	}
	id := fileIDFromMessage(msg)
	if id == "" {
		return "", ErrNoFileID
	}
	return id, nil
}

// SendMedia sends ref to chatID using the given media kind. The error is a
// per-channel failure signal; the dispatcher decides whether to fail over.
func (c *Client) SendMedia(ctx context.Context, chatID int64, kind domain.MediaKind, ref domain.ContentReference, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.sendOne(chatID, kind, requestFile(ref), caption)
	return err
}

// SendText sends a plain text message.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendInvoice issues a Stars invoice. Stars payments carry no provider token.
func (c *Client) SendInvoice(ctx context.Context, chatID int64, title, description, payload, currency string, amount int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	inv := tgbotapi.NewInvoice(chatID, title, description, payload,
		"", "", currency,
		[]tgbotapi.LabeledPrice{{Label: title, Amount: amount}},
	)
	inv.SuggestedTipAmounts = []int{}
	_, err := c.bot.Request(inv)
	return err
}

// AnswerPrecheckout confirms or rejects a pre-checkout query. errMessage is
// shown to the payer on rejection.
func (c *Client) AnswerPrecheckout(ctx context.Context, queryID string, ok bool, errMessage string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       errMessage,
	})
	return err
}

// ResolveFile maps a platform file id to a short-lived download URL and the
// declared size in bytes. The URL embeds the bot token and must never be
// exposed to clients; the preview proxy streams through it server side.
func (c *Client) ResolveFile(ctx context.Context, fileID string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	f, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", 0, err
	}
	return f.Link(c.bot.Token), int64(f.FileSize), nil
}

// sendOne issues a single media send for one kind.
func (c *Client) sendOne(chatID int64, kind domain.MediaKind, file tgbotapi.RequestFileData, caption string) (tgbotapi.Message, error) {
	switch kind {
	case domain.MediaVideo:
		v := tgbotapi.NewVideo(chatID, file)
		v.Caption = caption
		return c.bot.Send(v)
	case domain.MediaAnimation:
		a := tgbotapi.NewAnimation(chatID, file)
		a.Caption = caption
		return c.bot.Send(a)
	case domain.MediaDocument:
		d := tgbotapi.NewDocument(chatID, file)
		d.Caption = caption
		return c.bot.Send(d)
	default:
		p := tgbotapi.NewPhoto(chatID, file)
		p.Caption = caption
		return c.bot.Send(p)
	}
}

// requestFile converts a tagged reference into the Bot API file form.
func requestFile(ref domain.ContentReference) tgbotapi.RequestFileData {
	switch ref.Kind {
	case domain.RefExternalURL:
		return tgbotapi.FileURL(ref.Value)
	case domain.RefLocalPath:
		return tgbotapi.FilePath(ref.Value)
	default:
		return tgbotapi.FileID(ref.Value)
	}
}

// fileIDFromMessage extracts the permanent file id from a send response,
// preferring the richest representation. Photo sizes arrive smallest first;
// the last entry is the original resolution.
func fileIDFromMessage(m tgbotapi.Message) string {
	switch {
	case len(m.Photo) > 0:
		return m.Photo[len(m.Photo)-1].FileID
	case m.Video != nil:
		return m.Video.FileID
	case m.Animation != nil:
		return m.Animation.FileID
	case m.Document != nil:
		return m.Document.FileID
	}
	return ""
}
