// Command handlers and user-facing message texts.
package bot

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/selmak/go-content-bot/internal/domain"
	"github.com/selmak/go-content-bot/internal/repo"
	"github.com/selmak/go-content-bot/internal/services"
)

const (
	msgWelcome = "Welcome! Here is what I can do:\n\n" +
		"/buy - browse and purchase content\n" +
		"/vip - subscribe for VIP access\n" +
		"/mycontent - re-access what you own\n" +
		"/teasers - free previews\n"

	msgUnknownCommand = "I don't know that command. Try /start for the list."

	msgNoContent      = "Nothing is on sale right now. Check back soon!"
	msgContentUnknown = "No content with that name. Use /buy to see what's available."
	msgVipRequired    = "That item is VIP-only. Subscribe with /vip to unlock it and everything else."
	msgNoPurchases    = "You haven't purchased anything yet. Use /buy to browse."
)

var titleCaser = cases.Title(language.English)

// itemTitle renders a catalog name for buttons, invoices, and captions.
func itemTitle(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}

// itemCaption renders the delivery caption for a catalog entry.
func itemCaption(item *domain.ContentItem) string {
	if item.Description != "" {
		return fmt.Sprintf("%s\n\n%s", itemTitle(item.Name), item.Description)
	}
	return itemTitle(item.Name)
}

func (b *Bot) upsertUser(ctx context.Context, id int64, username, firstName string) error {
	_, err := repo.UpsertUser(ctx, b.DB, id, username, firstName)
	return err
}

func (b *Bot) cmdStart(ctx context.Context, chatID int64) error {
	return b.Platform.SendText(ctx, chatID, msgWelcome)
}

// cmdBuy lists the browse catalog, or starts a purchase when a name is given.
func (b *Bot) cmdBuy(ctx context.Context, chatID, userID int64, args string) error {
	name := strings.TrimSpace(args)
	if name == "" {
		return b.sendCatalog(ctx, chatID)
	}

	res, err := b.Entitlements.ResolveAccess(ctx, userID, name)
	if err != nil {
		return err
	}
	switch res.Decision {
	case services.AccessNotFound:
		return b.Platform.SendText(ctx, chatID, msgContentUnknown)
	case services.AccessAllowOwned, services.AccessAllowVipFree:
		return b.deliverItem(ctx, chatID, res.Item)
	case services.AccessRequiresVip:
		return b.Platform.SendText(ctx, chatID, msgVipRequired)
	default: // AccessRequiresPurchase
		payload := services.PaymentPayload{
			Kind:        services.PayloadKindContent,
			UserID:      userID,
			ContentName: name,
		}
		desc := res.Item.Description
		if desc == "" {
			desc = "One-time purchase, yours forever."
		}
		return b.Platform.SendInvoice(ctx, chatID,
			itemTitle(name), desc, payload.Encode(), b.Currency, res.PriceStars)
	}
}

// sendCatalog renders the browse catalog as a text listing.
func (b *Bot) sendCatalog(ctx context.Context, chatID int64) error {
	items, _, err := b.Catalog.ListPage(ctx, domain.ContentTypeBrowse, 1, 50)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return b.Platform.SendText(ctx, chatID, msgNoContent)
	}
	var sb strings.Builder
	sb.WriteString("Available content:\n\n")
	for _, it := range items {
		fmt.Fprintf(&sb, "• %s - %d ⭐\n", itemTitle(it.Name), it.PriceStars)
	}
	sb.WriteString("\nSend /buy <name> to purchase.")
	return b.Platform.SendText(ctx, chatID, sb.String())
}

// cmdVip reports subscription status or issues a subscription invoice.
func (b *Bot) cmdVip(ctx context.Context, chatID, userID int64) error {
	st, err := b.Entitlements.CheckVipStatus(ctx, userID)
	if err != nil {
		return err
	}
	if st.IsVip {
		return b.Platform.SendText(ctx, chatID,
			fmt.Sprintf("You are a VIP member! %d day(s) left. Renew any time with /vip after it runs out, or pay again now to extend.", st.DaysLeft))
	}

	price, err := b.Ledger.VipPrice(ctx)
	if err != nil {
		return err
	}
	desc, err := b.Ledger.VipDescription(ctx)
	if err != nil {
		return err
	}
	payload := services.PaymentPayload{Kind: services.PayloadKindVip, UserID: userID}
	return b.Platform.SendInvoice(ctx, chatID,
		"VIP Subscription", desc, payload.Encode(), b.Currency, price)
}

// cmdMyContent lists owned items and reminds how to re-access them.
func (b *Bot) cmdMyContent(ctx context.Context, chatID, userID int64) error {
	purchases, err := repo.ListPurchases(ctx, b.DB, userID)
	if err != nil {
		return err
	}
	st, err := b.Entitlements.CheckVipStatus(ctx, userID)
	if err != nil {
		return err
	}
	if len(purchases) == 0 && !st.IsVip {
		return b.Platform.SendText(ctx, chatID, msgNoPurchases)
	}

	var sb strings.Builder
	if st.IsVip {
		fmt.Fprintf(&sb, "VIP member, %d day(s) left. All VIP content is yours on request.\n\n", st.DaysLeft)
	}
	if len(purchases) > 0 {
		sb.WriteString("Your purchases:\n\n")
		for _, p := range purchases {
			fmt.Fprintf(&sb, "• %s\n", itemTitle(p.ContentName))
		}
		sb.WriteString("\nSend /buy <name> to receive any of them again.")
	}
	return b.Platform.SendText(ctx, chatID, sb.String())
}

// cmdTeasers delivers the free preview reel; VIP members also get the
// member-only teasers.
func (b *Bot) cmdTeasers(ctx context.Context, chatID, userID int64) error {
	const maxTeasers = 5

	teasers, err := repo.ListTeasers(ctx, b.DB, false)
	if err != nil {
		return err
	}
	st, err := b.Entitlements.CheckVipStatus(ctx, userID)
	if err != nil {
		return err
	}
	if st.IsVip {
		vipTeasers, err := repo.ListTeasers(ctx, b.DB, true)
		if err != nil {
			return err
		}
		teasers = append(teasers, vipTeasers...)
	}
	if len(teasers) == 0 {
		return b.Platform.SendText(ctx, chatID, "No teasers right now. Check back soon!")
	}
	if len(teasers) > maxTeasers {
		teasers = teasers[:maxTeasers]
	}
	for _, t := range teasers {
		if _, err := b.Delivery.Deliver(ctx, chatID, t.Reference(), t.MediaKind, t.Description); err != nil {
			return err
		}
	}
	return nil
}

// cmdPreview is operator-only: it returns the browser preview link for a
// catalog entry. Non-operators get the unknown-command reply rather than a
// hint that the command exists.
func (b *Bot) cmdPreview(ctx context.Context, chatID, userID int64, args string) error {
	if userID != b.OwnerID {
		return b.Platform.SendText(ctx, chatID, msgUnknownCommand)
	}
	name := strings.TrimSpace(args)
	if name == "" {
		return b.Platform.SendText(ctx, chatID, "Usage: /preview <name>")
	}
	if _, err := repo.GetContentItem(ctx, b.DB, name); err != nil {
		return b.Platform.SendText(ctx, chatID, msgContentUnknown)
	}
	return b.Platform.SendText(ctx, chatID, "Preview link:\n"+b.previewURL(name))
}

// cmdStats is operator-only: sales and subscription aggregates at a glance.
func (b *Bot) cmdStats(ctx context.Context, chatID, userID int64) error {
	if userID != b.OwnerID {
		return b.Platform.SendText(ctx, chatID, msgUnknownCommand)
	}
	sales, revenue, err := repo.PurchaseStats(ctx, b.DB)
	if err != nil {
		return err
	}
	active, payments, err := repo.VipStats(ctx, b.DB, time.Now().UTC())
	if err != nil {
		return err
	}
	return b.Platform.SendText(ctx, chatID, fmt.Sprintf(
		"📊 Stats\n\nContent sales: %d (%d ⭐ total)\nActive VIP members: %d\nVIP payments: %d",
		sales, revenue, active, payments))
}

// deliverItem pushes a catalog entry to a chat through the dispatcher.
func (b *Bot) deliverItem(ctx context.Context, chatID int64, item *domain.ContentItem) error {
	_, err := b.Delivery.Deliver(ctx, chatID, item.Reference(), item.MediaKind, itemCaption(item))
	return err
}

// escapePath makes a catalog name safe inside the preview URL path.
func escapePath(name string) string {
	return url.PathEscape(name)
}
