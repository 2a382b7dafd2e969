// internal/bot/commands.go
package bot

import (
	"boost-wallet/internal/category"
	"boost-wallet/internal/domain"
	"boost-wallet/internal/recommend"
	"context"
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "💳 *Boost: какой картой платить*\n\n" +
	"Команды:\n" +
	"`/wallet` - карты в кошельке\n" +
	"`/add Amex: Gold` - добавить карту из каталога\n" +
	"`/remove Amex: Gold` - убрать карту\n" +
	"`/catalog` - все карты каталога\n" +
	"`/best Costco Gas Station | gas_station` - лучшая карта для места\n" +
	"`/cat Restaurants` - лучшая карта для категории\n" +
	"`/rate Amex: Gold | dining` - ставка карты\n" +
	"`/rank groceries` - карты по убыванию ставки\n" +
	"`/paid Amex: Gold | Dining` - отметить оплату"

func (b *Bot) handleWallet(ctx context.Context, userID int64) (string, error) {
	m, err := b.wallets.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	cards := m.Cards()
	if len(cards) == 0 {
		return "📭 Кошелёк пуст. Добавь карту: `/add Amex: Gold`", nil
	}

	lines := []string{"💳 *Кошелёк*"}
	for i, card := range cards {
		lines = append(lines, fmt.Sprintf("%d. *%s*%s", i+1, cardTitle(card), rewardsSummary(card)))
	}
	return strings.Join(lines, "\n"), nil
}

func (b *Bot) handleAdd(ctx context.Context, userID int64, args string) (string, error) {
	issuer, product, err := parseCard(args)
	if err != nil {
		return "", usageError("используй: /add Банк: Карта")
	}
	m, err := b.wallets.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	card, err := m.AddFromCatalog(ctx, issuer, product)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Добавлена *%s*", cardTitle(card)), nil
}

func (b *Bot) handleRemove(ctx context.Context, userID int64, args string) (string, error) {
	issuer, product, err := parseCard(args)
	if err != nil {
		return "", usageError("используй: /remove Банк: Карта")
	}
	m, err := b.wallets.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := m.Remove(ctx, issuer, product); err != nil {
		return "", err
	}
	return "✅ Карта удалена", nil
}

func (b *Bot) handleBest(ctx context.Context, userID int64, args string) (string, error) {
	name, kind := splitPipe(args)
	if name == "" {
		return "", usageError("используй: /best Название | тип места")
	}
	m, err := b.wallets.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	var (
		rec *domain.Recommendation
		cat string
	)
	placeType := strings.ToLower(kind)
	switch {
	case kind == "":
		cat = category.Other
		rec = b.recommender.ForBusiness(m.Snapshot(), name, cat)
	case category.ResolveCategory(placeType) != category.Other:
		rec, cat = b.recommender.ForPlace(m.Snapshot(), domain.Business{Name: name, Types: []string{placeType}})
	default:
		// не тип места, значит категория
		cat = kind
		rec = b.recommender.ForBusiness(m.Snapshot(), name, cat)
	}
	return formatRecommendation(name, cat, rec), nil
}

func (b *Bot) handleCategory(ctx context.Context, userID int64, args string) (string, error) {
	if args == "" {
		return "", usageError("используй: /cat Категория")
	}
	m, err := b.wallets.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	rec := recommend.BestForCategory(m.Snapshot(), args)
	return formatRecommendation("", args, rec), nil
}

func (b *Bot) handleRate(ctx context.Context, userID int64, args string) (string, error) {
	cardPart, cat := splitPipe(args)
	issuer, product, err := parseCard(cardPart)
	if err != nil || cat == "" {
		return "", usageError("используй: /rate Банк: Карта | категория")
	}
	m, err := b.wallets.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	card, ok := m.Find(issuer, product)
	if !ok {
		return fmt.Sprintf("📭 *%s %s* нет в кошельке", escape(issuer), escape(product)), nil
	}
	rate := recommend.RewardRate(card, cat)
	return fmt.Sprintf("💳 *%s*: %s на %s", cardTitle(card), recommend.FormatRate(rate), escape(cat)), nil
}

func (b *Bot) handleRank(ctx context.Context, userID int64, args string) (string, error) {
	if args == "" {
		return "", usageError("используй: /rank категория")
	}
	m, err := b.wallets.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	ranked := recommend.Rank(m.Snapshot(), args)
	if len(ranked) == 0 {
		return "📭 Кошелёк пуст", nil
	}

	lines := []string{fmt.Sprintf("📊 *Карты для %s*", escape(args))}
	for i, rc := range ranked {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, cardTitle(rc.Card), recommend.FormatRate(rc.Rate)))
	}
	return strings.Join(lines, "\n"), nil
}

func (b *Bot) handleCatalog(ctx context.Context) (string, error) {
	groups, err := b.catalog.ListCatalog(ctx)
	if err != nil {
		return "", err
	}
	if len(groups) == 0 {
		return "📭 Каталог пуст", nil
	}

	var lines []string
	lines = append(lines, "🗂 *Каталог карт*")
	for _, g := range groups {
		names := make([]string, 0, len(g.Cards))
		for _, c := range g.Cards {
			names = append(names, escape(c.Name))
		}
		lines = append(lines, fmt.Sprintf("\n*%s*: %s", escape(g.Issuer), strings.Join(names, ", ")))
	}
	return strings.Join(lines, "\n"), nil
}

func (b *Bot) handlePaid(ctx context.Context, userID int64, args string) (string, error) {
	cardPart, cat := splitPipe(args)
	issuer, product, err := parseCard(cardPart)
	if err != nil {
		return "", usageError("используй: /paid Банк: Карта | категория")
	}
	m, err := b.wallets.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	card, ok := m.Find(issuer, product)
	if !ok || card.IsVirtual() {
		return fmt.Sprintf("📭 *%s %s* нет в кошельке", escape(issuer), escape(product)), nil
	}
	b.tracker.TrackPaymentUsage(m.UserID(), cat, card.Issuer, card.ProductName)
	return fmt.Sprintf("✅ Оплата картой *%s* записана", cardTitle(card)), nil
}

// parseCard: "Amex: Gold" -> "Amex", "Gold"
func parseCard(s string) (string, string, error) {
	issuer, product, ok := strings.Cut(s, ":")
	issuer, product = strings.TrimSpace(issuer), strings.TrimSpace(product)
	if !ok || issuer == "" || product == "" {
		return "", "", usageError("нужен формат Банк: Карта")
	}
	return issuer, product, nil
}

// splitPipe: "Costco | gas_station" -> "Costco", "gas_station"
func splitPipe(s string) (string, string) {
	left, right, _ := strings.Cut(s, "|")
	return strings.TrimSpace(left), strings.TrimSpace(right)
}

func formatRecommendation(business, cat string, rec *domain.Recommendation) string {
	target := escape(cat)
	if business != "" {
		target = escape(business)
	}
	if rec == nil {
		return fmt.Sprintf("🤷 Нет подходящей карты для *%s*", target)
	}

	text := fmt.Sprintf("💳 Для *%s* плати *%s*: %s", target, cardTitle(rec.Card), recommend.FormatRate(rec.Rate))
	if rec.MatchedCategory != "" {
		text += fmt.Sprintf("\n🏷 Ко-бренд: %s", escape(rec.MatchedCategory))
	} else if business != "" {
		text += fmt.Sprintf("\n🏷 Категория: %s", escape(category.DisplayName(cat)))
	}
	return text
}

func cardTitle(card domain.Card) string {
	return escape(card.Issuer + " " + card.ProductName)
}

// rewardsSummary: " (dining 4%, other 1%)" с ключами по алфавиту
func rewardsSummary(card domain.Card) string {
	if len(card.Rewards) == 0 {
		return ""
	}
	keys := make([]string, 0, len(card.Rewards))
	for k := range card.Rewards {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %s", escape(k), recommend.FormatRate(card.Rewards[k])))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
