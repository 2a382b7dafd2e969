// internal/bot/bot.go
package bot

import (
	"boost-wallet/internal/catalog"
	"boost-wallet/internal/recommend"
	"boost-wallet/internal/wallet"
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/encoding/charmap"
)

type TelegramUsers interface {
	EnsureTelegramUser(ctx context.Context, telegramID int64) (int64, error)
}

type Wallets interface {
	Get(ctx context.Context, userID int64) (*wallet.Manager, error)
}

type CatalogLister interface {
	ListCatalog(ctx context.Context) ([]catalog.IssuerCards, error)
}

type PaymentTracker interface {
	TrackPaymentUsage(userID int64, category, issuer, name string)
}

// Sender: *tgbotapi.BotAPI
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Poller: *tgbotapi.BotAPI в режиме long-poll
type Poller interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Deps struct {
	Users       TelegramUsers
	Wallets     Wallets
	Catalog     CatalogLister
	Recommender *recommend.Recommender
	Tracker     PaymentTracker
	Sender      Sender
	Logger      *slog.Logger
}

type Bot struct {
	users       TelegramUsers
	wallets     Wallets
	catalog     CatalogLister
	recommender *recommend.Recommender
	tracker     PaymentTracker
	sender      Sender
	logger      *slog.Logger
}

func New(d Deps) *Bot {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Recommender == nil {
		d.Recommender = recommend.NewRecommender(d.Logger)
	}
	return &Bot{
		users:       d.Users,
		wallets:     d.Wallets,
		catalog:     d.Catalog,
		recommender: d.Recommender,
		tracker:     d.Tracker,
		sender:      d.Sender,
		logger:      d.Logger,
	}
}

// Run читает обновления long-poll до отмены ctx
func (b *Bot) Run(ctx context.Context, api Poller) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate отвечает на одно сообщение. Ошибки только логируются.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	chatID := update.Message.Chat.ID
	rawText := update.Message.Text
	text := SanitizeInput(fixEncoding(rawText))
	b.logger.Info("telegram message received", "telegram_id", update.Message.From.ID, "text", text)

	var reply string
	userID, err := b.users.EnsureTelegramUser(ctx, update.Message.From.ID)
	if err != nil {
		b.logger.Error("telegram user lookup failed", "error", err, "telegram_id", update.Message.From.ID)
		reply = "❌ Ошибка: попробуй позже"
	} else {
		reply = b.Reply(ctx, userID, text)
	}

	msg := tgbotapi.NewMessage(chatID, reply)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("telegram send failed", "error", err, "chat_id", chatID)
	}
}

// Reply выполняет команду и возвращает текст ответа в Markdown
func (b *Bot) Reply(ctx context.Context, userID int64, text string) string {
	cmd, args := splitCommand(text)

	var (
		msgText string
		err     error
	)

	switch cmd {
	case "/start", "/help":
		msgText = helpText
	case "/wallet":
		msgText, err = b.handleWallet(ctx, userID)
	case "/add":
		msgText, err = b.handleAdd(ctx, userID, args)
	case "/remove":
		msgText, err = b.handleRemove(ctx, userID, args)
	case "/best":
		msgText, err = b.handleBest(ctx, userID, args)
	case "/cat":
		msgText, err = b.handleCategory(ctx, userID, args)
	case "/rate":
		msgText, err = b.handleRate(ctx, userID, args)
	case "/rank":
		msgText, err = b.handleRank(ctx, userID, args)
	case "/catalog":
		msgText, err = b.handleCatalog(ctx)
	case "/paid":
		msgText, err = b.handlePaid(ctx, userID, args)
	default:
		msgText = "Неизвестная команда. Напиши /help"
	}

	if err != nil {
		return "❌ Ошибка: " + b.userError(err, userID, cmd)
	}
	return msgText
}

func (b *Bot) userError(err error, userID int64, cmd string) string {
	var usage usageError
	switch {
	case errors.As(err, &usage):
		return usage.Error()
	case errors.Is(err, catalog.ErrCardNotFound):
		return "карты нет в каталоге, список: /catalog"
	case errors.Is(err, wallet.ErrDuplicateCard):
		return "карта уже в кошельке"
	case errors.Is(err, wallet.ErrCardNotInWallet):
		return "карты нет в кошельке"
	case errors.Is(err, wallet.ErrVirtualCard):
		return "виртуальную карту нельзя менять"
	default:
		b.logger.Error("telegram command failed", "error", err, "user_id", userID, "command", cmd)
		return "попробуй позже"
	}
}

// usageError: подсказка по формату команды, показывается как есть
type usageError string

func (e usageError) Error() string { return string(e) }

// splitCommand: "/add@boost_bot Amex: Gold" -> "/add", "Amex: Gold"
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text, ""
	}
	cmd, args, _ := strings.Cut(text, " ")
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(args)
}

// SanitizeInput заменяет любые пробельные символы обычным пробелом и схлопывает повторы
func SanitizeInput(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			sb.WriteRune(' ')
		} else {
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func fixEncoding(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	// некоторые клиенты присылают windows-1251
	decoder := charmap.Windows1251.NewDecoder()
	fixed, err := decoder.String(s)
	if err == nil && utf8.ValidString(fixed) {
		return fixed
	}

	return strings.ToValidUTF8(s, "")
}
