package bot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"boost-wallet/internal/catalog"
	"boost-wallet/internal/storage"
	"boost-wallet/internal/wallet"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

type memStore struct {
	mu      sync.Mutex
	catalog []storage.CatalogRecord
	wallets map[int64][]storage.StoredCard
}

func (s *memStore) FindCard(_ context.Context, issuer, name string) (*storage.CatalogRecord, error) {
	for _, r := range s.catalog {
		if strings.EqualFold(r.Issuer, issuer) && strings.EqualFold(r.Name, name) {
			rec := r
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListCards(_ context.Context) ([]storage.CatalogRecord, error) {
	return s.catalog, nil
}

func (s *memStore) ListUserCards(_ context.Context, userID int64) ([]storage.StoredCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storage.StoredCard(nil), s.wallets[userID]...), nil
}

func (s *memStore) AddUserCard(_ context.Context, userID int64, card storage.StoredCard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[userID] = append(s.wallets[userID], card)
	return nil
}

func (s *memStore) RemoveUserCard(_ context.Context, userID int64, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.wallets[userID]
	for i, c := range list {
		if c.CardID == cardID {
			s.wallets[userID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

type memUsers struct {
	ids  map[int64]int64
	fail error
}

func (u *memUsers) EnsureTelegramUser(_ context.Context, telegramID int64) (int64, error) {
	if u.fail != nil {
		return 0, u.fail
	}
	if id, ok := u.ids[telegramID]; ok {
		return id, nil
	}
	id := int64(len(u.ids) + 1)
	u.ids[telegramID] = id
	return id, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

type fakeTracker struct {
	payments []string
}

func (f *fakeTracker) TrackPaymentUsage(_ int64, category, issuer, name string) {
	f.payments = append(f.payments, issuer+" "+name+" "+category)
}

type testBot struct {
	bot     *Bot
	sender  *fakeSender
	tracker *fakeTracker
	users   *memUsers
}

func newTestBot() *testBot {
	store := &memStore{
		catalog: []storage.CatalogRecord{
			{ID: "amex_gold", Issuer: "Amex", Name: "Gold", Rewards: map[string]any{"dining": 4, "other": 1}},
			{ID: "citi_costco_anywhere_visa", Issuer: "Citi", Name: "Costco Anywhere Visa", Rewards: map[string]any{"gas": 4, "other": 1}},
			{ID: "citi_double_cash", Issuer: "Citi", Name: "Double Cash", Rewards: map[string]any{"other": 2}},
		},
		wallets: map[int64][]storage.StoredCard{},
	}
	cat := catalog.NewService(store, nil, catalog.Options{MaxAttempts: 1}, nil)
	tb := &testBot{
		sender:  &fakeSender{},
		tracker: &fakeTracker{},
		users:   &memUsers{ids: map[int64]int64{}},
	}
	tb.bot = New(Deps{
		Users:   tb.users,
		Wallets: wallet.NewRegistry(store, cat, nil, nil),
		Catalog: cat,
		Tracker: tb.tracker,
		Sender:  tb.sender,
	})
	return tb
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in, cmd, args string
	}{
		{"/help", "/help", ""},
		{"/add Amex: Gold", "/add", "Amex: Gold"},
		{"/ADD@boost_bot  Amex: Gold ", "/add", "Amex: Gold"},
		{"hello", "hello", ""},
	}
	for _, tt := range tests {
		cmd, args := splitCommand(tt.in)
		assert.Equal(t, tt.cmd, cmd, tt.in)
		assert.Equal(t, tt.args, args, tt.in)
	}
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "/add Amex: Gold", SanitizeInput("/add  Amex:\tGold\n"))
}

func TestFixEncoding(t *testing.T) {
	cp1251, err := charmap.Windows1251.NewEncoder().String("Привет")
	require.NoError(t, err)

	assert.Equal(t, "Привет", fixEncoding(cp1251))
	assert.Equal(t, "Привет", fixEncoding("Привет"))
}

func TestParseCard(t *testing.T) {
	issuer, product, err := parseCard(" American Express :  Gold ")
	require.NoError(t, err)
	assert.Equal(t, "American Express", issuer)
	assert.Equal(t, "Gold", product)

	for _, bad := range []string{"", "Amex Gold", ": Gold", "Amex:"} {
		_, _, err := parseCard(bad)
		assert.Error(t, err, bad)
	}
}

func TestReplyWalletCommands(t *testing.T) {
	tb := newTestBot()
	ctx := context.Background()
	reply := func(text string) string { return tb.bot.Reply(ctx, 1, text) }

	assert.Contains(t, reply("/wallet"), "пуст")
	assert.Equal(t, "✅ Добавлена *Amex Gold*", reply("/add American Express: Gold"))
	assert.Contains(t, reply("/add Amex: Gold"), "уже в кошельке")
	assert.Contains(t, reply("/add Amex Gold"), "используй: /add")
	assert.Contains(t, reply("/add Chase: Nope"), "нет в каталоге")

	assert.Contains(t, reply("/wallet"), "1. *Amex Gold* (dining 4%, other 1%)")

	assert.Contains(t, reply("/remove Virtual: Debit Card"), "виртуальную")
	assert.Contains(t, reply("/remove Citi: Double Cash"), "нет в кошельке")
	assert.Equal(t, "✅ Карта удалена", reply("/remove amex: gold"))
	assert.Contains(t, reply("/wallet"), "пуст")

	assert.Contains(t, reply("/whatever"), "Неизвестная команда")
	assert.Equal(t, helpText, reply("/start"))
}

func TestReplyRecommendations(t *testing.T) {
	tb := newTestBot()
	ctx := context.Background()
	reply := func(text string) string { return tb.bot.Reply(ctx, 1, text) }

	assert.Contains(t, reply("/cat dining"), "Нет подходящей карты")

	reply("/add Citi: Costco Anywhere Visa")
	reply("/add Amex: Gold")

	best := reply("/best Costco Gas Station | gas_station")
	assert.Contains(t, best, "*Citi Costco Anywhere Visa*: 5%")
	assert.Contains(t, best, "Ко-бренд: Costco")

	best = reply("/best Joe's Diner | dining")
	assert.Contains(t, best, "*Amex Gold*: 4%")
	assert.Contains(t, best, "Категория: Dining")

	best = reply("/best Corner Shop")
	assert.Contains(t, best, "*Citi Costco Anywhere Visa*: 1%")

	assert.Contains(t, reply("/cat Restaurants"), "*Amex Gold*: 4%")
	assert.Contains(t, reply("/rate Amex: Gold | hotels"), "1% на hotels")
	assert.Contains(t, reply("/rate Chase: Freedom | dining"), "нет в кошельке")
	assert.Contains(t, reply("/rate Amex: Gold"), "используй: /rate")

	rank := reply("/rank gas")
	assert.Less(t, strings.Index(rank, "Costco"), strings.Index(rank, "Gold"))
}

func TestReplyCatalogAndPaid(t *testing.T) {
	tb := newTestBot()
	ctx := context.Background()

	catalogText := tb.bot.Reply(ctx, 1, "/catalog")
	assert.Contains(t, catalogText, "*Amex*: Gold")
	assert.Contains(t, catalogText, "*Citi*: Costco Anywhere Visa, Double Cash")

	tb.bot.Reply(ctx, 1, "/add Amex: Gold")
	assert.Contains(t, tb.bot.Reply(ctx, 1, "/paid amex: gold | Dining"), "записана")
	assert.Contains(t, tb.bot.Reply(ctx, 1, "/paid Citi: Double Cash"), "нет в кошельке")
	assert.Equal(t, []string{"Amex Gold Dining"}, tb.tracker.payments)
}

func TestHandleUpdateSendsMarkdown(t *testing.T) {
	tb := newTestBot()
	tb.bot.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 555},
			Chat: &tgbotapi.Chat{ID: 42},
			Text: "/help",
		},
	})

	require.Len(t, tb.sender.sent, 1)
	msg := tb.sender.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	assert.Equal(t, helpText, msg.Text)
	assert.Equal(t, int64(1), tb.users.ids[555])
}

func TestHandleUpdateUserLookupFails(t *testing.T) {
	tb := newTestBot()
	tb.users.fail = errors.New("db down")

	tb.bot.HandleUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 555}, Chat: &tgbotapi.Chat{ID: 42}, Text: "/wallet"},
	})

	require.Len(t, tb.sender.sent, 1)
	assert.Contains(t, tb.sender.sent[0].Text, "попробуй позже")
}

func TestHandleUpdateIgnoresNonMessages(t *testing.T) {
	tb := newTestBot()
	tb.bot.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 1})
	assert.Empty(t, tb.sender.sent)
}

func TestWebhook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tb := newTestBot()
	router := gin.New()
	router.POST(WebhookPath, tb.bot.Webhook())

	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":555,"is_bot":false,"first_name":"A"},` +
		`"chat":{"id":42,"type":"private"},"date":0,"text":"/help"}}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body)))
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, tb.sender.sent, 1)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeRequester struct {
	endpoint string
	params   tgbotapi.Params
}

func (f *fakeRequester) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.endpoint, f.params = endpoint, params
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestSetWebhook(t *testing.T) {
	req := &fakeRequester{}
	url, err := SetWebhook(req, "https://boost.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://boost.example.com/telegram", url)
	assert.Equal(t, "setWebhook", req.endpoint)
	assert.Equal(t, url, req.params["url"])

	_, err = SetWebhook(req, "")
	assert.Error(t, err)
}

type fakePoller struct {
	updates chan tgbotapi.Update
	stopped bool
}

func (p *fakePoller) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return p.updates
}

func (p *fakePoller) StopReceivingUpdates() { p.stopped = true }

func TestRunStopsOnCancel(t *testing.T) {
	tb := newTestBot()
	poller := &fakePoller{updates: make(chan tgbotapi.Update)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- tb.bot.Run(ctx, poller) }()

	poller.updates <- tgbotapi.Update{
		Message: &tgbotapi.Message{From: &tgbotapi.User{ID: 7}, Chat: &tgbotapi.Chat{ID: 7}, Text: "/help"},
	}
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, poller.stopped)
	assert.Len(t, tb.sender.sent, 1)
}
