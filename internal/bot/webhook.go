// internal/bot/webhook.go
package bot

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const WebhookPath = "/telegram"

// Requester: *tgbotapi.BotAPI
type Requester interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// SetWebhook регистрирует baseURL + /telegram в Telegram
func SetWebhook(api Requester, baseURL string) (string, error) {
	if baseURL == "" {
		return "", fmt.Errorf("webhook base url is empty")
	}
	webhookURL := strings.TrimRight(baseURL, "/") + WebhookPath
	if _, err := api.MakeRequest("setWebhook", tgbotapi.Params{"url": webhookURL}); err != nil {
		return "", fmt.Errorf("set webhook: %w", err)
	}
	return webhookURL, nil
}

// Webhook принимает обновления от Telegram (POST /telegram)
func (b *Bot) Webhook() gin.HandlerFunc {
	return func(c *gin.Context) {
		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			slog.Error("telegram update parse failed", "error", err)
			c.Status(http.StatusBadRequest)
			return
		}
		b.HandleUpdate(c.Request.Context(), update)
		c.Status(http.StatusOK)
	}
}
