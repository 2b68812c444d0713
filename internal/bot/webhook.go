package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// WebhookAPI is the part of *tgbotapi.BotAPI used to register webhooks.
type WebhookAPI interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// SetWebhook points Telegram at url. The library's WebhookConfig predates
// secret tokens, so the call is built by hand.
func SetWebhook(api WebhookAPI, url, secret string) error {
	params := tgbotapi.Params{"url": url}
	params.AddNonEmpty("secret_token", secret)
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook removes any webhook so long polling can receive updates.
func DeleteWebhook(api WebhookAPI) error {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// RegisterCommands publishes the command menu.
func RegisterCommands(api WebhookAPI) error {
	if _, err := api.Request(tgbotapi.NewSetMyCommands(Commands()...)); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	return nil
}
