package bot

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeWebhookAPI struct {
	fakeSender
	endpoint string
	params   tgbotapi.Params
	err      error
}

func (f *fakeWebhookAPI) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	f.endpoint = endpoint
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestSetWebhook(t *testing.T) {
	api := &fakeWebhookAPI{}
	if err := SetWebhook(api, "https://example.org/telegram/webhook", "s3cret"); err != nil {
		t.Fatalf("SetWebhook: %v", err)
	}
	if api.endpoint != "setWebhook" {
		t.Errorf("endpoint = %q", api.endpoint)
	}
	if api.params["url"] != "https://example.org/telegram/webhook" || api.params["secret_token"] != "s3cret" {
		t.Errorf("params = %v", api.params)
	}
}

func TestSetWebhookWithoutSecret(t *testing.T) {
	api := &fakeWebhookAPI{}
	if err := SetWebhook(api, "https://example.org/hook", ""); err != nil {
		t.Fatalf("SetWebhook: %v", err)
	}
	if _, ok := api.params["secret_token"]; ok {
		t.Errorf("secret_token sent: %v", api.params)
	}
}

func TestSetWebhookError(t *testing.T) {
	api := &fakeWebhookAPI{err: &tgbotapi.Error{Code: 400, Message: "Bad Request: bad webhook"}}
	err := SetWebhook(api, "http://insecure", "")
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 400 {
		t.Errorf("err = %v", err)
	}
}

func TestDeleteWebhookAndCommands(t *testing.T) {
	api := &fakeWebhookAPI{}
	if err := DeleteWebhook(api); err != nil {
		t.Fatalf("DeleteWebhook: %v", err)
	}
	if err := RegisterCommands(api); err != nil {
		t.Fatalf("RegisterCommands: %v", err)
	}
	if len(api.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(api.requests))
	}
	if _, ok := api.requests[0].(tgbotapi.DeleteWebhookConfig); !ok {
		t.Errorf("first request = %T", api.requests[0])
	}
	cmds, ok := api.requests[1].(tgbotapi.SetMyCommandsConfig)
	if !ok || len(cmds.Commands) != len(Commands()) {
		t.Errorf("second request = %#v", api.requests[1])
	}
}
