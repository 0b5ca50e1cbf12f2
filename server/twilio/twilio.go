package twilio

import (
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/udsonbraga/safelady/shared"
)

// ClientWrapper sends the SMS fallback for contacts that have a phone
// number but no Telegram handle.
type ClientWrapper struct {
	client   *twilio.RestClient
	config   shared.TwilioConfig
	testMode bool
}

func NewClient(config shared.TwilioConfig, testMode bool) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{
		client:   client,
		config:   config,
		testMode: testMode,
	}
}

// Enabled reports whether Twilio credentials are configured. An
// unconfigured client disables the SMS channel rather than failing
// dispatch.
func (cw *ClientWrapper) Enabled() bool {
	return cw.testMode || (cw.config.AccountSid != "" && cw.config.AuthToken != "")
}

func (cw *ClientWrapper) SendMessage(to, msg string) error {
	if cw.testMode {
		return nil
	}

	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	params.SetTo(to)
	params.SetBody(msg)

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return err
	}

	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return fmt.Errorf("twilio: %v", *resp.ErrorMessage)
	}

	return nil
}
