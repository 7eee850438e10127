// Package twilio adapts a Twilio account to dispatch.Provider.
package twilio

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/cyclone-watch/internal/config"
	"github.com/couchcryptid/cyclone-watch/internal/dispatch"
	twiliogo "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// api is the subset of the Twilio REST API used here.
type api interface {
	CreateCall(params *openapi.CreateCallParams) (*openapi.ApiV2010Call, error)
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Client sends calls and messages from one Twilio account.
type Client struct {
	api  api
	from string
}

var _ dispatch.Provider = (*Client)(nil)

// NewClient creates a client for one configured account.
func NewClient(acc config.ProviderAccount) *Client {
	rest := twiliogo.NewRestClientWithParams(twiliogo.ClientParams{
		Username: acc.AccountSID,
		Password: acc.AuthToken,
	})
	return &Client{api: rest.Api, from: acc.From}
}

// Accounts builds dispatch accounts, in order, from configuration.
func Accounts(accounts []config.ProviderAccount) []dispatch.Account {
	out := make([]dispatch.Account, len(accounts))
	for i, acc := range accounts {
		out[i] = dispatch.Account{Name: acc.Name, Provider: NewClient(acc)}
	}
	return out
}

// Call places a call that executes the given TwiML.
func (c *Client) Call(ctx context.Context, to, twiml string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &openapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetTwiml(twiml)

	call, err := c.api.CreateCall(params)
	if err != nil {
		return "", fmt.Errorf("create call: %w", err)
	}
	if call == nil || call.Sid == nil {
		return "", errors.New("create call: response has no sid")
	}
	return *call.Sid, nil
}

// SendSMS sends a text message.
func (c *Client) SendSMS(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(body)

	msg, err := c.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}
	if msg == nil || msg.Sid == nil {
		return "", errors.New("create message: response has no sid")
	}
	return *msg.Sid, nil
}
