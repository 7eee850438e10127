// Package dispatch sends emergency voice calls and SMS alerts through an
// ordered list of provider accounts, moving to the next account whenever one
// fails.
package dispatch

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/cyclone-watch/internal/domain"
	"github.com/couchcryptid/cyclone-watch/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrNoAccounts is returned when the dispatcher has no provider accounts.
	ErrNoAccounts = errors.New("no provider accounts configured")

	// ErrAllAccountsFailed is returned, joined with each account's error, when
	// every account rejected the request.
	ErrAllAccountsFailed = errors.New("all provider accounts failed")

	// ErrInvalidContact is returned for numbers not in E.164 form.
	ErrInvalidContact = errors.New("invalid contact number")

	// ErrUnknownVoice is returned when the requested voice profile is not configured.
	ErrUnknownVoice = errors.New("unknown voice profile")
)

// Channel identifies how a contact is reached.
type Channel string

const (
	ChannelCall Channel = "call"
	ChannelSMS  Channel = "sms"
)

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// Provider places calls and sends messages from one provider account.
type Provider interface {
	Call(ctx context.Context, to, twiml string) (sid string, err error)
	SendSMS(ctx context.Context, to, body string) (sid string, err error)
}

// Account is a named provider account. Accounts are tried in slice order.
type Account struct {
	Name     string
	Provider Provider
}

// Notification is an SMS alert about the current risk.
type Notification struct {
	Contact       string          `json:"contact"`
	Tier          domain.RiskTier `json:"tier"`
	LocationLabel string          `json:"location"`
	PressureHPa   float64         `json:"pressure_hpa"`
}

// Result describes a delivered request.
type Result struct {
	ID          string    `json:"id"`
	Channel     Channel   `json:"channel"`
	Contact     string    `json:"contact"`
	Account     string    `json:"account"`
	ProviderSID string    `json:"provider_sid"`
	SentAt      time.Time `json:"sent_at"`
}

// Dispatcher delivers notifications with account failover.
type Dispatcher struct {
	accounts []Account
	voices   map[string]string
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates a Dispatcher. voices maps a profile name to the audio URL played
// on voice calls; names are matched case-insensitively.
func New(accounts []Account, voices map[string]string, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Dispatcher {
	normalized := make(map[string]string, len(voices))
	for name, url := range voices {
		normalized[strings.ToLower(name)] = url
	}
	return &Dispatcher{
		accounts: slices.Clone(accounts),
		voices:   normalized,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
}

// Voices lists the configured voice profile names in sorted order.
func (d *Dispatcher) Voices() []string {
	return slices.Sorted(maps.Keys(d.voices))
}

// ValidateContact checks that contact is an E.164 number.
func ValidateContact(contact string) error {
	if !e164.MatchString(contact) {
		return fmt.Errorf("%w: %q", ErrInvalidContact, contact)
	}
	return nil
}

// Call places a voice call that plays the selected voice profile.
func (d *Dispatcher) Call(ctx context.Context, contact, voice string) (Result, error) {
	contact = strings.TrimSpace(contact)
	if err := ValidateContact(contact); err != nil {
		return Result{}, err
	}
	audioURL, ok := d.voices[strings.ToLower(strings.TrimSpace(voice))]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownVoice, voice)
	}
	twiml, err := playTwiML(audioURL)
	if err != nil {
		return Result{}, err
	}

	return d.deliver(ctx, ChannelCall, contact, func(p Provider) (string, error) {
		return p.Call(ctx, contact, twiml)
	})
}

// Alert sends an SMS describing the notification's risk tier and reading.
func (d *Dispatcher) Alert(ctx context.Context, n Notification) (Result, error) {
	contact := strings.TrimSpace(n.Contact)
	if err := ValidateContact(contact); err != nil {
		return Result{}, err
	}
	if !n.Tier.Valid() {
		return Result{}, fmt.Errorf("alert tier: %w", domain.ErrInvalidMeasurement)
	}
	body := AlertText(n)

	return d.deliver(ctx, ChannelSMS, contact, func(p Provider) (string, error) {
		return p.SendSMS(ctx, contact, body)
	})
}

// AlertText renders the SMS body for a notification.
func AlertText(n Notification) string {
	return fmt.Sprintf("CYCLONE WATCH: %s risk at %s (%.1f hPa). Move to your nearest shelter and follow official instructions.",
		strings.ToUpper(n.Tier.String()), n.LocationLabel, n.PressureHPa)
}

func (d *Dispatcher) deliver(ctx context.Context, channel Channel, contact string, send func(Provider) (string, error)) (Result, error) {
	if len(d.accounts) == 0 {
		return Result{}, ErrNoAccounts
	}

	var errs []error
	for _, acc := range d.accounts {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		sid, err := send(acc.Provider)
		if err != nil {
			d.metrics.DispatchAttempts.WithLabelValues(string(channel), acc.Name, "error").Inc()
			d.logger.Warn("provider account failed, trying next",
				"channel", channel, "account", acc.Name, "error", err)
			errs = append(errs, fmt.Errorf("account %s: %w", acc.Name, err))
			continue
		}

		d.metrics.DispatchAttempts.WithLabelValues(string(channel), acc.Name, "success").Inc()
		d.logger.Info("notification sent", "channel", channel, "account", acc.Name, "sid", sid)
		return Result{
			ID:          uuid.NewString(),
			Channel:     channel,
			Contact:     contact,
			Account:     acc.Name,
			ProviderSID: sid,
			SentAt:      d.clock.Now().UTC(),
		}, nil
	}

	return Result{}, fmt.Errorf("%w: %w", ErrAllAccountsFailed, errors.Join(errs...))
}

// playTwiML builds <Response><Play>url</Play></Response> with the URL escaped.
func playTwiML(audioURL string) (string, error) {
	out, err := xml.Marshal(struct {
		XMLName xml.Name `xml:"Response"`
		Play    string   `xml:"Play"`
	}{Play: audioURL})
	if err != nil {
		return "", fmt.Errorf("encode twiml: %w", err)
	}
	return string(out), nil
}
