package conversions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/quizfunnel-backend/pkg/config"
	"github.com/angelmondragon/quizfunnel-backend/pkg/logger"
	"github.com/angelmondragon/quizfunnel-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

const (
	EventPurchase = "Purchase"

	SourceClient  = "client"
	SourceWebhook = "webhook"

	errDisabled = "conversion relay disabled"

	responseBodyReadLimit int64 = 1024
)

// Identity describes who converted. Personal fields are hashed before they
// leave the process; technical fields are forwarded untouched.
type Identity struct {
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
	Zip        string `json:"zip,omitempty"`

	ClientIP  string `json:"clientIp,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	FBC       string `json:"fbc,omitempty"`
	FBP       string `json:"fbp,omitempty"`
}

// AmountData is the monetary part of an event, in minor units.
type AmountData struct {
	Value       int64  `json:"value"`
	Currency    string `json:"currency"`
	ContentName string `json:"contentName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

type Event struct {
	Name      string
	SourceURL string
	Identity  Identity
	Amount    *AmountData
	// DedupKey is forwarded as the attribution event id so the receiver can
	// collapse the client and webhook reports of one purchase.
	DedupKey string
	Source   string
	Time     time.Time
}

// Result is always returned instead of an error so callers never fail a
// purchase flow on attribution problems.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Option configures optional relay behavior.
type Option func(*Relay)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Relay) {
		if client != nil {
			r.httpClient = client
		}
	}
}

func WithMetrics(m *metrics.FunnelMetrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithLogger(logg *logger.Logger) Option {
	return func(r *Relay) {
		if logg != nil {
			r.logg = logg
		}
	}
}

// Relay forwards conversion events to the ads attribution API with a single
// attempt per event.
type Relay struct {
	httpClient    *http.Client
	baseURL       string
	apiVersion    string
	pixelID       string
	accessToken   string
	testEventCode string
	metrics       *metrics.FunnelMetrics
	logg          *logger.Logger
	now           func() time.Time
}

func NewRelay(cfg config.ConversionsConfig, opts ...Option) *Relay {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Relay{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiVersion:    strings.TrimSpace(cfg.APIVersion),
		pixelID:       strings.TrimSpace(cfg.PixelID),
		accessToken:   strings.TrimSpace(cfg.AccessToken),
		testEventCode: strings.TrimSpace(cfg.TestEventCode),
		logg:          logger.Nop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Enabled reports whether the relay has credentials.
func (r *Relay) Enabled() bool {
	return r != nil && r.pixelID != "" && r.accessToken != ""
}

func (r *Relay) Send(ctx context.Context, event Event) Result {
	if !r.Enabled() {
		r.metrics.IncConversion(event.Name, event.Source, metrics.OutcomeDisabled)
		return Result{Error: errDisabled}
	}
	if strings.TrimSpace(event.Name) == "" {
		r.metrics.IncConversion("", event.Source, metrics.OutcomeRejected)
		return Result{Error: "event name is required"}
	}

	ctx = r.logg.WithFields(ctx, map[string]any{
		"conversion_event": event.Name,
		"conversion_src":   event.Source,
		"dedup_key":        event.DedupKey,
	})

	body, err := json.Marshal(r.buildPayload(event))
	if err != nil {
		return r.fail(ctx, event, "encode conversion event", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint(), bytes.NewReader(body))
	if err != nil {
		return r.fail(ctx, event, "build conversion request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return r.fail(ctx, event, "send conversion event", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return r.fail(ctx, event, "attribution api rejected event",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	r.metrics.IncConversion(event.Name, event.Source, metrics.OutcomeSuccess)
	r.logg.Info(ctx, "conversion event relayed")
	return Result{Success: true}
}

func (r *Relay) fail(ctx context.Context, event Event, msg string, err error) Result {
	r.metrics.IncConversion(event.Name, event.Source, metrics.OutcomeFailure)
	r.logg.Error(ctx, msg, err)
	return Result{Error: msg}
}

// endpoint never carries the access token.
func (r *Relay) endpoint() string {
	return fmt.Sprintf("%s/%s/%s/events",
		r.baseURL, url.PathEscape(r.apiVersion), url.PathEscape(r.pixelID))
}

type apiPayload struct {
	Data          []apiEvent `json:"data"`
	TestEventCode string     `json:"test_event_code,omitempty"`
	AccessToken   string     `json:"access_token"`
}

type apiEvent struct {
	EventName      string      `json:"event_name"`
	EventTime      int64       `json:"event_time"`
	EventID        string      `json:"event_id,omitempty"`
	EventSourceURL string      `json:"event_source_url,omitempty"`
	ActionSource   string      `json:"action_source"`
	UserData       apiUserData `json:"user_data"`
	CustomData     *apiCustom  `json:"custom_data,omitempty"`
}

type apiUserData struct {
	Em              []string `json:"em,omitempty"`
	Ph              []string `json:"ph,omitempty"`
	Fn              []string `json:"fn,omitempty"`
	Ln              []string `json:"ln,omitempty"`
	ExternalID      []string `json:"external_id,omitempty"`
	Ct              []string `json:"ct,omitempty"`
	Country         []string `json:"country,omitempty"`
	Zp              []string `json:"zp,omitempty"`
	ClientIPAddress string   `json:"client_ip_address,omitempty"`
	ClientUserAgent string   `json:"client_user_agent,omitempty"`
	Fbc             string   `json:"fbc,omitempty"`
	Fbp             string   `json:"fbp,omitempty"`
}

type apiCustom struct {
	Value       json.Number `json:"value"`
	Currency    string      `json:"currency"`
	ContentName string      `json:"content_name,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
}

func (r *Relay) buildPayload(event Event) apiPayload {
	at := event.Time
	if at.IsZero() {
		at = r.now()
	}
	id := event.Identity
	out := apiEvent{
		EventName:      event.Name,
		EventTime:      at.Unix(),
		EventID:        strings.TrimSpace(event.DedupKey),
		EventSourceURL: strings.TrimSpace(event.SourceURL),
		ActionSource:   "website",
		UserData: apiUserData{
			Em:              hashedList(id.Email, normalizeLower),
			Ph:              hashedList(id.Phone, normalizePhone),
			Fn:              hashedList(id.FirstName, normalizeLower),
			Ln:              hashedList(id.LastName, normalizeLower),
			ExternalID:      hashedList(id.ExternalID, strings.TrimSpace),
			Ct:              hashedList(id.City, normalizeCompact),
			Country:         hashedList(id.Country, normalizeLower),
			Zp:              hashedList(id.Zip, normalizeZip),
			ClientIPAddress: strings.TrimSpace(id.ClientIP),
			ClientUserAgent: strings.TrimSpace(id.UserAgent),
			Fbc:             strings.TrimSpace(id.FBC),
			Fbp:             strings.TrimSpace(id.FBP),
		},
	}
	if event.Amount != nil {
		currency := strings.ToUpper(strings.TrimSpace(event.Amount.Currency))
		if currency == "" {
			currency = "USD"
		}
		out.CustomData = &apiCustom{
			Value:       MajorUnits(event.Amount.Value),
			Currency:    currency,
			ContentName: event.Amount.ContentName,
			ContentType: event.Amount.ContentType,
		}
	}
	return apiPayload{Data: []apiEvent{out}, TestEventCode: r.testEventCode, AccessToken: r.accessToken}
}

// MajorUnits converts a minor-unit amount into a JSON number in major units,
// e.g. 1999 -> 19.99.
func MajorUnits(minor int64) json.Number {
	return json.Number(decimal.NewFromInt(minor).Shift(-2).StringFixed(2))
}
