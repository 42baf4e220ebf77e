package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
)

// MetadataIntentID tags a subscription with the payment intent that paid for
// its first period.
const MetadataIntentID = "payment_intent_id"

// Gateway is the narrow set of processor calls the funnel makes. Every call
// goes through the client-scoped API with the request context.
type Gateway struct {
	api *stripe.Client
}

// NewGateway returns a gateway bound to the credentials configured by client.
func NewGateway(client *Client) (*Gateway, error) {
	return newGateway(client.API())
}

func newGateway(api *stripe.Client) (*Gateway, error) {
	if api == nil {
		return nil, errors.New("stripe client is required")
	}
	return &Gateway{api: api}, nil
}

func (g *Gateway) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	if params == nil {
		return nil, errors.New("payment intent params required")
	}
	return g.api.V1PaymentIntents.Create(ctx, params)
}

func (g *Gateway) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	return g.api.V1PaymentIntents.Retrieve(ctx, id, &stripe.PaymentIntentRetrieveParams{})
}

// FindCustomerByEmail returns the first customer registered with email, or
// nil when none exists.
func (g *Gateway) FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("email required")
	}
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Limit = stripe.Int64(1)

	for c, err := range g.api.V1Customers.List(ctx, params) {
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, email, name string) (*stripe.Customer, error) {
	params := &stripe.CustomerCreateParams{Email: stripe.String(email)}
	if strings.TrimSpace(name) != "" {
		params.Name = stripe.String(name)
	}
	return g.api.V1Customers.Create(ctx, params)
}

func (g *Gateway) AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	_, err := g.api.V1PaymentMethods.Attach(ctx, paymentMethodID, params)
	return err
}

func (g *Gateway) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerUpdateParams{
		InvoiceSettings: &stripe.CustomerUpdateInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	_, err := g.api.V1Customers.Update(ctx, customerID, params)
	return err
}

// FindSubscriptionByIntent looks for a subscription already tagged with the
// given payment intent id.
func (g *Gateway) FindSubscriptionByIntent(ctx context.Context, intentID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionSearchParams{
		SearchParams: stripe.SearchParams{
			Query: fmt.Sprintf("metadata['%s']:'%s'", MetadataIntentID, escapeSearchValue(intentID)),
		},
	}

	for sub, err := range g.api.V1Subscriptions.Search(ctx, params) {
		if err != nil {
			return nil, err
		}
		return sub, nil
	}
	return nil, nil
}

func (g *Gateway) CreateSubscription(ctx context.Context, params *stripe.SubscriptionCreateParams) (*stripe.Subscription, error) {
	if params == nil {
		return nil, errors.New("subscription params required")
	}
	return g.api.V1Subscriptions.Create(ctx, params)
}

// IsAlreadyAttached reports whether err is the processor refusing to attach a
// payment method that is already attached to a customer.
func IsAlreadyAttached(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return strings.Contains(strings.ToLower(stripeErr.Msg), "already been attached")
}

func escapeSearchValue(v string) string {
	return strings.ReplaceAll(v, "'", `\'`)
}
