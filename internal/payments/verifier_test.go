package payments

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/angelmondragon/quizfunnel-backend/pkg/errors"
	"github.com/angelmondragon/quizfunnel-backend/pkg/idempotency"
	"github.com/stripe/stripe-go/v84"
)

func succeededIntent() *stripe.PaymentIntent {
	return &stripe.PaymentIntent{
		ID:       "pi_abc123",
		Amount:   1999,
		Currency: stripe.CurrencyUSD,
		Status:   stripe.PaymentIntentStatusSucceeded,
		Metadata: map[string]string{
			MetaPlanTier: "medium",
			MetaEmail:    "Buyer@Example.com",
		},
	}
}

func TestVerifyIsAtMostOncePerIntent(t *testing.T) {
	gateway := &stubGateway{intent: succeededIntent()}
	verifier, _ := newTestVerifier(t, gateway)
	ctx := context.Background()

	first, err := verifier.Verify(ctx, "pi_abc123", "buyer@example.com")
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if !first.Verified || first.Amount == nil || *first.Amount != 1999 || first.PlanTier != "medium" || first.Currency != "usd" {
		t.Fatalf("unexpected first result %+v", first)
	}

	second, err := verifier.Verify(ctx, "pi_abc123", "buyer@example.com")
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if second.Verified || !second.AlreadyProcessed {
		t.Fatalf("expected alreadyProcessed on second call, got %+v", second)
	}
	if gateway.getCalls != 1 {
		t.Fatalf("second call must not reach the processor, got %d calls", gateway.getCalls)
	}
}

func TestVerifyEmailMismatchIsForbiddenAndNotRecorded(t *testing.T) {
	gateway := &stubGateway{intent: succeededIntent()}
	verifier, record := newTestVerifier(t, gateway)
	ctx := context.Background()

	_, err := verifier.Verify(ctx, "pi_abc123", "someone@else.com")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if record.Len() != 0 {
		t.Fatal("mismatched identity must not be recorded")
	}

	res, err := verifier.Verify(ctx, "pi_abc123", "  BUYER@example.com ")
	if err != nil {
		t.Fatalf("verify with correct email: %v", err)
	}
	if !res.Verified {
		t.Fatalf("expected verification with the right email, got %+v", res)
	}
}

func TestVerifyRejectsMalformedIDWithoutProcessorCall(t *testing.T) {
	gateway := &stubGateway{intent: succeededIntent()}
	verifier, _ := newTestVerifier(t, gateway)

	for _, id := range []string{"", "ch_123", "pi_", "pi_abc-123", "pi_abc 123"} {
		_, err := verifier.Verify(context.Background(), id, "buyer@example.com")
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %q, got %v", id, err)
		}
	}
	if gateway.getCalls != 0 {
		t.Fatalf("processor must not be called for malformed ids")
	}
}

func TestVerifyPendingIntentDoesNotCommitGate(t *testing.T) {
	intent := succeededIntent()
	intent.Status = stripe.PaymentIntentStatusRequiresAction
	gateway := &stubGateway{intent: intent}
	verifier, record := newTestVerifier(t, gateway)

	res, err := verifier.Verify(context.Background(), "pi_abc123", "buyer@example.com")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Verified || res.AlreadyProcessed || res.Status != "requires_action" {
		t.Fatalf("unexpected result %+v", res)
	}
	if record.Len() != 0 {
		t.Fatal("non-succeeded intents must not be recorded")
	}

	intent.Status = stripe.PaymentIntentStatusSucceeded
	res, err = verifier.Verify(context.Background(), "pi_abc123", "buyer@example.com")
	if err != nil || !res.Verified {
		t.Fatalf("later success should verify, got %+v err=%v", res, err)
	}
}

func TestVerifyWithoutStoredEmailProceeds(t *testing.T) {
	intent := succeededIntent()
	delete(intent.Metadata, MetaEmail)
	verifier, _ := newTestVerifier(t, &stubGateway{intent: intent})

	res, err := verifier.Verify(context.Background(), "pi_abc123", "anyone@example.com")
	if err != nil || !res.Verified {
		t.Fatalf("expected legacy intent to verify, got %+v err=%v", res, err)
	}
}

func TestVerifyProcessorErrorIsNeverSuccess(t *testing.T) {
	verifier, record := newTestVerifier(t, &stubGateway{getErr: errors.New("timeout")})

	res, err := verifier.Verify(context.Background(), "pi_abc123", "buyer@example.com")
	if res != nil {
		t.Fatalf("expected no result on processor error, got %+v", res)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if record.Len() != 0 {
		t.Fatal("processor errors must not be recorded")
	}
}

func newTestVerifier(t *testing.T, gateway *stubGateway) (*Verifier, *idempotency.MemorySet) {
	t.Helper()
	record := idempotency.NewMemorySet()
	verifier, err := NewVerifier(VerifierParams{Gateway: gateway, Verified: record})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return verifier, record
}
