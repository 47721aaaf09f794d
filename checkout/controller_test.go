package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-demo/models"
)

func TestNew_StartsInHongKong(t *testing.T) {
	h := newHarness(t)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, CountryHK, snap.Country)
	assert.Equal(t, "HKD", snap.Currency)
	assert.Equal(t, int64(18800), snap.Amount)
	assert.Equal(t, MethodCard, snap.Method)
	assert.False(t, snap.IdealAvailable)
	assert.Equal(t, idealUnavailableNote, snap.IdealNote)
}

func TestBootstrap_InitializesCardFields(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	snap := h.ctrl.Snapshot()
	assert.True(t, snap.TokenizerReady)
	require.NotNil(t, snap.Config)
	assert.Equal(t, "pk_test", snap.Config.PublicKey)
	assert.Empty(t, snap.Status.Message)

	assert.Equal(t, []string{TokenizerScript.ID}, h.scripts.loads)
	assert.Equal(t, 1, h.tokenizer.initCalls)
	assert.Equal(t, "pk_test", h.tokenizer.opts.PublicKey)
	assert.Equal(t, "Checkout Demo", h.tokenizer.opts.CardholderName)
	assert.True(t, h.tokenizer.opts.SchemeChoice)
	assert.Len(t, h.tokenizer.handlers, 3)

	assert.Equal(t, 1, h.page.clears)
	assert.Equal(t, 1, h.tokenizer.clears)
	assert.NotEmpty(t, h.page.renders)
}

func TestBootstrap_WaitsForContainers(t *testing.T) {
	h := newHarness(t)
	h.page.missingFor = 2

	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	assert.True(t, h.ctrl.Snapshot().TokenizerReady)
}

func TestBootstrap_ContainersNeverAppear(t *testing.T) {
	h := newHarness(t)
	h.page.missingFor = -1

	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	snap := h.ctrl.Snapshot()
	assert.False(t, snap.TokenizerReady)
	assert.Equal(t, Status{Message: "Card fields not in DOM after waiting.", Kind: StatusError}, snap.Status)
	assert.Zero(t, h.tokenizer.initCalls)
}

func TestBootstrap_RetriesTokenizerInit(t *testing.T) {
	h := newHarness(t)
	h.tokenizer.initErrs = []error{ErrTokenizerNotLoaded}

	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	assert.Equal(t, 2, h.tokenizer.initCalls)
	assert.True(t, h.ctrl.Snapshot().TokenizerReady)
}

func TestBootstrap_TokenizerInitExhausted(t *testing.T) {
	h := newHarness(t)
	h.tokenizer.initErrs = []error{ErrTokenizerNotLoaded, ErrTokenizerNotLoaded, ErrTokenizerNotLoaded}

	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, 3, h.tokenizer.initCalls)
	assert.False(t, snap.TokenizerReady)
	assert.Equal(t, "Payment fields failed to render. Check blockers and refresh.", snap.Status.Message)
	assert.Equal(t, StatusError, snap.Status.Kind)
}

func TestBootstrap_TokenizerScriptBlocked(t *testing.T) {
	h := newHarness(t)
	h.scripts.errs = map[string]error{
		TokenizerScript.ID: errors.New("Failed to load Frames script: blocked"),
	}

	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	assert.Equal(t, "Failed to load Frames script: blocked", h.ctrl.Snapshot().Status.Message)
	assert.Zero(t, h.tokenizer.initCalls)
}

func TestBootstrap_MissingPublicKey(t *testing.T) {
	h := newHarness(t)
	h.backend.cfg.PublicKey = ""

	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "Missing Checkout.com public key. Set CHECKOUT_PUBLIC_KEY.", snap.Status.Message)
	assert.Equal(t, StatusError, snap.Status.Kind)
	assert.Empty(t, h.scripts.loads)
}

func TestBootstrap_ConfigFetchFails(t *testing.T) {
	h := newHarness(t)
	h.backend.cfgErr = errors.New("connection refused")

	err := h.ctrl.Bootstrap(context.Background())
	require.Error(t, err)

	assert.Equal(t, "Failed to load checkout. Check console.", h.ctrl.Snapshot().Status.Message)
}

func TestBootstrap_RestoresLastPaymentStatus(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.session.SetItem(lastPaymentStatusStorageKey, "Captured"))

	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	assert.Equal(t, Status{Message: "Payment status: Captured", Kind: StatusSuccess}, h.ctrl.Snapshot().Status)
	_, ok := h.session.GetItem(lastPaymentStatusStorageKey)
	assert.False(t, ok)
}

func TestBootstrap_RedirectReturnStatus(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Status
	}{
		{
			name: "success",
			url:  "http://localhost:3000/?status=success",
			want: Status{Message: "Returned from redirect: success", Kind: StatusInfo},
		},
		{
			name: "failed",
			url:  "http://localhost:3000/?status=failed",
			want: Status{Message: "Returned from redirect: failed", Kind: StatusError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.nav = newFakeNavigator(tt.url)
			h.ctrl = h.build()

			require.NoError(t, h.ctrl.Bootstrap(context.Background()))

			assert.Equal(t, tt.want, h.ctrl.Snapshot().Status)
			assert.Equal(t, 2, h.page.clears)
		})
	}
}

func TestSelectCountry_TogglesIdeal(t *testing.T) {
	h := newHarness(t)

	h.ctrl.SelectCountry(CountryNL)
	snap := h.ctrl.Snapshot()
	assert.Equal(t, "EUR", snap.Currency)
	assert.Equal(t, int64(2500), snap.Amount)
	assert.True(t, snap.IdealAvailable)
	assert.Equal(t, idealAvailableNote, snap.IdealNote)

	require.True(t, h.ctrl.SelectMethod(MethodIdeal))
	assert.Equal(t, MethodIdeal, h.ctrl.Snapshot().Method)

	h.ctrl.SelectCountry(CountryHK)
	snap = h.ctrl.Snapshot()
	assert.Equal(t, "HKD", snap.Currency)
	assert.Equal(t, MethodCard, snap.Method)
	assert.False(t, snap.IdealAvailable)
}

func TestSelectMethod_RejectsUnavailable(t *testing.T) {
	h := newHarness(t)

	assert.False(t, h.ctrl.SelectMethod(MethodIdeal))
	assert.False(t, h.ctrl.SelectMethod(MethodSaved))
	assert.True(t, h.ctrl.SelectMethod(MethodWallet))
	assert.Equal(t, MethodWallet, h.ctrl.Snapshot().Method)
}

func TestTokenizerEvents_UpdateStatus(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Bootstrap(context.Background()))
	ctx := context.Background()

	h.tokenizer.emit(ctx, TokenizerEvent{Kind: EventCardValidationChanged, IsValid: false, ElementType: "card-number"})
	assert.Equal(t, Status{Message: "Check your card-number field.", Kind: StatusError}, h.ctrl.Snapshot().Status)

	h.ctrl.setStatus("", StatusInfo)
	h.tokenizer.emit(ctx, TokenizerEvent{Kind: EventCardValidationChanged, IsValid: true, ElementType: "cvv"})
	assert.Empty(t, h.ctrl.Snapshot().Status.Message)

	h.tokenizer.emit(ctx, TokenizerEvent{Kind: EventCardTokenizationFailed})
	assert.Equal(t, "Card tokenization failed: unknown error", h.ctrl.Snapshot().Status.Message)

	h.tokenizer.emit(ctx, TokenizerEvent{Kind: EventCardTokenizationFailed, Err: errors.New("request timed out")})
	assert.Equal(t, "Card tokenization failed: request timed out", h.ctrl.Snapshot().Status.Message)
}

func TestPayCard_SuccessSavesCardAndReloads(t *testing.T) {
	h := newHarness(t)
	h.page.name = "Jane Doe"
	h.page.saveChecked = true
	h.backend.responses[pathCardPayment] = &BackendResponse{
		StatusCode: 200,
		StatusText: "OK",
		Payment: PaymentResponse{
			Status: "Authorized",
			Source: &paymentSource{
				ID:          "src_123",
				Scheme:      "Visa",
				Last4:       "4242",
				ExpiryMonth: 12,
				ExpiryYear:  2030,
			},
		},
	}
	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	h.ctrl.PayCard(context.Background())

	require.Len(t, h.backend.submissions, 1)
	sub := h.backend.submissions[0]
	assert.Equal(t, pathCardPayment, sub.path)
	assert.Equal(t, models.CardPaymentRequest{
		Token:      "tok_test",
		Amount:     18800,
		Currency:   "HKD",
		Reference:  "card-1700000000000",
		Cardholder: "Jane Doe",
	}, sub.payload)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, Status{Message: "Payment status: Authorized", Kind: StatusSuccess}, snap.Status)
	assert.True(t, snap.Completed)
	assert.True(t, snap.ResetVisible)
	assert.True(t, snap.ButtonsDisabled)
	require.Len(t, snap.SavedCards, 1)
	assert.Equal(t, "src_123", snap.SavedCards[0].SourceID)

	stored := NewSavedCardStore(h.local).Load()
	require.Len(t, stored, 1)
	assert.Equal(t, SavedCard{
		SourceID:    "src_123",
		Scheme:      "Visa",
		Last4:       "4242",
		ExpiryMonth: 12,
		ExpiryYear:  2030,
		AddedAt:     1700000000000,
	}, stored[0])

	last, ok := h.session.GetItem(lastPaymentStatusStorageKey)
	require.True(t, ok)
	assert.Equal(t, "Authorized", last)
	assert.Equal(t, []string{"/"}, h.nav.assigned)

	// The reloaded page shows the remembered status and the saved card.
	h.ctrl = h.build()
	require.NoError(t, h.ctrl.Bootstrap(context.Background()))
	snap = h.ctrl.Snapshot()
	assert.Equal(t, "Payment status: Authorized", snap.Status.Message)
	assert.True(t, snap.SavedCardsVisible)
}

func TestPayCard_DefaultsCardholderAndSkipsSave(t *testing.T) {
	h := newHarness(t)
	h.backend.responses[pathCardPayment] = &BackendResponse{
		StatusCode: 200,
		Payment:    PaymentResponse{Status: "Captured", Source: &paymentSource{ID: "src_1"}},
	}
	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	h.ctrl.PayCard(context.Background())

	require.Len(t, h.backend.submissions, 1)
	payload := h.backend.submissions[0].payload.(models.CardPaymentRequest)
	assert.Equal(t, "Checkout Demo", payload.Cardholder)
	assert.Empty(t, h.ctrl.Snapshot().SavedCards)
	_, ok := h.local.GetItem(savedCardsStorageKey)
	assert.False(t, ok)
}

func TestPayCard_SubmitRejected(t *testing.T) {
	h := newHarness(t)
	h.tokenizer.submitErr = errors.New("Card form invalid")
	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	h.ctrl.PayCard(context.Background())

	assert.Empty(t, h.backend.submissions)
	assert.Equal(t,
		"Card validation failed: Card form invalid. Check number/expiry/CVC.",
		h.ctrl.Snapshot().Status.Message)
}

func TestPayCard_DeclineFormatsError(t *testing.T) {
	h := newHarness(t)
	h.page.saveChecked = true
	h.backend.responses[pathCardPayment] = &BackendResponse{
		StatusCode: 400,
		StatusText: "Bad Request",
		Payment: PaymentResponse{
			Error:     "Payment request failed",
			Details:   []string{"card_number_invalid", "cvv_invalid"},
			RequestID: "req_42",
		},
	}
	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	h.ctrl.PayCard(context.Background())

	snap := h.ctrl.Snapshot()
	assert.Equal(t, Status{
		Message: "Payment failed: Payment request failed (card_number_invalid, cvv_invalid) [req_42]",
		Kind:    StatusError,
	}, snap.Status)
	assert.False(t, snap.ButtonsDisabled)
	assert.False(t, snap.Completed)
	assert.Empty(t, snap.SavedCards)
	assert.Empty(t, h.nav.assigned)
}

func TestSubmit_FailureFallsBackToStatusText(t *testing.T) {
	msg := failureMessage(&BackendResponse{
		StatusCode: 502,
		StatusText: "Bad Gateway",
		Payment:    PaymentResponse{GatewayRequestID: "gw_1"},
	})
	assert.Equal(t, "Payment failed: Bad Gateway [gw_1]", msg)
}

func TestSubmit_NonTerminalStatusIsPending(t *testing.T) {
	h := newHarness(t)
	h.backend.responses[pathCardPayment] = &BackendResponse{
		StatusCode: 202,
		Payment:    PaymentResponse{Status: "Pending"},
	}
	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	h.ctrl.PayCard(context.Background())

	snap := h.ctrl.Snapshot()
	assert.Equal(t, Status{Message: "Payment status: Pending", Kind: StatusPending}, snap.Status)
	assert.False(t, snap.Completed)
	assert.False(t, snap.ButtonsDisabled)
	assert.Empty(t, h.nav.assigned)
}

func TestSubmit_TransportError(t *testing.T) {
	h := newHarness(t)
	h.backend.submitErr = errors.New("network down")
	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	h.ctrl.PayCard(context.Background())

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "Payment failed: network down", snap.Status.Message)
	assert.False(t, snap.ButtonsDisabled)
}

func TestPayIdeal_RequiresEUR(t *testing.T) {
	h := newHarness(t)

	h.ctrl.PayIdeal(context.Background())

	assert.Empty(t, h.backend.submissions)
	assert.Equal(t, Status{Message: "Switch to Netherlands (EUR) to use iDEAL.", Kind: StatusError}, h.ctrl.Snapshot().Status)
}

func TestPayIdeal_RedirectsToBank(t *testing.T) {
	h := newHarness(t)
	resp := &BackendResponse{StatusCode: 201, StatusText: "Created"}
	require.NoError(t, json.Unmarshal(
		[]byte(`{"status":"Pending","_links":{"redirect":{"href":"https://bank.example/ideal"}}}`),
		&resp.Payment))
	h.backend.responses[pathIdealPayment] = resp

	h.ctrl.SelectCountry(CountryNL)
	h.ctrl.PayIdeal(context.Background())

	require.Len(t, h.backend.submissions, 1)
	assert.Equal(t, models.IdealPaymentRequest{
		Amount:      2500,
		Currency:    "EUR",
		Reference:   "ideal-1700000000000",
		Description: "iDEAL payment for iPhone case",
	}, h.backend.submissions[0].payload)

	assert.Equal(t, []string{"https://bank.example/ideal"}, h.nav.assigned)
	assert.Equal(t, Status{Message: "Redirecting to complete payment...", Kind: StatusPending}, h.ctrl.Snapshot().Status)
}

func TestLoadWallet_InsecureContext(t *testing.T) {
	h := newHarness(t)
	h.page.insecure = true

	h.ctrl.LoadWallet(context.Background())

	assert.Equal(t,
		"Wallet requires secure context (https or localhost). Use https:// or http://localhost.",
		h.ctrl.Snapshot().Status.Message)
	assert.Empty(t, h.scripts.loads)
}

func TestLoadWallet_ScriptBlocked(t *testing.T) {
	h := newHarness(t)
	h.scripts.errs = map[string]error{WalletScript.ID: errors.New("blocked")}

	h.ctrl.LoadWallet(context.Background())

	assert.Equal(t, "Wallet script blocked or failed to load. Check network/ad blockers.", h.ctrl.Snapshot().Status.Message)
}

func TestLoadWallet_NotReady(t *testing.T) {
	h := newHarness(t)
	h.wallet.ready = false

	h.ctrl.LoadWallet(context.Background())

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "Wallet not available on this device.", snap.Status.Message)
	assert.False(t, snap.WalletReady)
	assert.Nil(t, h.wallet.onClick)
}

func TestLoadWallet_ReadinessCheckBlocked(t *testing.T) {
	h := newHarness(t)
	h.wallet.readyErr = errors.New("forbidden")

	h.ctrl.LoadWallet(context.Background())

	assert.Equal(t,
		"Wallet check blocked. Allow pay.google.com / play.google.com and retry.",
		h.ctrl.Snapshot().Status.Message)
}

func TestWallet_PaysWithToken(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Bootstrap(context.Background()))
	h.wallet.data.PaymentMethodData.TokenizationData.Token = `{"signature":"sig"}`

	h.ctrl.LoadWallet(context.Background())

	snap := h.ctrl.Snapshot()
	assert.True(t, snap.WalletReady)
	assert.Equal(t, MethodWallet, snap.Method)
	assert.Equal(t, "Wallet ready. Use Google Pay if available.", snap.Status.Message)
	assert.Equal(t, "pc_test",
		h.wallet.readyReq.AllowedPaymentMethods[0].TokenizationSpecification.Parameters["gatewayMerchantId"])
	require.NotNil(t, h.wallet.onClick)

	h.wallet.onClick(context.Background())

	require.Len(t, h.backend.submissions, 1)
	assert.Equal(t, pathWalletPayment, h.backend.submissions[0].path)
	assert.Equal(t, models.WalletPaymentRequest{
		Token:     `{"signature":"sig"}`,
		Amount:    18800,
		Currency:  "HKD",
		Reference: "wallet-1700000000000",
	}, h.backend.submissions[0].payload)
	assert.Equal(t, "Payment status: Authorized", h.ctrl.Snapshot().Status.Message)
	assert.Empty(t, h.nav.assigned)
}

func TestWallet_MissingToken(t *testing.T) {
	h := newHarness(t)
	h.ctrl.LoadWallet(context.Background())
	require.NotNil(t, h.wallet.onClick)

	h.wallet.onClick(context.Background())

	assert.Empty(t, h.backend.submissions)
	assert.Equal(t, "Wallet token missing", h.ctrl.Snapshot().Status.Message)
}

func seedSavedCards(t *testing.T, h *harness, cards ...SavedCard) {
	t.Helper()
	require.NoError(t, NewSavedCardStore(h.local).Persist(cards))
}

func TestSavedCards_PayWithStoredSource(t *testing.T) {
	h := newHarness(t)
	seedSavedCards(t, h, SavedCard{SourceID: "src_1", Scheme: "visa", Last4: "4242"})
	require.NoError(t, h.ctrl.Bootstrap(context.Background()))

	require.True(t, h.ctrl.SelectMethod(MethodSaved))
	h.ctrl.PaySavedCard(context.Background(), "src_1")

	require.Len(t, h.backend.submissions, 1)
	assert.Equal(t, models.SavedCardPaymentRequest{
		SourceID:  "src_1",
		Amount:    18800,
		Currency:  "HKD",
		Reference: "saved-1700000000000",
	}, h.backend.submissions[0].payload)

	snap := h.ctrl.Snapshot()
	assert.True(t, snap.Completed)
	assert.Empty(t, h.nav.assigned)
	_, ok := h.session.GetItem(lastPaymentStatusStorageKey)
	assert.False(t, ok)

	// Completed checkouts ignore further pay actions.
	h.ctrl.PaySavedCard(context.Background(), "src_1")
	assert.Len(t, h.backend.submissions, 1)
}

func TestSavedCards_PayRequiresSelection(t *testing.T) {
	h := newHarness(t)

	h.ctrl.PaySavedCard(context.Background(), "")

	assert.Empty(t, h.backend.submissions)
	assert.Equal(t, "Select a saved card first.", h.ctrl.Snapshot().Status.Message)
}

func TestSavedCards_RemoveAndClear(t *testing.T) {
	h := newHarness(t)
	seedSavedCards(t, h,
		SavedCard{SourceID: "src_1", Scheme: "visa"},
		SavedCard{SourceID: "src_2", Scheme: "mastercard"},
	)
	require.NoError(t, h.ctrl.Bootstrap(context.Background()))
	require.True(t, h.ctrl.SelectMethod(MethodSaved))

	h.ctrl.RemoveSavedCard("")
	assert.Equal(t, "Select a saved card to remove.", h.ctrl.Snapshot().Status.Message)

	h.ctrl.RemoveSavedCard("src_1")
	snap := h.ctrl.Snapshot()
	assert.Equal(t, "Saved card removed.", snap.Status.Message)
	require.Len(t, snap.SavedCards, 1)
	assert.Equal(t, MethodSaved, snap.Method)
	assert.Len(t, NewSavedCardStore(h.local).Load(), 1)

	h.ctrl.ClearSavedCards()
	snap = h.ctrl.Snapshot()
	assert.Equal(t, "Cleared saved cards.", snap.Status.Message)
	assert.Empty(t, snap.SavedCards)
	assert.False(t, snap.SavedCardsVisible)
	assert.Equal(t, MethodCard, snap.Method)

	raw, ok := h.local.GetItem(savedCardsStorageKey)
	require.True(t, ok)
	assert.Equal(t, "[]", raw)
}

func TestReset_ReloadsCurrentPath(t *testing.T) {
	h := newHarness(t)
	h.nav = newFakeNavigator("http://localhost:3000/checkout?status=success")
	h.ctrl = h.build()

	h.ctrl.Reset()

	assert.Equal(t, []string{"/checkout"}, h.nav.assigned)
}
