package checkout

import (
	"context"
	"errors"
	"net/url"
)

// Page is the DOM of the checkout page as seen by the controller.
type Page interface {
	// MissingElements returns the ids that are not in the document yet.
	MissingElements(ids ...string) []string
	CardholderName() string
	SaveCardChecked() bool
	// ClearCardInputs resets the cardholder name and the save-card checkbox.
	ClearCardInputs()
	// SecureContext reports whether the page runs on https or localhost.
	SecureContext() bool
	// Render redraws the page from a snapshot of the session.
	Render(Snapshot)
}

// Navigator controls the browser location.
type Navigator interface {
	Location() *url.URL
	// Assign performs a full page navigation.
	Assign(target string)
}

// Storage is a string key/value store with the semantics of the browser's
// localStorage and sessionStorage.
type Storage interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string)
}

// ErrTokenizerNotLoaded is returned by Tokenizer.Init when the widget
// library is not present on the page.
var ErrTokenizerNotLoaded = errors.New("tokenizer library not loaded")

// TokenizerEventKind enumerates the widget events the controller handles.
type TokenizerEventKind string

const (
	EventCardValidationChanged  TokenizerEventKind = "cardValidationChanged"
	EventCardTokenizationFailed TokenizerEventKind = "cardTokenizationFailed"
	EventCardTokenized          TokenizerEventKind = "cardTokenized"
)

// TokenizerEvent is the payload of a widget event. Only the fields relevant
// to Kind are set.
type TokenizerEvent struct {
	Kind        TokenizerEventKind
	Token       string
	IsValid     bool
	ElementType string
	Err         error
}

// TokenizerHandler receives widget events.
type TokenizerHandler func(ctx context.Context, ev TokenizerEvent)

// TokenizerOptions configures the card widget.
type TokenizerOptions struct {
	PublicKey      string
	SchemeChoice   bool
	CardholderName string
	Style          map[string]map[string]string
}

// Tokenizer is the hosted card fields widget.
type Tokenizer interface {
	Init(opts TokenizerOptions) error
	// SubmitCard asks the widget to tokenize; the result arrives as an event.
	SubmitCard(ctx context.Context) error
	OnEvent(kind TokenizerEventKind, fn TokenizerHandler)
	// Clear empties the hosted fields.
	Clear() error
}

// WalletClient is a wallet SDK payments client.
type WalletClient interface {
	IsReadyToPay(ctx context.Context, req WalletReadyRequest) (bool, error)
	LoadPaymentData(ctx context.Context, req WalletPaymentDataRequest) (WalletPaymentData, error)
	// ShowButton renders the pay button; onClick runs when it is pressed.
	ShowButton(onClick func(ctx context.Context)) error
}

// WalletClientFactory returns a client once the wallet SDK is loaded.
type WalletClientFactory func() (WalletClient, error)

// ScriptLoader loads third-party scripts into the page.
type ScriptLoader interface {
	Load(ctx context.Context, s Script) error
}
