package checkout

import "checkout-demo/models"

// Method is a payment method offered on the page.
type Method string

const (
	MethodSaved  Method = "saved"
	MethodCard   Method = "card"
	MethodIdeal  Method = "ideal"
	MethodWallet Method = "wallet"
)

// StatusKind drives how the status line is styled.
type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusError   StatusKind = "error"
	StatusSuccess StatusKind = "success"
	StatusPending StatusKind = "pending"
)

// Status is the message shown to the shopper.
type Status struct {
	Message string
	Kind    StatusKind
}

const (
	idealAvailableNote   = "You will be redirected to your bank. iDEAL is available for EUR orders."
	idealUnavailableNote = "Switch to EUR (NL) to enable iDEAL."
)

// Session is the checkout state for one page load.
type Session struct {
	Country  Country
	Currency string
	Amount   int64

	Config     *models.PublicConfig
	SavedCards []SavedCard
	Method     Method

	TokenizerReady bool
	// ButtonsDisabled blocks new submissions while one is in flight and
	// after a terminal success.
	ButtonsDisabled bool
	Completed       bool
	ResetVisible    bool
	WalletReady     bool

	Status Status
}

// IdealEnabled reports whether iDEAL can be selected.
func (s *Session) IdealEnabled() bool {
	return s.Currency == "EUR"
}

// applyCountry sets country, currency and amount together and re-evaluates
// which methods are selectable.
func (s *Session) applyCountry(p Product, country Country) {
	m := p.MarketFor(country)
	s.Country = m.Country
	s.Currency = m.Currency
	s.Amount = m.Amount
	s.normalizeMethod()
}

// normalizeMethod falls back to card when the selected method is no longer
// available.
func (s *Session) normalizeMethod() {
	switch {
	case s.Method == MethodIdeal && !s.IdealEnabled():
		s.Method = MethodCard
	case s.Method == MethodSaved && len(s.SavedCards) == 0:
		s.Method = MethodCard
	}
}

// Snapshot is an immutable copy of the session handed to the page.
type Snapshot struct {
	Session
	Product           Product
	TotalLabel        string
	IdealAvailable    bool
	IdealNote         string
	SavedCardsVisible bool
}

func (s *Session) snapshot(p Product) Snapshot {
	cp := *s
	cp.SavedCards = append([]SavedCard(nil), s.SavedCards...)
	if s.Config != nil {
		cfg := *s.Config
		cp.Config = &cfg
	}

	note := idealUnavailableNote
	if s.IdealEnabled() {
		note = idealAvailableNote
	}

	return Snapshot{
		Session:           cp,
		Product:           p,
		TotalLabel:        FormatAmount(s.Amount, s.Currency),
		IdealAvailable:    s.IdealEnabled(),
		IdealNote:         note,
		SavedCardsVisible: len(s.SavedCards) > 0,
	}
}
