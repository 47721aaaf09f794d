package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"checkout-demo/logging"
	"checkout-demo/models"
)

// Containers the card widget mounts into.
var cardContainerIDs = []string{"card-number", "expiry-date", "cvv"}

const (
	defaultCardholderName = "Checkout Demo"
	idealDescription      = "iDEAL payment for iPhone case"
)

var errCardFieldsMissing = errors.New("Card fields not in DOM after waiting.")

// Options holds the controller's timing knobs.
type Options struct {
	ContainerWaitAttempts uint
	ContainerWaitDelay    time.Duration
	TokenizerInitAttempts uint
	TokenizerInitDelay    time.Duration
}

// DefaultOptions are the timings used on the real page.
func DefaultOptions() Options {
	return Options{
		ContainerWaitAttempts: 20,
		ContainerWaitDelay:    100 * time.Millisecond,
		TokenizerInitAttempts: 5,
		TokenizerInitDelay:    200 * time.Millisecond,
	}
}

// Deps are the capabilities the controller drives.
type Deps struct {
	Backend         Backend
	Page            Page
	Navigator       Navigator
	LocalStorage    Storage
	SessionStorage  Storage
	Scripts         ScriptLoader
	Tokenizer       Tokenizer
	NewWalletClient WalletClientFactory
	Product         Product
	Options         Options
	Now             func() time.Time
}

// Controller runs the checkout page.
type Controller struct {
	backend   Backend
	page      Page
	navigator Navigator
	session   Storage
	cards     *SavedCardStore
	scripts   ScriptLoader
	tokenizer Tokenizer
	newWallet WalletClientFactory
	product   Product
	opts      Options
	now       func() time.Time

	mu    sync.Mutex
	state Session
}

// SubmitResult summarizes one payment submission.
type SubmitResult struct {
	OK           bool
	Redirected   bool
	ShouldReload bool
	Payment      PaymentResponse
}

// New creates a controller. Zero-valued Product, Options and Now fall back to
// the demo product, DefaultOptions and time.Now.
func New(deps Deps) *Controller {
	if deps.Product == (Product{}) {
		deps.Product = DemoProduct
	}
	if deps.Options == (Options{}) {
		deps.Options = DefaultOptions()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SessionStorage == nil {
		deps.SessionStorage = NewMemoryStorage()
	}
	if deps.LocalStorage == nil {
		deps.LocalStorage = NewMemoryStorage()
	}

	c := &Controller{
		backend:   deps.Backend,
		page:      deps.Page,
		navigator: deps.Navigator,
		session:   deps.SessionStorage,
		cards:     NewSavedCardStore(deps.LocalStorage),
		scripts:   deps.Scripts,
		tokenizer: deps.Tokenizer,
		newWallet: deps.NewWalletClient,
		product:   deps.Product,
		opts:      deps.Options,
		now:       deps.Now,
	}
	c.state.Method = MethodCard
	c.state.applyCountry(c.product, CountryHK)
	return c
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.snapshot(c.product)
}

// update mutates the session under the lock and re-renders the page.
func (c *Controller) update(fn func(s *Session)) {
	c.mu.Lock()
	fn(&c.state)
	snap := c.state.snapshot(c.product)
	c.mu.Unlock()

	c.page.Render(snap)
}

func (c *Controller) setStatus(message string, kind StatusKind) {
	c.update(func(s *Session) {
		s.Status = Status{Message: message, Kind: kind}
	})
}

func (c *Controller) setError(message string) {
	c.setStatus(message, StatusError)
}

// Bootstrap prepares the page: restores saved cards and the last payment
// status, loads the config and brings up the card fields.
func (c *Controller) Bootstrap(ctx context.Context) error {
	cards := c.cards.Load()
	c.update(func(s *Session) {
		s.Method = MethodCard
		s.applyCountry(c.product, CountryHK)
		s.SavedCards = cards
		s.normalizeMethod()
	})
	c.clearCardInputs()

	if last, ok := c.session.GetItem(lastPaymentStatusStorageKey); ok && last != "" {
		c.setStatus("Payment status: "+last, StatusSuccess)
		c.session.RemoveItem(lastPaymentStatusStorageKey)
	}

	cfg, err := c.backend.FetchConfig(ctx)
	if err != nil {
		logging.Error("Failed to load checkout config", zap.Error(err))
		c.setError("Failed to load checkout. Check console.")
		return err
	}
	c.update(func(s *Session) {
		s.Config = &cfg
	})

	if cfg.PublicKey == "" {
		c.setError("Missing Checkout.com public key. Set CHECKOUT_PUBLIC_KEY.")
	} else {
		c.initCardFields(ctx, cfg.PublicKey)
	}

	c.applyReturnStatus()
	return nil
}

func (c *Controller) initCardFields(ctx context.Context, publicKey string) {
	if err := c.scripts.Load(ctx, TokenizerScript); err != nil {
		logging.Warn("Tokenizer script failed to load", zap.Error(err))
		c.setError(err.Error())
		return
	}

	if err := c.waitForCardContainers(ctx); err != nil {
		logging.Warn("Card containers never appeared", zap.Error(err))
		c.setError(err.Error())
		return
	}

	err := poll(ctx, c.opts.TokenizerInitAttempts, c.opts.TokenizerInitDelay, func() error {
		return c.tryInitTokenizer(publicKey)
	})
	if err != nil {
		logging.Warn("Tokenizer init failed", zap.Error(err))
		c.setError("Payment fields failed to render. Check blockers and refresh.")
	}
}

func (c *Controller) waitForCardContainers(ctx context.Context) error {
	err := poll(ctx, c.opts.ContainerWaitAttempts, c.opts.ContainerWaitDelay, func() error {
		if missing := c.page.MissingElements(cardContainerIDs...); len(missing) > 0 {
			return fmt.Errorf("missing %s", strings.Join(missing, ", "))
		}
		return nil
	})
	if err != nil {
		return errCardFieldsMissing
	}
	return nil
}

func (c *Controller) tryInitTokenizer(publicKey string) error {
	if c.Snapshot().TokenizerReady {
		return nil
	}
	if missing := c.page.MissingElements(cardContainerIDs...); len(missing) > 0 {
		return fmt.Errorf("card frame containers missing: %s", strings.Join(missing, ", "))
	}

	err := c.tokenizer.Init(TokenizerOptions{
		PublicKey:      publicKey,
		SchemeChoice:   true,
		CardholderName: defaultCardholderName,
		Style: map[string]map[string]string{
			"base":    {"color": "#323416", "fontFamily": `"Helvetica Neue", Arial, sans-serif`},
			"focus":   {"color": "#8C9E6E"},
			"valid":   {"color": "#323416"},
			"invalid": {"color": "#8b1a1a"},
		},
	})
	if err != nil {
		if errors.Is(err, ErrTokenizerNotLoaded) {
			c.setError("Payment fields failed to load. Check network/ad blockers for cdn.checkout.com.")
		}
		return err
	}

	c.update(func(s *Session) {
		s.TokenizerReady = true
	})

	c.tokenizer.OnEvent(EventCardValidationChanged, func(_ context.Context, ev TokenizerEvent) {
		if ev.IsValid || ev.ElementType == "" {
			return
		}
		c.setError(fmt.Sprintf("Check your %s field.", ev.ElementType))
	})
	c.tokenizer.OnEvent(EventCardTokenizationFailed, func(_ context.Context, ev TokenizerEvent) {
		msg := "unknown error"
		if ev.Err != nil && ev.Err.Error() != "" {
			msg = ev.Err.Error()
		}
		c.setError("Card tokenization failed: " + msg)
	})
	c.tokenizer.OnEvent(EventCardTokenized, func(ctx context.Context, ev TokenizerEvent) {
		c.handleCardTokenized(ctx, ev.Token)
	})
	return nil
}

func (c *Controller) applyReturnStatus() {
	loc := c.navigator.Location()
	if loc == nil {
		return
	}
	switch loc.Query().Get("status") {
	case "success":
		c.setStatus("Returned from redirect: success", StatusInfo)
		c.clearCardInputs()
	case "failed":
		c.setError("Returned from redirect: failed")
		c.clearCardInputs()
	case "":
	default:
		c.clearCardInputs()
	}
}

// SelectCountry switches market. Currency and amount follow the country.
func (c *Controller) SelectCountry(country Country) {
	c.update(func(s *Session) {
		s.applyCountry(c.product, country)
	})
}

// SelectMethod shows a payment method. Unavailable methods are ignored.
func (c *Controller) SelectMethod(m Method) bool {
	ok := false
	c.update(func(s *Session) {
		switch m {
		case MethodIdeal:
			ok = s.IdealEnabled()
		case MethodSaved:
			ok = len(s.SavedCards) > 0
		case MethodCard, MethodWallet:
			ok = true
		}
		if ok {
			s.Method = m
		}
	})
	return ok
}

// buttonsDisabled reports whether submissions are blocked.
func (c *Controller) buttonsDisabled() bool {
	return c.Snapshot().ButtonsDisabled
}

// PayCard asks the card widget to tokenize. The payment is submitted from
// the tokenized event.
func (c *Controller) PayCard(ctx context.Context) {
	if c.buttonsDisabled() {
		return
	}
	c.setStatus("Tokenizing card...", StatusInfo)
	if err := c.tokenizer.SubmitCard(ctx); err != nil {
		logging.Warn("Card submit failed", zap.Error(err))
		msg := err.Error()
		if msg == "" {
			msg = "Card form invalid"
		}
		c.setError(fmt.Sprintf("Card validation failed: %s. Check number/expiry/CVC.", msg))
	}
}

func (c *Controller) handleCardTokenized(ctx context.Context, token string) {
	c.setStatus("Creating card payment...", StatusInfo)

	name := c.page.CardholderName()
	if name == "" {
		name = defaultCardholderName
	}
	wantsSave := c.page.SaveCardChecked()

	snap := c.Snapshot()
	res := c.submit(ctx, pathCardPayment, models.CardPaymentRequest{
		Token:      token,
		Amount:     snap.Amount,
		Currency:   snap.Currency,
		Reference:  c.reference("card"),
		Cardholder: name,
	})

	if wantsSave && res.OK && !res.Redirected {
		c.saveCard(&res.Payment)
	}

	if res.ShouldReload {
		c.reload()
	}
}

func (c *Controller) saveCard(payment *PaymentResponse) {
	card, ok := ExtractSavedCard(payment, c.now())
	if !ok {
		return
	}

	var (
		cards []SavedCard
		added bool
	)
	c.update(func(s *Session) {
		s.SavedCards, added = AddSavedCard(s.SavedCards, card)
		cards = append([]SavedCard(nil), s.SavedCards...)
	})
	if !added {
		return
	}
	if err := c.cards.Persist(cards); err != nil {
		logging.Warn("Failed to persist saved cards", zap.Error(err))
	}
}

// PayIdeal starts a bank redirect payment. Only EUR orders qualify.
func (c *Controller) PayIdeal(ctx context.Context) {
	if c.buttonsDisabled() {
		return
	}
	snap := c.Snapshot()
	if !snap.IdealAvailable {
		c.setError("Switch to Netherlands (EUR) to use iDEAL.")
		return
	}

	c.setStatus("Starting iDEAL redirect...", StatusInfo)
	c.submit(ctx, pathIdealPayment, models.IdealPaymentRequest{
		Amount:      snap.Amount,
		Currency:    snap.Currency,
		Reference:   c.reference("ideal"),
		Description: idealDescription,
	})
}

// LoadWallet loads the wallet SDK and shows the pay button when the device
// can pay.
func (c *Controller) LoadWallet(ctx context.Context) {
	if c.buttonsDisabled() {
		return
	}
	c.setStatus("Loading wallet support...", StatusInfo)

	if !c.page.SecureContext() {
		c.setError("Wallet requires secure context (https or localhost). Use https:// or http://localhost.")
		return
	}
	if err := c.scripts.Load(ctx, WalletScript); err != nil {
		logging.Warn("Wallet script failed to load", zap.Error(err))
		c.setError("Wallet script blocked or failed to load. Check network/ad blockers.")
		return
	}

	c.setStatus("Checking wallet availability...", StatusInfo)

	var client WalletClient
	if c.newWallet != nil {
		var err error
		if client, err = c.newWallet(); err != nil {
			logging.Warn("Wallet client unavailable", zap.Error(err))
			client = nil
		}
	}
	if client == nil {
		c.setError("Google Pay script not loaded yet.")
		return
	}

	snap := c.Snapshot()
	req := buildWalletRequest(&snap.Session)
	ready, err := client.IsReadyToPay(ctx, readyRequestFor(req))
	if err != nil {
		logging.Warn("Wallet readiness check failed", zap.Error(err))
		c.setError("Wallet check blocked. Allow pay.google.com / play.google.com and retry.")
		return
	}
	if !ready {
		c.setError("Wallet not available on this device.")
		return
	}

	if err := client.ShowButton(func(ctx context.Context) { c.onWalletPressed(ctx, client) }); err != nil {
		logging.Warn("Wallet button failed to render", zap.Error(err))
		c.setError("Wallet not available on this device.")
		return
	}
	c.update(func(s *Session) {
		s.Method = MethodWallet
		s.WalletReady = true
		s.Status = Status{Message: "Wallet ready. Use Google Pay if available.", Kind: StatusInfo}
	})
}

func (c *Controller) onWalletPressed(ctx context.Context, client WalletClient) {
	if c.buttonsDisabled() {
		return
	}
	snap := c.Snapshot()
	data, err := client.LoadPaymentData(ctx, buildWalletRequest(&snap.Session))
	if err != nil {
		logging.Warn("Wallet payment data failed", zap.Error(err))
		c.setError("Wallet payment was cancelled or unavailable.")
		return
	}
	token := data.Token()
	if token == "" {
		c.setError("Wallet token missing")
		return
	}

	c.setStatus("Creating wallet payment...", StatusInfo)
	c.submit(ctx, pathWalletPayment, models.WalletPaymentRequest{
		Token:     token,
		Amount:    snap.Amount,
		Currency:  snap.Currency,
		Reference: c.reference("wallet"),
	})
}

// PaySavedCard charges a stored card.
func (c *Controller) PaySavedCard(ctx context.Context, sourceID string) {
	if c.buttonsDisabled() {
		return
	}
	if sourceID == "" {
		c.setError("Select a saved card first.")
		return
	}

	c.setStatus("Creating saved card payment...", StatusInfo)
	snap := c.Snapshot()
	c.submit(ctx, pathSavedCardPayment, models.SavedCardPaymentRequest{
		SourceID:  sourceID,
		Amount:    snap.Amount,
		Currency:  snap.Currency,
		Reference: c.reference("saved"),
	})
}

// RemoveSavedCard forgets one stored card.
func (c *Controller) RemoveSavedCard(sourceID string) {
	if sourceID == "" {
		c.setError("Select a saved card to remove.")
		return
	}
	c.replaceSavedCards(func(cards []SavedCard) []SavedCard {
		return RemoveSavedCard(cards, sourceID)
	}, "Saved card removed.")
}

// ClearSavedCards forgets every stored card.
func (c *Controller) ClearSavedCards() {
	c.replaceSavedCards(func([]SavedCard) []SavedCard {
		return nil
	}, "Cleared saved cards.")
}

func (c *Controller) replaceSavedCards(fn func([]SavedCard) []SavedCard, message string) {
	var cards []SavedCard
	c.update(func(s *Session) {
		s.SavedCards = fn(s.SavedCards)
		s.normalizeMethod()
		s.Status = Status{Message: message, Kind: StatusInfo}
		cards = append([]SavedCard(nil), s.SavedCards...)
	})
	if err := c.cards.Persist(cards); err != nil {
		logging.Warn("Failed to persist saved cards", zap.Error(err))
	}
}

// Reset reloads the page to start over.
func (c *Controller) Reset() {
	c.reload()
}

func (c *Controller) reload() {
	path := "/"
	if loc := c.navigator.Location(); loc != nil && loc.Path != "" {
		path = loc.Path
	}
	c.navigator.Assign(path)
}

func (c *Controller) clearCardInputs() {
	c.page.ClearCardInputs()
	if c.tokenizer == nil {
		return
	}
	if err := c.tokenizer.Clear(); err != nil {
		logging.Warn("Failed to clear card fields", zap.Error(err))
	}
}

func (c *Controller) reference(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, c.now().UnixMilli())
}

// submit posts a payment and reflects the outcome on the page.
func (c *Controller) submit(ctx context.Context, path string, payload any) SubmitResult {
	c.update(func(s *Session) {
		s.ButtonsDisabled = true
	})
	resp, err := c.backend.SubmitPayment(ctx, path, payload)
	c.update(func(s *Session) {
		s.ButtonsDisabled = false
	})

	if err != nil {
		logging.Warn("Payment submission failed", zap.String("path", path), zap.Error(err))
		c.setError("Payment failed: " + err.Error())
		return SubmitResult{}
	}

	payment := resp.Payment
	if !resp.OK() || payment.Error != "" {
		c.setError(failureMessage(resp))
		return SubmitResult{Payment: payment}
	}

	if href := payment.RedirectURL(); href != "" {
		c.setStatus("Redirecting to complete payment...", StatusPending)
		c.navigator.Assign(href)
		return SubmitResult{OK: true, Redirected: true, Payment: payment}
	}

	status := payment.Status
	if status == "" {
		status = "processed"
	}

	switch strings.ToLower(status) {
	case "captured", "authorized", "approved":
	default:
		c.setStatus("Payment status: "+status, StatusPending)
		return SubmitResult{OK: true, Payment: payment}
	}

	c.setStatus("Payment status: "+status, StatusSuccess)
	c.clearCardInputs()
	c.update(func(s *Session) {
		s.ButtonsDisabled = true
		s.Completed = true
		s.ResetVisible = true
	})

	shouldReload := path == pathCardPayment
	if shouldReload {
		if err := c.session.SetItem(lastPaymentStatusStorageKey, status); err != nil {
			logging.Warn("Failed to remember payment status", zap.Error(err))
		}
	}
	return SubmitResult{OK: true, ShouldReload: shouldReload, Payment: payment}
}

func failureMessage(resp *BackendResponse) string {
	p := resp.Payment

	msg := p.Error
	if msg == "" {
		msg = resp.StatusText
	}

	var b strings.Builder
	b.WriteString("Payment failed: ")
	b.WriteString(msg)
	if len(p.Details) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(p.Details, ", "))
	}
	if id := firstNonEmpty(p.RequestID, p.GatewayRequestID); id != "" {
		fmt.Fprintf(&b, " [%s]", id)
	}
	return b.String()
}
