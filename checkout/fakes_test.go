package checkout

import (
	"context"
	"net/url"
	"testing"
	"time"

	"checkout-demo/models"
)

type fakePage struct {
	missing     []string
	missingFor  int
	name        string
	saveChecked bool
	insecure    bool
	clears      int
	renders     []Snapshot
}

func (p *fakePage) MissingElements(ids ...string) []string {
	if p.missingFor < 0 {
		return p.missing
	}
	if p.missingFor > 0 {
		p.missingFor--
		return p.missing
	}
	return nil
}

func (p *fakePage) CardholderName() string { return p.name }
func (p *fakePage) SaveCardChecked() bool  { return p.saveChecked }
func (p *fakePage) ClearCardInputs()       { p.clears++ }
func (p *fakePage) SecureContext() bool    { return !p.insecure }
func (p *fakePage) Render(s Snapshot)      { p.renders = append(p.renders, s) }

type fakeNavigator struct {
	loc      *url.URL
	assigned []string
}

func newFakeNavigator(raw string) *fakeNavigator {
	u, _ := url.Parse(raw)
	return &fakeNavigator{loc: u}
}

func (n *fakeNavigator) Location() *url.URL { return n.loc }
func (n *fakeNavigator) Assign(target string) {
	n.assigned = append(n.assigned, target)
}

type fakeTokenizer struct {
	initErrs  []error
	initCalls int
	opts      TokenizerOptions
	handlers  map[TokenizerEventKind]TokenizerHandler
	token     string
	submitErr error
	clears    int
}

func (t *fakeTokenizer) Init(opts TokenizerOptions) error {
	t.initCalls++
	t.opts = opts
	if len(t.initErrs) > 0 {
		err := t.initErrs[0]
		t.initErrs = t.initErrs[1:]
		return err
	}
	return nil
}

func (t *fakeTokenizer) SubmitCard(ctx context.Context) error {
	if t.submitErr != nil {
		return t.submitErr
	}
	t.emit(ctx, TokenizerEvent{Kind: EventCardTokenized, Token: t.token})
	return nil
}

func (t *fakeTokenizer) OnEvent(kind TokenizerEventKind, fn TokenizerHandler) {
	if t.handlers == nil {
		t.handlers = make(map[TokenizerEventKind]TokenizerHandler)
	}
	t.handlers[kind] = fn
}

func (t *fakeTokenizer) Clear() error {
	t.clears++
	return nil
}

func (t *fakeTokenizer) emit(ctx context.Context, ev TokenizerEvent) {
	if fn, ok := t.handlers[ev.Kind]; ok {
		fn(ctx, ev)
	}
}

type fakeScripts struct {
	errs  map[string]error
	loads []string
}

func (s *fakeScripts) Load(_ context.Context, sc Script) error {
	s.loads = append(s.loads, sc.ID)
	return s.errs[sc.ID]
}

type fakeWallet struct {
	ready     bool
	readyErr  error
	readyReq  WalletReadyRequest
	data      WalletPaymentData
	dataErr   error
	onClick   func(ctx context.Context)
	buttonErr error
}

func (w *fakeWallet) IsReadyToPay(_ context.Context, req WalletReadyRequest) (bool, error) {
	w.readyReq = req
	return w.ready, w.readyErr
}

func (w *fakeWallet) LoadPaymentData(context.Context, WalletPaymentDataRequest) (WalletPaymentData, error) {
	return w.data, w.dataErr
}

func (w *fakeWallet) ShowButton(onClick func(ctx context.Context)) error {
	w.onClick = onClick
	return w.buttonErr
}

type submission struct {
	path    string
	payload any
}

type fakeBackend struct {
	cfg         models.PublicConfig
	cfgErr      error
	responses   map[string]*BackendResponse
	submitErr   error
	submissions []submission
}

func (b *fakeBackend) FetchConfig(context.Context) (models.PublicConfig, error) {
	return b.cfg, b.cfgErr
}

func (b *fakeBackend) SubmitPayment(_ context.Context, path string, payload any) (*BackendResponse, error) {
	b.submissions = append(b.submissions, submission{path: path, payload: payload})
	if b.submitErr != nil {
		return nil, b.submitErr
	}
	if resp, ok := b.responses[path]; ok {
		return resp, nil
	}
	return &BackendResponse{StatusCode: 200, StatusText: "OK", Payment: PaymentResponse{Status: "Authorized"}}, nil
}

type harness struct {
	ctrl      *Controller
	page      *fakePage
	nav       *fakeNavigator
	local     *MemoryStorage
	session   *MemoryStorage
	scripts   *fakeScripts
	tokenizer *fakeTokenizer
	wallet    *fakeWallet
	backend   *fakeBackend
}

var fixedNow = time.UnixMilli(1700000000000)

func fastOptions() Options {
	return Options{
		ContainerWaitAttempts: 3,
		ContainerWaitDelay:    time.Millisecond,
		TokenizerInitAttempts: 3,
		TokenizerInitDelay:    time.Millisecond,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		page:      &fakePage{missing: cardContainerIDs},
		nav:       newFakeNavigator("http://localhost:3000/"),
		local:     NewMemoryStorage(),
		session:   NewMemoryStorage(),
		scripts:   &fakeScripts{},
		tokenizer: &fakeTokenizer{token: "tok_test"},
		wallet:    &fakeWallet{ready: true},
		backend: &fakeBackend{
			cfg: models.PublicConfig{
				PublicKey:         "pk_test",
				ProcessingChannel: "pc_test",
			},
			responses: make(map[string]*BackendResponse),
		},
	}
	h.ctrl = h.build()
	return h
}

// build recreates the controller over the same fakes, as a page reload does.
func (h *harness) build() *Controller {
	return New(Deps{
		Backend:         h.backend,
		Page:            h.page,
		Navigator:       h.nav,
		LocalStorage:    h.local,
		SessionStorage:  h.session,
		Scripts:         h.scripts,
		Tokenizer:       h.tokenizer,
		NewWalletClient: func() (WalletClient, error) { return h.wallet, nil },
		Options:         fastOptions(),
		Now:             func() time.Time { return fixedNow },
	})
}
