package checkout

import "fmt"

const (
	walletGateway           = "checkoutltd"
	walletFallbackMerchant  = "checkout_demo"
	walletMerchantName      = "Checkout Demo"
	walletAPIVersion        = 2
	walletAPIVersionMinor   = 0
	walletTotalPriceStatus  = "FINAL"
	walletTokenizationType  = "PAYMENT_GATEWAY"
	walletCardPaymentMethod = "CARD"
)

// WalletTokenizationSpec tells the wallet which gateway receives the token.
type WalletTokenizationSpec struct {
	Type       string            `json:"type"`
	Parameters map[string]string `json:"parameters"`
}

// WalletCardParameters restricts the cards the wallet may offer.
type WalletCardParameters struct {
	AllowedAuthMethods  []string `json:"allowedAuthMethods"`
	AllowedCardNetworks []string `json:"allowedCardNetworks"`
}

// WalletPaymentMethod is one allowed payment method.
type WalletPaymentMethod struct {
	Type                      string                 `json:"type"`
	Parameters                WalletCardParameters   `json:"parameters"`
	TokenizationSpecification WalletTokenizationSpec `json:"tokenizationSpecification"`
}

// WalletTransactionInfo is the amount shown in the wallet sheet.
type WalletTransactionInfo struct {
	TotalPriceStatus string `json:"totalPriceStatus"`
	TotalPrice       string `json:"totalPrice"`
	CurrencyCode     string `json:"currencyCode"`
}

// WalletReadyRequest asks whether the device can pay.
type WalletReadyRequest struct {
	APIVersion            int                   `json:"apiVersion"`
	APIVersionMinor       int                   `json:"apiVersionMinor"`
	AllowedPaymentMethods []WalletPaymentMethod `json:"allowedPaymentMethods"`
}

// WalletPaymentDataRequest opens the wallet payment sheet.
type WalletPaymentDataRequest struct {
	APIVersion            int                   `json:"apiVersion"`
	APIVersionMinor       int                   `json:"apiVersionMinor"`
	AllowedPaymentMethods []WalletPaymentMethod `json:"allowedPaymentMethods"`
	MerchantInfo          struct {
		MerchantName string `json:"merchantName"`
	} `json:"merchantInfo"`
	TransactionInfo WalletTransactionInfo `json:"transactionInfo"`
}

// WalletPaymentData is what the wallet returns after the shopper approves.
type WalletPaymentData struct {
	PaymentMethodData struct {
		TokenizationData struct {
			Token string `json:"token"`
		} `json:"tokenizationData"`
	} `json:"paymentMethodData"`
}

// Token returns the gateway token, empty if the wallet sent none.
func (d WalletPaymentData) Token() string {
	return d.PaymentMethodData.TokenizationData.Token
}

// buildWalletRequest describes the current order for the wallet.
func buildWalletRequest(s *Session) WalletPaymentDataRequest {
	merchantID := walletFallbackMerchant
	if s.Config != nil && s.Config.ProcessingChannel != "" {
		merchantID = s.Config.ProcessingChannel
	}

	card := WalletPaymentMethod{
		Type: walletCardPaymentMethod,
		Parameters: WalletCardParameters{
			AllowedAuthMethods:  []string{"PAN_ONLY", "CRYPTOGRAM_3DS"},
			AllowedCardNetworks: []string{"VISA", "MASTERCARD", "AMEX"},
		},
		TokenizationSpecification: WalletTokenizationSpec{
			Type: walletTokenizationType,
			Parameters: map[string]string{
				"gateway":           walletGateway,
				"gatewayMerchantId": merchantID,
			},
		},
	}

	req := WalletPaymentDataRequest{
		APIVersion:            walletAPIVersion,
		APIVersionMinor:       walletAPIVersionMinor,
		AllowedPaymentMethods: []WalletPaymentMethod{card},
		TransactionInfo: WalletTransactionInfo{
			TotalPriceStatus: walletTotalPriceStatus,
			TotalPrice:       fmt.Sprintf("%.2f", float64(s.Amount)/100),
			CurrencyCode:     s.Currency,
		},
	}
	req.MerchantInfo.MerchantName = walletMerchantName
	return req
}

func readyRequestFor(req WalletPaymentDataRequest) WalletReadyRequest {
	return WalletReadyRequest{
		APIVersion:            req.APIVersion,
		APIVersionMinor:       req.APIVersionMinor,
		AllowedPaymentMethods: req.AllowedPaymentMethods[:1],
	}
}
