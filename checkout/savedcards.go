package checkout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"checkout-demo/logging"
)

const (
	savedCardsStorageKey        = "savedCards"
	lastPaymentStatusStorageKey = "checkout:lastPaymentStatus"
)

// SavedCard is a card source kept on the device for repeat payments.
type SavedCard struct {
	SourceID    string `json:"sourceId"`
	Scheme      string `json:"scheme"`
	Last4       string `json:"last4,omitempty"`
	ExpiryMonth int    `json:"expiryMonth,omitempty"`
	ExpiryYear  int    `json:"expiryYear,omitempty"`
	AddedAt     int64  `json:"addedAt"` // unix millis
}

var errMissingSourceID = errors.New("saved card has no sourceId")

// UnmarshalJSON accepts the loosely typed records older pages wrote.
func (c *SavedCard) UnmarshalJSON(data []byte) error {
	var raw struct {
		SourceID    *string  `json:"sourceId"`
		Scheme      flexText `json:"scheme"`
		Last4       flexText `json:"last4"`
		ExpiryMonth flexInt  `json:"expiryMonth"`
		ExpiryYear  flexInt  `json:"expiryYear"`
		AddedAt     flexInt  `json:"addedAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.SourceID == nil || *raw.SourceID == "" {
		return errMissingSourceID
	}

	*c = SavedCard{
		SourceID:    *raw.SourceID,
		Scheme:      string(raw.Scheme),
		Last4:       string(raw.Last4),
		ExpiryMonth: int(raw.ExpiryMonth),
		ExpiryYear:  int(raw.ExpiryYear),
		AddedAt:     int64(raw.AddedAt),
	}
	return nil
}

// Label is the one-line title shown next to the card's radio button.
func (c SavedCard) Label() string {
	scheme := strings.ToUpper(c.Scheme)
	if scheme == "" {
		scheme = "CARD"
	}
	last4 := c.Last4
	if last4 == "" {
		last4 = "••••"
	}
	return fmt.Sprintf("%s •••• %s", scheme, last4)
}

// Note is the secondary line under the label.
func (c SavedCard) Note() string {
	expiry := "Expiry unavailable"
	if c.ExpiryMonth > 0 && c.ExpiryYear > 0 {
		expiry = fmt.Sprintf("Expiry %02d/%d", c.ExpiryMonth, c.ExpiryYear)
	}
	return expiry + " · Stored on this device"
}

// SavedCardStore persists saved cards as a JSON array in local storage.
type SavedCardStore struct {
	storage Storage
}

// NewSavedCardStore wraps storage.
func NewSavedCardStore(storage Storage) *SavedCardStore {
	return &SavedCardStore{storage: storage}
}

// Load returns the stored cards. Entries without a string sourceId are
// dropped and unreadable data loads as an empty list.
func (s *SavedCardStore) Load() []SavedCard {
	raw, ok := s.storage.GetItem(savedCardsStorageKey)
	if !ok || raw == "" {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logging.Warn("Failed to load saved cards", zap.Error(err))
		return nil
	}

	cards := make([]SavedCard, 0, len(items))
	for _, item := range items {
		var card SavedCard
		if err := json.Unmarshal(item, &card); err != nil {
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

// Persist replaces the stored list.
func (s *SavedCardStore) Persist(cards []SavedCard) error {
	if cards == nil {
		cards = []SavedCard{}
	}
	data, err := json.Marshal(cards)
	if err != nil {
		return err
	}
	return s.storage.SetItem(savedCardsStorageKey, string(data))
}

// AddSavedCard prepends card unless a card with the same source id exists.
func AddSavedCard(cards []SavedCard, card SavedCard) ([]SavedCard, bool) {
	for _, existing := range cards {
		if existing.SourceID == card.SourceID {
			return cards, false
		}
	}
	return append([]SavedCard{card}, cards...), true
}

// RemoveSavedCard drops the card with sourceID.
func RemoveSavedCard(cards []SavedCard, sourceID string) []SavedCard {
	out := make([]SavedCard, 0, len(cards))
	for _, c := range cards {
		if c.SourceID != sourceID {
			out = append(out, c)
		}
	}
	return out
}

// paymentSource is the card summary inside a gateway payment object.
type paymentSource struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	Scheme         string   `json:"scheme"`
	Brand          string   `json:"brand"`
	Last4          flexText `json:"last4"`
	Last4Alt       flexText `json:"last_4"`
	ExpiryMonth    flexInt  `json:"expiry_month"`
	ExpiryMonthAlt flexInt  `json:"expiryMonth"`
	ExpiryYear     flexInt  `json:"expiry_year"`
	ExpiryYearAlt  flexInt  `json:"expiryYear"`
}

// ExtractSavedCard builds a saved card from a payment's source. It returns
// false when the payment carries no source id.
func ExtractSavedCard(payment *PaymentResponse, now time.Time) (SavedCard, bool) {
	if payment == nil || payment.Source == nil || payment.Source.ID == "" {
		return SavedCard{}, false
	}
	src := payment.Source

	card := SavedCard{
		SourceID:    src.ID,
		Scheme:      firstNonEmpty(src.Scheme, src.Brand, src.Type, "card"),
		Last4:       firstNonEmpty(string(src.Last4), string(src.Last4Alt)),
		ExpiryMonth: int(firstNonZero(src.ExpiryMonth, src.ExpiryMonthAlt)),
		ExpiryYear:  int(firstNonZero(src.ExpiryYear, src.ExpiryYearAlt)),
		AddedAt:     now.UnixMilli(),
	}
	if n := len(card.Last4); n > 4 {
		card.Last4 = card.Last4[n-4:]
	}
	return card, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...flexInt) flexInt {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	n, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}
	*f = flexInt(n)
	return nil
}

// flexText accepts a JSON string or number.
type flexText string

func (f *flexText) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexText(s)
		return nil
	}
	*f = flexText(strings.TrimSpace(string(data)))
	return nil
}
