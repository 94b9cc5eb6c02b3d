package cart

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"
)

type CartItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price,omitempty"`
	Currency   string  `json:"currency,omitempty"`
	Brand      string  `json:"brand,omitempty"`
	CoverImage string  `json:"coverImage,omitempty" datastore:",noindex"`
	Slug       string  `json:"slug,omitempty"`
}

type Cart struct {
	UID       string
	Items     []CartItem
	UpdatedAt time.Time
}

func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// ParseSnapshot reads an untrusted JSON array of cart items. Entries that are not
// well formed are dropped, never repaired.
func ParseSnapshot(raw []byte) []CartItem {
	entries := []json.RawMessage{}
	err := json.Unmarshal(raw, &entries)
	if err != nil {
		return []CartItem{}
	}

	items := []CartItem{}
	for _, entry := range entries {
		item, ok := parseItem(entry)
		if ok {
			items = append(items, item)
		}
	}
	return items
}

func parseItem(raw json.RawMessage) (CartItem, bool) {
	fields := map[string]json.RawMessage{}
	err := json.Unmarshal(raw, &fields)
	if err != nil {
		return CartItem{}, false
	}

	item := CartItem{}
	if !readString(fields, "id", &item.ID, true) {
		return CartItem{}, false
	}
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return CartItem{}, false
	}

	quantity, ok := fields["quantity"]
	if !ok {
		return CartItem{}, false
	}
	var q float64
	if json.Unmarshal(quantity, &q) != nil || q != math.Trunc(q) || q < 1 || q > math.MaxInt32 {
		return CartItem{}, false
	}
	item.Quantity = int(q)

	if !readString(fields, "title", &item.Title, false) ||
		!readString(fields, "currency", &item.Currency, false) ||
		!readString(fields, "brand", &item.Brand, false) ||
		!readString(fields, "coverImage", &item.CoverImage, false) ||
		!readString(fields, "slug", &item.Slug, false) {
		return CartItem{}, false
	}

	if price, ok := fields["price"]; ok && !isNull(price) {
		if json.Unmarshal(price, &item.Price) != nil || item.Price < 0 {
			return CartItem{}, false
		}
	}

	return item, true
}

// readString accepts a missing or null optional field; a present field must be a string.
func readString(fields map[string]json.RawMessage, name string, dest *string, required bool) bool {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return !required
	}
	return json.Unmarshal(raw, dest) == nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
