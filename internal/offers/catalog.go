package offers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Offer is one purchasable entry from the backend catalog, normalized for
// display and for adding to the cart.
type Offer struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Alt         string          `json:"alt"`
	Category    string          `json:"category"`
}

// Catalog groups offers the way the storefront sections render them.
type Catalog struct {
	Solo    []Offer `json:"solo"`
	Duo     []Offer `json:"duo"`
	Famille []Offer `json:"famille"`
}

// Lister is the slice of the API client this package needs.
type Lister interface {
	ListOffers(ctx context.Context) ([]json.RawMessage, error)
}

// Fetch pulls the raw offer records and normalizes them into a grouped
// catalog. Records that cannot become a cart line (no id, no title, no
// positive price) are dropped.
func Fetch(ctx context.Context, lister Lister, baseURL string) (Catalog, error) {
	raw, err := lister.ListOffers(ctx)
	if err != nil {
		return Catalog{}, fmt.Errorf("list offers: %w", err)
	}

	offers := make([]Offer, 0, len(raw))
	for _, record := range raw {
		offer, ok := Normalize(record, baseURL)
		if !ok {
			continue
		}
		offers = append(offers, offer)
	}
	return GroupByCategory(offers), nil
}

// rawOffer tolerates both backend spellings of each field.
type rawOffer struct {
	ID          any     `json:"id"`
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Titre       string  `json:"titre"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
	Image       string  `json:"image"`
	Alt         string  `json:"alt"`
	Category    string  `json:"category"`
}

// Normalize maps one backend record into an Offer. Image URLs are made
// absolute against the backend base so the UI never guesses.
func Normalize(record json.RawMessage, baseURL string) (Offer, bool) {
	var raw rawOffer
	if err := json.Unmarshal(record, &raw); err != nil {
		return Offer{}, false
	}

	id := identify(raw)
	if id == "" {
		return Offer{}, false
	}
	title := strings.TrimSpace(raw.Name)
	if title == "" {
		title = strings.TrimSpace(raw.Titre)
	}
	if title == "" {
		return Offer{}, false
	}
	price := decimal.NewFromFloat(raw.Price)
	if !price.IsPositive() {
		return Offer{}, false
	}

	image := raw.ImageURL
	if image == "" {
		image = raw.Image
	}

	return Offer{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(raw.Description),
		Price:       price,
		Image:       absolutize(image, baseURL),
		Alt:         raw.Alt,
		Category:    strings.ToLower(strings.TrimSpace(raw.Category)),
	}, true
}

// GroupByCategory buckets offers into the three storefront sections,
// preserving input order. Unknown categories land in solo.
func GroupByCategory(offers []Offer) Catalog {
	var c Catalog
	for _, o := range offers {
		switch o.Category {
		case "duo":
			c.Duo = append(c.Duo, o)
		case "famille":
			c.Famille = append(c.Famille, o)
		default:
			c.Solo = append(c.Solo, o)
		}
	}
	return c
}

func identify(raw rawOffer) string {
	switch v := raw.ID.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.TrimSpace(raw.Slug)
}

func absolutize(url, base string) string {
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	base = strings.TrimRight(base, "/")
	if strings.HasPrefix(url, "/") {
		return base + url
	}
	return base + "/" + url
}
