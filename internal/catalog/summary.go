package catalog

import (
	"strconv"
	"strings"
)

// Product is the storefront view of a catalog item as read from the store.
type Product struct {
	ID     int64
	Name   string
	SKU    string
	Price  float64
	URLKey string
	Image  string
}

// Summary is the recommendation payload for one catalog item.
type Summary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	SKU            string  `json:"sku"`
	Price          float64 `json:"price"`
	PriceFormatted string  `json:"price_with_currency"`
	URL            string  `json:"url"`
	ImageURL       string  `json:"image"`
}

// Summarizer turns store rows into summaries with absolute URLs.
type Summarizer struct {
	baseURL  string
	mediaURL string
	suffix   string
	prices   *PriceFormatter
}

// NewSummarizer builds product and image URLs under baseURL and mediaURL.
func NewSummarizer(baseURL, mediaURL string, prices *PriceFormatter) *Summarizer {
	return &Summarizer{
		baseURL:  strings.TrimRight(baseURL, "/"),
		mediaURL: strings.TrimRight(mediaURL, "/"),
		suffix:   ".html",
		prices:   prices,
	}
}

// Summarize shapes a single product.
func (s *Summarizer) Summarize(p Product) Summary {
	return Summary{
		ID:             strconv.FormatInt(p.ID, 10),
		Name:           p.Name,
		SKU:            p.SKU,
		Price:          p.Price,
		PriceFormatted: s.prices.Format(p.Price),
		URL:            s.productURL(p),
		ImageURL:       s.imageURL(p.Image),
	}
}

func (s *Summarizer) productURL(p Product) string {
	if p.URLKey == "" {
		return s.baseURL + "/catalog/product/view/id/" + strconv.FormatInt(p.ID, 10)
	}
	return s.baseURL + "/" + p.URLKey + s.suffix
}

func (s *Summarizer) imageURL(image string) string {
	if image == "" || image == "no_selection" {
		return s.mediaURL + "/catalog/product/placeholder/image.jpg"
	}
	return s.mediaURL + "/catalog/product/" + strings.TrimLeft(image, "/")
}
