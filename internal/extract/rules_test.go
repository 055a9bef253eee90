package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/stylistiq/fashionbot/internal/pipeline"
)

func doc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return d
}

func TestFieldsExtractsNameAndPrice(t *testing.T) {
	t.Parallel()
	page := `<html><body>
		<h1 class="product-name">Kurta</h1>
		<span class="price">PKR 2500</span>
	</body></html>`

	rec := Fields(doc(t, page), DefaultRules(), "https://shop.example/products/kurta-01")
	require.Equal(t, "Kurta", rec.Name)
	require.Equal(t, "PKR 2500", rec.Price)
	require.Equal(t, "kurta-01", rec.ID)
	require.Equal(t, pipeline.NotFound, rec.Description)
}

func TestApplyRespectsTagOrder(t *testing.T) {
	t.Parallel()
	page := `<html><body>
		<h2 class="name">Second Choice</h2>
		<h1 itemprop="name">First Choice</h1>
		<title>Product Page</title>
	</body></html>`

	rule := DefaultRules()[0]
	require.Equal(t, "First Choice", Apply(doc(t, page), rule))
}

func TestApplyMatchesOnTextContent(t *testing.T) {
	t.Parallel()
	page := `<html><body><div class="cost">Price: Rs. 4,990</div></body></html>`
	rule := Rule{Field: "price", Tags: []string{"span", "div"}, Keywords: []string{"price", "amount", "money"}}
	require.Equal(t, "Price: Rs. 4,990", Apply(doc(t, page), rule))
}

func TestApplyReturnsSentinelWhenNothingMatches(t *testing.T) {
	t.Parallel()
	page := `<html><body><div class="footer">About us</div></body></html>`
	for _, rule := range DefaultRules() {
		require.Equal(t, pipeline.NotFound, Apply(doc(t, page), rule))
	}
}

func TestDescriptionRule(t *testing.T) {
	t.Parallel()
	page := `<html><body>
		<p class="shipping">Free delivery</p>
		<p class="product-description">Embroidered lawn kurta with block print.</p>
	</body></html>`
	rule := DefaultRules()[2]
	require.Equal(t, "Embroidered lawn kurta with block print.", Apply(doc(t, page), rule))
}

func TestImagePicksFirstMarkedImg(t *testing.T) {
	t.Parallel()
	page := `<html><body>
		<img src="/logo.png" alt="brand logo">
		<img src="/media/kurta-front.jpg" class="product-image zoom">
		<img src="/media/kurta-back.jpg" alt="dress back">
	</body></html>`
	require.Equal(t, "/media/kurta-front.jpg", Image(doc(t, page)))
}

func TestImageMatchesOnAlt(t *testing.T) {
	t.Parallel()
	page := `<html><body><img src="/x.jpg" alt="summer dress shot"></body></html>`
	require.Equal(t, "/x.jpg", Image(doc(t, page)))
}

func TestImageSentinelWhenNoMarkers(t *testing.T) {
	t.Parallel()
	page := `<html><body><img src="/logo.png" alt="logo"></body></html>`
	require.Equal(t, pipeline.NotFound, Image(doc(t, page)))
}
