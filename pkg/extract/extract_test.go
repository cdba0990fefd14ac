package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingscraper/pkg/site"
)

const genericPage = `<html><body>
<img src="https://cdn.example.com/a/origin.webp">
<script>var photos = ["https://cdn.example.com/a/origin.webp","https://cdn.example.com/b/origin.webp"];</script>
<span>Description</span>
<div class="desc-body">
  Bright corner unit with a view.
</div>
</body></html>`

const compassPage = `<html>
<div data-tn="listing-page-summary-price" class="x">$1,250,000</div>
<span>Description</span><div class="textIntent">Garden duplex</div>
"https://www.compass.com/m/abc/origin.jpg"
"https://www.compass.com/m/def/origin.webp"
"https://www.compass.com/m/abc/origin.jpg"
"https://cdn.example.com/z/origin.webp"
<script>{"street":"12 Elm St","city":"Brooklyn","state":"NY","zipCode":"11201","beds":3,"listingId":"48213"}</script>
</html>`

const zillowPage = `<html>
<span data-testid="price"><span>$899,000</span></span>
<div data-testid="description" class="d"><article><div class="inner">Modern farmhouse</div></article></div>
"https://photos.zillowstatic.com/fp/aaa-cc_ft_1536.webp"
"https://photos.zillowstatic.com/fp/bbb-cc_ft_768.jpg"
"https://photos.zillowstatic.com/fp/ccc-p_e.jpg"
<script>{"zpid":2077,"address":{"streetAddress":"9 Oak Ave","city":"Denver","state":"CO","zipcode":"80202"}}</script>
</html>`

func TestLinksGeneric(t *testing.T) {
	links, err := Links(genericPage, site.Generic)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://cdn.example.com/a/origin.webp",
		"https://cdn.example.com/a/origin.webp",
		"https://cdn.example.com/b/origin.webp",
	}, links)
}

func TestLinksCompass(t *testing.T) {
	links, err := Links(compassPage, site.Compass)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.compass.com/m/abc/origin.jpg",
		"https://www.compass.com/m/def/origin.webp",
		"https://www.compass.com/m/abc/origin.jpg",
	}, links)
}

func TestLinksZillow(t *testing.T) {
	links, err := Links(zillowPage, site.Zillow)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://photos.zillowstatic.com/fp/aaa-cc_ft_1536.webp",
		"https://photos.zillowstatic.com/fp/bbb-cc_ft_768.jpg",
	}, links)
}

func TestLinksNoMatches(t *testing.T) {
	links, err := Links("<html></html>", site.Generic)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestUniqueLinks(t *testing.T) {
	got := UniqueLinks([]string{"b", "a", "b", "c", "a"})
	assert.Equal(t, []string{"b", "a", "c"}, got)
	assert.Empty(t, UniqueLinks(nil))
}

func TestMetadataGeneric(t *testing.T) {
	rec := Metadata(genericPage, "https://example.com/l/1", 2, site.Generic)

	assert.Equal(t, "https://example.com/l/1", rec.URL)
	assert.Equal(t, "generic", rec.Site)
	assert.Equal(t, 2, rec.ImageCount)
	require.NotNil(t, rec.Description)
	assert.Equal(t, "Bright corner unit with a view.", *rec.Description)
	assert.False(t, rec.HasAddress())
	assert.Nil(t, rec.Price)
}

func TestMetadataCompass(t *testing.T) {
	rec := Metadata(compassPage, "https://www.compass.com/listing/48213", 2, site.Compass)

	require.NotNil(t, rec.Description)
	assert.Equal(t, "Garden duplex", *rec.Description)
	require.True(t, rec.HasAddress())
	assert.Equal(t, "12 Elm St", *rec.Street)
	assert.Equal(t, "Brooklyn", *rec.City)
	assert.Equal(t, "NY", *rec.State)
	assert.Equal(t, "11201", *rec.Zip)
	assert.Equal(t, "48213", *rec.ListingID)
	require.NotNil(t, rec.Price)
	assert.Equal(t, "1250000", *rec.Price)
}

func TestMetadataZillow(t *testing.T) {
	rec := Metadata(zillowPage, "https://www.zillow.com/homedetails/2077", 2, site.Zillow)

	require.NotNil(t, rec.Description)
	assert.Equal(t, "Modern farmhouse", *rec.Description)
	require.True(t, rec.HasAddress())
	assert.Equal(t, "9 Oak Ave", *rec.Street)
	assert.Equal(t, "2077", *rec.ListingID)
	require.NotNil(t, rec.Price)
	assert.Equal(t, "899000", *rec.Price)
}

func TestMetadataPartialTolerance(t *testing.T) {
	// price present, description and address absent
	page := `<div data-tn="listing-page-summary-price">$500</div>`
	rec := Metadata(page, "https://www.compass.com/x", 0, site.Compass)

	assert.Nil(t, rec.Description)
	assert.False(t, rec.HasAddress())
	assert.Nil(t, rec.Street)
	require.NotNil(t, rec.Price)
	assert.Equal(t, "500", *rec.Price)
	assert.Equal(t, 0, rec.ImageCount)
}

func TestMetadataIncompleteAddressLeavesAllUnset(t *testing.T) {
	// state is not two capital letters, so the address pattern fails as a whole
	page := `{"street":"1 A St","city":"X","state":"Texas","zipCode":"75001","listingId":"5"}`
	rec := Metadata(page, "https://www.compass.com/x", 0, site.Compass)

	assert.Nil(t, rec.Street)
	assert.Nil(t, rec.City)
	assert.Nil(t, rec.State)
	assert.Nil(t, rec.Zip)
	assert.Nil(t, rec.ListingID)
}

func TestMetadataEmptyDescriptionMatched(t *testing.T) {
	page := `<span>Description</span><div class="c">   </div>`
	rec := Metadata(page, "u", 0, site.Generic)

	require.NotNil(t, rec.Description)
	assert.Equal(t, "", *rec.Description)
}
