package site

import (
	"fmt"
	"regexp"
	"strings"

	scrapeerrors "listingscraper/pkg/errors"
)

// Kind identifies which listing site a page came from
type Kind int

const (
	Generic Kind = iota
	Compass
	Zillow
)

// Override values accepted by Resolve
const (
	Auto = "auto"
)

func (k Kind) String() string {
	switch k {
	case Generic:
		return "generic"
	case Compass:
		return "compass"
	case Zillow:
		return "zillow"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Patterns holds the compiled expressions used to scrape one site kind.
// Address and Price are nil when the site has no such pattern.
type Patterns struct {
	Link        *regexp.Regexp
	Description *regexp.Regexp
	Address     *regexp.Regexp
	Price       *regexp.Regexp

	// DefaultExt is used when an image URL has no usable extension
	DefaultExt string
}

var descriptionSpan = regexp.MustCompile(`(?s)<span>Description</span>.*?<div class="[^"]*">(.*?)</div>`)

var table = map[Kind]*Patterns{
	Generic: {
		Link:        regexp.MustCompile(`"(https://[^"]*?origin\.webp)"`),
		Description: descriptionSpan,
		DefaultExt:  "webp",
	},
	Compass: {
		Link:        regexp.MustCompile(`"(https://www\.compass\.com/m/[^"]*?/origin\.(?:webp|jpg))"`),
		Description: descriptionSpan,
		Address: regexp.MustCompile(`(?s)"street":"(?P<street>[^"]+)","city":"(?P<city>[^"]+)","state":"(?P<state>[A-Z]{2})","zipCode":"(?P<zip>\d{5})".*?"listingId":"?(?P<listing_id>\d+)`),
		Price:      regexp.MustCompile(`data-tn="listing-page-summary-price"[^>]*>\$([\d,]+)`),
		DefaultExt: "webp",
	},
	Zillow: {
		Link:        regexp.MustCompile(`"(https://photos\.zillowstatic\.com/fp/[^"]*?-cc_ft_\d+\.(?:webp|jpg))"`),
		Description: regexp.MustCompile(`(?s)<div data-testid="description"[^>]*>.*?<div[^>]*>(.*?)</div>`),
		Address: regexp.MustCompile(`(?s)"zpid":(?P<listing_id>\d+).*?"streetAddress":"(?P<street>[^"]+)".*?"city":"(?P<city>[^"]+)".*?"state":"(?P<state>[A-Z]{2})".*?"zipcode":"(?P<zip>\d{5})"`),
		Price:      regexp.MustCompile(`data-testid="price"[^>]*>\s*(?:<span>)?\$([\d,]+)`),
		DefaultExt: "webp",
	},
}

// PatternsFor returns the pattern set for a kind. The returned value is shared
// and must not be modified.
func PatternsFor(k Kind) (*Patterns, error) {
	p, ok := table[k]
	if !ok {
		return nil, scrapeerrors.New(scrapeerrors.KindUnsupportedSite, "lookup patterns", k.String(), nil)
	}
	return p, nil
}

// Parse maps an explicit site name to its Kind
func Parse(name string) (Kind, bool) {
	switch strings.ToLower(name) {
	case "generic":
		return Generic, true
	case "compass":
		return Compass, true
	case "zillow":
		return Zillow, true
	default:
		return Generic, false
	}
}

// Resolve decides the site kind for a run.
//
// An explicit override wins. With "auto" (or empty) the source is matched
// case-sensitively against "compass" and then "zillow"; a source naming
// neither is rejected, so the generic pattern is only used on request.
func Resolve(source, override string) (Kind, error) {
	if override != "" && strings.ToLower(override) != Auto {
		if k, ok := Parse(override); ok {
			return k, nil
		}
		return Generic, scrapeerrors.New(scrapeerrors.KindUnsupportedSite, "resolve site", override,
			fmt.Errorf("unknown site %q", override))
	}

	switch {
	case strings.Contains(source, "compass"):
		return Compass, nil
	case strings.Contains(source, "zillow"):
		return Zillow, nil
	default:
		return Generic, scrapeerrors.New(scrapeerrors.KindUnsupportedSite, "resolve site", source,
			fmt.Errorf("source names no supported site"))
	}
}
