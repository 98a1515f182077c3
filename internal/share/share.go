package share

import (
	"fmt"
	"net/url"
	"strings"
)

type Platform string

const (
	Facebook Platform = "facebook"
	Twitter  Platform = "twitter"
	WhatsApp Platform = "whatsapp"
	Copy     Platform = "copy"
)

type Link struct {
	URL string
	// Copy is set when the URL should go to the clipboard instead of a share page.
	Copy bool
}

func ProductURL(origin, productID string) string {
	return strings.TrimRight(origin, "/") + "/product/" + url.PathEscape(productID)
}

// URL builds the share link for platform; unknown platforms fall back to copying.
func URL(origin, productID string, platform Platform) (Link, error) {
	if productID == "" {
		return Link{}, fmt.Errorf("productID is empty")
	}

	product := ProductURL(origin, productID)
	escaped := url.QueryEscape(product)

	switch Platform(strings.ToLower(string(platform))) {
	case Facebook:
		return Link{URL: "https://www.facebook.com/sharer/sharer.php?u=" + escaped}, nil
	case Twitter:
		return Link{URL: "https://twitter.com/intent/tweet?url=" + escaped}, nil
	case WhatsApp:
		return Link{URL: "https://wa.me/?text=" + url.QueryEscape("Check out this product: "+product)}, nil
	default:
		return Link{URL: product, Copy: true}, nil
	}
}
