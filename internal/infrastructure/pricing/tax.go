package pricing

// Regional tax rates by product category, "default" covering the rest.
var regionalRates = map[string]map[string]float64{
	"US": {"default": 0.07, "hardware": 0.08},
	"EU": {"default": 0.20},
	"UK": {"default": 0.17},
}

// taxRate resolves the rate for a region/category pair. Unknown regions are
// untaxed.
func taxRate(region, category string) float64 {
	rates, ok := regionalRates[region]
	if !ok {
		return 0
	}
	if rate, ok := rates[category]; ok {
		return rate
	}
	return rates["default"]
}
