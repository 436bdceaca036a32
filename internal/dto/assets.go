package dto

import (
	"sort"
	"strings"
)

// Yahoo Finance symbol registry. Keys are the asset names callers use.
var commoditySymbols = map[string]string{
	"gold":        "GC=F",
	"silver":      "SI=F",
	"crude_oil":   "CL=F",
	"natural_gas": "NG=F",
	"copper":      "HG=F",
	"wheat":       "ZW=F",
	"corn":        "ZC=F",
	"soybeans":    "ZS=F",
	"coffee":      "KC=F",
	"sugar":       "SB=F",
	"cotton":      "CT=F",
	"platinum":    "PL=F",
	"palladium":   "PA=F",
	"aluminum":    "ALI=F",
	"zinc":        "ZNC=F",
}

var stockSymbols = map[string]string{
	"apple":            "AAPL",
	"microsoft":        "MSFT",
	"google":           "GOOGL",
	"amazon":           "AMZN",
	"tesla":            "TSLA",
	"nvidia":           "NVDA",
	"meta":             "META",
	"netflix":          "NFLX",
	"adobe":            "ADBE",
	"salesforce":       "CRM",
	"oracle":           "ORCL",
	"intel":            "INTC",
	"amd":              "AMD",
	"cisco":            "CSCO",
	"ibm":              "IBM",
	"jpmorgan":         "JPM",
	"bank_of_america":  "BAC",
	"wells_fargo":      "WFC",
	"goldman_sachs":    "GS",
	"morgan_stanley":   "MS",
	"american_express": "AXP",
	"visa":             "V",
	"mastercard":       "MA",
	"paypal":           "PYPL",
}

// ResolveAsset returns the Yahoo symbol and asset type for a known asset name.
func ResolveAsset(asset string) (symbol string, assetType AssetType, ok bool) {
	key := strings.ToLower(strings.TrimSpace(asset))
	if sym, found := commoditySymbols[key]; found {
		return sym, AssetTypeCommodity, true
	}
	if sym, found := stockSymbols[key]; found {
		return sym, AssetTypeStock, true
	}
	return "", "", false
}

// AvailableAssets lists the known asset names grouped by type, sorted.
func AvailableAssets() map[string][]string {
	commodities := make([]string, 0, len(commoditySymbols))
	for name := range commoditySymbols {
		commodities = append(commodities, name)
	}
	stocks := make([]string, 0, len(stockSymbols))
	for name := range stockSymbols {
		stocks = append(stocks, name)
	}
	sort.Strings(commodities)
	sort.Strings(stocks)

	return map[string][]string{
		"commodities": commodities,
		"stocks":      stocks,
	}
}
