package provider

import "buyback-quotes/internal/quote"

// AladinOptions returns the default adapter settings for Aladin's used-book buyback.
func AladinOptions() Options {
	return Options{
		Name:        quote.ProviderAladin,
		DisplayName: "Aladin",
		CandidateURLs: []string{
			"https://www.aladin.co.kr/shop/usedshop/wc2b_search.aspx?ActionType=1&SearchTarget=Book&KeyWord={isbn}",
			"https://www.aladin.co.kr/search/wsearchresult.aspx?SearchTarget=Used&SearchWord={isbn}",
			"https://m.aladin.co.kr/m/msearch.aspx?SearchTarget=Used&SearchWord={isbn}",
		},
		NotBuyablePattern: `매입\s*불가|매입하지\s*않|매입\s*대상이\s*아닙|매입\s*중지`,
		SiteNames:         []string{"알라딘", "Aladin"},
		RequestsPerSecond: 2,
		Burst:             4,
	}
}

// Yes24Options returns the default adapter settings for YES24's buyback service.
func Yes24Options() Options {
	return Options{
		Name:        quote.ProviderYes24,
		DisplayName: "Yes24",
		CandidateURLs: []string{
			"https://www.yes24.com/Mall/buyback/Search?SearchWord={isbn}",
			"https://m.yes24.com/BuyBack/Search?SearchWord={isbn}",
		},
		NotBuyablePattern: `매입\s*불가|매입이\s*불가|바이백\s*불가|매입\s*대상\s*도서가\s*아닙`,
		SiteNames:         []string{"YES24", "예스24"},
		RequestsPerSecond: 2,
		Burst:             4,
	}
}
