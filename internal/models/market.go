package models

// Markets supported by the prediction engine. Handicap markets are
// deliberately absent: their push/refund grading is unresolved upstream and
// predictions for them are never graded here.
const (
	MarketMatchResult = "match_result"
	MarketOverUnder25 = "over_under_2_5"
	MarketBTTS        = "btts"
	MarketCornersOver = "corners_over_9_5"
	MarketCardsOver   = "cards_over_4_5"
)

// Outcome classes per market.
const (
	OutcomeHomeWin = "home_win"
	OutcomeDraw    = "draw"
	OutcomeAwayWin = "away_win"
	OutcomeOver    = "over"
	OutcomeUnder   = "under"
	OutcomeYes     = "yes"
	OutcomeNo      = "no"
)

// AllMarkets lists every market the engine trains and predicts.
var AllMarkets = []string{
	MarketMatchResult,
	MarketOverUnder25,
	MarketBTTS,
	MarketCornersOver,
	MarketCardsOver,
}

// MarketClasses returns the ordered outcome classes for a market.
func MarketClasses(market string) []string {
	switch market {
	case MarketMatchResult:
		return []string{OutcomeHomeWin, OutcomeDraw, OutcomeAwayWin}
	case MarketOverUnder25, MarketCornersOver, MarketCardsOver:
		return []string{OutcomeOver, OutcomeUnder}
	case MarketBTTS:
		return []string{OutcomeYes, OutcomeNo}
	default:
		return nil
	}
}

// IsBinaryMarket reports whether the market has exactly two outcome classes.
func IsBinaryMarket(market string) bool {
	return len(MarketClasses(market)) == 2
}

// ValidMarket reports whether the market is one the engine supports.
func ValidMarket(market string) bool {
	return MarketClasses(market) != nil
}
