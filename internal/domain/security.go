package domain

// SecurityInfo is reference data for one CUSIP, used to enrich holdings
// with tickers, sector classification, and float figures.
type SecurityInfo struct {
	CUSIP       string
	Ticker      string
	IssuerName  string
	Sector      string
	Industry    string
	MarketCap   int64 // dollars
	FloatShares int64
}
