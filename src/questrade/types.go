package questrade

import "time"

// Upstream payload shapes for each brokerage resource, validated at the client
// boundary. Field sets mirror the API's JSON; enum-like strings are kept raw
// here and normalized by the entity syncers.

type AccountPayload struct {
	Type              string `json:"type"`
	Number            string `json:"number"`
	Status            string `json:"status"`
	IsPrimary         bool   `json:"isPrimary"`
	IsBilling         bool   `json:"isBilling"`
	ClientAccountType string `json:"clientAccountType"`
}

type accountsResponse struct {
	Accounts []AccountPayload `json:"accounts"`
}

type BalancePayload struct {
	Currency          string  `json:"currency"`
	Cash              float64 `json:"cash"`
	MarketValue       float64 `json:"marketValue"`
	TotalEquity       float64 `json:"totalEquity"`
	BuyingPower       float64 `json:"buyingPower"`
	MaintenanceExcess float64 `json:"maintenanceExcess"`
}

type balancesResponse struct {
	PerCurrencyBalances []BalancePayload `json:"perCurrencyBalances"`
	CombinedBalances    []BalancePayload `json:"combinedBalances"`
}

type PositionPayload struct {
	Symbol             string  `json:"symbol"`
	SymbolID           int64   `json:"symbolId"`
	OpenQuantity       float64 `json:"openQuantity"`
	ClosedQuantity     float64 `json:"closedQuantity"`
	CurrentMarketValue float64 `json:"currentMarketValue"`
	CurrentPrice       float64 `json:"currentPrice"`
	AverageEntryPrice  float64 `json:"averageEntryPrice"`
	TotalCost          float64 `json:"totalCost"`
	OpenPnl            float64 `json:"openPnl"`
	DayPnl             float64 `json:"dayPnl"`
}

type positionsResponse struct {
	Positions []PositionPayload `json:"positions"`
}

type ActivityPayload struct {
	TradeDate       time.Time `json:"tradeDate"`
	TransactionDate time.Time `json:"transactionDate"`
	SettlementDate  time.Time `json:"settlementDate"`
	Action          string    `json:"action"`
	Symbol          string    `json:"symbol"`
	SymbolID        int64     `json:"symbolId"`
	Description     string    `json:"description"`
	Currency        string    `json:"currency"`
	Quantity        float64   `json:"quantity"`
	Price           float64   `json:"price"`
	GrossAmount     float64   `json:"grossAmount"`
	Commission      float64   `json:"commission"`
	NetAmount       float64   `json:"netAmount"`
	Type            string    `json:"type"`
}

type activitiesResponse struct {
	Activities []ActivityPayload `json:"activities"`
}

type CandlePayload struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

type candlesResponse struct {
	Candles []CandlePayload `json:"candles"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	APIServer    string `json:"api_server"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}
