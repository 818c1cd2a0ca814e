package models

import (
	"strings"
	"time"
)

// AccountType is the normalized local account-type enumeration. Upstream sends
// free-form strings; anything unrecognized lands in AccountTypeOther.
type AccountType string

const (
	AccountTypeTFSA   AccountType = "TFSA"
	AccountTypeRRSP   AccountType = "RRSP"
	AccountTypeSRRSP  AccountType = "SRRSP"
	AccountTypeLIRA   AccountType = "LIRA"
	AccountTypeLIF    AccountType = "LIF"
	AccountTypeRRIF   AccountType = "RRIF"
	AccountTypeRESP   AccountType = "RESP"
	AccountTypeFHSA   AccountType = "FHSA"
	AccountTypeMargin AccountType = "Margin"
	AccountTypeCash   AccountType = "Cash"
	AccountTypeOther  AccountType = "Other"
)

var accountTypesByName = map[string]AccountType{
	"TFSA":   AccountTypeTFSA,
	"RRSP":   AccountTypeRRSP,
	"SRRSP":  AccountTypeSRRSP,
	"LIRA":   AccountTypeLIRA,
	"LIF":    AccountTypeLIF,
	"RRIF":   AccountTypeRRIF,
	"RESP":   AccountTypeRESP,
	"FHSA":   AccountTypeFHSA,
	"MARGIN": AccountTypeMargin,
	"CASH":   AccountTypeCash,
}

// NormalizeAccountType maps an upstream free-form account type to the local
// enumeration, defaulting to AccountTypeOther for unrecognized values.
func NormalizeAccountType(raw string) AccountType {
	if t, ok := accountTypesByName[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return t
	}
	return AccountTypeOther
}

// AccountSummary is the denormalized financial summary refreshed on every balance sync.
type AccountSummary struct {
	TotalEquityCAD float64 `json:"total_equity_cad"`
	TotalEquityUSD float64 `json:"total_equity_usd"`
	CashCAD        float64 `json:"cash_cad"`
	CashUSD        float64 `json:"cash_usd"`
	MarketValueCAD float64 `json:"market_value_cad"`
	MarketValueUSD float64 `json:"market_value_usd"`
}

// Account belongs to exactly one Person. The upstream-assigned account number
// is used directly as the local identifier.
type Account struct {
	Number       string         `json:"number"`
	PersonName   string         `json:"person_name"`
	Type         AccountType    `json:"type"`
	RawType      string         `json:"raw_type"`
	Status       string         `json:"status"`
	IsPrimary    bool           `json:"is_primary"`
	Summary      AccountSummary `json:"summary"`
	LastSyncedAt time.Time      `json:"last_synced_at"`
}
