package app

import (
	"strings"

	"monobook/internal/domain"
)

const (
	DefaultCurrencyCode   = "USD"
	defaultCurrencySymbol = "$"
)

// Currency is the (code, display symbol) pair attached to every price-bearing
// response. The symbol is a pure lookup, never user-settable.
type Currency struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

// CurrencyResolver resolves the display currency for a room or booking over
// the known-currency table. Pure; no side effects.
type CurrencyResolver struct {
	table map[string]string // code -> display symbol
}

func NewCurrencyResolver(table map[string]string) *CurrencyResolver {
	norm := make(map[string]string, len(table))
	for code, sym := range table {
		norm[normalizeCode(code)] = strings.TrimSpace(sym)
	}
	return &CurrencyResolver{table: norm}
}

// Resolve walks the fallback chain: explicit code > room currency > USD.
// An explicit code is validated against the known set and rejected when
// unknown; inherited codes fall through to their display lookup as-is.
func (r *CurrencyResolver) Resolve(explicit, roomCode *string) (Currency, error) {
	if explicit != nil && strings.TrimSpace(*explicit) != "" {
		code := normalizeCode(*explicit)
		if _, ok := r.table[code]; !ok {
			return Currency{}, domain.ErrInvalidCurrency
		}
		return r.display(code), nil
	}
	if roomCode != nil && strings.TrimSpace(*roomCode) != "" {
		return r.display(normalizeCode(*roomCode)), nil
	}
	return r.display(DefaultCurrencyCode), nil
}

func (r *CurrencyResolver) display(code string) Currency {
	if sym, ok := r.table[code]; ok && sym != "" {
		return Currency{Code: code, Symbol: sym}
	}
	if code == DefaultCurrencyCode {
		return Currency{Code: code, Symbol: defaultCurrencySymbol}
	}
	// Unknown inherited code: the code doubles as its own display form.
	return Currency{Code: code, Symbol: code}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
