package app_test

import (
	"testing"

	"monobook/internal/app"
	"monobook/internal/domain"
)

func TestCurrencyResolve_FallbackChain(t *testing.T) {
	r := app.NewCurrencyResolver(testCurrencyTable)

	// explicit wins over the room currency
	cur, err := r.Resolve(ptr("EUR"), ptr("UAH"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cur.Code != "EUR" || cur.Symbol != "€" {
		t.Fatalf("unexpected currency: %+v", cur)
	}

	// no explicit: the room currency applies
	cur, err = r.Resolve(nil, ptr("UAH"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cur.Code != "UAH" || cur.Symbol != "₴" {
		t.Fatalf("unexpected currency: %+v", cur)
	}

	// neither: USD
	cur, err = r.Resolve(nil, nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cur.Code != "USD" || cur.Symbol != "$" {
		t.Fatalf("unexpected currency: %+v", cur)
	}
}

func TestCurrencyResolve_NormalizesCase(t *testing.T) {
	r := app.NewCurrencyResolver(testCurrencyTable)

	cur, err := r.Resolve(ptr("  eur "), nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cur.Code != "EUR" || cur.Symbol != "€" {
		t.Fatalf("unexpected currency: %+v", cur)
	}
}

func TestCurrencyResolve_UnknownExplicitRejected(t *testing.T) {
	r := app.NewCurrencyResolver(testCurrencyTable)

	if _, err := r.Resolve(ptr("XXX"), ptr("EUR")); err != domain.ErrInvalidCurrency {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestCurrencyResolve_UnknownInheritedPassesThrough(t *testing.T) {
	r := app.NewCurrencyResolver(testCurrencyTable)

	// an inherited room code outside the table is not an error; the code
	// doubles as its own display form
	cur, err := r.Resolve(nil, ptr("XTS"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cur.Code != "XTS" || cur.Symbol != "XTS" {
		t.Fatalf("unexpected currency: %+v", cur)
	}
}

func TestCurrencyResolve_EmptyTableDefaultsDollar(t *testing.T) {
	r := app.NewCurrencyResolver(nil)

	cur, err := r.Resolve(nil, nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cur.Code != "USD" || cur.Symbol != "$" {
		t.Fatalf("unexpected currency: %+v", cur)
	}
}

func TestCurrencyResolve_BlankExplicitFallsThrough(t *testing.T) {
	r := app.NewCurrencyResolver(testCurrencyTable)

	cur, err := r.Resolve(ptr("   "), ptr("GBP"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if cur.Code != "GBP" || cur.Symbol != "£" {
		t.Fatalf("unexpected currency: %+v", cur)
	}
}
