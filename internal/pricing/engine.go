package pricing

import "github.com/shopspring/decimal"

// Unit describes a sellable measure of a product. BaseQuantity is the number
// of base units (grams, sticks) one of this unit contains; PriceMultiplier is
// the factor applied to the product's base price to derive this unit's sale
// price. Pricing depends on the multiplier only, never on BaseQuantity.
// Stock consumption uses BaseQuantity; pricing does not.
type Unit struct {
	ID              string
	Name            string
	Abbreviation    string
	BaseQuantity    decimal.Decimal
	PriceMultiplier decimal.Decimal
	IsDefault       bool
}

// LineItem carries the inputs of a single invoice line. UnitPrice and
// Discount are paise; Quantity may be fractional (2.5 kg); TaxRate is a
// percentage (18, 12.5). Values are taken as given; business-rule
// validation happens at the form boundary before lines reach the engine.
type LineItem struct {
	Quantity  decimal.Decimal
	UnitPrice Money
	Discount  Money
	TaxRate   decimal.Decimal
}

// Summary aggregates invoice-level totals. Subtotal is the gross sum of
// qty x unit price before any discount or tax; Tax is the summed per-line tax;
// Discount is the invoice-level discount; Total is the payable amount.
type Summary struct {
	Subtotal Money
	Discount Money
	Tax      Money
	Total    Money
}

// UnitPrice derives a unit's sale price from the product's base price. A zero
// multiplier yields a free unit; rejecting that is the caller's business
// decision, not the engine's.
func UnitPrice(basePrice Money, u Unit) Money {
	return decimal.NewFromInt(basePrice).Mul(u.PriceMultiplier).Round(0).IntPart()
}

// ItemTotal computes a line's payable total: quantity times unit price, minus
// the flat line discount (taxable base clamped at zero), plus tax on what
// remains. Intermediate products are rounded half-up to whole paise.
func ItemTotal(it LineItem) Money {
	taxable := taxableBase(it)
	return taxable + lineTax(taxable, it.TaxRate)
}

// ItemTax returns only the tax portion of a line, for aggregate reporting.
func ItemTax(it LineItem) Money {
	return lineTax(taxableBase(it), it.TaxRate)
}

// LineBase returns the gross quantity x unit price amount before discount
// and tax, rounded to paise.
func LineBase(it LineItem) Money {
	return it.Quantity.Mul(decimal.NewFromInt(it.UnitPrice)).Round(0).IntPart()
}

// InvoiceTotals folds line items left to right into invoice-level totals and
// applies the invoice-level flat discount. The discount reduces the payable
// total only; per-line tax is already fixed by then and is not recomputed.
// A discount larger than the summed line totals clamps the total to zero
// rather than producing a negative invoice.
func InvoiceTotals(items []LineItem, invoiceDiscount Money) Summary {
	var subtotal, tax, lineTotals Money
	for _, it := range items {
		subtotal += LineBase(it)
		taxable := taxableBase(it)
		t := lineTax(taxable, it.TaxRate)
		tax += t
		lineTotals += taxable + t
	}
	total := lineTotals - invoiceDiscount
	if total < 0 {
		total = 0
	}
	return Summary{
		Subtotal: subtotal,
		Discount: invoiceDiscount,
		Tax:      tax,
		Total:    total,
	}
}

func taxableBase(it LineItem) Money {
	base := LineBase(it) - it.Discount
	if base < 0 {
		return 0
	}
	return base
}

func lineTax(taxable Money, rate decimal.Decimal) Money {
	if taxable == 0 || rate.IsZero() {
		return 0
	}
	return decimal.NewFromInt(taxable).Mul(rate).Div(hundred).Round(0).IntPart()
}
