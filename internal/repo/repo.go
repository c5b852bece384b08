// Package repo contains the Postgres repositories. SQL is handwritten and
// executed through pgx; monetary columns are bigint paise, quantities and
// multipliers are numeric exchanged as strings with shopspring/decimal.
package repo

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// errNoRows is returned for writes that matched nothing, so services can
// treat lookups and updates uniformly via errors.Is(err, pgx.ErrNoRows).
var errNoRows = pgx.ErrNoRows

func parseNumeric(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("repo: parse %s %q: %w", column, value, err)
	}
	return d, nil
}
