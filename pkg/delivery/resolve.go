// Package delivery selects the time-versioned delivery-utility charge
// schedule in effect for an evaluation.
package delivery

import (
	"errors"
	"time"

	"github.com/ratewise/ratewise/pkg/types"
)

// ErrNotFound means no delivery rate was in effect on the requested date.
// Callers treat this as a missing-template condition, not a fatal error.
var ErrNotFound = errors.New("no delivery rate in effect")

// Resolve picks the record with the latest EffectiveDate that is not after
// asOf. The chosen rate is applied uniformly to the whole evaluation window;
// there is no blending across a mid-window rate change.
func Resolve(rates []types.DeliveryRate, asOf time.Time) (types.DeliveryRate, error) {
	var best types.DeliveryRate
	var found bool
	for _, r := range rates {
		if r.EffectiveDate.After(asOf) {
			continue
		}
		if !found || r.EffectiveDate.After(best.EffectiveDate) {
			best = r
			found = true
		}
	}
	if !found {
		return types.DeliveryRate{}, ErrNotFound
	}
	return best, nil
}

// Table maps a delivery utility slug to its known rate records. Tables are
// preloaded in memory by the caller; no I/O happens here.
type Table map[string][]types.DeliveryRate

// Resolve looks up the utility's records and picks the rate in effect.
func (t Table) Resolve(slug string, asOf time.Time) (types.DeliveryRate, error) {
	rates, ok := t[slug]
	if !ok {
		return types.DeliveryRate{}, ErrNotFound
	}
	return Resolve(rates, asOf)
}
