// Package fees computes the platform and gateway fee breakdown for a
// charge. Amounts are fixed-point minor units end to end; percentage
// math runs on decimals and rounds half-up once, so the breakdown
// never drifts by more than one centavo.
package fees

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vendalivre/payhub/internal/model"
	"github.com/vendalivre/payhub/internal/payerr"
)

// Calculator is the contract the checkout depends on. The default
// implementation below is tier-based; a marketplace deployment may
// plug its own.
type Calculator interface {
	CalculateAllFees(grossMinor int64, productType string, gateway model.Gateway, method model.Method) (model.FeeBreakdown, error)
}

// Tier boundaries and platform rates. Orders at or above the volume
// threshold get the discounted commission.
const (
	TierStandard = "standard"
	TierVolume   = "volume"

	volumeThresholdMinor = 500_000 // R$5.000,00
)

var platformRates = map[string]decimal.Decimal{
	TierStandard: decimal.NewFromFloat(0.030),
	TierVolume:   decimal.NewFromFloat(0.025),
}

// mdrRates holds the processor's discount rate per gateway and method.
var mdrRates = map[model.Gateway]map[model.Method]decimal.Decimal{
	model.GatewayAsaas: {
		model.MethodPix:        decimal.NewFromFloat(0.015),
		model.MethodBoleto:     decimal.NewFromFloat(0.019),
		model.MethodCreditCard: decimal.NewFromFloat(0.029),
	},
	model.GatewayCielo: {
		model.MethodPix:        decimal.NewFromFloat(0.012),
		model.MethodCreditCard: decimal.NewFromFloat(0.031),
		model.MethodDebitCard:  decimal.NewFromFloat(0.020),
	},
	model.GatewayGetnet: {
		model.MethodPix:        decimal.NewFromFloat(0.011),
		model.MethodBoleto:     decimal.NewFromFloat(0.022),
		model.MethodCreditCard: decimal.NewFromFloat(0.030),
		model.MethodDebitCard:  decimal.NewFromFloat(0.019),
	},
	model.GatewayPagarme: {
		model.MethodPix:        decimal.NewFromFloat(0.012),
		model.MethodBoleto:     decimal.NewFromFloat(0.020),
		model.MethodCreditCard: decimal.NewFromFloat(0.032),
	},
	model.GatewayRede: {
		model.MethodCreditCard: decimal.NewFromFloat(0.028),
		model.MethodDebitCard:  decimal.NewFromFloat(0.018),
	},
	model.GatewayStone: {
		model.MethodPix:        decimal.NewFromFloat(0.010),
		model.MethodCreditCard: decimal.NewFromFloat(0.027),
	},
}

type TieredCalculator struct{}

func NewTieredCalculator() *TieredCalculator { return &TieredCalculator{} }

func (c *TieredCalculator) CalculateAllFees(grossMinor int64, productType string, gateway model.Gateway, method model.Method) (model.FeeBreakdown, error) {
	if grossMinor < 1 {
		return model.FeeBreakdown{}, payerr.New(payerr.KindValidation, "gross amount must be at least one minor unit, got %d", grossMinor)
	}

	rates, ok := mdrRates[gateway]
	if !ok {
		return model.FeeBreakdown{}, payerr.New(payerr.KindValidation, "no fee table for gateway %s", gateway)
	}
	mdr, ok := rates[method]
	if !ok {
		return model.FeeBreakdown{}, payerr.New(payerr.KindValidation, "gateway %s has no fee rate for method %s", gateway, method)
	}

	tier := TierStandard
	if grossMinor >= volumeThresholdMinor {
		tier = TierVolume
	}

	gross := decimal.NewFromInt(grossMinor)
	pluginFee := gross.Mul(platformRates[tier]).Round(0).IntPart()
	gatewayFee := gross.Mul(mdr).Round(0).IntPart()

	return model.FeeBreakdown{
		GrossMinor:      grossMinor,
		PluginFeeMinor:  pluginFee,
		GatewayFeeMinor: gatewayFee,
		NetMinor:        grossMinor - pluginFee - gatewayFee,
		Tier:            tier,
	}, nil
}

// FormatBRL renders minor units as a provider-facing decimal string,
// e.g. 10050 -> "100.50".
func FormatBRL(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// ToMajor converts minor units to a float for providers whose wire
// format takes decimal numbers rather than strings.
func ToMajor(minor int64) float64 {
	f, _ := decimal.New(minor, -2).Float64()
	return f
}

// ParseMinor parses a provider decimal amount ("95.50") into minor units.
func ParseMinor(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
