package pricing

// Stage identifies one discount stage of the pipeline.
type Stage string

const (
	StageOriginal Stage = "original"
	StageSeller   Stage = "seller"
	StageVolume   Stage = "volume"
	StageCoupon   Stage = "coupon"
)

var stageLabels = map[Stage]string{
	StageOriginal: "Precio Original",
	StageSeller:   "Descuento Vendedor",
	StageVolume:   "Descuento por Volumen",
	StageCoupon:   "Cupón",
}

// DiscountStep is one line of a discount trail.
type DiscountStep struct {
	Stage             Stage   `json:"stage"`
	Label             string  `json:"label"`
	UnitPrice         Money   `json:"unit_price"`
	PercentageApplied float64 `json:"percentage_applied"`
	IsDiscount        bool    `json:"is_discount"`
}

// StagedResult holds the unrounded output of every stage.
type StagedResult struct {
	Original    Money
	AfterSeller Money
	AfterVolume Money
	Final       Money
	Steps       []DiscountStep
}

// ApplyDiscounts runs seller, volume and coupon discounts in that fixed order,
// each on the previous stage's output. Only non-zero stages emit a step.
// Inputs are expected to be validated already.
func ApplyDiscounts(original Money, sellerPct, volumePct, couponPct float64) StagedResult {
	res := StagedResult{Original: original}
	price := original

	price = res.apply(price, StageSeller, sellerPct)
	res.AfterSeller = price
	price = res.apply(price, StageVolume, volumePct)
	res.AfterVolume = price
	price = res.apply(price, StageCoupon, couponPct)
	res.Final = price
	return res
}

func (r *StagedResult) apply(price Money, stage Stage, pct float64) Money {
	if pct <= 0 {
		return price
	}
	next := price.Mul(remainingFactor(pct))
	r.Steps = append(r.Steps, DiscountStep{
		Stage:             stage,
		Label:             stageLabels[stage] + " " + formatPercent(pct) + "%",
		UnitPrice:         next,
		PercentageApplied: pct,
		IsDiscount:        true,
	})
	return next
}

func originalStep(price Money) DiscountStep {
	return DiscountStep{Stage: StageOriginal, Label: stageLabels[StageOriginal], UnitPrice: round2(price)}
}

// roundedSteps returns a copy of steps with prices rounded to cents for display.
func roundedSteps(steps []DiscountStep) []DiscountStep {
	out := make([]DiscountStep, len(steps))
	for i, step := range steps {
		step.UnitPrice = round2(step.UnitPrice)
		out[i] = step
	}
	return out
}
