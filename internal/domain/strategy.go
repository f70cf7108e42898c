package domain

// Strategy is a trade proposal drafted by the advisory provider. Every value
// is untrusted and loosely typed until sanitized by the strategy executor.
type Strategy struct {
	Action      any         `json:"action"`
	TradeParams TradeParams `json:"trade_params"`
}

type TradeParams struct {
	Symbol              any `json:"symbol"`
	EntryPrice          any `json:"entry_price"`
	StopLoss            any `json:"stop_loss"`
	TakeProfit          any `json:"take_profit"`
	TrailingStopPercent any `json:"trailing_stop_percent"`
	ScalingTargets      any `json:"scaling_targets"`
}

// TriggerKind names the automated exit rule that fired.
type TriggerKind string

const (
	TriggerStopLoss     TriggerKind = "stop_loss"
	TriggerTakeProfit   TriggerKind = "take_profit"
	TriggerTrailingStop TriggerKind = "trailing_stop"
	TriggerScaleOut     TriggerKind = "scale_out"
)

// Trigger describes an exit executed by the order monitor.
type Trigger struct {
	Symbol  string      `json:"symbol"`
	Kind    TriggerKind `json:"kind"`
	Price   float64     `json:"price"`
	Message string      `json:"message"`
}
