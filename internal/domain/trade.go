package domain

// SimulatedTrade is the replayed outcome of one directional decision.
// Prices and PnL are fixed point ×1e8; R-multiple and excursions are ×1e4.
type SimulatedTrade struct {
	TradeID  string // deterministic hash of signal and scenario
	SignalID string
	Symbol   string
	Side     Side

	EntryPrice   Amount  // after slippage
	StopLoss     *Amount // nil when the decision had no stop
	TrailingDist *Amount // nil when trailing is disabled
	TPLevels     []PartialTPLevel
	Quantity     Amount // base units
	Fills        []Fill

	OpenedAt int64 // ms
	ClosedAt int64 // ms

	Outcome   string // see Outcome* constants
	PnL       Amount // net of fees and slippage
	RMultiple Ratio
	Label     int // -2..2

	MaxFavorableExcursion Ratio // percent, >= 0
	MaxAdverseExcursion   Ratio // percent, >= 0
	DurationMs            int64
	TimeToMFEMs           int64
	TimeToMAEMs           int64
}

// Fill is one partial or full exit.
type Fill struct {
	TimestampMs int64
	Price       Amount  // after slippage
	Fraction    float64 // of the original quantity
	Reason      string  // see Exit* constants
}

// Outcome tags
const (
	OutcomeTP         = "tp"
	OutcomePartialTP  = "partial_tp"
	OutcomeSL         = "sl"
	OutcomeTrailingSL = "trailing_sl"
	OutcomeTimeout    = "timeout"
)

// Exit reason codes
const (
	ExitReasonTakeProfit   = "TAKE_PROFIT"
	ExitReasonInitialStop  = "INITIAL_STOP"
	ExitReasonTrailingStop = "TRAILING_STOP"
	ExitReasonMaxDuration  = "MAX_DURATION"
	ExitReasonEndOfData    = "END_OF_DATA"
)

// Outcome class constants
const (
	OutcomeClassWin  = "WIN"
	OutcomeClassLoss = "LOSS"
)
