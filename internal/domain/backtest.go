package domain

// BacktestResult aggregates one harness run over a single symbol.
type BacktestResult struct {
	RunID  string // deterministic hash of symbol, config and data range
	Symbol string

	InitialCapital Amount
	FinalCapital   Amount
	TotalPnLPct    Ratio

	TotalTrades          int
	Wins                 int
	Losses               int
	MaxConsecutiveLosses int
	WinRate              Ratio // percent
	MaxDrawdownPct       Ratio
	SharpeRatio          Ratio
	ProfitFactor         Ratio
	Expectancy           Amount // per trade
	PayoffRatio          Ratio
	TimeInMarketPct      Ratio
	AvgTradePnLPct       Ratio // of initial capital
	AvgHoldingMs         int64

	StartMs int64
	EndMs   int64

	Trades      []TradeLog
	EquityCurve []EquityPoint
}

// TradeLog is one closed backtest position.
type TradeLog struct {
	Seq        int
	SignalID   string
	Side       Side
	EntryMs    int64
	ExitMs     int64
	EntryPrice Amount
	ExitPrice  Amount // quantity-weighted average over fills
	Quantity   Amount
	Reserved   Amount // capital set aside at entry
	Fees       Amount
	PnL        Amount // net
	PnLPct     Ratio  // of reserved capital
	Outcome    string
	ExitReason string
	RMultiple  Ratio
	Label      int
	Confidence Ratio
}

// EquityPoint is account value at the close of one bar.
type EquityPoint struct {
	TimestampMs int64
	Equity      Amount
}
