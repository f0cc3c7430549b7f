// Package numerator provides domain contracts for document auto-numbering.
package numerator

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict uses UPDATE ... RETURNING for every number.
	// Guarantees sequential numbers without gaps.
	// Slower, suitable for accounting documents.
	StrategyStrict Strategy = iota

	// StrategyCached allocates ranges of numbers in memory.
	// Much faster, but may produce gaps if application restarts.
	// Suitable for internal documents.
	StrategyCached
)

// Options configuration for number generation.
type Options struct {
	// Strategy to use for number generation
	Strategy Strategy
	// RangeSize is the number of IDs to allocate at once in Cached strategy.
	// Default is 50.
	RangeSize int64
}

// DefaultOptions returns standard options (Strict).
func DefaultOptions() *Options {
	return &Options{
		Strategy: StrategyStrict,
	}
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "ADJ", "PO")
	Prefix string

	// Separator between prefix and the rest ("-" or empty)
	Separator string

	// IncludeYear adds the 4-digit year to the number
	IncludeYear bool

	// IncludeMonth adds the 2-digit month to the number (requires IncludeYear)
	IncludeMonth bool

	// PadWidth is the minimum counter width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string
}

// AdjustmentConfig numbers stock adjustments: ADJ- plus a zero-padded
// global counter that never resets (ADJ-00001, ADJ-00002, ...).
func AdjustmentConfig() Config {
	return Config{
		Prefix:      "ADJ",
		Separator:   "-",
		PadWidth:    5,
		ResetPeriod: "never",
	}
}

// PurchaseConfig numbers purchase orders: PO + year + month + 4-digit
// counter that resets every month (PO2026090001).
func PurchaseConfig() Config {
	return Config{
		Prefix:       "PO",
		IncludeYear:  true,
		IncludeMonth: true,
		PadWidth:     4,
		ResetPeriod:  "month",
	}
}

// SaleConfig numbers POS sales: SL- + year + 5-digit counter that resets
// every year (SL-202600001).
func SaleConfig() Config {
	return Config{
		Prefix:      "SL",
		Separator:   "-",
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		Separator:   "-",
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}
