package model

// AppConfig holds application-wide preferences and default settings.
type AppConfig struct {
	// Default optimizer settings applied to new jobs
	DefaultStockLength      int     `json:"default_stock_length" toml:"default_stock_length"`
	DefaultDemandPolicy     string  `json:"default_demand_policy" toml:"default_demand_policy"`
	DefaultSolveTimeoutSec  float64 `json:"default_solve_timeout_sec" toml:"default_solve_timeout_sec"`
	DefaultNodeLimit        int     `json:"default_node_limit" toml:"default_node_limit"`
	DefaultSymmetryBreaking bool    `json:"default_symmetry_breaking" toml:"default_symmetry_breaking"`
	DefaultParallel         int     `json:"default_parallel" toml:"default_parallel"`
	DefaultMinOffcut        int     `json:"default_min_offcut" toml:"default_min_offcut"`
	DefaultWastePercent     float64 `json:"default_waste_percent" toml:"default_waste_percent"`
	DefaultPricePerBar      float64 `json:"default_price_per_bar" toml:"default_price_per_bar"`

	// Application preferences
	DBPath     string   `json:"db_path" toml:"db_path"`         // Run history database, empty = disabled
	ListenAddr string   `json:"listen_addr" toml:"listen_addr"` // Address for "barcut serve"
	RecentJobs []string `json:"recent_jobs" toml:"recent_jobs"`
}

// DefaultAppConfig returns an AppConfig populated with sensible defaults
// matching the values from DefaultSettings().
func DefaultAppConfig() AppConfig {
	defaults := DefaultSettings()
	return AppConfig{
		DefaultStockLength:      defaults.StockLength,
		DefaultDemandPolicy:     string(defaults.DemandPolicy),
		DefaultSolveTimeoutSec:  defaults.SolveTimeoutSec,
		DefaultNodeLimit:        defaults.NodeLimit,
		DefaultSymmetryBreaking: defaults.SymmetryBreaking,
		DefaultParallel:         defaults.Parallel,
		DefaultMinOffcut:        defaults.MinOffcut,
		DefaultWastePercent:     defaults.WastePercent,
		DefaultPricePerBar:      defaults.PricePerBar,
		DBPath:                  "",
		ListenAddr:              ":8080",
		RecentJobs:              []string{},
	}
}

// ApplyToSettings copies the default values from AppConfig into a CutSettings struct.
// This is used when creating a new job so it inherits the user's saved defaults.
// Per-job values (max bars, big-M) are left untouched.
func (c AppConfig) ApplyToSettings(s *CutSettings) {
	s.StockLength = c.DefaultStockLength
	s.DemandPolicy = DemandPolicy(c.DefaultDemandPolicy)
	s.SolveTimeoutSec = c.DefaultSolveTimeoutSec
	s.NodeLimit = c.DefaultNodeLimit
	s.SymmetryBreaking = c.DefaultSymmetryBreaking
	s.Parallel = c.DefaultParallel
	s.MinOffcut = c.DefaultMinOffcut
	s.WastePercent = c.DefaultWastePercent
	s.PricePerBar = c.DefaultPricePerBar
}
