package config

// CalendarConfig describes the trading calendar: the exchange time zone and the
// ordered list of markets whose rules map instrument ids to sessions.
type CalendarConfig struct {
	Timezone string         `mapstructure:"timezone"` // IANA zone, e.g. "Asia/Shanghai"; empty means local
	Markets  []MarketConfig `mapstructure:"markets"`
}

// MarketConfig is one exchange. Rules are evaluated in order.
type MarketConfig struct {
	Name  string       `mapstructure:"name"`
	Codes []string     `mapstructure:"codes"` // product codes routed to this market (optional)
	Rules []RuleConfig `mapstructure:"rules"`
}

// RuleConfig binds an instrument id pattern to its sessions,
// written as "HH:MM[:SS]-HH:MM[:SS]".
type RuleConfig struct {
	Pattern  string   `mapstructure:"pattern"`
	Sessions []string `mapstructure:"sessions"`
}
