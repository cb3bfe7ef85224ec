// Package calendar maps instruments to their trading sessions and decides
// whether a tick's time-of-day falls inside one of them.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"marketwatcher/config"
)

// ErrNotFound is returned for an instrument no market rule matches.
var ErrNotFound = errors.New("no trading sessions for instrument")

// Rule binds an instrument predicate to the sessions it grants.
type Rule struct {
	Market   string
	Match    func(instrumentID string) bool
	Sessions []Session
}

// Market is an exchange with an ordered rule list. When Codes is non-empty
// only instruments whose product code is listed are routed to it.
type Market struct {
	Name  string
	Codes []string
	Rules []Rule
}

func (m Market) routes(product string) bool {
	for _, c := range m.Codes {
		if c == product {
			return true
		}
	}
	return false
}

// Calendar is the read-only instrument → sessions table for one run.
type Calendar struct {
	loc      *time.Location
	sessions map[string][]Session
	markets  map[string]string
}

// New resolves every instrument against markets. Instruments with no match are
// returned in unscheduled, in input order, and have no sessions.
func New(loc *time.Location, markets []Market, instruments []string) (cal *Calendar, unscheduled []string) {
	if loc == nil {
		loc = time.Local
	}
	cal = &Calendar{
		loc:      loc,
		sessions: make(map[string][]Session, len(instruments)),
		markets:  make(map[string]string, len(instruments)),
	}
	for _, id := range instruments {
		rule, ok := lookup(markets, id)
		if !ok {
			unscheduled = append(unscheduled, id)
			continue
		}
		cal.sessions[id] = append([]Session(nil), rule.Sessions...)
		cal.markets[id] = rule.Market
	}
	return cal, unscheduled
}

// lookup returns the first rule matching id, in market-then-rule order.
// A market that routes id's product code ends the search whether or not
// one of its rules matches.
func lookup(markets []Market, id string) (Rule, bool) {
	product := ProductCode(id)
	for _, m := range markets {
		if len(m.Codes) > 0 && !m.routes(product) {
			continue
		}
		for _, r := range m.Rules {
			if r.Match(id) {
				return r, true
			}
		}
		if len(m.Codes) > 0 {
			return Rule{}, false
		}
	}
	return Rule{}, false
}

// SessionsFor returns the ordered sessions of an instrument.
func (c *Calendar) SessionsFor(instrumentID string) ([]Session, error) {
	s, ok := c.sessions[instrumentID]
	if !ok || len(s) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, instrumentID)
	}
	return s, nil
}

// MarketOf returns the market name an instrument was resolved to.
func (c *Calendar) MarketOf(instrumentID string) string {
	return c.markets[instrumentID]
}

// Location is the zone sessions are expressed in.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// ProductCode returns the leading letters of an instrument id ("cu" for "cu2501").
func ProductCode(instrumentID string) string {
	i := strings.IndexFunc(instrumentID, func(r rune) bool { return !unicode.IsLetter(r) })
	if i < 0 {
		return instrumentID
	}
	return instrumentID[:i]
}

// PatternRule builds a rule whose pattern must match the whole instrument id.
func PatternRule(market, pattern string, sessions []Session) (Rule, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return Rule{}, fmt.Errorf("market %s: compile pattern %q: %w", market, pattern, err)
	}
	return Rule{Market: market, Match: re.MatchString, Sessions: sessions}, nil
}

// MarketsFromConfig compiles the configured markets, preserving order.
func MarketsFromConfig(cfgs []config.MarketConfig) ([]Market, error) {
	markets := make([]Market, 0, len(cfgs))
	for _, mc := range cfgs {
		m := Market{Name: mc.Name, Codes: mc.Codes}
		for _, rc := range mc.Rules {
			sessions := make([]Session, 0, len(rc.Sessions))
			for _, raw := range rc.Sessions {
				s, err := ParseSession(raw)
				if err != nil {
					return nil, fmt.Errorf("market %s: %w", mc.Name, err)
				}
				sessions = append(sessions, s)
			}
			rule, err := PatternRule(mc.Name, rc.Pattern, sessions)
			if err != nil {
				return nil, err
			}
			m.Rules = append(m.Rules, rule)
		}
		markets = append(markets, m)
	}
	return markets, nil
}

// LoadLocation resolves the configured zone name; empty means time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return loc, nil
}
