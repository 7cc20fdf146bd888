package strategy

import (
	"github.com/shopspring/decimal"

	"tradeArena/internal/domain"
)

// ProfileKind separates the baseline archetypes from free agents.
type ProfileKind string

const (
	KindBaseline  ProfileKind = "baseline"
	KindFreeAgent ProfileKind = "free_agent"
)

// Profile is the constraint profile bound to one archetype.
type Profile struct {
	ID    domain.Archetype
	Name  string
	Kind  ProfileKind
	Rules []string

	MaxPositionFraction       decimal.NullDecimal
	MinCashFraction           decimal.NullDecimal
	MaxCashFraction           decimal.NullDecimal
	RestrictedUniverse        bool
	DisallowCrypto            bool
	DisallowLeverage          bool
	MinDividendYield          decimal.NullDecimal
	RequiresTechnicalCitation bool
	MaxNonHedgeFraction       decimal.NullDecimal
	RequiresHedge             bool

	Policy Policy
}

// NeedsDividendYield reports whether buys under this profile must be supplied a yield.
func (p *Profile) NeedsDividendYield() bool {
	return p.MinDividendYield.Valid
}

// Catalog maps archetype ids to profiles. It is immutable once built.
type Catalog struct {
	profiles      map[domain.Archetype]*Profile
	order         []domain.Archetype
	unconstrained *Profile
}

func frac(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// NewCatalog builds the catalog with the five baseline archetypes and the unconstrained profile.
func NewCatalog() *Catalog {
	turtle := &Profile{
		ID:   domain.ArchetypeTurtle,
		Name: "Turtle",
		Kind: KindBaseline,
		Rules: []string{
			"Max 5% of portfolio per position",
			"Min 30% cash at all times",
			"S&P 500 stocks and major ETFs only",
		},
		MaxPositionFraction: frac("0.05"),
		MinCashFraction:     frac("0.30"),
		RestrictedUniverse:  true,
	}
	degen := &Profile{
		ID:   domain.ArchetypeDegen,
		Name: "Degen",
		Kind: KindBaseline,
		Rules: []string{
			"Max 20% cash (must stay invested)",
			"Leveraged ETFs and meme stocks encouraged",
		},
		MaxCashFraction: frac("0.20"),
	}
	boomer := &Profile{
		ID:   domain.ArchetypeBoomer,
		Name: "Boomer",
		Kind: KindBaseline,
		Rules: []string{
			"Only dividend-paying stocks with 1%+ yield",
			"No crypto-related stocks (COIN, MARA, RIOT, etc.)",
			"No leveraged ETFs",
		},
		DisallowCrypto:   true,
		DisallowLeverage: true,
		MinDividendYield: frac("0.01"),
	}
	quant := &Profile{
		ID:   domain.ArchetypeQuant,
		Name: "Quant",
		Kind: KindBaseline,
		Rules: []string{
			"Must cite technical indicator for every trade",
			"RSI, MACD, MA, Bollinger Bands, etc.",
		},
		RequiresTechnicalCitation: true,
	}
	doomer := &Profile{
		ID:   domain.ArchetypeDoomer,
		Name: "Doomer",
		Kind: KindBaseline,
		Rules: []string{
			"Max 30% in long equity positions",
			"Must maintain hedge positions (SQQQ, UVXY, SH, GLD, etc.)",
		},
		MaxNonHedgeFraction: frac("0.30"),
		RequiresHedge:       true,
	}
	unconstrained := &Profile{
		ID:    domain.ArchetypeUnconstrained,
		Name:  "Free Agent",
		Kind:  KindFreeAgent,
		Rules: []string{"No trading constraints"},
	}

	c := &Catalog{profiles: map[domain.Archetype]*Profile{}, unconstrained: unconstrained}
	for _, p := range []*Profile{turtle, degen, boomer, quant, doomer, unconstrained} {
		p.Policy = policyFor(p)
		c.profiles[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c
}

// policyFor turns a profile's declared fields into its policy variant. Called once per profile.
func policyFor(p *Profile) Policy {
	switch p.ID {
	case domain.ArchetypeTurtle:
		universe := NewSymbolSet()
		if p.RestrictedUniverse {
			universe = restrictedUniverse
		}
		return RestrictedUniverse{
			Universe:            universe,
			MaxPositionFraction: p.MaxPositionFraction,
			MinCashFraction:     p.MinCashFraction,
		}
	case domain.ArchetypeDegen:
		return AlwaysInvested{MaxCashFraction: p.MaxCashFraction.Decimal}
	case domain.ArchetypeBoomer:
		return Income{
			MinDividendYield: p.MinDividendYield.Decimal,
			DisallowCrypto:   p.DisallowCrypto,
			DisallowLeverage: p.DisallowLeverage,
			Crypto:           cryptoProxies,
			Leveraged:        leveragedSymbols,
		}
	case domain.ArchetypeQuant:
		return CitationRequired{}
	case domain.ArchetypeDoomer:
		return Hedged{
			Hedges:              hedgeSymbols,
			MaxNonHedgeFraction: p.MaxNonHedgeFraction,
			RequiresHedge:       p.RequiresHedge,
		}
	default:
		return Unconstrained{}
	}
}

// ProfileFor returns the profile for an archetype, falling back to the unconstrained profile.
func (c *Catalog) ProfileFor(id domain.Archetype) *Profile {
	if p, ok := c.profiles[id]; ok {
		return p
	}
	return c.unconstrained
}

// Profiles lists every profile, baseline archetypes first.
func (c *Catalog) Profiles() []*Profile {
	out := make([]*Profile, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.profiles[id])
	}
	return out
}

// RosterEntry describes one agent seeded into a fresh arena.
type RosterEntry struct {
	ID        string
	Name      string
	Archetype domain.Archetype
}

// DefaultRoster returns the five baseline agents followed by the five free agents.
func DefaultRoster() []RosterEntry {
	return []RosterEntry{
		{ID: "turtle", Name: "Turtle", Archetype: domain.ArchetypeTurtle},
		{ID: "degen", Name: "Degen", Archetype: domain.ArchetypeDegen},
		{ID: "boomer", Name: "Boomer", Archetype: domain.ArchetypeBoomer},
		{ID: "quant", Name: "Quant", Archetype: domain.ArchetypeQuant},
		{ID: "doomer", Name: "Doomer", Archetype: domain.ArchetypeDoomer},
		{ID: "gary", Name: "Gary", Archetype: domain.ArchetypeUnconstrained},
		{ID: "diana", Name: "Diana", Archetype: domain.ArchetypeUnconstrained},
		{ID: "mel", Name: "Mel", Archetype: domain.ArchetypeUnconstrained},
		{ID: "vince", Name: "Vince", Archetype: domain.ArchetypeUnconstrained},
		{ID: "rei", Name: "Rei", Archetype: domain.ArchetypeUnconstrained},
	}
}
