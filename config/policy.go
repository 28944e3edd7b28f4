package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/vnkhanh/yearbook-server/services"
)

var Policy services.PokePolicy

// LoadPolicy reads the poke policy from the environment once at boot.
// The pair-per-day and lifetime-per-target rules default to off; flip
// POKE_PAIR_RULE / POKE_LIFETIME_RULE to "on" to reinstate them.
func LoadPolicy() {
	p := services.DefaultPokePolicy()

	if v := os.Getenv("POKE_DAILY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.DailyLimit = n
		}
	}
	if v := os.Getenv("POKE_PAIR_RULE"); v != "" {
		p.PairPerDayEnabled = v == "on" || v == "true" || v == "1"
	}
	if v := os.Getenv("POKE_LIFETIME_RULE"); v != "" {
		p.LifetimeCapEnabled = v == "on" || v == "true" || v == "1"
	}
	if v := os.Getenv("POKE_LIFETIME_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.LifetimePerTargetCap = n
		}
	}
	if v := os.Getenv("POKE_REACTIONS"); v != "" {
		reactions := []string{}
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				reactions = append(reactions, r)
			}
		}
		if len(reactions) > 0 {
			p.AllowedReactions = reactions
		}
	}

	Policy = p
}
