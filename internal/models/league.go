/**
 * Copyright 2025-present Green Moment
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// League is the ordered gamification tier a user occupies. Transitions only
// move forward; there is no demotion.
type League int

const (
	LeagueBronze League = iota
	LeagueSilver
	LeagueGold
	LeagueEmerald
	LeagueDiamond
)

var leagueNames = map[League]string{
	LeagueBronze:  "bronze",
	LeagueSilver:  "silver",
	LeagueGold:    "gold",
	LeagueEmerald: "emerald",
	LeagueDiamond: "diamond",
}

// promotionThresholds holds the grams CO2e a user must save in a closed
// month to advance OUT of each league. Diamond has no exit.
var promotionThresholds = map[League]decimal.Decimal{
	LeagueBronze:  decimal.NewFromInt(100),
	LeagueSilver:  decimal.NewFromInt(500),
	LeagueGold:    decimal.NewFromInt(700),
	LeagueEmerald: decimal.NewFromInt(1000),
}

func (l League) String() string {
	if name, ok := leagueNames[l]; ok {
		return name
	}
	return fmt.Sprintf("league(%d)", int(l))
}

// ParseLeague converts a stored league name back to its tier.
func ParseLeague(name string) (League, error) {
	for league, n := range leagueNames {
		if n == name {
			return league, nil
		}
	}
	return LeagueBronze, fmt.Errorf("unknown league %q", name)
}

// Next returns the league one tier above, and false from diamond.
func (l League) Next() (League, bool) {
	if l >= LeagueDiamond {
		return l, false
	}
	return l + 1, true
}

// PromotionThreshold returns the monthly grams CO2e needed to leave the
// league, and false when no promotion exists.
func (l League) PromotionThreshold() (decimal.Decimal, bool) {
	threshold, ok := promotionThresholds[l]
	return threshold, ok
}
