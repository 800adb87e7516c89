// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package label

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// tieRank orders effect groups with equal counts.
var tieRank = map[Effect]int{Bad: 0, Neutral: 1, Good: 2, Unknown: 3}

// Order sorts ingredients in place: effect groups by descending size, ties
// broken Bad, Neutral, Good, Unknown; names collated within a group.
func Order(items []Ingredient, lang string) {
	counts := map[Effect]int{}
	for _, it := range items {
		counts[it.Effect]++
	}

	groups := []Effect{Bad, Neutral, Good, Unknown}
	sort.SliceStable(groups, func(i, j int) bool {
		if counts[groups[i]] != counts[groups[j]] {
			return counts[groups[i]] > counts[groups[j]]
		}
		return tieRank[groups[i]] < tieRank[groups[j]]
	})
	rank := make(map[Effect]int, len(groups))
	for i, g := range groups {
		rank[g] = i
	}

	col := collate.New(collatorTag(lang), collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := rank[items[i].Effect], rank[items[j].Effect]
		if ri != rj {
			return ri < rj
		}
		return col.CompareString(items[i].Name, items[j].Name) < 0
	})
}

func collatorTag(lang string) language.Tag {
	if lang == "" {
		return language.English
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	return tag
}
