// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package modelsettings

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortByPriority orders items by default first, then enabled first when
// withEnabled is set, then name by locale collation. Ties keep input order.
func sortByPriority[T any](items []T, key func(T) (isDefault, enabled bool, name string), withEnabled bool) {
	// A Collator is not safe for concurrent use, so each sort gets its own.
	col := collate.New(language.Und)
	sort.SliceStable(items, func(a, b int) bool {
		da, ea, na := key(items[a])
		db, eb, nb := key(items[b])
		if da != db {
			return da
		}
		if withEnabled && ea != eb {
			return ea
		}
		return col.CompareString(na, nb) < 0
	})
}

// SortModels orders a full-view list: default, enabled, then name.
func SortModels(models []ModelView) {
	sortByPriority(models, func(m ModelView) (bool, bool, string) {
		return m.IsDefault, m.Enabled, m.Name
	}, true)
}

// SortResolved orders a resolver list: default, then name.
func SortResolved(models []ResolvedModel) {
	sortByPriority(models, func(m ResolvedModel) (bool, bool, string) {
		return m.IsDefault, false, m.Name
	}, false)
}
