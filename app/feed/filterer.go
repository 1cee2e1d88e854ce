package feed

import (
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run drops the items rejected by the source's include/exclude rules,
// keeping the order of the survivors.
func (f *Filterer) Run(items []Item, sourceConfig *Config) []Item {
	if len(sourceConfig.Filters) == 0 {
		return items
	}

	return lo.Filter(items, func(item Item, _ int) bool {
		excluded, reason := f.applyFilters(item, sourceConfig.Filters)
		if excluded {
			slog.Debug("Item filtered", "source", sourceConfig.Name, "title", item.Title, "reason", reason)
		}
		return !excluded
	})
}

func (f *Filterer) applyFilters(item Item, filters []ConfigFilter) (bool, string) {
	for _, filter := range filters {
		value := f.getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return true, "excluded by " + filter.Field + " filter: contains '" + exclude + "'"
			}
		}

		if len(filter.Includes) > 0 {
			matched := lo.ContainsBy(filter.Includes, func(include string) bool {
				return f.matchesFilter(value, include)
			})
			if !matched {
				return true, "excluded by " + filter.Field + " filter: no include matched"
			}
		}
	}

	return false, ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(item Item, field string) string {
	switch field {
	case "title":
		return item.Title
	case "description":
		return item.Description
	case "category":
		if item.Category == nil {
			return ""
		}
		return *item.Category
	default:
		return ""
	}
}
