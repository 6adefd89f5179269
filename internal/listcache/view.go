package listcache

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"resumeBuilder/internal/resume"
)

// SortBy 列表排序方式。
type SortBy string

const (
	SortByDate SortBy = "date"
	SortByName SortBy = "name"
)

// Filter 列表过滤方式。
type Filter string

const (
	FilterAll       Filter = "all"
	FilterRecent    Filter = "recent"
	FilterFavorites Filter = "favorites"
)

// ParseSort maps a query value to SortBy; empty means by date.
func ParseSort(s string) (SortBy, error) {
	switch v := SortBy(strings.ToLower(s)); v {
	case "", SortByDate:
		return SortByDate, nil
	case SortByName:
		return v, nil
	default:
		return "", fmt.Errorf("unknown sort %q", s)
	}
}

// ParseFilter maps a query value to Filter; empty means all.
func ParseFilter(s string) (Filter, error) {
	switch v := Filter(strings.ToLower(s)); v {
	case "", FilterAll:
		return FilterAll, nil
	case FilterRecent, FilterFavorites:
		return v, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

// View derives a sorted and filtered copy of the cached set. Nothing is
// stored; every call recomputes from the current items.
func (c *Cache) View(sortBy SortBy, filter Filter, now time.Time) []resume.ListItem {
	return view(c.Items(), sortBy, filter, now, c.window)
}

func view(items []resume.ListItem, sortBy SortBy, filter Filter, now time.Time, window time.Duration) []resume.ListItem {
	out := items[:0]
	cutoff := now.Add(-window)
	for _, it := range items {
		switch filter {
		case FilterRecent:
			if it.LastUpdated.Before(cutoff) {
				continue
			}
		case FilterFavorites:
			if !it.Favorite {
				continue
			}
		}
		out = append(out, it)
	}

	switch sortBy {
	case SortByName:
		slices.SortStableFunc(out, func(a, b resume.ListItem) int {
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		})
	default:
		slices.SortStableFunc(out, func(a, b resume.ListItem) int {
			return b.LastUpdated.Compare(a.LastUpdated)
		})
	}
	return out
}

// Search matches query case-insensitively against title, name and job title.
// Results are ordered by date.
func (c *Cache) Search(query string) []resume.ListItem {
	q := strings.ToLower(strings.TrimSpace(query))
	items := c.Items()
	out := items[:0]
	for _, it := range items {
		if q == "" || matches(it, q) {
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b resume.ListItem) int {
		return b.LastUpdated.Compare(a.LastUpdated)
	})
	return out
}

func matches(it resume.ListItem, q string) bool {
	fields := []string{
		it.Title,
		it.Personal.FirstName + " " + it.Personal.LastName,
		it.Personal.JobTitle,
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Stats 是仪表盘顶部的汇总信息。
type Stats struct {
	Total         int       `json:"total"`
	Favorites     int       `json:"favorites"`
	LastUpdated   time.Time `json:"lastUpdated,omitzero"`
	MostUsedTheme string    `json:"mostUsedTheme,omitempty"`
}

// Stats summarizes the cached set. Theme ties go to the lexically smallest.
func (c *Cache) Stats() Stats {
	items := c.Items()
	st := Stats{Total: len(items)}
	themes := map[string]int{}
	for _, it := range items {
		if it.Favorite {
			st.Favorites++
		}
		if it.LastUpdated.After(st.LastUpdated) {
			st.LastUpdated = it.LastUpdated
		}
		if it.ThemeColor != "" {
			themes[it.ThemeColor]++
		}
	}
	best := 0
	for theme, n := range themes {
		if n > best || (n == best && theme < st.MostUsedTheme) {
			best, st.MostUsedTheme = n, theme
		}
	}
	return st
}

// Titles lists every cached title, used to keep generated titles unique.
func (c *Cache) Titles() []string {
	items := c.Items()
	titles := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.Title)
	}
	return titles
}
