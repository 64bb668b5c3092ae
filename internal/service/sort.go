package service

import (
	"sort"
	"time"
)

func sortByDateDesc[T any](items []T, date func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return date(items[i]).After(date(items[j]))
	})
}
