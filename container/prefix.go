package container

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kundazip/kunda"
)

// prefixThreshold is the minimum number of paths that must share a
// directory prefix for it to be hoisted into the table. The value is a
// format-compatibility constant.
const prefixThreshold = 3

// BuildPrefixTable analyzes the paths of all records and returns the
// directory prefixes worth hoisting, longest first. The returned order is
// load-bearing: entry indices are the references written into encoded
// paths, and length-descending order makes a first-match scan a greedy
// longest-prefix match.
//
// Tallying caps out at MaxPrefixes distinct candidates; once the cap is
// reached, new distinct prefixes are silently ignored. Archives with zero
// or one file get no table.
func BuildPrefixTable(records []*kunda.FileRecord) []kunda.PrefixEntry {
	if len(records) <= 1 {
		return nil
	}

	counts := make(map[string]int)
	var order []string

	for _, record := range records {
		path := record.Path
		for i := 0; i < len(path); i++ {
			if path[i] != '/' {
				continue
			}
			prefix := path[:i+1]
			if _, seen := counts[prefix]; seen {
				counts[prefix]++
			} else if len(order) < kunda.MaxPrefixes {
				counts[prefix] = 1
				order = append(order, prefix)
			}
		}
	}

	var table []kunda.PrefixEntry
	for _, prefix := range order {
		if counts[prefix] >= prefixThreshold {
			table = append(table, kunda.PrefixEntry{Prefix: prefix, Count: counts[prefix]})
		}
	}

	// Stable so equal-length prefixes keep first-seen order.
	sort.SliceStable(table, func(i, j int) bool {
		return len(table[i].Prefix) > len(table[j].Prefix)
	})
	return table
}

// encodePath rewrites a path against the prefix table. The table is
// ordered longest-first, so the first match is the most specific one. A
// path matching prefix i becomes "$i$" plus the remainder; a path matching
// nothing is returned unchanged.
func encodePath(path string, prefixes []kunda.PrefixEntry) string {
	for i, entry := range prefixes {
		if strings.HasPrefix(path, entry.Prefix) {
			return "$" + strconv.Itoa(i) + "$" + path[len(entry.Prefix):]
		}
	}
	return path
}

// expandPath undoes encodePath given the decoded prefix table. Paths not
// matching the "$<digits>$" pattern are taken literally.
func expandPath(path string, prefixes []string) (string, error) {
	if len(path) < 3 || path[0] != '$' {
		return path, nil
	}
	end := strings.IndexByte(path[1:], '$')
	if end < 1 {
		return path, nil
	}
	end++ // index within path of the closing '$'

	index, err := strconv.Atoi(path[1:end])
	if err != nil || index < 0 || path[1] == '+' || path[1] == '-' {
		return path, nil
	}
	if index >= len(prefixes) {
		return "", kunda.ErrBadPrefixReference.WithMessage(path)
	}
	return prefixes[index] + path[end+1:], nil
}
