package utils

import "strings"

// SplitList splits a comma separated value, trimming blanks and dropping empty entries.
func SplitList(value string) []string {
	list := make([]string, 0)
	for _, v := range strings.Split(value, ",") {
		if s := strings.TrimSpace(v); s != "" {
			list = append(list, s)
		}
	}
	return list
}
