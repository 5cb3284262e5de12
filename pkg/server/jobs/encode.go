package jobs

import (
	"encoding/base64"
	"slices"
	"strconv"
	"strings"
)

// Signature groups the runes of input by code point, in ascending order, and
// renders each group as the rune followed by its count.
//
//	Signature("Hello") == "H1e1l2o1"
func Signature(input string) string {
	counts := make(map[rune]int)
	for _, r := range input {
		counts[r]++
	}

	keys := make([]rune, 0, len(counts))
	for r := range counts {
		keys = append(keys, r)
	}
	slices.Sort(keys)

	var sb strings.Builder
	for _, r := range keys {
		sb.WriteRune(r)
		sb.WriteString(strconv.Itoa(counts[r]))
	}
	return sb.String()
}

// Encode returns the streamed result for input: its signature, a slash, and
// the standard padded base64 encoding of its UTF-8 bytes.
//
//	Encode("Hello") == "H1e1l2o1/SGVsbG8="
func Encode(input string) string {
	return Signature(input) + "/" + base64.StdEncoding.EncodeToString([]byte(input))
}
