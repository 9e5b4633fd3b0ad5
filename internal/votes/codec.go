// Package votes stores a vote counter and other bookkeeping sections inside
// the free-text body of a GitHub issue.
package votes

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// MarkerPrefix identifies the vote counter inside an issue body
	MarkerPrefix = "👍 Votes:"

	// SectionSeparator precedes every section appended to a body
	SectionSeparator = "\n\n---\n"

	// DeviceInfoHeader starts the device information section
	DeviceInfoHeader = "**Device Information:**"

	// ContactHeader starts the optional contact line
	ContactHeader = "**Contact Email:**"
)

var markerPattern = regexp.MustCompile(`👍 Votes: (\d+)`)

// legacyMarkers were appended by older app builds and are hidden from display
var legacyMarkers = []string{
	"*Submitted via mobile app*",
	"Submitted via mobile app",
}

// Marker renders the vote marker for count.
func Marker(count int) string {
	if count < 0 {
		count = 0
	}
	return MarkerPrefix + " " + strconv.Itoa(count)
}

// Encode returns body with its vote marker set to count. The first existing
// marker is rewritten in place; otherwise a new section is appended.
func Encode(body string, count int) string {
	marker := Marker(count)
	if body == "" {
		return SectionSeparator + marker
	}

	if strings.Contains(body, MarkerPrefix) {
		if loc := markerPattern.FindStringIndex(body); loc != nil {
			return body[:loc[0]] + marker + body[loc[1]:]
		}
	}

	return body + SectionSeparator + marker
}

// Decode extracts the vote count from body. Missing or malformed markers
// decode as zero.
func Decode(body string) int {
	m := markerPattern.FindStringSubmatch(body)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Strip removes the vote, device information and legacy sections from body
// and trims surrounding whitespace. Everything from the earliest section
// start onward is discarded.
func Strip(body string) string {
	cut := -1
	markers := append([]string{MarkerPrefix, DeviceInfoHeader}, legacyMarkers...)
	for _, m := range markers {
		idx := sectionStart(body, m)
		if idx >= 0 && (cut < 0 || idx < cut) {
			cut = idx
		}
	}
	if cut >= 0 {
		body = body[:cut]
	}
	return strings.TrimSpace(body)
}

// sectionStart finds marker in body and backs up over a "---" rule directly
// above it, so the rule is discarded with the section.
func sectionStart(body, marker string) int {
	idx := strings.Index(body, marker)
	if idx < 0 {
		return -1
	}
	if strings.HasSuffix(body[:idx], "---\n") {
		idx -= len("---\n")
	}
	return idx
}
