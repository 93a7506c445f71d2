// Package naming holds the naming conventions of guildsync entities: course
// numbers, course role suffixes, level categories and club slugs.
package naming

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	// CoursePrefix starts every course role, channel and category name
	CoursePrefix = "cs-"
	// ClubPrefix starts every club role and channel name and the club category
	ClubPrefix = "club"
	// VerificationPrefix is shared by the verification role and gate channel
	VerificationPrefix = "verif"

	ClubCategoryName        = "clubs"
	VerifiedRoleName        = "verified"
	VerificationChannelName = "verification"

	courseDigits = 4
	levelSuffix  = "-level"
)

var (
	ErrInvalidCourse = errors.New("invalid course number")
	ErrInvalidClub   = errors.New("invalid club name")
)

// Suffix modifies a course role and changes the permission set it receives
type Suffix string

const (
	SuffixNone      Suffix = ""
	SuffixTA        Suffix = "ta"
	SuffixProfessor Suffix = "prof"
)

// Suffixes lists every course suffix in display order: professor and TA roles
// sort before the unsuffixed student role.
var Suffixes = []Suffix{SuffixProfessor, SuffixTA, SuffixNone}

// Rank returns the display rank of the suffix, lower first
func (s Suffix) Rank() int {
	for i, x := range Suffixes {
		if x == s {
			return i
		}
	}
	return len(Suffixes)
}

// Canonical normalizes a remote entity name for matching
func Canonical(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParseCourseNumber accepts "3500", "cs3500", "CS 3500" or "cs-3500" and
// returns the bare course number.
func ParseCourseNumber(s string) (string, error) {
	n := Canonical(s)
	n = strings.TrimPrefix(n, "cs")
	n = strings.TrimLeft(n, " -_")
	if len(n) != courseDigits {
		return "", fmt.Errorf("%w: %q", ErrInvalidCourse, s)
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCourse, s)
		}
	}
	if n[0] == '0' {
		return "", fmt.Errorf("%w: %q", ErrInvalidCourse, s)
	}
	return n, nil
}

// CourseRoleName returns the role name for a course and suffix, e.g. "cs-3500-ta"
func CourseRoleName(course string, suffix Suffix) string {
	if suffix == SuffixNone {
		return CoursePrefix + course
	}
	return CoursePrefix + course + "-" + string(suffix)
}

// ParseCourseRoleName is the inverse of CourseRoleName
func ParseCourseRoleName(name string) (string, Suffix, bool) {
	n := Canonical(name)
	if !strings.HasPrefix(n, CoursePrefix) {
		return "", SuffixNone, false
	}
	rest := strings.TrimPrefix(n, CoursePrefix)
	course, suffix, hasSuffix := strings.Cut(rest, "-")
	if _, err := ParseCourseNumber(course); err != nil || len(course) != courseDigits {
		return "", SuffixNone, false
	}
	if !hasSuffix {
		return course, SuffixNone, true
	}
	switch Suffix(suffix) {
	case SuffixTA, SuffixProfessor:
		return course, Suffix(suffix), true
	}
	return "", SuffixNone, false
}

// CourseChannelName returns the text or voice channel name for a course
func CourseChannelName(course string) string {
	return CoursePrefix + course
}

// ParseCourseChannelName is the inverse of CourseChannelName
func ParseCourseChannelName(name string) (string, bool) {
	course, suffix, ok := ParseCourseRoleName(name)
	if !ok || suffix != SuffixNone {
		return "", false
	}
	return course, true
}

// CourseLevel returns the thousand-level of a course, e.g. "3000" for "3500"
func CourseLevel(course string) string {
	if course == "" {
		return ""
	}
	return course[:1] + strings.Repeat("0", courseDigits-1)
}

// CourseCategoryName returns the category grouping a course level, e.g. "cs-3000-level"
func CourseCategoryName(level string) string {
	return CoursePrefix + level + levelSuffix
}

// ParseCourseCategoryName is the inverse of CourseCategoryName
func ParseCourseCategoryName(name string) (string, bool) {
	n := Canonical(name)
	if !strings.HasPrefix(n, CoursePrefix) || !strings.HasSuffix(n, levelSuffix) {
		return "", false
	}
	level := strings.TrimSuffix(strings.TrimPrefix(n, CoursePrefix), levelSuffix)
	if _, err := ParseCourseNumber(level); err != nil || CourseLevel(level) != level {
		return "", false
	}
	return level, true
}

// ClubSlug converts a free-form club name into its canonical slug,
// e.g. "Chess & Go Club" becomes "chess-go-club".
func ClubSlug(name string) (string, error) {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidClub, name)
	}
	return b.String(), nil
}

// ClubEntityName returns the role and channel name of a club slug
func ClubEntityName(slug string) string {
	return ClubPrefix + "-" + slug
}

// ParseClubEntityName is the inverse of ClubEntityName
func ParseClubEntityName(name string) (string, bool) {
	n := Canonical(name)
	slug, ok := strings.CutPrefix(n, ClubPrefix+"-")
	if !ok || slug == "" {
		return "", false
	}
	if s, err := ClubSlug(slug); err != nil || s != slug {
		return "", false
	}
	return slug, true
}
