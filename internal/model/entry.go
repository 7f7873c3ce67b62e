package model

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseEntry reads a one-line todo entry:
//
//	Buy milk #errands !low -- two litres
//	Plan trip #"Home Office" \#12 \!high
//
// "#word" or #"quoted name" sets the category, "!word" the priority (when it
// names one) and everything after a standalone "--" is the description.
// Remaining words form the title; a leading backslash keeps a word that
// would otherwise be read as a tag.
func ParseEntry(s string) Values {
	var (
		v     Values
		title []string
	)
	for {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			break
		}
		if strings.HasPrefix(s, `#"`) {
			if q, err := strconv.QuotedPrefix(s[1:]); err == nil {
				if name, err := strconv.Unquote(q); err == nil {
					v.Category = name
					s = s[1+len(q):]
					continue
				}
			}
		}
		w := s
		if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
			w, s = s[:i], s[i:]
		} else {
			s = ""
		}
		switch {
		case w == "--":
			v.Description = strings.TrimSpace(s)
			s = ""
		case len(w) > 1 && w[0] == '\\' && isTagLike(w[1:]):
			title = append(title, w[1:])
		case len(w) > 1 && w[0] == '#':
			v.Category = w[1:]
		case len(w) > 1 && w[0] == '!':
			if p, ok := ParsePriority(w[1:]); ok {
				v.Priority = p
				continue
			}
			title = append(title, w)
		default:
			title = append(title, w)
		}
	}
	v.Title = strings.Join(title, " ")
	return v
}

// FormatEntry is the inverse of ParseEntry, used to prefill edit inputs.
// Runs of whitespace inside the title collapse to one space.
func FormatEntry(v Values) string {
	var parts []string
	for _, w := range strings.Fields(v.Title) {
		if isTagLike(w) {
			w = `\` + w
		}
		parts = append(parts, w)
	}
	if v.Category != "" {
		if strings.IndexFunc(v.Category, unicode.IsSpace) >= 0 || v.Category[0] == '"' {
			parts = append(parts, "#"+strconv.Quote(v.Category))
		} else {
			parts = append(parts, "#"+v.Category)
		}
	}
	if v.Priority != "" {
		parts = append(parts, "!"+string(v.Priority))
	}
	if v.Description != "" {
		parts = append(parts, "--", v.Description)
	}
	return strings.Join(parts, " ")
}

// isTagLike reports whether title word w needs a backslash to survive
// ParseEntry.
func isTagLike(w string) bool {
	switch {
	case w == "--":
		return true
	case len(w) > 1 && (w[0] == '#' || w[0] == '!'):
		return true
	case len(w) > 1 && w[0] == '\\':
		return isTagLike(w[1:])
	}
	return false
}
