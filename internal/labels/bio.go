package labels

import "strings"

// Flatten strips a B- or I- prefix. Missing values become O.
func Flatten(tag string) string {
	s := Clean(tag)
	if IsMissing(s) {
		return Outside
	}
	if strings.HasPrefix(s, "B-") || strings.HasPrefix(s, "I-") {
		return s[2:]
	}
	return s
}

// FlattenAll applies Flatten to every tag.
func FlattenAll(tags []string) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = Flatten(t)
	}
	return out
}

// ExpandBIO converts a flat label sequence into BIO tags. A token opens a
// new B- span whenever its label differs from the previous token's label,
// otherwise it continues the span with I-. Two adjacent entities of the same
// type therefore merge into one span; the flat sequence carries no boundary
// to tell them apart.
//
// Labels pass through Clean first, so FlattenAll(ExpandBIO(x)) returns the
// trimmed NFC form of each label and O for missing ones rather than the
// raw input bytes.
func ExpandBIO(flat []string) []string {
	out := make([]string, len(flat))
	prev := ""
	for i, raw := range flat {
		label := Clean(raw)
		if IsMissing(label) {
			label = Outside
		}
		switch {
		case label == Outside:
			out[i] = Outside
		case label == prev:
			out[i] = "I-" + label
		default:
			out[i] = "B-" + label
		}
		prev = label
	}
	return out
}

// SplitTag splits a tag into its position prefix ("B", "I" or "") and its
// entity type. O returns ("O", "").
func SplitTag(tag string) (prefix, typ string) {
	s := Clean(tag)
	if s == Outside || IsMissing(s) {
		return Outside, ""
	}
	if len(s) > 2 && s[1] == '-' && (s[0] == 'B' || s[0] == 'I') {
		return s[:1], s[2:]
	}
	return "", s
}
