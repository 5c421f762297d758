package domain

import "sort"

// LocalizedText maps a language code (e.g. "he", "en") to a display string.
type LocalizedText map[string]string

// Get returns the text for lang, falling back to the fallback language and
// then to the first non-empty entry in language-code order.
func (t LocalizedText) Get(lang, fallback string) string {
	if s, ok := t[lang]; ok && s != "" {
		return s
	}
	if s, ok := t[fallback]; ok && s != "" {
		return s
	}
	langs := make([]string, 0, len(t))
	for l := range t {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	for _, l := range langs {
		if t[l] != "" {
			return t[l]
		}
	}
	return ""
}

// Missing returns the languages from want that have no non-empty entry.
func (t LocalizedText) Missing(want []string) []string {
	var missing []string
	for _, l := range want {
		if t[l] == "" {
			missing = append(missing, l)
		}
	}
	return missing
}

// Clone returns an independent copy.
func (t LocalizedText) Clone() LocalizedText {
	if t == nil {
		return nil
	}
	out := make(LocalizedText, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}
