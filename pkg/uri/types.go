package uri

import (
	"fmt"
	"strings"
)

// Placeholders recognized inside implied namespaces
const (
	LanguagePlaceholder = "{language}"
	CountryPlaceholder  = "{country}"
)

// Parts holds one string per identifier component.
// Config uses it both for default values and for separator tokens.
type Parts struct {
	Scheme    string `json:"scheme"`
	Namespace string `json:"namespace"`
	Path      string `json:"path"`
	Ext       string `json:"ext"`
	Version   string `json:"version"`
}

// Config controls how compact strings are expanded and formatted
type Config struct {
	Defaults          Parts             `json:"defaults"`
	NamespaceByScheme map[string]string `json:"namespaceByScheme"`
	Separators        Parts             `json:"separators"`
}

// DefaultConfig returns the stock djedi identifier configuration
func DefaultConfig() Config {
	return Config{
		Defaults: Parts{
			Scheme: "i18n",
			Ext:    "txt",
		},
		NamespaceByScheme: map[string]string{
			"i18n": LanguagePlaceholder,
			"l10n": CountryPlaceholder,
			"g11n": "global",
		},
		Separators: Parts{
			Scheme:    "://",
			Namespace: "@",
			Path:      "/",
			Ext:       ".",
			Version:   "#",
		},
	}
}

// Clone returns a deep copy of the config
func (c Config) Clone() Config {
	out := c
	if c.NamespaceByScheme != nil {
		out.NamespaceByScheme = make(map[string]string, len(c.NamespaceByScheme))
		for scheme, ns := range c.NamespaceByScheme {
			out.NamespaceByScheme[scheme] = ns
		}
	}
	return out
}

// Validate rejects separator sets that cannot be tokenized unambiguously
func (c Config) Validate() error {
	seen := make(map[string]string)
	for _, sep := range []struct{ name, token string }{
		{"scheme", c.Separators.Scheme},
		{"namespace", c.Separators.Namespace},
		{"ext", c.Separators.Ext},
		{"version", c.Separators.Version},
	} {
		if sep.token == "" {
			continue
		}
		if other, ok := seen[sep.token]; ok {
			return fmt.Errorf("separators.%s duplicates separators.%s (%q)", sep.name, other, sep.token)
		}
		seen[sep.token] = sep.name
	}
	return nil
}

// Identifier is an expanded node identifier. It is comparable and is used
// directly as a map key.
type Identifier struct {
	Scheme    string
	Namespace string
	Path      string
	Ext       string
	Version   string
}

// GroupingKey returns the component requests are batched by: the namespace,
// which carries the language.
func (id Identifier) GroupingKey() string {
	return id.Namespace
}

// Strip returns a copy without scheme, ext and version, the form used to
// tag editable content.
func (id Identifier) Strip() Identifier {
	id.Scheme = ""
	id.Ext = ""
	id.Version = ""
	return id
}

// WithNamespace returns a copy with the namespace replaced
func (id Identifier) WithNamespace(namespace string) Identifier {
	id.Namespace = namespace
	return id
}

// WithVersion returns a copy with the version replaced
func (id Identifier) WithVersion(version string) Identifier {
	id.Version = version
	return id
}

// IsZero reports whether every component is empty
func (id Identifier) IsZero() bool {
	return id == Identifier{}
}

// substitute fills the language placeholders of an implied namespace
func substitute(namespace, language string) string {
	if !strings.Contains(namespace, "{") {
		return namespace
	}
	country := language
	if i := strings.LastIndex(language, "-"); i >= 0 {
		country = language[i+1:]
	}
	namespace = strings.ReplaceAll(namespace, LanguagePlaceholder, language)
	return strings.ReplaceAll(namespace, CountryPlaceholder, country)
}
