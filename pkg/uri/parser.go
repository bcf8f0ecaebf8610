package uri

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemoSize is the number of expanded compact strings a parser remembers
const DefaultMemoSize = 4096

// delimiter identifies which separator terminated a token
type delimiter int

const (
	delimScheme delimiter = iota
	delimNamespace
	delimExt
	delimVersion
)

// state is the component the tokenizer is currently reading
type state int

const (
	stateHead        state = iota // scheme, namespace or path
	stateAfterScheme              // namespace or path
	statePath
	stateExt
	stateVersion
)

// allowed lists the delimiters recognized in each state, in component order
var allowed = map[state][]delimiter{
	stateHead:        {delimScheme, delimNamespace, delimExt, delimVersion},
	stateAfterScheme: {delimNamespace, delimExt, delimVersion},
	statePath:        {delimExt, delimVersion},
	stateExt:         {delimVersion},
}

// Parser expands and formats compact strings for one fixed configuration.
// A Parser is immutable and safe for concurrent use; build a new one when
// the configuration changes.
type Parser struct {
	cfg      Config
	language string
	memo     *lru.Cache[string, Identifier]
}

// NewParser creates a parser for cfg. language fills the {language} and
// {country} placeholders of implied namespaces. memoSize <= 0 disables
// memoization.
func NewParser(cfg Config, language string, memoSize int) *Parser {
	p := &Parser{
		cfg:      cfg.Clone(),
		language: language,
	}
	if memoSize > 0 {
		// lru.New only fails for non-positive sizes
		p.memo, _ = lru.New[string, Identifier](memoSize)
	}
	return p
}

// Config returns a copy of the parser configuration
func (p *Parser) Config() Config {
	return p.cfg.Clone()
}

// Language returns the language used for namespace placeholders
func (p *Parser) Language() string {
	return p.language
}

// Expand turns a compact string into a fully populated identifier.
// It never fails: missing or empty components take their defaults.
func (p *Parser) Expand(compact string) Identifier {
	if p.memo != nil {
		if id, ok := p.memo.Get(compact); ok {
			return id
		}
	}

	id := p.fill(p.split(compact))

	if p.memo != nil {
		p.memo.Add(compact, id)
	}
	return id
}

// Equal reports whether two compact strings name the same node
func (p *Parser) Equal(a, b string) bool {
	return p.Expand(a) == p.Expand(b)
}

// Format returns the shortest compact string for id, leaving out every
// component equal to its default. The namespace is left out when it equals
// the namespace implied by the scheme.
func (p *Parser) Format(id Identifier) string {
	d, s := p.cfg.Defaults, p.cfg.Separators

	var b strings.Builder
	if id.Scheme != "" && id.Scheme != d.Scheme {
		b.WriteString(id.Scheme)
		b.WriteString(s.Scheme)
	}
	if id.Namespace != "" && id.Namespace != p.impliedNamespace(id.Scheme) {
		b.WriteString(id.Namespace)
		b.WriteString(s.Namespace)
	}
	if id.Path != d.Path {
		b.WriteString(id.Path)
	}
	if id.Ext != "" && id.Ext != d.Ext {
		b.WriteString(s.Ext)
		b.WriteString(id.Ext)
	}
	if id.Version != "" && id.Version != d.Version {
		b.WriteString(s.Version)
		b.WriteString(id.Version)
	}
	return b.String()
}

// Full returns the compact string with every non-empty component present
func (p *Parser) Full(id Identifier) string {
	s := p.cfg.Separators

	var b strings.Builder
	if id.Scheme != "" {
		b.WriteString(id.Scheme)
		b.WriteString(s.Scheme)
	}
	if id.Namespace != "" {
		b.WriteString(id.Namespace)
		b.WriteString(s.Namespace)
	}
	b.WriteString(id.Path)
	if id.Ext != "" {
		b.WriteString(s.Ext)
		b.WriteString(id.Ext)
	}
	if id.Version != "" {
		b.WriteString(s.Version)
		b.WriteString(id.Version)
	}
	return b.String()
}

// Segments splits the path of id on the path separator
func (p *Parser) Segments(id Identifier) []string {
	sep := p.cfg.Separators.Path
	if sep == "" {
		if id.Path == "" {
			return nil
		}
		return []string{id.Path}
	}

	var segments []string
	for _, seg := range strings.Split(id.Path, sep) {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

// split tokenizes compact left to right without applying defaults
func (p *Parser) split(compact string) Identifier {
	var id Identifier
	st := stateHead
	rest := compact

	for st != stateVersion {
		delim, idx, width := p.nextDelimiter(rest, st)
		if idx < 0 {
			break
		}
		token := rest[:idx]
		rest = rest[idx+width:]

		switch delim {
		case delimScheme:
			id.Scheme = token
			st = stateAfterScheme
		case delimNamespace:
			id.Namespace = token
			st = statePath
		case delimExt:
			id.Path = token
			st = stateExt
		case delimVersion:
			if st == stateExt {
				id.Ext = token
			} else {
				id.Path = token
			}
			st = stateVersion
		}
	}

	switch st {
	case stateExt:
		id.Ext = rest
	case stateVersion:
		id.Version = rest
	default:
		id.Path = rest
	}
	return id
}

// nextDelimiter finds the separator occurring first in rest among those
// allowed in st. Ties go to the longer separator. idx is -1 when none occurs.
func (p *Parser) nextDelimiter(rest string, st state) (delimiter, int, int) {
	best, bestIdx, bestWidth := delimiter(0), -1, 0
	for _, d := range allowed[st] {
		token := p.token(d)
		if token == "" {
			continue
		}
		idx := strings.Index(rest, token)
		if idx < 0 {
			continue
		}
		if bestIdx < 0 || idx < bestIdx || (idx == bestIdx && len(token) > bestWidth) {
			best, bestIdx, bestWidth = d, idx, len(token)
		}
	}
	return best, bestIdx, bestWidth
}

func (p *Parser) token(d delimiter) string {
	switch d {
	case delimScheme:
		return p.cfg.Separators.Scheme
	case delimNamespace:
		return p.cfg.Separators.Namespace
	case delimExt:
		return p.cfg.Separators.Ext
	default:
		return p.cfg.Separators.Version
	}
}

// fill replaces empty components with their defaults
func (p *Parser) fill(id Identifier) Identifier {
	d := p.cfg.Defaults
	if id.Scheme == "" {
		id.Scheme = d.Scheme
	}
	if id.Namespace == "" {
		id.Namespace = p.impliedNamespace(id.Scheme)
	}
	if id.Path == "" {
		id.Path = d.Path
	}
	if id.Ext == "" {
		id.Ext = d.Ext
	}
	if id.Version == "" {
		id.Version = d.Version
	}
	return id
}

// impliedNamespace returns the namespace an identifier with scheme gets
// when none is written out
func (p *Parser) impliedNamespace(scheme string) string {
	if ns, ok := p.cfg.NamespaceByScheme[scheme]; ok {
		return substitute(ns, p.language)
	}
	return substitute(p.cfg.Defaults.Namespace, p.language)
}
