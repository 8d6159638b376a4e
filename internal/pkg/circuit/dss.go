package circuit

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// ReadDSS reads the lines of an OpenDSS circuit description. Only the subset
// needed to enumerate lines is understood:
//
//	New Line.<name> Bus1=<bus> Bus2=<bus> [R1=<r>] [LineCode=<code>] [RMatrix=(...)]
//	New LineCode.<name> [R1=<r>] [RMatrix=(...)]
//	Redirect <file> / Compile <file>
//
// Everything else is ignored. Bus labels are reported the way the solver
// does: lowercase, without the phase suffix. A line or line code that sets
// none of R1, RMatrix or Switch takes the solver default R1 of 0.058 per unit
// length. A line naming an undefined line code is a configuration error.
func ReadDSS(path string) (*SliceSource, error) {
	p := &dssParser{
		codes:   make(map[string]lineDef),
		visited: make(map[string]bool),
	}
	if err := p.parseFile(path); err != nil {
		return nil, err
	}

	lines := make([]LineRecord, 0, len(p.lines))
	for _, def := range p.lines {
		line, err := p.resolve(def)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return NewSliceSource(lines), nil
}

type lineDef struct {
	name     string
	bus1     string
	bus2     string
	r1       float64
	hasR1    bool
	lineCode string
	path     string
	line     int
}

// defaultR1 is the positive sequence resistance the solver gives a line or
// line code that does not set one.
const defaultR1 = 0.058

type statement struct {
	path string
	line int
	text string
}

type dssParser struct {
	lines   []lineDef
	codes   map[string]lineDef
	visited map[string]bool
}

func (p *dssParser) parseFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return configErr(path, 0, "%v", err)
	}
	if p.visited[abs] {
		return configErr(path, 0, "redirect loop")
	}
	p.visited[abs] = true
	defer delete(p.visited, abs)

	f, err := os.Open(path)
	if err != nil {
		return configErr(path, 0, "%v", err)
	}
	defer f.Close()

	stmts, err := splitStatements(path, f)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if err := p.exec(s); err != nil {
			return err
		}
	}
	return nil
}

// splitStatements strips comments and joins "~" continuation lines.
func splitStatements(path string, r io.Reader) ([]statement, error) {
	var stmts []statement
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	n := 0
	inBlock := false
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if inBlock {
			if i := strings.Index(text, "*/"); i >= 0 {
				inBlock = false
				text = strings.TrimSpace(text[i+2:])
			} else {
				continue
			}
		}
		if strings.HasPrefix(text, "/*") {
			if i := strings.Index(text, "*/"); i < 0 {
				inBlock = true
				continue
			} else {
				text = strings.TrimSpace(text[i+2:])
			}
		}
		text = stripComment(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "~") || strings.HasPrefix(strings.ToLower(text), "more ") {
			if len(stmts) == 0 {
				return nil, configErr(path, n, "continuation without a statement")
			}
			rest := strings.TrimPrefix(text, "~")
			if !strings.HasPrefix(text, "~") {
				rest = text[len("more "):]
			}
			stmts[len(stmts)-1].text += " " + strings.TrimSpace(rest)
			continue
		}
		stmts = append(stmts, statement{path: path, line: n, text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, configErr(path, n, "%v", err)
	}
	return stmts, nil
}

func stripComment(text string) string {
	var quote byte
	depth := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '!':
			if depth == 0 {
				return strings.TrimSpace(text[:i])
			}
		case '/':
			if depth == 0 && i+1 < len(text) && text[i+1] == '/' {
				return strings.TrimSpace(text[:i])
			}
		}
	}
	return text
}

// tokenize splits a statement into words, "=" and bracketed or quoted groups.
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	closing := map[byte]byte{'(': ')', '[': ']', '{': '}', '"': '"', '\'': '\''}
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == ',':
			flush()
		case c == '=':
			flush()
			tokens = append(tokens, "=")
		case closing[c] != 0:
			flush()
			end := strings.IndexByte(text[i+1:], closing[c])
			if end < 0 {
				tokens = append(tokens, text[i+1:])
				return tokens
			}
			tokens = append(tokens, text[i+1:i+1+end])
			i += end + 1
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return tokens
}

// properties pairs key=value tokens. Positional tokens are returned in order.
func properties(tokens []string) (map[string]string, []string) {
	props := make(map[string]string)
	var positional []string
	for i := 0; i < len(tokens); i++ {
		if i+1 < len(tokens) && tokens[i+1] == "=" {
			value := ""
			if i+2 < len(tokens) {
				value = tokens[i+2]
			}
			props[strings.ToLower(tokens[i])] = value
			i += 2
			continue
		}
		positional = append(positional, tokens[i])
	}
	return props, positional
}

func (p *dssParser) exec(s statement) error {
	tokens := tokenize(s.text)
	if len(tokens) == 0 {
		return nil
	}

	switch strings.ToLower(tokens[0]) {
	case "redirect", "compile":
		if len(tokens) < 2 {
			return configErr(s.path, s.line, "%s without a file", tokens[0])
		}
		target := tokens[1]
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(s.path), target)
		}
		return p.parseFile(target)
	case "new":
		return p.newObject(s, tokens[1:])
	default:
		return nil
	}
}

func (p *dssParser) newObject(s statement, tokens []string) error {
	props, positional := properties(tokens)

	object := props["object"]
	if object == "" && len(positional) > 0 {
		object = positional[0]
	}
	dot := strings.IndexByte(object, '.')
	if dot < 0 {
		return nil
	}
	class := strings.ToLower(object[:dot])
	name := strings.ToLower(object[dot+1:])

	def := lineDef{name: name, path: s.path, line: s.line}
	if v, ok := props["r1"]; ok {
		r1, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return configErr(s.path, s.line, "bad r1 %q for %s", v, object)
		}
		def.r1, def.hasR1 = r1, true
	} else if v, ok := props["rmatrix"]; ok {
		r1, err := positiveSequenceR(v)
		if err != nil {
			return configErr(s.path, s.line, "bad rmatrix for %s: %v", object, err)
		}
		def.r1, def.hasR1 = r1, true
	} else if isTrue(props["switch"]) {
		// the solver models a switch as a 1 ohm per unit length line
		def.r1, def.hasR1 = 1, true
	}

	switch class {
	case "linecode":
		p.codes[name] = def
	case "line":
		def.bus1 = busLabel(props["bus1"])
		def.bus2 = busLabel(props["bus2"])
		if def.bus1 == "" || def.bus2 == "" {
			return configErr(s.path, s.line, "%s needs bus1 and bus2", object)
		}
		def.lineCode = strings.ToLower(props["linecode"])
		p.lines = append(p.lines, def)
	}
	return nil
}

func (p *dssParser) resolve(def lineDef) (LineRecord, error) {
	line := LineRecord{Name: def.name, From: def.bus1, To: def.bus2, R1: defaultR1}
	switch {
	case def.hasR1:
		line.R1 = def.r1
	case def.lineCode != "":
		code, ok := p.codes[def.lineCode]
		if !ok {
			return LineRecord{}, configErr(def.path, def.line, "line %s uses undefined linecode %q", def.name, def.lineCode)
		}
		if code.hasR1 {
			line.R1 = code.r1
		}
	}
	return line, nil
}

// busLabel drops the phase suffix: "150r.1.2.3" -> "150r".
func busLabel(bus string) string {
	if i := strings.IndexByte(bus, '.'); i >= 0 {
		bus = bus[:i]
	}
	return strings.ToLower(strings.TrimSpace(bus))
}

// positiveSequenceR reduces a (lower triangular or full) resistance matrix
// "r11 | r21 r22 | ..." to Rs - Rm, the mean self minus the mean mutual term.
func positiveSequenceR(matrix string) (float64, error) {
	rows := strings.Split(matrix, "|")
	var self, mutual []float64
	for i, row := range rows {
		fields := strings.Fields(strings.ReplaceAll(row, ",", " "))
		if len(fields) < i+1 {
			return 0, strconv.ErrSyntax
		}
		for j := 0; j <= i; j++ {
			v, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return 0, err
			}
			if i == j {
				self = append(self, v)
			} else {
				mutual = append(mutual, v)
			}
		}
	}

	rs := stat.Mean(self, nil)
	if len(mutual) == 0 {
		return rs, nil
	}
	return rs - stat.Mean(mutual, nil), nil
}

func isTrue(v string) bool {
	switch strings.ToLower(v) {
	case "y", "yes", "t", "true":
		return true
	}
	return false
}
