package flowscript

import (
	"github.com/pkg/errors"

	"flowjobs/internal/document"
)

// NodeKind is the default/declared category a FlowScript node carries,
// derived from its shape property (circle/box/diamond).
type NodeKind int

const (
	KindJob NodeKind = iota
	KindData
	KindStatus
)

func (k NodeKind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindStatus:
		return "status"
	default:
		return "job"
	}
}

var shapeKind = map[string]NodeKind{
	"circle":  KindData,
	"box":     KindJob,
	"diamond": KindStatus,
}

func shapeToKind(shape string) NodeKind {
	if k, ok := shapeKind[shape]; ok {
		return k
	}
	return KindJob
}

func kindToShape(k NodeKind) string {
	switch k {
	case KindData:
		return "circle"
	case KindStatus:
		return "diamond"
	default:
		return "box"
	}
}

// Node is one declared vertex of a parsed FlowScript graph.
//
// Dependencies records, verbatim, the right-hand identifiers of every
// "ID -> ..." edge where this node was the left-hand side — the literal
// reading the lexer/parser produce. The graph runner, not this package,
// is responsible for inverting that into prerequisite->dependent edges
// when it wires the engine's dependency graph (see runner package doc).
type Node struct {
	ID           string
	Kind         NodeKind
	Shape        string
	Label        string
	Data         *document.Doc
	Dependencies []string
}

// ParsedGraph is the full result of parsing one FlowScript document:
// every declared node, in declaration order.
type ParsedGraph struct {
	Nodes map[string]*Node
	Order []string
}

func newParsedGraph() *ParsedGraph {
	return &ParsedGraph{Nodes: make(map[string]*Node)}
}

func (g *ParsedGraph) nodeFor(id string, defaultKind NodeKind) *Node {
	if n, ok := g.Nodes[id]; ok {
		return n
	}
	n := &Node{ID: id, Kind: defaultKind, Data: document.New()}
	g.Nodes[id] = n
	g.Order = append(g.Order, id)
	return n
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *parser) expect(tt TokenType, what string) (Token, error) {
	t := p.advance()
	if t.Type != tt {
		return t, errors.Errorf("flowscript: parse error: expected %s, got %q", what, t.Lexeme)
	}
	return t, nil
}

// Parse turns a token stream into a ParsedGraph, implementing the
// grammar's top-level digraph block: nested "{ node [shape=...]; ...}"
// type-default blocks, bare node declarations, property-bracket
// declarations, and dependency edges.
func Parse(tokens []Token) (*ParsedGraph, error) {
	p := &parser{tokens: tokens}

	if _, err := p.expect(TokDigraph, "digraph"); err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return nil, err
	}

	graph := newParsedGraph()
	defaultKind := KindJob

	for {
		switch p.peek().Type {
		case TokRBrace:
			p.advance()
			if _, err := p.expect(TokEOF, "end of input"); err != nil {
				return nil, err
			}
			return graph, nil
		case TokEOF:
			return nil, errors.New("flowscript: parse error: unterminated digraph block")
		case TokNode:
			kind, err := p.parseDefaultShapeDecl()
			if err != nil {
				return nil, err
			}
			defaultKind = kind
		case TokLBrace:
			p.advance()
			if err := p.parseNestedBlock(graph, defaultKind); err != nil {
				return nil, err
			}
		case TokIdentifier:
			id := p.advance().Lexeme
			node := graph.nodeFor(id, defaultKind)
			if err := p.parseNodeStatementTail(graph, node, defaultKind); err != nil {
				return nil, err
			}
		default:
			return nil, errors.Errorf("flowscript: parse error: unexpected token %q", p.peek().Lexeme)
		}
	}
}

// parseDefaultShapeDecl parses "node [shape="circle"];" and returns the
// NodeKind it establishes as the default for subsequent bare
// declarations in the enclosing block.
func (p *parser) parseDefaultShapeDecl() (NodeKind, error) {
	p.advance() // "node"
	if _, err := p.expect(TokLBracket, "["); err != nil {
		return KindJob, err
	}
	if _, err := p.expect(TokShape, "shape"); err != nil {
		return KindJob, err
	}
	if _, err := p.expect(TokEquals, "="); err != nil {
		return KindJob, err
	}
	shapeTok, err := p.expect(TokString, "shape value")
	if err != nil {
		return KindJob, err
	}
	if _, err := p.expect(TokRBracket, "]"); err != nil {
		return KindJob, err
	}
	if _, err := p.expect(TokSemicolon, ";"); err != nil {
		return KindJob, err
	}
	return shapeToKind(shapeTok.Lexeme), nil
}

// parseNestedBlock parses the body of a "{ ... }" block that scopes its
// own default node kind, as in "{ node [shape="circle"]; A; B; }".
func (p *parser) parseNestedBlock(graph *ParsedGraph, outerDefault NodeKind) error {
	defaultKind := outerDefault
	for {
		switch p.peek().Type {
		case TokRBrace:
			p.advance()
			return nil
		case TokEOF:
			return errors.New("flowscript: parse error: unterminated nested block")
		case TokNode:
			kind, err := p.parseDefaultShapeDecl()
			if err != nil {
				return err
			}
			defaultKind = kind
		case TokIdentifier:
			id := p.advance().Lexeme
			node := graph.nodeFor(id, defaultKind)
			if err := p.parseNodeStatementTail(graph, node, defaultKind); err != nil {
				return err
			}
		default:
			return errors.Errorf("flowscript: parse error: unexpected token %q in block", p.peek().Lexeme)
		}
	}
}

// parseNodeStatementTail consumes whatever follows a bare identifier:
// a dependency edge, a property bracket, or a plain declaration.
func (p *parser) parseNodeStatementTail(graph *ParsedGraph, node *Node, defaultKind NodeKind) error {
	switch p.peek().Type {
	case TokArrow:
		return p.parseDependencies(graph, node, defaultKind)
	case TokLBracket:
		if err := p.parseNodeProperties(node); err != nil {
			return err
		}
		_, err := p.expect(TokSemicolon, ";")
		return err
	case TokSemicolon:
		p.advance()
		return nil
	default:
		return errors.Errorf("flowscript: parse error: unexpected token %q after %s", p.peek().Lexeme, node.ID)
	}
}

// parseDependencies consumes "-> B, C -> D;", pushing each right-hand
// identifier onto the left-hand node's own Dependencies list (see the
// Node.Dependencies doc comment for why this direction is literal, not
// inverted, at this layer) and chaining further edges when an
// identifier is itself followed by another arrow.
func (p *parser) parseDependencies(graph *ParsedGraph, lhs *Node, defaultKind NodeKind) error {
	p.advance() // "->"
	cur := lhs
	for {
		idTok, err := p.expect(TokIdentifier, "node identifier")
		if err != nil {
			return err
		}
		rhs := graph.nodeFor(idTok.Lexeme, defaultKind)
		cur.Dependencies = append(cur.Dependencies, rhs.ID)

		switch p.peek().Type {
		case TokLBracket: // inline edge label, e.g. [label="..."]; parsed and discarded
			p.advance()
			for p.peek().Type != TokRBracket {
				if p.peek().Type == TokEOF {
					return errors.New("flowscript: parse error: unterminated edge property")
				}
				p.advance()
			}
			p.advance() // "]"
		case TokComma:
			p.advance()
			continue
		case TokArrow:
			p.advance()
			cur = rhs
			continue
		case TokSemicolon:
			p.advance()
			return nil
		}

		if p.peek().Type == TokSemicolon {
			p.advance()
			return nil
		}
		if p.peek().Type != TokComma && p.peek().Type != TokArrow {
			return nil
		}
	}
}

// parseNodeProperties consumes the "[shape="..." label="..." data='k','v']"
// bracket body, leaving the closing "]" consumed and the caller to
// expect the trailing ";".
func (p *parser) parseNodeProperties(node *Node) error {
	p.advance() // "["
	for {
		switch p.peek().Type {
		case TokRBracket:
			p.advance()
			return nil
		case TokEOF:
			return errors.New("flowscript: parse error: unterminated node properties")
		case TokShape:
			p.advance()
			if _, err := p.expect(TokEquals, "="); err != nil {
				return err
			}
			v, err := p.expect(TokString, "shape value")
			if err != nil {
				return err
			}
			node.Shape = v.Lexeme
			node.Kind = shapeToKind(v.Lexeme)
		case TokLabel:
			p.advance()
			if _, err := p.expect(TokEquals, "="); err != nil {
				return err
			}
			v, err := p.expect(TokString, "label value")
			if err != nil {
				return err
			}
			node.Label = v.Lexeme
		case TokData:
			p.advance()
			if _, err := p.expect(TokEquals, "="); err != nil {
				return err
			}
			key, err := p.expect(TokString, "data key")
			if err != nil {
				return err
			}
			if _, err := p.expect(TokComma, ","); err != nil {
				return err
			}
			val, err := p.expect(TokString, "data value")
			if err != nil {
				return err
			}
			if node.Kind != KindData {
				return errors.Errorf("flowscript: parse error: data property only valid on a Data-shaped node (%s)", node.ID)
			}
			node.Data.Set(val.Lexeme, key.Lexeme)
		case TokIdentifier:
			// unknown property: skip "ident = value"
			p.advance()
			if p.peek().Type == TokEquals {
				p.advance()
				p.advance()
			}
		default:
			return errors.Errorf("flowscript: parse error: unexpected token %q in node properties", p.peek().Lexeme)
		}
		if p.peek().Type == TokComma {
			p.advance()
		}
	}
}
