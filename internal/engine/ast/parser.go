// Package ast also hosts the parser: a small recursive-descent reader over
// the lexer's token stream. It favors precise error messages over grammar
// coverage — anything outside the statement shapes below is a parse error.
package ast

import (
	"fmt"
	"strconv"
)

// Parser holds the lexer and current/peek tokens for recursive-descent
// parsing.
type Parser struct {
	lx   *lexer
	cur  token
	peek token
}

// NewParser creates a parser over a single SQL statement (the trailing ';'
// is optional and, if present, is simply consumed).
func NewParser(sql string) *Parser {
	p := &Parser{lx: newLexer(sql)}
	p.cur = p.lx.nextToken()
	p.peek = p.lx.nextToken()
	return p
}

func (p *Parser) advance() { p.cur, p.peek = p.peek, p.lx.nextToken() }

func (p *Parser) expectSymbol(sym string) error {
	if p.cur.Typ == tSymbol && p.cur.Val == sym {
		p.advance()
		return nil
	}
	return p.errf("expected %q", sym)
}

func (p *Parser) expectKeyword(kw string) error {
	if p.cur.Typ == tKeyword && p.cur.Val == kw {
		p.advance()
		return nil
	}
	return p.errf("expected keyword %q", kw)
}

func (p *Parser) errf(format string, a ...any) error {
	return fmt.Errorf("parse error near %q: %s", p.cur.Val, fmt.Sprintf(format, a...))
}

// ident accepts a plain identifier as a table/column/index name.
func (p *Parser) ident() (string, error) {
	if p.cur.Typ != tIdent {
		return "", p.errf("expected identifier")
	}
	name := p.cur.Val
	p.advance()
	return name, nil
}

// ParseStatement parses exactly one statement from the input.
func (p *Parser) ParseStatement() (Statement, error) {
	var stmt Statement
	var err error
	switch {
	case p.cur.Typ == tKeyword && p.cur.Val == "CREATE":
		stmt, err = p.parseCreate()
	case p.cur.Typ == tKeyword && p.cur.Val == "DROP":
		stmt, err = p.parseDropTable()
	case p.cur.Typ == tKeyword && p.cur.Val == "INSERT":
		stmt, err = p.parseInsert()
	case p.cur.Typ == tKeyword && p.cur.Val == "SELECT":
		stmt, err = p.parseSelect()
	case p.cur.Typ == tKeyword && p.cur.Val == "UPDATE":
		stmt, err = p.parseUpdate()
	case p.cur.Typ == tKeyword && p.cur.Val == "DELETE":
		stmt, err = p.parseDelete()
	case p.cur.Typ == tKeyword && p.cur.Val == "SHOW":
		stmt, err = p.parseShowTables()
	case p.cur.Typ == tKeyword && p.cur.Val == "USE":
		stmt, err = p.parseUse()
	case p.cur.Typ == tKeyword && p.cur.Val == "CLEAR":
		p.advance()
		stmt = &Clear{}
	default:
		return nil, p.errf("expected a statement")
	}
	if err != nil {
		return nil, err
	}
	if p.cur.Typ == tSymbol && p.cur.Val == ";" {
		p.advance()
	}
	if p.cur.Typ != tEOF {
		return nil, p.errf("unexpected trailing input")
	}
	return stmt, nil
}

func (p *Parser) parseDataType() (DataType, error) {
	if p.cur.Typ != tKeyword {
		return 0, p.errf("expected a column type")
	}
	switch p.cur.Val {
	case "U32":
		p.advance()
		return TypeU32, nil
	case "VARCHAR":
		p.advance()
		return TypeVarchar, nil
	default:
		return 0, p.errf("unsupported column type %q", p.cur.Val)
	}
}

// CREATE TABLE name (col type, ...)
// CREATE INDEX name ON table (col)
func (p *Parser) parseCreate() (Statement, error) {
	p.advance() // CREATE
	switch {
	case p.cur.Typ == tKeyword && p.cur.Val == "TABLE":
		p.advance()
		name, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		var cols []ColumnDef
		for {
			colName, err := p.ident()
			if err != nil {
				return nil, err
			}
			typ, err := p.parseDataType()
			if err != nil {
				return nil, err
			}
			cols = append(cols, ColumnDef{Name: colName, Type: typ})
			if p.cur.Typ == tSymbol && p.cur.Val == "," {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return &CreateTable{Name: name, Columns: cols}, nil

	case p.cur.Typ == tKeyword && p.cur.Val == "INDEX":
		p.advance()
		indexName, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		tableName, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		colName, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return &CreateIndex{IndexName: indexName, TableName: tableName, ColumnName: colName}, nil

	default:
		return nil, p.errf("expected TABLE or INDEX after CREATE")
	}
}

func (p *Parser) parseDropTable() (Statement, error) {
	p.advance() // DROP
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	return &DropTable{Name: name}, nil
}

// INSERT INTO table (col, ...) VALUES (v, ...), (v, ...)
func (p *Parser) parseInsert() (Statement, error) {
	p.advance() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var cols []string
	for {
		c, err := p.ident()
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
		if p.cur.Typ == tSymbol && p.cur.Val == "," {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}

	var rows [][]Literal
	for {
		if err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		var row []Literal
		for {
			lit, err := p.literal()
			if err != nil {
				return nil, err
			}
			row = append(row, lit)
			if p.cur.Typ == tSymbol && p.cur.Val == "," {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if p.cur.Typ == tSymbol && p.cur.Val == "," {
			p.advance()
			continue
		}
		break
	}
	return &Insert{Table: table, Columns: cols, Rows: rows}, nil
}

func (p *Parser) literal() (Literal, error) {
	switch p.cur.Typ {
	case tNumber:
		n, err := strconv.ParseUint(p.cur.Val, 10, 32)
		if err != nil {
			return Literal{}, p.errf("invalid integer literal %q", p.cur.Val)
		}
		p.advance()
		return U32Literal(uint32(n)), nil
	case tString:
		s := p.cur.Val
		p.advance()
		return StrLiteral(s), nil
	default:
		return Literal{}, p.errf("expected a literal value")
	}
}

// filter parses an optional `WHERE col = value` clause.
func (p *Parser) filter() (*Filter, error) {
	if !(p.cur.Typ == tKeyword && p.cur.Val == "WHERE") {
		return nil, nil
	}
	p.advance()
	col, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("="); err != nil {
		return nil, err
	}
	val, err := p.literal()
	if err != nil {
		return nil, err
	}
	return &Filter{Column: col, Value: val}, nil
}

// SELECT * | col, ... FROM table [WHERE col = value]
func (p *Parser) parseSelect() (Statement, error) {
	p.advance() // SELECT
	var selection []string
	if p.cur.Typ == tSymbol && p.cur.Val == "*" {
		p.advance()
		selection = []string{"*"}
	} else {
		for {
			c, err := p.ident()
			if err != nil {
				return nil, err
			}
			selection = append(selection, c)
			if p.cur.Typ == tSymbol && p.cur.Val == "," {
				p.advance()
				continue
			}
			break
		}
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	f, err := p.filter()
	if err != nil {
		return nil, err
	}
	return &Select{Table: table, Selection: selection, Filter: f}, nil
}

// UPDATE table SET col = value, ... [WHERE col = value]
func (p *Parser) parseUpdate() (Statement, error) {
	p.advance() // UPDATE
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	var assigns []Assignment
	for {
		col, err := p.ident()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol("="); err != nil {
			return nil, err
		}
		val, err := p.literal()
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, Assignment{Column: col, Value: val})
		if p.cur.Typ == tSymbol && p.cur.Val == "," {
			p.advance()
			continue
		}
		break
	}
	f, err := p.filter()
	if err != nil {
		return nil, err
	}
	return &Update{Table: table, Assignments: assigns, Filter: f}, nil
}

// DELETE FROM table [WHERE col = value]
func (p *Parser) parseDelete() (Statement, error) {
	p.advance() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.ident()
	if err != nil {
		return nil, err
	}
	f, err := p.filter()
	if err != nil {
		return nil, err
	}
	return &Delete{Table: table, Filter: f}, nil
}

func (p *Parser) parseShowTables() (Statement, error) {
	p.advance() // SHOW
	if err := p.expectKeyword("TABLES"); err != nil {
		return nil, err
	}
	return &ShowTables{}, nil
}

// USE '<path>'
func (p *Parser) parseUse() (Statement, error) {
	p.advance() // USE
	if p.cur.Typ != tString {
		return nil, p.errf("expected a quoted database path")
	}
	path := p.cur.Val
	p.advance()
	return &UseDatabase{Path: path}, nil
}
