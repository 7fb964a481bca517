// Package parser turns a token stream into a ParsedQuery.
package parser

import (
	"fmt"

	"github.com/Chahine-tech/minisql-go/pkg/lexer"
)

// Parser is a recursive-descent parser over a token slice. Malformed input
// yields a ParsedQuery with Type Invalid, or a partially filled query whose
// missing fields the executor reports as user errors.
type Parser struct {
	tokens   []lexer.Token
	position int

	errors []string
}

func New(tokens []lexer.Token) *Parser {
	return &Parser{tokens: tokens, errors: make([]string, 0, 2)}
}

// Parse parses the single statement the tokens were lexed from.
func Parse(input string) ParsedQuery {
	return New(lexer.New(input).Tokenize()).ParseQuery()
}

func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) peek() lexer.Token {
	if p.position < len(p.tokens) {
		return p.tokens[p.position]
	}
	return lexer.Token{Type: lexer.EOF}
}

func (p *Parser) peekAt(offset int) lexer.Token {
	if p.position+offset < len(p.tokens) {
		return p.tokens[p.position+offset]
	}
	return lexer.Token{Type: lexer.EOF}
}

func (p *Parser) consume() lexer.Token {
	tok := p.peek()
	if p.position < len(p.tokens) {
		p.position++
	}
	return tok
}

func (p *Parser) check(t lexer.TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) checkWord(value string) bool {
	return p.peek().Literal == value
}

func (p *Parser) match(t lexer.TokenType) bool {
	if p.check(t) {
		p.consume()
		return true
	}
	return false
}

func (p *Parser) matchWord(value string) bool {
	if p.checkWord(value) {
		p.consume()
		return true
	}
	return false
}

func (p *Parser) expectError(expected string) {
	p.errors = append(p.errors, fmt.Sprintf("expected %s, got %q", expected, p.peek().Literal))
}

// isValue reports whether the current token can stand as a literal value.
// Bare identifiers are accepted as unquoted strings.
func (p *Parser) isValue() bool {
	switch p.peek().Type {
	case lexer.NUMBER, lexer.STRING, lexer.IDENT:
		return true
	}
	return false
}

// ParseQuery dispatches on the leading keyword.
func (p *Parser) ParseQuery() ParsedQuery {
	first := p.peek()
	if first.Type != lexer.KEYWORD {
		p.expectError("statement keyword")
		return ParsedQuery{Type: Invalid}
	}

	switch first.Literal {
	case "create":
		if p.peekAt(1).Literal == "database" {
			return p.parseCreateDatabase()
		}
		return p.parseCreateTable()
	case "use":
		return p.parseUseDatabase()
	case "drop":
		if p.peekAt(1).Literal == "database" {
			return p.parseDropDatabase()
		}
		return p.parseDropTable()
	case "insert":
		return p.parseInsert()
	case "select":
		return p.parseSelect()
	case "delete":
		return p.parseDelete()
	case "update":
		return p.parseUpdate()
	case "alter":
		return p.parseAlterTable()
	case "show":
		return p.parseShow()
	}

	p.expectError("statement keyword")
	return ParsedQuery{Type: Invalid}
}

func (p *Parser) parseCreateDatabase() ParsedQuery {
	query := ParsedQuery{Type: CreateDatabase}

	p.consume() // create
	p.consume() // database

	if p.check(lexer.IDENT) {
		query.DatabaseName = p.consume().Literal
	}
	return query
}

func (p *Parser) parseUseDatabase() ParsedQuery {
	query := ParsedQuery{Type: UseDatabase}

	p.consume() // use

	if p.check(lexer.IDENT) {
		query.DatabaseName = p.consume().Literal
	}
	return query
}

func (p *Parser) parseDropDatabase() ParsedQuery {
	query := ParsedQuery{Type: DropDatabase}

	p.consume() // drop
	p.consume() // database

	if p.check(lexer.IDENT) {
		query.DatabaseName = p.consume().Literal
	}
	return query
}

func (p *Parser) parseCreateTable() ParsedQuery {
	query := ParsedQuery{Type: CreateTable}

	p.consume() // create
	if !p.matchWord("table") {
		p.expectError("TABLE")
		query.Type = Invalid
		return query
	}

	if p.check(lexer.IDENT) {
		query.TableName = p.consume().Literal
	}

	if !p.match(lexer.LPAREN) {
		p.expectError("(")
		query.Type = Invalid
		return query
	}

	for !p.check(lexer.RPAREN) && !p.check(lexer.EOF) {
		if p.check(lexer.IDENT) {
			query.Columns = append(query.Columns, p.consume().Literal)
			// Column type is informational only; skip it unvalidated.
			if p.check(lexer.IDENT) {
				p.consume()
			}
		}
		if !p.match(lexer.COMMA) && !p.check(lexer.RPAREN) {
			// Neither a separator nor the closing paren: bail out rather
			// than loop on the same token.
			p.expectError(", or )")
			query.Type = Invalid
			return query
		}
	}
	p.match(lexer.RPAREN)

	return query
}

func (p *Parser) parseDropTable() ParsedQuery {
	query := ParsedQuery{Type: DropTable}

	p.consume() // drop
	if !p.matchWord("table") {
		p.expectError("TABLE")
		query.Type = Invalid
		return query
	}

	if p.check(lexer.IDENT) {
		query.TableName = p.consume().Literal
	}
	return query
}

func (p *Parser) parseInsert() ParsedQuery {
	query := ParsedQuery{Type: Insert}

	p.consume() // insert
	if !p.matchWord("into") {
		p.expectError("INTO")
		query.Type = Invalid
		return query
	}

	if p.check(lexer.IDENT) {
		query.TableName = p.consume().Literal
	}

	if !p.matchWord("values") {
		p.expectError("VALUES")
		query.Type = Invalid
		return query
	}
	if !p.match(lexer.LPAREN) {
		p.expectError("(")
		query.Type = Invalid
		return query
	}

	for !p.check(lexer.RPAREN) && !p.check(lexer.EOF) {
		if p.isValue() {
			query.Values = append(query.Values, p.consume().Literal)
		}
		if !p.match(lexer.COMMA) && !p.check(lexer.RPAREN) {
			p.expectError(", or )")
			query.Type = Invalid
			return query
		}
	}
	p.match(lexer.RPAREN)

	return query
}

func (p *Parser) parseCondition() Condition {
	var cond Condition

	if p.check(lexer.IDENT) {
		cond.Column = p.consume().Literal
	}
	if p.check(lexer.OPERATOR) {
		cond.Op = p.consume().Literal
	}
	if p.isValue() {
		cond.Value = p.consume().Literal
	}
	return cond
}

func (p *Parser) parseSelect() ParsedQuery {
	query := ParsedQuery{Type: Select}

	p.consume() // select

	if p.match(lexer.ASTERISK) {
		query.SelectAll = true
	} else {
		for p.check(lexer.IDENT) {
			query.SelectColumns = append(query.SelectColumns, p.consume().Literal)
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}

	if p.matchWord("from") {
		if p.check(lexer.IDENT) {
			query.TableName = p.consume().Literal
		}
	}

	if p.matchWord("where") {
		query.Conditions = append(query.Conditions, p.parseCondition())
	}

	if p.matchWord("order") {
		if p.matchWord("by") {
			if p.check(lexer.IDENT) {
				query.OrderByColumn = p.consume().Literal
			}
			if p.matchWord("desc") {
				query.OrderByDesc = true
			} else {
				p.matchWord("asc")
			}
		}
	}

	if p.matchWord("group") {
		if p.matchWord("by") {
			if p.check(lexer.IDENT) {
				query.GroupByColumn = p.consume().Literal
			}
		}
	}

	return query
}

func (p *Parser) parseDelete() ParsedQuery {
	query := ParsedQuery{Type: Delete}

	p.consume() // delete
	if !p.matchWord("from") {
		p.expectError("FROM")
		query.Type = Invalid
		return query
	}

	if p.check(lexer.IDENT) {
		query.TableName = p.consume().Literal
	}

	if p.matchWord("where") {
		query.Conditions = append(query.Conditions, p.parseCondition())
	}
	return query
}

func (p *Parser) parseUpdate() ParsedQuery {
	query := ParsedQuery{Type: Update}

	p.consume() // update

	if p.check(lexer.IDENT) {
		query.TableName = p.consume().Literal
	}

	if p.matchWord("set") {
		for {
			if p.check(lexer.IDENT) {
				column := p.consume().Literal
				if p.matchWord("=") {
					var value string
					if p.isValue() {
						value = p.consume().Literal
					}
					query.Assignments = append(query.Assignments, UpdateAssignment{Column: column, Value: value})
				}
			}
			if !p.match(lexer.COMMA) {
				break
			}
		}
	}

	if p.matchWord("where") {
		query.Conditions = append(query.Conditions, p.parseCondition())
	}
	return query
}

func (p *Parser) parseAlterTable() ParsedQuery {
	query := ParsedQuery{Type: AlterTable}

	p.consume() // alter
	if !p.matchWord("table") {
		p.expectError("TABLE")
		query.Type = Invalid
		return query
	}

	if p.check(lexer.IDENT) {
		query.TableName = p.consume().Literal
	}

	switch {
	case p.matchWord("add"):
		query.AlterType = AlterAdd
		if p.check(lexer.IDENT) {
			query.AlterColumnName = p.consume().Literal
		}
		if p.check(lexer.IDENT) {
			query.AlterColumnType = p.consume().Literal
		}
	case p.matchWord("drop"):
		query.AlterType = AlterDrop
		if p.check(lexer.IDENT) {
			query.AlterColumnName = p.consume().Literal
		}
	case p.matchWord("modify"):
		query.AlterType = AlterModify
		if p.check(lexer.IDENT) {
			query.AlterColumnName = p.consume().Literal
		}
		if p.check(lexer.IDENT) {
			query.AlterColumnType = p.consume().Literal
		}
	default:
		p.expectError("ADD, DROP or MODIFY")
		query.Type = Invalid
	}

	return query
}

func (p *Parser) parseShow() ParsedQuery {
	p.consume() // show

	// tables/databases are not reserved words, so they arrive as identifiers.
	switch p.peek().Literal {
	case "tables":
		p.consume()
		return ParsedQuery{Type: ShowTables}
	case "databases":
		p.consume()
		return ParsedQuery{Type: ShowDatabases}
	}

	p.expectError("TABLES or DATABASES")
	return ParsedQuery{Type: Invalid}
}
