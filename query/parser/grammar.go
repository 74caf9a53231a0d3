package parser

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// sqlLexer tokenizes the supported SQL subset. Keywords are matched before
// identifiers so that they are never taken for column names or aliases.
var sqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `\b(?i:SELECT|DISTINCT|FROM|WHERE|GROUP|BY|HAVING|ORDER|ASC|DESC|LIMIT|OFFSET|AS|AND|OR|NOT|IN|LIKE|IS|NULL|JOIN|INNER|LEFT|RIGHT|OUTER|ON|TRUE|FALSE)\b`},
	{Name: "QuotedIdent", Pattern: `"(?:[^"]|"")*"|` + "`[^`]*`"},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},
	{Name: "Operator", Pattern: `<>|!=|<=|>=|=|<|>`},
	{Name: "Punct", Pattern: `[(),.*;?]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type statement struct {
	Pos      lexer.Position
	Distinct bool          `"SELECT" @"DISTINCT"?`
	Items    []*selectExpr `@@ ( "," @@ )*`
	From     []*fromExpr   `"FROM" @@ ( "," @@ )*`
	Where    *orCondition  `( "WHERE" @@ )?`
	GroupBy  []*valueExpr  `( "GROUP" "BY" @@ ( "," @@ )* )?`
	Having   *orCondition  `( "HAVING" @@ )?`
	OrderBy  []*orderExpr  `( "ORDER" "BY" @@ ( "," @@ )* )?`
	Limit    *int          `( "LIMIT" @Number )?`
	Offset   *int          `( "OFFSET" @Number )? ";"?`
}

type selectExpr struct {
	Pos   lexer.Position
	Star  bool       `(  @"*"`
	Value *valueExpr ` | @@ )`
	Alias string     `( "AS"? @(Ident | QuotedIdent) )?`
}

type valueExpr struct {
	Pos    lexer.Position
	Call   *callExpr `  @@`
	Column []string  `| @(Ident | QuotedIdent) ( "." @(Ident | QuotedIdent) )*`
}

type callExpr struct {
	Name   string     `@Ident "("`
	Star   bool       `(  @"*"`
	Arg    *valueExpr ` | @@ )`
	Params []*operand `( "," @@ )* ")"`
}

type fromExpr struct {
	Source *tableSource  `@@`
	Joins  []*joinClause `@@*`
}

type tableSource struct {
	Pos   lexer.Position
	Sub   *statement `(  "(" @@ ")"`
	Name  []string   ` | @(Ident | QuotedIdent) ( "." @(Ident | QuotedIdent) )* )`
	Alias string     `( "AS"? @(Ident | QuotedIdent) )?`
}

type joinClause struct {
	Type  string       `@( "INNER" | "LEFT" | "RIGHT" )? "OUTER"? "JOIN"`
	Right *tableSource `@@`
	On    *orCondition `"ON" @@`
}

type orCondition struct {
	And []*andCondition `@@ ( "OR" @@ )*`
}

type andCondition struct {
	Terms []*condition `@@ ( "AND" @@ )*`
}

type condition struct {
	Group     *orCondition `  "(" @@ ")"`
	Predicate *predicate   `| @@`
}

type predicate struct {
	Pos     lexer.Position
	Left    *valueExpr  `@@`
	IsNull  *isNull     `(  @@`
	In      *inList     ` | @@`
	Like    *likeOp     ` | @@`
	Compare *comparison ` | @@ )`
}

type isNull struct {
	Not bool `"IS" @"NOT"? "NULL"`
}

type inList struct {
	Not    bool       `@"NOT"? "IN" "("`
	Values []*operand `@@ ( "," @@ )* ")"`
}

type likeOp struct {
	Not     bool     `@"NOT"? "LIKE"`
	Pattern *operand `@@`
}

type comparison struct {
	Op    string   `@Operator`
	Right *operand `@@`
}

type operand struct {
	Param  bool       `  @"?"`
	Null   bool       `| @"NULL"`
	Bool   *string    `| @( "TRUE" | "FALSE" )`
	Number *string    `| @Number`
	String *string    `| @String`
	Value  *valueExpr `| @@`
}

type orderExpr struct {
	Value     *valueExpr `@@`
	Direction string     `@( "ASC" | "DESC" )?`
}

var sqlParser = participle.MustBuild[statement](
	participle.Lexer(sqlLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(4),
)
