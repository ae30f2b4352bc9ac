package solver

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

var (
	ErrInvalidCharacter    = errors.New("invalid_character")
	ErrSyntax              = errors.New("invalid_syntax")
	ErrDivisionByZero      = errors.New("division_by_zero")
	ErrNoNumbers           = errors.New("no_numbers")
	ErrTooManyNumbers      = errors.New("too_many_numbers")
	ErrOperandNotAvailable = errors.New("operand_not_available")
	ErrMustUseAll          = errors.New("must_use_all_numbers")
	ErrNotPositiveInteger  = errors.New("not_positive_integer")
	ErrTooLong             = errors.New("expression_too_long")
)

const (
	maxExprLen   = 128
	maxDepth     = 32
	maxLiteralSz = 9
)

var glyphs = strings.NewReplacer("×", "*", "÷", "/", "−", "-", "x", "*", "X", "*")

// Expr is a parsed arithmetic expression over non-negative integer literals.
type Expr struct {
	op    byte
	value int64
	left  *Expr
	right *Expr
}

// Parse accepts integer literals, + - * / and parentheses. Anything else is rejected.
func Parse(text string) (*Expr, error) {
	cleaned := glyphs.Replace(strings.Join(strings.Fields(text), ""))
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrSyntax)
	}
	if len(cleaned) > maxExprLen {
		return nil, ErrTooLong
	}
	for _, r := range cleaned {
		if !strings.ContainsRune("0123456789+-*/()", r) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCharacter, r)
		}
	}
	p := &parser{src: cleaned}
	e, err := p.parseSum(0)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, p.src[p.pos], p.pos)
	}
	return e, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) parseSum(depth int) (*Expr, error) {
	left, err := p.parseProduct(depth)
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct(depth)
		if err != nil {
			return nil, err
		}
		left = &Expr{op: op, left: left, right: right}
	}
}

func (p *parser) parseProduct(depth int) (*Expr, error) {
	left, err := p.parseFactor(depth)
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor(depth)
		if err != nil {
			return nil, err
		}
		left = &Expr{op: op, left: left, right: right}
	}
}

func (p *parser) parseFactor(depth int) (*Expr, error) {
	c := p.peek()
	switch {
	case c == '(':
		if depth >= maxDepth {
			return nil, fmt.Errorf("%w: nesting too deep", ErrSyntax)
		}
		p.pos++
		inner, err := p.parseSum(depth + 1)
		if err != nil {
			return nil, err
		}
		if p.peek() != ')' {
			return nil, fmt.Errorf("%w: missing closing parenthesis", ErrSyntax)
		}
		p.pos++
		return inner, nil
	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
			p.pos++
		}
		lit := p.src[start:p.pos]
		if len(lit) > maxLiteralSz {
			return nil, fmt.Errorf("%w: number too large", ErrSyntax)
		}
		v, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}
		return &Expr{value: v}, nil
	case c == 0:
		return nil, fmt.Errorf("%w: unexpected end of expression", ErrSyntax)
	default:
		return nil, fmt.Errorf("%w: unexpected %q at %d", ErrSyntax, c, p.pos)
	}
}

// Operands lists the literals in source order.
func (e *Expr) Operands() []int {
	var out []int
	var walk func(*Expr)
	walk = func(n *Expr) {
		if n.op == 0 {
			out = append(out, int(n.value))
			return
		}
		walk(n.left)
		walk(n.right)
	}
	walk(e)
	return out
}

// Eval computes the exact rational value.
func (e *Expr) Eval() (*big.Rat, error) {
	if e.op == 0 {
		return new(big.Rat).SetInt64(e.value), nil
	}
	l, err := e.left.Eval()
	if err != nil {
		return nil, err
	}
	r, err := e.right.Eval()
	if err != nil {
		return nil, err
	}
	switch e.op {
	case '+':
		return l.Add(l, r), nil
	case '-':
		return l.Sub(l, r), nil
	case '*':
		return l.Mul(l, r), nil
	default:
		if r.Sign() == 0 {
			return nil, ErrDivisionByZero
		}
		return l.Quo(l, r), nil
	}
}

// Reduce evaluates e over positive integers only, the same arithmetic Closest
// and Exact search: every literal and every intermediate must be a positive
// whole number, so a fractional or non-positive step fails even when the final
// value would be whole.
func (e *Expr) Reduce() (int, error) {
	v, err := e.reduce()
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: %s out of range", ErrNotPositiveInteger, v)
	}
	return int(v.Int64()), nil
}

func (e *Expr) reduce() (*big.Int, error) {
	if e.op == 0 {
		if e.value <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrNotPositiveInteger, e.value)
		}
		return big.NewInt(e.value), nil
	}
	l, err := e.left.reduce()
	if err != nil {
		return nil, err
	}
	r, err := e.right.reduce()
	if err != nil {
		return nil, err
	}
	out := new(big.Int)
	switch e.op {
	case '+':
		out.Add(l, r)
	case '-':
		out.Sub(l, r)
	case '*':
		out.Mul(l, r)
	default:
		rem := new(big.Int)
		out.QuoRem(l, r, rem)
		if rem.Sign() != 0 {
			return nil, fmt.Errorf("%w: %s/%s is not whole", ErrNotPositiveInteger, l, r)
		}
	}
	if out.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s%c%s = %s", ErrNotPositiveInteger, l, e.op, r, out)
	}
	return out, nil
}

func (e *Expr) String() string {
	if e.op == 0 {
		return strconv.FormatInt(e.value, 10)
	}
	return "(" + e.left.String() + string(e.op) + e.right.String() + ")"
}

// CheckOperands reports whether used fits inside pool as a multiset.
func CheckOperands(used, pool []int) error {
	left := make(map[int]int, len(pool))
	for _, n := range pool {
		left[n]++
	}
	for _, n := range used {
		if left[n] == 0 {
			return fmt.Errorf("%w: %d", ErrOperandNotAvailable, n)
		}
		left[n]--
	}
	return nil
}

type Rules struct {
	MaxOperands int
	RequireAll  bool
}

// Evaluate parses text, checks its operands against pool and reduces it with
// positive integer intermediates only.
func Evaluate(text string, pool []int, rules Rules) (int, error) {
	e, err := Parse(text)
	if err != nil {
		return 0, err
	}
	used := e.Operands()
	if len(used) == 0 {
		return 0, ErrNoNumbers
	}
	if rules.MaxOperands > 0 && len(used) > rules.MaxOperands {
		return 0, fmt.Errorf("%w: max %d", ErrTooManyNumbers, rules.MaxOperands)
	}
	if err := CheckOperands(used, pool); err != nil {
		return 0, err
	}
	if rules.RequireAll && len(used) != len(pool) {
		return 0, fmt.Errorf("%w: used %d of %d", ErrMustUseAll, len(used), len(pool))
	}
	return e.Reduce()
}
