// Package quickorder turns a typed counter ticket such as
//
//	table 12 Asha; 2x americano + oat milk; cappuccino
//
// into order items priced against the catalog.
package quickorder

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Ticket is a parsed counter ticket.
type Ticket struct {
	TableNumber  string
	CustomerName string
	Lines        []Line
	Warnings     []string // Lines that failed to parse
}

// Line is one requested product with its add-ons.
type Line struct {
	RawText     string
	Description string
	Qty         int
	AddOns      []string
}

const maxLineQty = 50

// ParseTicket parses a ticket. Lines are separated by newlines or
// semicolons; the first must name the table (e.g. "table 12" or "t12"),
// optionally followed by the customer's name.
func ParseTicket(text string) (*Ticket, error) {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == ';' })

	var t Ticket
	var tableFound bool
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if !tableFound {
			table, name, ok := parseTableLine(part)
			if !ok {
				return nil, fmt.Errorf("first line must name the table, got: %q", part)
			}
			t.TableNumber, t.CustomerName = table, name
			tableFound = true
			continue
		}

		line, err := parseItemLine(part)
		if err != nil {
			t.Warnings = append(t.Warnings, fmt.Sprintf("skipped: %s", part))
			continue
		}
		t.Lines = append(t.Lines, *line)
	}

	if !tableFound {
		return nil, fmt.Errorf("no table found in ticket")
	}
	if len(t.Lines) == 0 {
		return nil, fmt.Errorf("no items found in ticket")
	}
	return &t, nil
}

// parseTableLine accepts "table 12", "table 12 Asha", "t12" and "#12".
func parseTableLine(line string) (table, name string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", "", false
	}

	first := strings.ToLower(fields[0])
	rest := fields[1:]
	switch {
	case first == "table" || first == "t":
		if len(rest) == 0 {
			return "", "", false
		}
		table, rest = rest[0], rest[1:]
	case strings.HasPrefix(first, "#"):
		table = first[1:]
	case strings.HasPrefix(first, "t") && isDigits(first[1:]):
		table = first[1:]
	default:
		return "", "", false
	}

	if !isDigits(table) {
		return "", "", false
	}
	return table, strings.Join(rest, " "), true
}

// parseItemLine parses "2x americano + oat milk + extra shot".
func parseItemLine(line string) (*Line, error) {
	segments := strings.Split(line, "+")
	tokens := strings.Fields(strings.ToLower(segments[0]))
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty line")
	}

	qty := 1
	var qtyFound bool
	var descTokens []string
	for _, tok := range tokens {
		if q, ok := parseQtyToken(tok); ok && !qtyFound {
			qty = q
			qtyFound = true
		} else {
			descTokens = append(descTokens, tok)
		}
	}
	if len(descTokens) == 0 {
		return nil, fmt.Errorf("no product in line: %q", line)
	}
	if qty < 1 || qty > maxLineQty {
		return nil, fmt.Errorf("quantity %d out of range in line: %q", qty, line)
	}

	var addOns []string
	for _, seg := range segments[1:] {
		if seg = strings.TrimSpace(seg); seg != "" {
			addOns = append(addOns, strings.ToLower(seg))
		}
	}

	return &Line{
		RawText:     line,
		Description: strings.Join(descTokens, " "),
		Qty:         qty,
		AddOns:      addOns,
	}, nil
}

// parseQtyToken parses "2", "2x" and "x2".
func parseQtyToken(tok string) (int, bool) {
	tok = strings.TrimSuffix(strings.TrimPrefix(tok, "x"), "x")
	if !isDigits(tok) {
		return 0, false
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
