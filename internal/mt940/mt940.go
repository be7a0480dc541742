// Package mt940 parses SWIFT MT940 customer statement messages into the
// fields the reconciler consumes. It reads the header tags (:20:, :25:,
// :28C:), the :61: statement lines and their attached :86: narrative blocks;
// balance tags are tolerated and ignored. The statement currency is not part
// of the wire format and is injected by the caller.
package mt940

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/dimchansky/utfbom"
	"github.com/shopspring/decimal"
)

// Debit/credit indicators of a :61: statement line. The R-prefixed variants
// mark reversals of an earlier entry.
const (
	IndicatorCredit         = "C"
	IndicatorDebit          = "D"
	IndicatorReversalCredit = "RC"
	IndicatorReversalDebit  = "RD"
)

// Transaction is one :61: statement line plus its :86: narrative block.
type Transaction struct {
	ValueDate            time.Time
	EntryDate            *time.Time
	DebitCreditIndicator string
	Amount               decimal.Decimal
	TransactionTypeCode  string
	CustomerReference    string
	BankReference        string
	Narratives           []string
}

// IsDebit reports whether the line books a debit (original or reversal).
func (t Transaction) IsDebit() bool {
	return t.DebitCreditIndicator == IndicatorDebit || t.DebitCreditIndicator == IndicatorReversalDebit
}

// IsReversal reports whether the line reverses an earlier entry.
func (t Transaction) IsReversal() bool {
	return t.DebitCreditIndicator == IndicatorReversalCredit || t.DebitCreditIndicator == IndicatorReversalDebit
}

// Statement is one parsed MT940 message.
type Statement struct {
	TransactionReference string
	AccountNumber        string
	StatementNumber      string
	SequenceNumber       string
	Currency             string
	Transactions         []Transaction
}

// statementLineRegex splits a :61: line into value date (YYMMDD), optional
// entry date (MMDD), debit/credit indicator, optional funds code, comma-decimal
// amount, transaction type code and the reference remainder.
var statementLineRegex = regexp.MustCompile(`^(?P<value_date>\d{6})(?P<entry_date>\d{4})?(?P<indicator>R?[CD])(?P<funds_code>[A-Z])?(?P<amount>\d+,\d*)(?P<type_code>[A-Z][A-Z0-9]{3})(?P<references>.*)$`)

const (
	valueDateLayout = "060102"
	entryDateLayout = "0102"
)

// Parse reads one MT940 message. A leading UTF BOM is stripped. Malformed :61:
// lines fail the whole statement; unknown tags and balance tags are skipped.
func Parse(r io.Reader, currency string) (*Statement, error) {
	statement := &Statement{Currency: currency}

	scanner := bufio.NewScanner(utfbom.SkipOnly(r))

	currentTag := ""
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || line == "-" {
			continue
		}

		tag, value, isTagged := splitTag(line)
		if !isTagged {
			// Untagged lines continue the field above them; only narrative
			// continuations carry reconciliation data.
			if currentTag == "86" && len(statement.Transactions) > 0 {
				last := &statement.Transactions[len(statement.Transactions)-1]
				last.Narratives = append(last.Narratives, line)
			}
			continue
		}
		currentTag = tag

		switch tag {
		case "20":
			statement.TransactionReference = value
		case "25":
			statement.AccountNumber = value
		case "28C":
			statement.StatementNumber, statement.SequenceNumber = splitStatementNumber(value)
		case "61":
			transaction, err := parseStatementLine(value)
			if err != nil {
				return nil, fmt.Errorf("parsing :61: line %d: %w", lineNumber, err)
			}
			statement.Transactions = append(statement.Transactions, transaction)
		case "86":
			if len(statement.Transactions) == 0 {
				continue
			}
			last := &statement.Transactions[len(statement.Transactions)-1]
			last.Narratives = append(last.Narratives, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading statement: %w", err)
	}

	return statement, nil
}

// splitTag splits a ":tag:value" line. Lines without a leading tag marker are
// continuations of the preceding field.
func splitTag(line string) (tag, value string, ok bool) {
	if !strings.HasPrefix(line, ":") {
		return "", "", false
	}
	end := strings.Index(line[1:], ":")
	if end < 0 {
		return "", "", false
	}
	return line[1 : end+1], line[end+2:], true
}

func splitStatementNumber(value string) (statementNumber, sequenceNumber string) {
	statementNumber, sequenceNumber, _ = strings.Cut(value, "/")
	return statementNumber, sequenceNumber
}

func parseStatementLine(value string) (Transaction, error) {
	match := statementLineRegex.FindStringSubmatch(value)
	if match == nil {
		return Transaction{}, fmt.Errorf("statement line %q does not match the :61: format", value)
	}

	groups := make(map[string]string)
	for i, name := range statementLineRegex.SubexpNames() {
		if name != "" {
			groups[name] = match[i]
		}
	}

	valueDate, err := time.ParseInLocation(valueDateLayout, groups["value_date"], time.UTC)
	if err != nil {
		return Transaction{}, fmt.Errorf("parsing value date %q: %w", groups["value_date"], err)
	}

	var entryDate *time.Time
	if groups["entry_date"] != "" {
		parsedEntryDate, entryErr := time.ParseInLocation(entryDateLayout, groups["entry_date"], time.UTC)
		if entryErr != nil {
			return Transaction{}, fmt.Errorf("parsing entry date %q: %w", groups["entry_date"], entryErr)
		}
		// The entry date carries no year on the wire; it shares the value date's.
		withYear := parsedEntryDate.AddDate(valueDate.Year(), 0, 0)
		entryDate = &withYear
	}

	amount, err := decimal.NewFromString(strings.TrimSuffix(strings.Replace(groups["amount"], ",", ".", 1), "."))
	if err != nil {
		return Transaction{}, fmt.Errorf("parsing amount %q: %w", groups["amount"], err)
	}

	customerReference, bankReference, _ := strings.Cut(groups["references"], "//")

	return Transaction{
		ValueDate:            valueDate,
		EntryDate:            entryDate,
		DebitCreditIndicator: groups["indicator"],
		Amount:               amount,
		TransactionTypeCode:  groups["type_code"],
		CustomerReference:    strings.TrimSpace(customerReference),
		BankReference:        strings.TrimSpace(bankReference),
	}, nil
}
