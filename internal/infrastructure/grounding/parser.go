package grounding

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// bracketedArrayRegex finds the outermost JSON array in free text
var bracketedArrayRegex = regexp.MustCompile(`(?s)\[.*\]`)

// Record is one product listing as reported by the model. Nothing in it is
// trusted until validated by the caller.
type Record struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Unit     string          `json:"unit"`
	Code     string          `json:"code"`
	Category string          `json:"category"`
}

// UnmarshalJSON accepts prices as numbers or as "1,99" strings and codes as
// strings or numbers. Unparseable prices decode as zero.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     string          `json:"name"`
		Price    json.RawMessage `json:"price"`
		Unit     string          `json:"unit"`
		Code     json.RawMessage `json:"code"`
		Category string          `json:"category"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Name = strings.TrimSpace(raw.Name)
	r.Unit = strings.TrimSpace(raw.Unit)
	r.Category = strings.TrimSpace(raw.Category)
	r.Price = parsePrice(raw.Price)
	r.Code = parseCode(raw.Code)
	return nil
}

// ParseResult is either Parsed or Malformed
type ParseResult interface {
	isParseResult()
}

// Parsed holds the records decoded from a model answer
type Parsed struct {
	Records []Record
}

// Malformed keeps the raw answer when it could not be decoded
type Malformed struct {
	Raw string
	Err error
}

func (Parsed) isParseResult()    {}
func (Malformed) isParseResult() {}

// ParseRecords decodes a model answer. It strips markdown code fences, then
// tries strict JSON (an array or a single object), then the first bracketed
// array found in the text. Records without a name are dropped.
func ParseRecords(text string) ParseResult {
	cleaned := stripCodeFences(text)
	if cleaned == "" {
		return Parsed{}
	}

	records, err := decodeRecords([]byte(cleaned))
	if err != nil {
		match := bracketedArrayRegex.FindString(cleaned)
		if match == "" {
			return Malformed{Raw: text, Err: fmt.Errorf("no JSON array in response: %w", err)}
		}
		records, err = decodeRecords([]byte(match))
		if err != nil {
			return Malformed{Raw: text, Err: err}
		}
	}

	named := records[:0]
	for _, rec := range records {
		if rec.Name != "" {
			named = append(named, rec)
		}
	}
	return Parsed{Records: named}
}

func decodeRecords(data []byte) ([]Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty JSON")
	}

	if data[0] == '{' {
		var single Record
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("failed to parse JSON object: %w", err)
		}
		return []Record{single}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse JSON array: %w", err)
	}
	return records, nil
}

func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func parsePrice(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(raw)
	}

	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "€")
	s = strings.TrimPrefix(s, "€")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}
