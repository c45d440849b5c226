// Package http provides the JSON facade over the cached ledger.
//
// This file implements utilities for parsing and validating request data.
// Bodies may be JSON objects or form-encoded.

package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"feedesk/internal/core"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(body))
	return p.err
}

// Get returns a trimmed, sanitized value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Values flattens the parsed body into the string map the ledger's forms
// use. Empty values are dropped.
func (p *RequestBodyParser) Values() map[string]string {
	out := make(map[string]string)
	if p.jsonData != nil {
		for k := range p.jsonData {
			if v := p.Get(k); v != "" {
				out[k] = v
			}
		}
		return out
	}
	for k := range p.formData {
		if v := p.Get(k); v != "" {
			out[k] = v
		}
	}
	return out
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// FeeRequest reads a fee collection from the body. Field names are matched
// in either casing.
func (p *RequestBodyParser) FeeRequest() (core.FeeRequest, error) {
	req := core.FeeRequest{
		Roll:    p.first("Roll", "roll"),
		Mode:    p.first("Mode", "mode"),
		Remarks: p.first("Remarks", "remarks"),
	}
	raw := p.first("Amount", "amount")
	if raw == "" {
		return req, &core.ValidationError{Field: "amount", Reason: "is required"}
	}
	amount, err := decimal.NewFromString(core.CleanNumber(raw))
	if err != nil {
		return req, &core.InvalidAmountError{Amount: raw}
	}
	req.Amount = amount
	return req, nil
}

func (p *RequestBodyParser) first(keys ...string) string {
	for _, k := range keys {
		if v := p.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseLimit reads a positive limit query parameter, falling back to def.
func parseLimit(query url.Values, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get("limit")))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
