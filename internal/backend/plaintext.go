package backend

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// EnginePlaintext is the terminal fallback engine name. It accepts anything
// decodable as text and never fails on well-formed input, which makes it the
// natural last element of a fallback chain.
const EnginePlaintext = "plaintext"

// PlainResult is the native payload of the plaintext engine.
type PlainResult struct {
	Paragraphs []string
}

func (r *PlainResult) Engine() string { return EnginePlaintext }

// PlaintextEngine treats the input as UTF-8 text split into paragraphs.
type PlaintextEngine struct{}

func (PlaintextEngine) Name() string { return EnginePlaintext }

func (PlaintextEngine) Parse(ctx context.Context, req Request) (Native, error) {
	if err := ctx.Err(); err != nil {
		return nil, parseErr(EnginePlaintext, KindTimeout, err)
	}
	if !utf8.Valid(req.Data) {
		// Binary garbage stays a permanent failure even here.
		return nil, parseErr(EnginePlaintext, KindUnsupportedFormat, errInvalidUTF8)
	}

	scanner := bufio.NewScanner(bytes.NewReader(req.Data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	result := &PlainResult{}
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			result.Paragraphs = append(result.Paragraphs, current.String())
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, parseErr(EnginePlaintext, KindMalformedInput, err)
	}
	return result, nil
}

var errInvalidUTF8 = errors.New("input is not valid UTF-8 text")
