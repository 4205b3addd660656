package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeMessageID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare ID unchanged", input: "abc-123@mail.example.com", expected: "abc-123@mail.example.com"},
		{name: "angle brackets stripped", input: "<abc-123@mail.example.com>", expected: "abc-123@mail.example.com"},
		{name: "surrounding whitespace stripped", input: "  <abc@h>  ", expected: "abc@h"},
		{name: "doubly wrapped", input: "<<abc@h>>", expected: "abc@h"},
		{name: "whitespace inside brackets", input: "< abc@h >", expected: "abc@h"},
		{name: "empty input", input: "", expected: ""},
		{name: "brackets only", input: "<>", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeMessageID(tt.input))
		})
	}
}

func TestNormalizeMessageIDEquivalence(t *testing.T) {
	// The same logical identifier must normalize identically regardless
	// of how it was delimited.
	variants := []string{"id@host", "<id@host>", " <id@host> ", "<id@host> "}
	for _, v := range variants {
		assert.Equal(t, "id@host", NormalizeMessageID(v))
	}
}

func TestCandidateParentIDs(t *testing.T) {
	t.Run("merges references and in-reply-to", func(t *testing.T) {
		got := CandidateParentIDs("<c@h>", []string{"<a@h>", "<b@h>"})
		assert.Equal(t, []string{"a@h", "b@h", "c@h"}, got)
	})

	t.Run("deduplicates across delimiters", func(t *testing.T) {
		got := CandidateParentIDs("a@h", []string{"<a@h>", "a@h"})
		assert.Equal(t, []string{"a@h"}, got)
	})

	t.Run("drops empty entries", func(t *testing.T) {
		got := CandidateParentIDs("", []string{"", "<>"})
		assert.Empty(t, got)
	})

	t.Run("empty input gives empty output", func(t *testing.T) {
		assert.Empty(t, CandidateParentIDs("", nil))
	})
}

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain subject lowercased", input: "Hello World", expected: "hello world"},
		{name: "single reply marker", input: "Re: Hello", expected: "hello"},
		{name: "stacked markers", input: "Re: RE: Fwd: Hello", expected: "hello"},
		{name: "forward marker", input: "FW: Quarterly report", expected: "quarterly report"},
		{name: "german reply marker", input: "AW: Hallo", expected: "hallo"},
		{name: "marker without following space", input: "Re:Hello", expected: "hello"},
		{name: "marker mid-subject kept", input: "About Re: markers", expected: "about re: markers"},
		{name: "whitespace trimmed", input: "   Hello   ", expected: "hello"},
		{name: "only markers leaves empty", input: "Re: Fwd:", expected: ""},
		{name: "empty subject", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSubject(tt.input))
		})
	}
}
