package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"regexp"
	"strings"
	"unicode"

	"github.com/sailing-innocent/SailZen/internal/pkg/logger"
)

var (
	cjkNameRe   = regexp.MustCompile(`[\p{Han}]{2,5}`)
	latinNameRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2}\b`)
)

var mockEntityTypes = []string{"character", "location", "item", "organization", "concept"}

// mockExtractionClient produces deterministic proposals from surface patterns
// in the text, so the pipeline can be exercised end to end without a model.
type mockExtractionClient struct {
	log *logger.Logger
}

func NewMockExtractionClient(log *logger.Logger) ExtractionClient {
	return &mockExtractionClient{log: log.With("service", "MockExtractionClient")}
}

func (c *mockExtractionClient) Model() string { return "mock" }

func (c *mockExtractionClient) Extract(ctx context.Context, text, contextText string) ([]EntityProposal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var proposals []EntityProposal

	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] || isStopWord(name) {
			return
		}
		seen[name] = true
		proposals = append(proposals, EntityProposal{
			CanonicalName:    name,
			EntityType:       mockTypeFor(name),
			FirstMentionText: name,
		})
	}

	for _, m := range cjkNameRe.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range latinNameRe.FindAllString(text, -1) {
		add(m)
	}

	c.log.Debug("mock extraction produced proposals", "count", len(proposals))
	return proposals, nil
}

// mockTypeFor hashes the name so the same surface form always maps to the
// same type across runs.
func mockTypeFor(name string) string {
	sum := sha256.Sum256([]byte(name))
	idx := binary.BigEndian.Uint32(sum[:4]) % uint32(len(mockEntityTypes))
	return mockEntityTypes[idx]
}

func isStopWord(name string) bool {
	if len([]rune(name)) < 2 {
		return true
	}
	switch strings.ToLower(name) {
	case "the", "and", "but", "she", "him", "her", "his", "they", "when", "then", "there":
		return true
	}
	for _, r := range name {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
