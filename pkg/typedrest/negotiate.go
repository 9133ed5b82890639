package typedrest

import (
	"fmt"
	"mime"
	"sort"
	"strings"
)

// RequestNegotiator selects exactly one parser for an inbound request based
// on its Content-Type header. Built once per endpoint at registration time;
// Negotiate runs per request and must stay O(1) for the exact-match case.
//
// Tie-break rule: when no Content-Type header is present the FIRST declared
// parser wins. Declaration order is the default priority.
type RequestNegotiator struct {
	parsers []Parser
	exact   map[string]Parser
	// wildcard parsers, pre-sorted by specificity descending with
	// declaration order as the tie-break
	wildcards []Parser
	def       Parser
}

// NewRequestNegotiator builds a negotiator over the declared parser set.
func NewRequestNegotiator(parsers []Parser) (*RequestNegotiator, error) {
	if len(parsers) == 0 {
		return nil, newMetadataError("at least one parser must be declared")
	}

	exact := make(map[string]Parser, len(parsers))
	var wildcards []Parser
	for _, p := range parsers {
		mr := p.MediaRange()
		if mr.IsWildcard() {
			wildcards = append(wildcards, p)
			continue
		}
		key := strings.ToLower(mr.String())
		if _, dup := exact[key]; dup {
			return nil, newMetadataError("duplicate parser for content type %q", key)
		}
		exact[key] = p
	}

	sort.SliceStable(wildcards, func(i, j int) bool {
		return wildcards[i].MediaRange().Specificity() > wildcards[j].MediaRange().Specificity()
	})

	return &RequestNegotiator{
		parsers:   parsers,
		exact:     exact,
		wildcards: wildcards,
		def:       parsers[0],
	}, nil
}

// Negotiate picks the parser for the given Content-Type header value.
// An empty header selects the default (first declared) parser.
func (n *RequestNegotiator) Negotiate(contentType string) (Parser, error) {
	if contentType == "" {
		return n.def, nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, NewRequestSerializationError(
			fmt.Sprintf("cannot parse Content-Type header %q", contentType), nil)
	}
	mediaType = strings.ToLower(mediaType)

	// Positive-path optimization: exact match before any wildcard scan.
	if p, ok := n.exact[mediaType]; ok {
		return p, nil
	}

	for _, p := range n.wildcards {
		if p.MediaRange().Matches(mediaType) {
			return p, nil
		}
	}

	return nil, NewRequestSerializationError(
		fmt.Sprintf("cannot parse request body with content type %q, expected one of %v",
			mediaType, n.offered()), nil)
}

func (n *RequestNegotiator) offered() []string {
	types := make([]string, 0, len(n.parsers))
	for _, p := range n.parsers {
		types = append(types, p.MediaRange().String())
	}
	return types
}

// ResponseNegotiator selects exactly one renderer for a request based on
// its Accept header. It runs BEFORE the handler: fixing the renderer early
// guarantees a consistent Content-Type on output for both the success path
// and any error path within the request.
//
// Tie-break rule: when no Accept header is present the FIRST declared
// renderer wins.
type ResponseNegotiator struct {
	renderers []Renderer
	def       Renderer
}

// NewResponseNegotiator builds a negotiator over the declared renderer set.
func NewResponseNegotiator(renderers []Renderer) (*ResponseNegotiator, error) {
	if len(renderers) == 0 {
		return nil, newMetadataError("at least one renderer must be declared")
	}

	seen := make(map[string]struct{}, len(renderers))
	for _, r := range renderers {
		key := strings.ToLower(r.MediaRange().String())
		if _, dup := seen[key]; dup {
			return nil, newMetadataError("duplicate renderer for content type %q", key)
		}
		seen[key] = struct{}{}
	}

	return &ResponseNegotiator{renderers: renderers, def: renderers[0]}, nil
}

// Negotiate picks the renderer for the given Accept header value. An empty
// header selects the default (first declared) renderer.
func (n *ResponseNegotiator) Negotiate(accept string) (Renderer, error) {
	if accept == "" {
		return n.def, nil
	}

	ranges := parseAcceptHeader(accept)
	if len(ranges) == 0 {
		return nil, &NotAcceptableError{Accept: accept, Offered: n.offered()}
	}

	// Rank accepted ranges by client quality, then specificity. The sort is
	// stable so equal ranges keep the client's preference order. For each
	// range in rank order, the first declared renderer that matches wins.
	sort.SliceStable(ranges, func(i, j int) bool {
		if ranges[i].Quality != ranges[j].Quality {
			return ranges[i].Quality > ranges[j].Quality
		}
		return ranges[i].Specificity() > ranges[j].Specificity()
	})

	for _, ar := range ranges {
		if ar.Quality == 0 {
			// q=0 is an explicit refusal.
			continue
		}
		for _, r := range n.renderers {
			if ar.Matches(r.ContentType()) {
				return r, nil
			}
		}
	}

	return nil, &NotAcceptableError{Accept: accept, Offered: n.offered()}
}

// Default returns the first declared renderer.
func (n *ResponseNegotiator) Default() Renderer {
	return n.def
}

func (n *ResponseNegotiator) offered() []string {
	types := make([]string, 0, len(n.renderers))
	for _, r := range n.renderers {
		types = append(types, r.ContentType())
	}
	return types
}

// parseAcceptHeader splits an Accept header into media ranges, dropping
// segments that cannot be parsed. Order is preserved so that equal-quality
// ranges keep the client's preference order.
func parseAcceptHeader(accept string) []MediaRange {
	segments := strings.Split(accept, ",")
	ranges := make([]MediaRange, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		mr, err := ParseMediaRange(seg)
		if err != nil {
			continue
		}
		ranges = append(ranges, mr)
	}
	return ranges
}
