package extractor

import (
	"context"
	"net"
	"strings"

	"github.com/dumpsleuth/internal/dump"
	"github.com/dumpsleuth/pkg/model"
)

// NetworkExtractor finds network indicators: URLs, IPv4 addresses, email
// addresses, and bare domains. IP findings carry a scope attribute so
// reporting can separate private and loopback noise from real endpoints.
type NetworkExtractor struct{}

// NewNetworkExtractor creates the network extractor.
func NewNetworkExtractor() *NetworkExtractor {
	return &NetworkExtractor{}
}

func (e *NetworkExtractor) Descriptor() Descriptor {
	return Descriptor{
		Name: "network",
		Categories: []model.Category{
			model.CategoryURL,
			model.CategoryIP,
			model.CategoryEmail,
			model.CategoryDomain,
		},
		Priority: 90,
	}
}

var networkPatternNames = []string{"url", "ip", "email", "domain"}

func (e *NetworkExtractor) Extract(ctx context.Context, chunk dump.Chunk, env *Env) ([]model.Finding, error) {
	var findings []model.Finding
	for _, name := range networkPatternNames {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		p, ok := env.Patterns.Get(name)
		if !ok {
			continue
		}
		matches := p.FindAll(chunk.Data, chunk.Offset, "network")
		for _, f := range matches {
			if f.Category == model.CategoryIP {
				f = f.WithAttr("scope", classifyIP(f.Value))
			}
			if f.Category == model.CategoryURL {
				f = f.WithAttr("scheme", urlScheme(f.Value))
			}
			findings = append(findings, f)
		}
	}
	return findings, nil
}

// classifyIP buckets an IPv4 address by routing scope.
func classifyIP(value string) string {
	ip := net.ParseIP(value)
	if ip == nil {
		return "invalid"
	}
	switch {
	case ip.IsLoopback():
		return "loopback"
	case ip.IsPrivate():
		return "private"
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		return "link-local"
	case ip.IsMulticast():
		return "multicast"
	case ip.IsUnspecified():
		return "unspecified"
	default:
		return "public"
	}
}

func urlScheme(value string) string {
	if i := strings.Index(value, "://"); i > 0 {
		return strings.ToLower(value[:i])
	}
	return ""
}
