// Package model defines the shared value types exchanged between the dump
// reader, extractors, orchestrator, cache, and reporting layers.
package model

// Category classifies a finding. Custom pattern names become ad-hoc
// categories, so the type is open-ended rather than a closed enum.
type Category string

const (
	// CategoryString is a plain printable string with no stronger
	// classification.
	CategoryString Category = "string"
	// CategoryURL is an http/https/ftp URL.
	CategoryURL Category = "url"
	// CategoryIP is a dotted-quad IPv4 address.
	CategoryIP Category = "ip"
	// CategoryEmail is an email address.
	CategoryEmail Category = "email"
	// CategoryFilePath is a Windows or Unix filesystem path.
	CategoryFilePath Category = "path"
	// CategoryRegistryKey is a Windows registry key path.
	CategoryRegistryKey Category = "registry-key"
	// CategoryDomain is a bare domain name.
	CategoryDomain Category = "domain"
	// CategoryModuleName is a loaded module or executable name.
	CategoryModuleName Category = "module-name"
	// CategoryCommand is a shell or interpreter command line.
	CategoryCommand Category = "command"
	// CategoryCredential is a credential-shaped key/value string.
	CategoryCredential Category = "credential"
	// CategoryHexKey is a long hexadecimal run, a candidate key or hash.
	CategoryHexKey Category = "hex-key"
	// CategoryProcessAttr is a process attribute such as a PID line.
	CategoryProcessAttr Category = "process-attr"
	// CategoryHighEntropyBlob marks a span of candidate encrypted or
	// compressed data.
	CategoryHighEntropyBlob Category = "high-entropy-blob"
)

// Finding is one extracted artifact. Offset is the absolute byte offset of
// the artifact in the dump; Confidence is in (0, 1].
type Finding struct {
	Category   Category          `json:"category"`
	Value      string            `json:"value"`
	Offset     int64             `json:"offset"`
	Confidence float64           `json:"confidence"`
	Extractor  string            `json:"extractor"`
	Attr       map[string]string `json:"attr,omitempty"`
}

// Key returns the finding's deduplication identity. Two findings with the
// same key are the same artifact observed at different offsets.
func (f Finding) Key() FindingKey {
	return FindingKey{Category: f.Category, Value: f.Value}
}

// WithAttr returns a copy of the finding with one attribute set.
func (f Finding) WithAttr(key, value string) Finding {
	attr := make(map[string]string, len(f.Attr)+1)
	for k, v := range f.Attr {
		attr[k] = v
	}
	attr[key] = value
	f.Attr = attr
	return f
}

// FindingKey identifies a unique artifact independent of where it was seen.
type FindingKey struct {
	Category Category
	Value    string
}

// NewFinding creates a finding with full confidence.
func NewFinding(category Category, value string, offset int64, extractor string) Finding {
	return Finding{
		Category:   category,
		Value:      value,
		Offset:     offset,
		Confidence: 1.0,
		Extractor:  extractor,
	}
}
