// Package registry is the table of supported importers. File importers are
// detected from the header of a file; the text importer and the download
// importers are constructed directly.
package registry

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/download/rogers"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/download/wealthsimple"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/importer"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parser"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parsers/csv"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/parsers/ofx"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/settings"
)

// headerSize is how much of a file detection looks at.
const headerSize = 512

// Kind is how an importer gets its input.
type Kind int

const (
	KindFile Kind = iota
	KindText
	KindDownload
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindText:
		return "text"
	case KindDownload:
		return "download"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Descriptor describes one importer variant.
type Descriptor struct {
	Type string
	Name string
	Kind Kind
	// ImportPrefix starts the import name of file importers.
	ImportPrefix string
	Help         string
	Settings     []settings.Setting
	// Parser reads the files of file importers.
	Parser parser.Parser
}

// Option configures a Registry.
type Option func(*Registry)

// WithRogersClient enables the Rogers Bank download.
func WithRogersClient(client rogers.Client) Option {
	return func(r *Registry) {
		r.rogersClient = client
	}
}

// WithWealthsimpleClient enables the Wealthsimple download.
func WithWealthsimpleClient(client wealthsimple.Client) Option {
	return func(r *Registry) {
		r.wealthsimpleClient = client
	}
}

// Registry holds all registered importer descriptors in registration order.
type Registry struct {
	descriptors        []Descriptor
	rogersClient       rogers.Client
	wealthsimpleClient wealthsimple.Client
}

// csvHelp is the help text of CSV importers without special instructions.
func csvHelp(name, importerType string) string {
	return fmt.Sprintf("Enables importing of downloaded CSV files from %s Accounts.\n\nTo use add importer-type: %q to your account.", name, importerType)
}

func builtins() []Descriptor {
	fileSettings := []settings.Setting{importer.AccountSetting}
	csvFile := func(importerType, name, prefix string, lines parser.LineParser) Descriptor {
		return Descriptor{
			Type:         importerType,
			Name:         name,
			Kind:         KindFile,
			ImportPrefix: prefix,
			Help:         csvHelp(name, importerType),
			Settings:     fileSettings,
			Parser:       csv.NewSource(importerType, lines),
		}
	}

	lunchOnUs := csvFile("lunch-on-us", "Lunch On Us", "LunchOnUs", csv.LunchOnUs{})
	lunchOnUs.Help = "Enables importing of CSV files downloaded from https://lunchmapper.appspot.com/csv. Does not support importing balances.\n\nTo use add importer-type: \"lunch-on-us\" to your account."

	return []Descriptor{
		csvFile("tangerine-account", "Tangerine Accounts", "Tangerine Account", csv.Tangerine{}),
		csvFile("simplii", "Simplii", "Simplii", csv.Simplii{}),
		csvFile("rogers-cc", "Rogers CC", "Rogers CC", csv.Rogers{}),
		lunchOnUs,
		csvFile("n26", "N26", "N26", csv.N26{}),
		{
			Type:         "ofx",
			Name:         "OFX",
			Kind:         KindFile,
			ImportPrefix: "OFX",
			Help:         "Enables importing of OFX and QFX statements, including the ledger balance.\n\nTo use add importer-type: \"ofx\" to your account.",
			Settings:     fileSettings,
			Parser:       ofx.NewParser(),
		},
		{
			Type:     importer.ManuLifeType,
			Name:     "ManuLife",
			Kind:     KindText,
			Help:     "Enables importing of contributions and balances copied from the ManuLife website.\n\nTo use add importer-type: \"manulife\" to your account. The fraction of each contribution source can be set with the account metadata employee-basic-fraction, employer-basic-fraction, employer-match-fraction and employee-voluntary-fraction.",
			Settings: fileSettings,
		},
		{
			Type:     rogers.ImporterType,
			Name:     rogers.ImporterName,
			Kind:     KindDownload,
			Help:     rogers.HelpText,
			Settings: []settings.Setting{rogers.StatementsSetting},
		},
		{
			Type:     wealthsimple.ImporterType,
			Name:     "Wealthsimple",
			Kind:     KindDownload,
			Help:     wealthsimple.HelpText,
			Settings: []settings.Setting{wealthsimple.LookbackSetting},
		},
	}
}

// New creates a registry with all built-in importers.
func New(opts ...Option) (*Registry, error) {
	r := &Registry{}
	for _, opt := range opts {
		opt(r)
	}
	for _, d := range builtins() {
		if err := r.Register(d); err != nil {
			return nil, fmt.Errorf("failed to register built-in importer: %w", err)
		}
	}
	return r, nil
}

// MustNew creates a registry and panics on error.
// Use this only when the registry is known to be valid (e.g., in tests or with built-in importers only).
func MustNew(opts ...Option) *Registry {
	r, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create registry: %v", err))
	}
	return r
}

// Register adds an importer. Types and names must be unique and file
// importers need a parser.
func (r *Registry) Register(d Descriptor) error {
	if d.Type == "" || d.Name == "" {
		return fmt.Errorf("cannot register importer without type and name")
	}
	if d.Kind == KindFile && d.Parser == nil {
		return fmt.Errorf("cannot register file importer %s without parser", d.Type)
	}
	for _, existing := range r.descriptors {
		if existing.Type == d.Type {
			return fmt.Errorf("importer type %q already registered", d.Type)
		}
		if existing.Name == d.Name {
			return fmt.Errorf("importer name %q already registered", d.Name)
		}
	}
	r.descriptors = append(r.descriptors, d)
	return nil
}

// Descriptors returns all registered importers
func (r *Registry) Descriptors() []Descriptor {
	result := make([]Descriptor, len(r.descriptors))
	copy(result, r.descriptors)
	return result
}

// Descriptor looks up an importer by type.
func (r *Registry) Descriptor(importerType string) (Descriptor, bool) {
	for _, d := range r.descriptors {
		if d.Type == importerType {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Resolve returns the importer of the file at path. The first file
// importer in registration order whose parser accepts the header wins. An
// unreadable file or no match gives false.
func (r *Registry) Resolve(path string, env importer.Env) (importer.Importer, bool) {
	meta, err := parser.NewMetadata(path, now(env))
	if err != nil {
		return nil, false
	}
	return r.ResolveMetadata(meta, env)
}

// ResolveMetadata is Resolve for a file found by the scanner; the account
// number of its metadata narrows account resolution.
func (r *Registry) ResolveMetadata(meta *parser.Metadata, env importer.Env) (importer.Importer, bool) {
	d, ok := r.detect(meta.FilePath())
	if !ok {
		return nil, false
	}
	kind := importer.FileKind{Type: d.Type, ImportPrefix: d.ImportPrefix}
	return importer.NewFileImporter(kind, d.Parser, meta.FilePath(), meta, env), true
}

func (r *Registry) detect(path string) (Descriptor, bool) {
	header, err := readHeader(path)
	if err != nil {
		return Descriptor{}, false
	}
	for _, d := range r.descriptors {
		if d.Kind == KindFile && d.Parser.CanParse(path, header) {
			return d, true
		}
	}
	return Descriptor{}, false
}

// readHeader reads up to headerSize bytes. Shorter files are fine.
func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}
	return header[:n], nil
}

// ResolveText returns the importer of copied text.
func (r *Registry) ResolveText(env importer.Env, transactionText, balanceText string) importer.Importer {
	return importer.NewManuLifeImporter(env, transactionText, balanceText)
}

// DownloadImporters returns one importer per configured download client, in
// registration order.
func (r *Registry) DownloadImporters(env importer.Env) []importer.Importer {
	var result []importer.Importer
	for _, d := range r.descriptors {
		if d.Kind != KindDownload {
			continue
		}
		switch d.Type {
		case rogers.ImporterType:
			if r.rogersClient != nil {
				result = append(result, rogers.NewImporter(r.rogersClient, env))
			}
		case wealthsimple.ImporterType:
			if r.wealthsimpleClient != nil {
				result = append(result, wealthsimple.NewImporter(r.wealthsimpleClient, env))
			}
		}
	}
	return result
}

func now(env importer.Env) time.Time {
	if env.Now != nil {
		return env.Now()
	}
	return time.Now()
}
