// Package settings stores the mapping table, importer settings and
// credentials on top of a store.Store.
package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/rumor-ml/commons.systems/ledgerimport/internal/ledger"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/store"
	"github.com/rumor-ml/commons.systems/ledgerimport/internal/transform"
)

const (
	descriptionPrefix = "description-mapping/"
	payeePrefix       = "payee-mapping/"
	accountPrefix     = "account-mapping/"
	importerPrefix    = "importer-setting/"
	credentialPrefix  = "credential/"
	commodityKey      = "general/commodity"

	// DefaultCommodity is used when neither the account nor the settings name one.
	DefaultCommodity = "CAD"
)

// FallbackAccount is the placeholder counter account for transactions
// without a known payee to account mapping.
var FallbackAccount = ledger.MustAccountName("Expenses:TODO")

// Setting is a configurable value an importer type exposes.
type Setting struct {
	Identifier  string
	DisplayName string
}

// Settings wraps a store with typed accessors.
type Settings struct {
	store store.Store
}

// New creates settings backed by s.
func New(s store.Store) *Settings {
	return &Settings{store: s}
}

// DescriptionMapping returns the narration remembered for an original description.
func (s *Settings) DescriptionMapping(ctx context.Context, description string) (string, bool, error) {
	return s.get(ctx, descriptionPrefix+transform.NormalizeKey(description))
}

// PayeeMapping returns the payee remembered for an original description.
func (s *Settings) PayeeMapping(ctx context.Context, description string) (string, bool, error) {
	return s.get(ctx, payeePrefix+transform.NormalizeKey(description))
}

// AccountMapping returns the counter account remembered for a payee.
func (s *Settings) AccountMapping(ctx context.Context, payee string) (ledger.AccountName, bool, error) {
	value, ok, err := s.get(ctx, accountPrefix+transform.NormalizeKey(payee))
	if err != nil || !ok {
		return "", false, err
	}
	name, err := ledger.NewAccountName(value)
	if err != nil {
		return "", false, fmt.Errorf("stored account mapping for payee %q is invalid: %w", payee, err)
	}
	return name, true, nil
}

// ConfirmMapping remembers the reviewed narration and payee for an original
// description and the account for the payee, overwriting earlier entries.
func (s *Settings) ConfirmMapping(ctx context.Context, originalDescription, narration, payee string, account ledger.AccountName) error {
	key := transform.NormalizeKey(originalDescription)
	if err := s.store.Set(ctx, descriptionPrefix+key, narration); err != nil {
		return fmt.Errorf("failed to save description mapping: %w", err)
	}
	if err := s.store.Set(ctx, payeePrefix+key, payee); err != nil {
		return fmt.Errorf("failed to save payee mapping: %w", err)
	}
	if err := s.store.Set(ctx, accountPrefix+transform.NormalizeKey(payee), account.String()); err != nil {
		return fmt.Errorf("failed to save account mapping: %w", err)
	}
	return nil
}

// Mappings is a snapshot of the three mapping tables.
type Mappings struct {
	Descriptions map[string]string
	Payees       map[string]string
	Accounts     map[string]string
}

// AllMappings reads the complete mapping table.
func (s *Settings) AllMappings(ctx context.Context) (Mappings, error) {
	var m Mappings
	var err error
	if m.Descriptions, err = s.list(ctx, descriptionPrefix); err != nil {
		return Mappings{}, err
	}
	if m.Payees, err = s.list(ctx, payeePrefix); err != nil {
		return Mappings{}, err
	}
	if m.Accounts, err = s.list(ctx, accountPrefix); err != nil {
		return Mappings{}, err
	}
	return m, nil
}

// ImporterSetting returns the stored value of an importer setting.
func (s *Settings) ImporterSetting(ctx context.Context, importerType string, setting Setting) (string, bool, error) {
	return s.get(ctx, importerKey(importerType, setting.Identifier))
}

// SetImporterSetting stores the value of an importer setting.
func (s *Settings) SetImporterSetting(ctx context.Context, importerType string, setting Setting, value string) error {
	if err := s.store.Set(ctx, importerKey(importerType, setting.Identifier), value); err != nil {
		return fmt.Errorf("failed to save setting %s of %s: %w", setting.Identifier, importerType, err)
	}
	return nil
}

func importerKey(importerType, identifier string) string {
	return importerPrefix + importerType + "/" + identifier
}

// Commodity returns the configured fallback commodity, or DefaultCommodity.
func (s *Settings) Commodity(ctx context.Context) (string, error) {
	value, ok, err := s.get(ctx, commodityKey)
	if err != nil {
		return "", err
	}
	if !ok || value == "" {
		return DefaultCommodity, nil
	}
	return value, nil
}

// SetCommodity changes the fallback commodity.
func (s *Settings) SetCommodity(ctx context.Context, commodity string) error {
	return s.store.Set(ctx, commodityKey, commodity)
}

func (s *Settings) get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, ok, nil
}

// list returns the entries under prefix with the prefix stripped.
func (s *Settings) list(ctx context.Context, prefix string) (map[string]string, error) {
	entries, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	result := make(map[string]string, len(entries))
	for k, v := range entries {
		result[strings.TrimPrefix(k, prefix)] = v
	}
	return result, nil
}
