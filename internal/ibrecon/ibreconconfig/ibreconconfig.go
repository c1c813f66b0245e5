// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package ibreconconfig provides configuration parsing and validation for ibrecon.
//
// Configuration is stored at <dir>/ibrecon.yaml.
package ibreconconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibrecondata"
	"github.com/bufdev/ibrecon/internal/ibrecon/ibreconpath"
	"gopkg.in/yaml.v3"
)

// FXProvider is a source of daily exchange rates.
type FXProvider string

const (
	// FXProviderBSI is the Bank of Slovenia reference rate list. EUR only.
	FXProviderBSI FXProvider = "bsi"
	// FXProviderFrankfurter is the frankfurter.dev API.
	FXProviderFrankfurter FXProvider = "frankfurter"
)

var (
	// DefaultNormalAssets are the default normal asset categories.
	DefaultNormalAssets = []string{"STK"}
	// DefaultDerivativeAssets are the default derivative asset categories.
	DefaultDerivativeAssets = []string{"CFD", "FXCFD", "OPT", "FUT", "FOP", "WAR"}
	// DefaultIgnoredAssets are the default ignored asset categories.
	DefaultIgnoredAssets = []string{"CASH", "CMDTY"}
	// DefaultCurrencyAliases are the default currency aliases.
	DefaultCurrencyAliases = map[string]string{"CNH": "CNY"}
)

// configTemplate is the default configuration file template with comments.
// yaml.v3 does not preserve comments, so we hardcode the template string.
const configTemplate = `# The configuration file version.
#
# Required. The only current valid version is v1.
version: v1
# The year to reconcile.
#
# Required.
report_year: 0
# The currency all amounts are converted to.
#
# Optional. Defaults to EUR.
reporting_currency: EUR
# IBKR Flex Query configuration.
#
# Required for download. Create a Flex Query at https://www.interactivebrokers.com
# under Performance & Reports > Flex Queries. Include the Trades (with Lots),
# Corporate Actions, Cash Transactions, and Financial Instrument Information
# sections with all fields enabled.
#
# The Flex Web Service token must be set via the IBKR_TOKEN environment variable,
# or in a .env file next to this file.
ibkr:
  # The Flex Query ID (visible next to your query name in the IBKR portal).
  query_id: ""
# Asset categories.
#
# Optional. A category may appear in only one list. Trades in a category that
# is in none of the lists are reported and their security is left out.
# assets:
#   normal: [STK]
#   derivative: [CFD, FXCFD, OPT, FUT, FOP, WAR]
#   ignored: [CASH, CMDTY]
# Currencies that use the rates of another currency.
#
# Optional. Defaults to CNH: CNY.
# currency_aliases:
#   CNH: CNY
# The exchange rate source, bsi or frankfurter.
#
# Optional. Defaults to bsi for EUR and frankfurter otherwise.
# fx:
#   provider: bsi
# Dividend payer metadata.
#
# Optional. Missing companies are reported and their fields left blank.
# companies:
#   - symbol: ACME
#     name: ACME Corporation
#     tax_number: "12-3456789"
#     address: 1 Main Street, Springfield
#     country: US
# Relief statements by payer country.
#
# Optional.
# relief_statements:
#   - country: US
#     statement: "Double taxation convention, Article 10"
`

// ExternalConfig is the YAML-serializable configuration file structure.
type ExternalConfig struct {
	Version           string                          `yaml:"version"`
	ReportYear        int                             `yaml:"report_year"`
	ReportingCurrency string                          `yaml:"reporting_currency"`
	IBKR              ExternalIBKRConfig              `yaml:"ibkr"`
	Assets            ExternalAssetsConfig            `yaml:"assets"`
	CurrencyAliases   map[string]string               `yaml:"currency_aliases"`
	FX                ExternalFXConfig                `yaml:"fx"`
	Companies         []ExternalCompanyConfig         `yaml:"companies"`
	ReliefStatements  []ExternalReliefStatementConfig `yaml:"relief_statements"`
}

// ExternalIBKRConfig holds IBKR-specific configuration.
type ExternalIBKRConfig struct {
	QueryID string `yaml:"query_id"`
}

// ExternalAssetsConfig holds the asset category lists.
type ExternalAssetsConfig struct {
	Normal     []string `yaml:"normal"`
	Derivative []string `yaml:"derivative"`
	Ignored    []string `yaml:"ignored"`
}

// ExternalFXConfig holds exchange rate configuration.
type ExternalFXConfig struct {
	Provider string `yaml:"provider"`
}

// ExternalCompanyConfig holds dividend payer metadata.
type ExternalCompanyConfig struct {
	Symbol    string `yaml:"symbol"`
	Name      string `yaml:"name"`
	TaxNumber string `yaml:"tax_number"`
	Address   string `yaml:"address"`
	Country   string `yaml:"country"`
}

// ExternalReliefStatementConfig holds the relief statement for a country.
type ExternalReliefStatementConfig struct {
	Country   string `yaml:"country"`
	Statement string `yaml:"statement"`
}

// Config is the validated runtime configuration derived from the config file.
type Config struct {
	ReportYear int
	// ReportingCurrency is an ISO 4217 code.
	ReportingCurrency string
	// IBKRQueryID may be empty if statements are not downloaded.
	IBKRQueryID      string
	NormalAssets     []string
	DerivativeAssets []string
	IgnoredAssets    []string
	CurrencyAliases  map[string]string
	FXProvider       FXProvider
	// Companies have their relief statement resolved by country.
	Companies []ibrecondata.Company
}

// NewConfig validates an ExternalConfig and returns a runtime Config.
func NewConfig(externalConfig ExternalConfig) (*Config, error) {
	if externalConfig.Version != "v1" {
		return nil, fmt.Errorf("unsupported config version %q, must be v1", externalConfig.Version)
	}
	if externalConfig.ReportYear < 1990 || externalConfig.ReportYear > 2999 {
		return nil, fmt.Errorf("report_year %d is not a valid year", externalConfig.ReportYear)
	}
	reportingCurrency := strings.ToUpper(externalConfig.ReportingCurrency)
	if reportingCurrency == "" {
		reportingCurrency = money.EUR
	}
	if money.GetCurrency(reportingCurrency) == nil {
		return nil, fmt.Errorf("reporting_currency %q is not a known currency code", externalConfig.ReportingCurrency)
	}
	config := &Config{
		ReportYear:        externalConfig.ReportYear,
		ReportingCurrency: reportingCurrency,
		IBKRQueryID:       externalConfig.IBKR.QueryID,
		NormalAssets:      orDefault(externalConfig.Assets.Normal, DefaultNormalAssets),
		DerivativeAssets:  orDefault(externalConfig.Assets.Derivative, DefaultDerivativeAssets),
		IgnoredAssets:     orDefault(externalConfig.Assets.Ignored, DefaultIgnoredAssets),
		CurrencyAliases:   DefaultCurrencyAliases,
	}
	if err := validateAssets(config.NormalAssets, config.DerivativeAssets, config.IgnoredAssets); err != nil {
		return nil, err
	}
	if externalConfig.CurrencyAliases != nil {
		config.CurrencyAliases = make(map[string]string, len(externalConfig.CurrencyAliases))
		for alias, canonical := range externalConfig.CurrencyAliases {
			if money.GetCurrency(canonical) == nil {
				return nil, fmt.Errorf("currency_aliases: %q is not a known currency code", canonical)
			}
			config.CurrencyAliases[alias] = canonical
		}
	}
	switch provider := FXProvider(externalConfig.FX.Provider); provider {
	case "":
		config.FXProvider = FXProviderFrankfurter
		if reportingCurrency == money.EUR {
			config.FXProvider = FXProviderBSI
		}
	case FXProviderBSI:
		if reportingCurrency != money.EUR {
			return nil, fmt.Errorf("fx.provider %q only supports EUR as reporting_currency", provider)
		}
		config.FXProvider = provider
	case FXProviderFrankfurter:
		config.FXProvider = provider
	default:
		return nil, fmt.Errorf("unknown fx.provider %q, must be %q or %q", provider, FXProviderBSI, FXProviderFrankfurter)
	}
	countryToReliefStatement := make(map[string]string, len(externalConfig.ReliefStatements))
	for _, reliefStatement := range externalConfig.ReliefStatements {
		if reliefStatement.Country == "" {
			return nil, errors.New("relief_statements: country is required")
		}
		if _, ok := countryToReliefStatement[reliefStatement.Country]; ok {
			return nil, fmt.Errorf("relief_statements: duplicate country %q", reliefStatement.Country)
		}
		countryToReliefStatement[reliefStatement.Country] = reliefStatement.Statement
	}
	symbols := make(map[string]struct{}, len(externalConfig.Companies))
	for _, company := range externalConfig.Companies {
		if company.Symbol == "" {
			return nil, errors.New("companies: symbol is required")
		}
		if _, ok := symbols[company.Symbol]; ok {
			return nil, fmt.Errorf("companies: duplicate symbol %q", company.Symbol)
		}
		symbols[company.Symbol] = struct{}{}
		config.Companies = append(config.Companies, ibrecondata.Company{
			Symbol:          company.Symbol,
			Name:            company.Name,
			TaxNumber:       company.TaxNumber,
			Address:         company.Address,
			Country:         company.Country,
			ReliefStatement: countryToReliefStatement[company.Country],
		})
	}
	return config, nil
}

// ReadConfig reads and validates the configuration file from the given base directory.
// Returns a clear error message directing users to run "ibrecon config init" if the file is missing.
func ReadConfig(dirPath string) (*Config, error) {
	filePath := ibreconpath.ConfigFilePath(dirPath)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found at %s, run \"ibrecon config init\" to create one", filePath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var externalConfig ExternalConfig
	if err := unmarshalYAMLStrict(data, &externalConfig); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
	}
	return NewConfig(externalConfig)
}

// InitConfig creates a new configuration file with a documented template.
// Creates the base directory if it does not exist.
// Returns the path to the created file, or an error if the file already exists.
func InitConfig(dirPath string) (string, error) {
	filePath := ibreconpath.ConfigFilePath(dirPath)
	if _, err := os.Stat(filePath); err == nil {
		return "", fmt.Errorf("configuration file already exists: %s", filePath)
	}
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(configTemplate), 0o644); err != nil {
		return "", err
	}
	return filePath, nil
}

// ValidateConfig reads and validates the configuration file from the given base directory.
func ValidateConfig(dirPath string) error {
	_, err := ReadConfig(dirPath)
	return err
}

// *** PRIVATE ***

func validateAssets(assetLists ...[]string) error {
	seen := make(map[string]struct{})
	for _, assetList := range assetLists {
		for _, category := range assetList {
			if _, ok := seen[category]; ok {
				return fmt.Errorf("assets: category %q appears more than once", category)
			}
			seen[category] = struct{}{}
		}
	}
	return nil
}

func orDefault(values []string, defaultValues []string) []string {
	if len(values) == 0 {
		return defaultValues
	}
	return values
}

// unmarshalYAMLStrict unmarshals the data as YAML with strict field checking.
// If the data length is 0, this is a no-op.
func unmarshalYAMLStrict(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	yamlDecoder := yaml.NewDecoder(bytes.NewReader(data))
	// Reject unknown fields.
	yamlDecoder.KnownFields(true)
	if err := yamlDecoder.Decode(v); err != nil {
		return fmt.Errorf("could not unmarshal as YAML: %w", err)
	}
	return nil
}
