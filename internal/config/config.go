package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/timothe-chaumont/automatic-receipts/internal/logger"
)

// Config carries everything the tool reads from the environment: the
// spreadsheet to bill from, where generated invoices are stored, the static
// issuer identity printed on every invoice, and the mail account used to
// send them.
type Config struct {
	// Google Sheets Configuration
	SpreadsheetID string
	SheetName     string

	// Invoice storage
	ReceiptsRootPath         string
	AssociationDirectoryPath string

	// Mail account (Gmail app password)
	SenderEmail    string
	SenderPassword string
	SMTPHost       string
	SMTPPort       int

	// Issuer identity printed on invoices and signed under emails
	TreasurerName      string
	TreasurerPhone     string
	ARCSTreasurerName  string
	IssuerOfficialName string
	IssuerInfo         string
	IssuerIBAN         string
	IssuerAccount      string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SMTP_PORT", "465"))
	if err != nil {
		return nil, fmt.Errorf("SMTP_PORT must be a number: %w", err)
	}

	config := &Config{
		SpreadsheetID:            getEnv("SPREADSHEET_ID", ""),
		SheetName:                getEnv("SHEET_NAME", ""),
		ReceiptsRootPath:         getEnv("RECEIPTS_PATH", ""),
		AssociationDirectoryPath: getEnv("ASSOCIATIONS_FILE", "associations_addresses.json"),
		SenderEmail:              getEnv("SENDER_EMAIL", ""),
		SenderPassword:           getEnv("APP_PASSWORD", ""),
		SMTPHost:                 getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:                 port,
		TreasurerName:            getEnv("CSD_TRESURER_NAME", ""),
		TreasurerPhone:           getEnv("CSD_TRESURER_PHONE", ""),
		ARCSTreasurerName:        getEnv("VR_TRESURER_NAME", ""),
		IssuerOfficialName:       getEnv("VR_OFFICIAL_NAME", ""),
		IssuerInfo:               getEnv("VR_INFO", ""),
		IssuerIBAN:               getEnv("VR_IBAN", ""),
		IssuerAccount:            getEnv("VR_ACCOUNT_NUMBER", ""),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		LogFormat:                getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:            getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.SpreadsheetID == "" {
		return fmt.Errorf("SPREADSHEET_ID is required")
	}
	if c.ReceiptsRootPath == "" {
		return fmt.Errorf("RECEIPTS_PATH is required")
	}
	if c.TreasurerName == "" {
		return fmt.Errorf("CSD_TRESURER_NAME is required")
	}
	return nil
}

// ValidateMail checks the fields that are only needed when --send is given,
// so a run without email does not demand mail credentials.
func (c *Config) ValidateMail() error {
	if c.SenderEmail == "" {
		return fmt.Errorf("SENDER_EMAIL is required to send emails")
	}
	if c.SenderPassword == "" {
		return fmt.Errorf("APP_PASSWORD is required to send emails")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
