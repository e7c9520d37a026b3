package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Client
	APIBaseURL     string
	RequestTimeout time.Duration
	OCRTimeout     time.Duration
	ReportPath     string

	// HTTP Server
	Port        string
	StaticDir   string
	MaxUploadMB int

	// Database
	SQLiteDBPath string

	// AMQP (optional on the server, required by the worker)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleServiceAccountJSON  string
	GoogleServiceAccountFile  string
	GoogleApplicationCredFile string
	GoogleOAuthClientJSON     string
	GoogleOAuthClientFile     string
	GoogleOAuthTokenFile      string
	OAuthRedirectPort         string

	// Worker
	WorkerPrefetch int

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:5000"),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		OCRTimeout:     getEnvDuration("OCR_TIMEOUT", 5*time.Minute),
		ReportPath:     getEnv("REPORT_PATH", "external_report.pdf"),

		Port:        getEnv("PORT", "5000"),
		StaticDir:   getEnv("STATIC_DIR", "./static"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 20),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/billtrack.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "billtrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "row_changes"),

		GoogleSpreadsheetID:       getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:           getEnv("GOOGLE_SHEET_NAME", "Bills"),
		GoogleServiceAccountJSON:  getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile:  getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleApplicationCredFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		GoogleOAuthClientJSON:     getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:     getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:      getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		OAuthRedirectPort:         getEnv("OAUTH_REDIRECT_PORT", "8085"),

		WorkerPrefetch: getEnvInt("WORKER_PREFETCH", 10),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
	}

	return cfg
}

// UploadLimit returns the maximum upload size in bytes.
func (c *Config) UploadLimit() int64 {
	return int64(c.MaxUploadMB) << 20
}

// ValidateClient checks the settings used by the interactive client.
func (c *Config) ValidateClient() error {
	var errors []string

	if u, err := url.Parse(c.APIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}

	if c.RequestTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 100ms", c.RequestTimeout))
	}
	if c.OCRTimeout < c.RequestTimeout {
		errors = append(errors, fmt.Sprintf("invalid OCR timeout %v: must not be shorter than the request timeout %v", c.OCRTimeout, c.RequestTimeout))
	}
	if strings.TrimSpace(c.ReportPath) == "" {
		errors = append(errors, "report path cannot be empty")
	}

	return combine(errors)
}

// Validate validates the server configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if strings.TrimSpace(c.StaticDir) == "" {
		errors = append(errors, "static directory cannot be empty")
	}
	if c.MaxUploadMB < 1 || c.MaxUploadMB > 512 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %dMB: must be between 1 and 512", c.MaxUploadMB))
	}

	errors = append(errors, c.amqpErrors()...)

	return combine(errors)
}

// ValidateConsumer checks what any row event consumer needs: the broker and
// the API it reads rows back from.
func (c *Config) ValidateConsumer() error {
	return combine(c.consumerErrors())
}

// ValidateWorker checks the settings used by the ledger export worker.
func (c *Config) ValidateWorker() error {
	errors := c.consumerErrors()

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required by the worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "Google Sheet name is required by the worker")
	}
	if c.GoogleOAuthTokenFile != "" {
		if c.GoogleOAuthClientJSON == "" && c.GoogleOAuthClientFile == "" {
			errors = append(errors, "GOOGLE_OAUTH_TOKEN_FILE needs GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
		}
	} else if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && c.GoogleApplicationCredFile == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided")
	}
	for _, f := range []string{c.GoogleServiceAccountFile, c.GoogleApplicationCredFile, c.GoogleOAuthClientFile, c.GoogleOAuthTokenFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", f))
		}
	}

	return combine(errors)
}

// ValidateSheetsAuth checks the settings of the one-off OAuth bootstrap.
func (c *Config) ValidateSheetsAuth() error {
	var errors []string
	if c.GoogleOAuthClientJSON == "" && c.GoogleOAuthClientFile == "" {
		errors = append(errors, "either GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE must be provided")
	}
	if port, err := strconv.Atoi(c.OAuthRedirectPort); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid OAuth redirect port '%s'", c.OAuthRedirectPort))
	}
	return combine(errors)
}

func (c *Config) consumerErrors() []string {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP URL is required by the worker")
	}
	errors = append(errors, c.amqpErrors()...)

	if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s'", c.APIBaseURL))
	}

	if c.WorkerPrefetch < 1 {
		errors = append(errors, fmt.Sprintf("invalid worker prefetch %d: must be at least 1", c.WorkerPrefetch))
	} else if c.WorkerPrefetch > 1000 {
		errors = append(errors, fmt.Sprintf("invalid worker prefetch %d: must be at most 1000", c.WorkerPrefetch))
	}
	return errors
}

func (c *Config) amqpErrors() []string {
	var errors []string

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}
	return errors
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
