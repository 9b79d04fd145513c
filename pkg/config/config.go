package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// DefaultFileName is the settings file expected next to the executable.
const DefaultFileName = "config.ini"

// SFTPSettings holds the connection parameters for the document staging host.
type SFTPSettings struct {
	Host       string `ini:"host" validate:"required"`
	Port       int    `ini:"port" validate:"required,min=1,max=65535"`
	Username   string `ini:"username" validate:"required"`
	Password   string `ini:"password" validate:"required"`
	RemotePath string `ini:"remote_path" validate:"required"`
}

// DatabaseSettings holds the connection parameters for the recognition
// service's PostgreSQL database.
type DatabaseSettings struct {
	Host     string `ini:"host" validate:"required"`
	Port     int    `ini:"port" validate:"required,min=1,max=65535"`
	Database string `ini:"database" validate:"required"`
	User     string `ini:"user" validate:"required"`
	Password string `ini:"password" validate:"required"`
}

// DSN renders the keyword/value connection string understood by the pgx
// stdlib driver.
func (d DatabaseSettings) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s",
		d.Host, d.Port, d.User, d.Password, d.Database)
}

// RecognitionSettings configures the batch recognition API trigger and the
// completion polling.
type RecognitionSettings struct {
	APIURL              string   `ini:"api_url" validate:"required,url"`
	Regions             []string `ini:"regions" delim:","`
	PollIntervalSeconds int      `ini:"poll_interval_seconds" validate:"min=1"`
}

// Settings is the validated content of config.ini.
type Settings struct {
	SFTP        SFTPSettings
	Database    DatabaseSettings
	Recognition RecognitionSettings
}

// Defaults preserved from the production deployment. The RECOGNITION section
// is optional in config.ini, the SFTP and DATABASE sections are not.
const (
	defaultAPIURL       = "http://192.168.160.67:5003/api/v1/batchRecognition"
	defaultRegion       = "taipei"
	defaultPollInterval = 20
)

// Load reads and validates the settings file.
func Load(path string) (*Settings, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read settings file '%s'", path)
	}

	settings := &Settings{
		Recognition: RecognitionSettings{
			APIURL:              defaultAPIURL,
			Regions:             []string{defaultRegion},
			PollIntervalSeconds: defaultPollInterval,
		},
	}

	if err := file.Section("SFTP").MapTo(&settings.SFTP); err != nil {
		return nil, errors.Wrap(err, "failed to map SFTP section")
	}
	if err := file.Section("DATABASE").MapTo(&settings.Database); err != nil {
		return nil, errors.Wrap(err, "failed to map DATABASE section")
	}
	if file.HasSection("RECOGNITION") {
		if err := file.Section("RECOGNITION").MapTo(&settings.Recognition); err != nil {
			return nil, errors.Wrap(err, "failed to map RECOGNITION section")
		}
	}
	if len(settings.Recognition.Regions) == 0 {
		settings.Recognition.Regions = []string{defaultRegion}
	}

	if err := validator.New().Struct(settings); err != nil {
		return nil, errors.Wrapf(err, "invalid settings in '%s'", path)
	}

	return settings, nil
}
