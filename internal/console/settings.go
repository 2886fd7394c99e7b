package console

import (
	"strconv"
	"time"

	"github.com/appetiteclub/posconsole/internal/catalog"
	"github.com/aquamarinepk/aqm"
)

// Settings are the console options read from configuration.
type Settings struct {
	SessionName   string
	SessionTTL    time.Duration
	SecureCookies bool
	AssetURL      string
	MaxImageBytes int64
	UploadTimeout time.Duration
}

// SettingsFromConfig reads the auth.session.*, backend.* and upload.* keys.
func SettingsFromConfig(config *aqm.Config) Settings {
	s := Settings{}
	if config == nil {
		return s.withDefaults()
	}

	s.SessionName = config.GetStringOrDef("auth.session.name", "")
	if ttl, err := time.ParseDuration(config.GetStringOrDef("auth.session.ttl", "")); err == nil {
		s.SessionTTL = ttl
	}
	s.SecureCookies = config.GetStringOrDef("auth.session.secure", "false") == "true"

	s.AssetURL = config.GetStringOrDef("backend.asset_url", "")
	if s.AssetURL == "" {
		s.AssetURL = config.GetStringOrDef("backend.url", "")
	}

	if maxBytes, err := strconv.ParseInt(config.GetStringOrDef("upload.max_bytes", ""), 10, 64); err == nil {
		s.MaxImageBytes = maxBytes
	}
	if timeout, err := time.ParseDuration(config.GetStringOrDef("backend.timeout", "")); err == nil {
		s.UploadTimeout = 4 * timeout
	}

	return s.withDefaults()
}

func (s Settings) withDefaults() Settings {
	if s.SessionName == "" {
		s.SessionName = "posconsole_session"
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = defaultSessionTTL
	}
	if s.MaxImageBytes <= 0 {
		s.MaxImageBytes = catalog.DefaultMaxImageBytes
	}
	if s.UploadTimeout <= 0 {
		s.UploadTimeout = time.Minute
	}
	return s
}
