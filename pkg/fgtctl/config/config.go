package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	// DefaultUsername is assumed when no username is given; FortiGate
	// requires one even for API-key sessions.
	DefaultUsername = "admin"
	// DefaultTimeout is the request timeout in seconds.
	DefaultTimeout = 300

	iniSection = "fortigate"
)

// CredentialMode selects how the client authenticates against the device.
type CredentialMode string

const (
	CredentialAPIKey   CredentialMode = "apikey"
	CredentialPassword CredentialMode = "password"
)

// Profile is the fully resolved connection profile for one invocation.
type Profile struct {
	Host      string
	Username  string
	Password  string
	APIKey    string
	UseSSL    bool
	VerifySSL bool
	Timeout   int
	Debug     bool
}

// CredentialMode reports the active credential. API key wins when both an
// API key and a password are present.
func (p *Profile) CredentialMode() CredentialMode {
	if p.APIKey != "" {
		return CredentialAPIKey
	}
	return CredentialPassword
}

// ValidationError reports bad or missing configuration. It maps to exit
// code 1 at the CLI boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// FileValues holds the recognized keys of a config file. Pointers
// distinguish "absent" from zero values so the merge step can tell which
// keys the file actually set.
type FileValues struct {
	Host      *string
	Username  *string
	Password  *string
	APIKey    *string
	UseSSL    *bool
	VerifySSL *bool
	Timeout   *int
	Debug     *bool
}

// Overrides carries command-line values. Empty strings and zero ints mean
// the flag was not given; the SSL and debug flags are one-directional
// switches, so false means "not given" there too.
type Overrides struct {
	Host      string
	Username  string
	Password  string
	APIKey    string
	NoSSL     bool
	VerifySSL bool
	Timeout   int
	Debug     bool
}

// LoadFile reads a config file in either accepted format. JSON is tried
// first, then INI, matching the file formats the tool has always accepted.
// Any failure to read or parse is a ValidationError.
func LoadFile(path string) (*FileValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, validationErrf("cannot read config file %s: %v", path, err)
	}
	if fv, jsonErr := parseJSON(data); jsonErr == nil {
		return fv, nil
	}
	fv, iniErr := parseINI(data)
	if iniErr != nil {
		return nil, validationErrf("config file %s is neither valid JSON nor valid INI: %v", path, iniErr)
	}
	return fv, nil
}

// parseJSON accepts either a flat object or one nested under a "fortigate"
// key. Values may be native JSON types or strings.
func parseJSON(data []byte) (*FileValues, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if nested, ok := raw[iniSection].(map[string]any); ok {
		raw = nested
	}
	fv := &FileValues{}
	for key, value := range raw {
		if err := fv.set(key, value); err != nil {
			return nil, err
		}
	}
	return fv, nil
}

// parseINI uses the [fortigate] section when present and the unnamed
// default section otherwise.
func parseINI(data []byte) (*FileValues, error) {
	file, err := ini.Load(data)
	if err != nil {
		return nil, err
	}
	section := file.Section(ini.DefaultSection)
	if named, err := file.GetSection(iniSection); err == nil {
		section = named
	}
	fv := &FileValues{}
	for _, key := range section.Keys() {
		if err := fv.set(key.Name(), key.String()); err != nil {
			return nil, err
		}
	}
	return fv, nil
}

// set assigns one recognized key; unknown keys are ignored so config files
// can carry extra tooling-specific entries.
func (f *FileValues) set(key string, value any) error {
	switch strings.ToLower(key) {
	case "host", "ip":
		s, err := asString(key, value)
		if err != nil {
			return err
		}
		f.Host = &s
	case "username":
		s, err := asString(key, value)
		if err != nil {
			return err
		}
		f.Username = &s
	case "password":
		s, err := asString(key, value)
		if err != nil {
			return err
		}
		f.Password = &s
	case "apikey":
		s, err := asString(key, value)
		if err != nil {
			return err
		}
		f.APIKey = &s
	case "use_ssl":
		b, err := asBool(key, value)
		if err != nil {
			return err
		}
		f.UseSSL = &b
	case "verify_ssl":
		b, err := asBool(key, value)
		if err != nil {
			return err
		}
		f.VerifySSL = &b
	case "timeout":
		n, err := asInt(key, value)
		if err != nil {
			return err
		}
		f.Timeout = &n
	case "debug":
		b, err := asBool(key, value)
		if err != nil {
			return err
		}
		f.Debug = &b
	}
	return nil
}

func asString(key string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("key %s: expected a string, got %T", key, value)
	}
}

func asBool(key string, value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("key %s: %q is not a boolean", key, v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("key %s: expected a boolean, got %T", key, value)
	}
}

func asInt(key string, value any) (int, error) {
	switch v := value.(type) {
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("key %s: %q is not an integer", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("key %s: expected an integer, got %T", key, value)
	}
}

// Resolve merges command-line overrides over file values over built-in
// defaults, one key at a time, and validates the result. file may be nil
// when no config file was given.
func Resolve(o Overrides, file *FileValues) (*Profile, error) {
	if file == nil {
		file = &FileValues{}
	}

	p := &Profile{
		Host:      pick(o.Host, file.Host, ""),
		Username:  pick(o.Username, file.Username, DefaultUsername),
		Password:  pick(o.Password, file.Password, ""),
		APIKey:    pick(o.APIKey, file.APIKey, ""),
		UseSSL:    true,
		VerifySSL: false,
		Timeout:   DefaultTimeout,
		Debug:     false,
	}

	if o.NoSSL {
		p.UseSSL = false
	} else if file.UseSSL != nil {
		p.UseSSL = *file.UseSSL
	}
	if o.VerifySSL {
		p.VerifySSL = true
	} else if file.VerifySSL != nil {
		p.VerifySSL = *file.VerifySSL
	}
	if o.Timeout > 0 {
		p.Timeout = o.Timeout
	} else if file.Timeout != nil && *file.Timeout > 0 {
		p.Timeout = *file.Timeout
	}
	if o.Debug {
		p.Debug = true
	} else if file.Debug != nil {
		p.Debug = *file.Debug
	}

	if p.Host == "" {
		return nil, validationErrf("FortiGate host is required (use --host or a config file)")
	}
	if p.APIKey == "" && p.Password == "" {
		return nil, validationErrf("either an API key or a password is required")
	}
	return p, nil
}

func pick(flag string, file *string, def string) string {
	if flag != "" {
		return flag
	}
	if file != nil && *file != "" {
		return *file
	}
	return def
}
