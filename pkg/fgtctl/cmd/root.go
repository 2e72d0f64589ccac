package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortitools/fgtctl/pkg/fgtctl/client"
	"github.com/fortitools/fgtctl/pkg/fgtctl/config"
	"github.com/fortitools/fgtctl/pkg/fgtctl/output"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

type options struct {
	configPath string

	host     string
	username string
	password string
	apikey   string

	method   string
	endpoint string
	data     string
	query    []string

	noSSL       bool
	verifySSL   bool
	sslWarnings bool
	timeout     int
	debug       bool

	format        string
	tableFields   string
	tableMaxWidth int
}

func DefaultConfig() Config {
	return Config{
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	o := &options{configPath: cfg.ConfigPath}
	writer := cfg.OutputWriter
	if writer == nil {
		writer = os.Stdout
	}

	root := &cobra.Command{
		Use:           "fgtctl",
		Short:         "FortiGate REST API client",
		Long:          "fgtctl forwards a single HTTP request to a FortiGate device's REST management API and renders the JSON response as raw JSON, pretty JSON, YAML, or a table.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if o.host == "" {
				o.host = os.Getenv("FGTCTL_HOST")
			}
			if o.username == "" {
				o.username = os.Getenv("FGTCTL_USERNAME")
			}
			if o.password == "" {
				o.password = os.Getenv("FGTCTL_PASSWORD")
			}
			if o.apikey == "" {
				o.apikey = os.Getenv("FGTCTL_APIKEY")
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, o, writer)
		},
	}

	flags := root.Flags()
	flags.StringVarP(&o.configPath, "config", "c", o.configPath, "Configuration file path (INI or JSON format)")
	flags.StringVarP(&o.host, "host", "i", "", "FortiGate IP address or hostname")
	flags.StringVarP(&o.username, "username", "u", "", "Username (default: admin)")
	flags.StringVarP(&o.password, "password", "p", "", "Password for authentication")
	flags.StringVarP(&o.apikey, "apikey", "k", "", "API key for authentication")
	flags.StringVarP(&o.method, "method", "m", "", "HTTP method: get, post, put, delete")
	flags.StringVarP(&o.endpoint, "endpoint", "e", "", "API endpoint path (e.g. /cmdb/firewall/address)")
	flags.StringVarP(&o.data, "data", "d", "", "Request body as a JSON string (for POST/PUT)")
	flags.StringArrayVarP(&o.query, "query", "q", nil, "Query parameter key=value (repeatable, order preserved)")
	flags.BoolVar(&o.noSSL, "no-ssl", false, "Use HTTP instead of HTTPS")
	flags.BoolVar(&o.verifySSL, "verify-ssl", false, "Verify SSL certificates")
	flags.BoolVar(&o.sslWarnings, "ssl-warnings", false, "Accepted for compatibility; has no effect")
	flags.IntVar(&o.timeout, "timeout", 0, "Request timeout in seconds (default: 300)")
	flags.BoolVar(&o.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&o.format, "format", "pretty", "Output format: json, pretty, yaml, table")
	flags.StringVar(&o.tableFields, "table-fields", "", "Comma-separated field list for table output")
	flags.IntVar(&o.tableMaxWidth, "table-max-width", 0, "Column width cap for table output")

	_ = root.MarkFlagRequired("method")
	_ = root.MarkFlagRequired("endpoint")

	root.AddCommand(
		NewVersionCommand(writer),
		NewCompletionCommand(writer),
	)

	return root
}

func run(cmd *cobra.Command, o *options, w io.Writer) error {
	profile, err := resolveProfile(o)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(o.format)
	if err != nil {
		return &config.ValidationError{Reason: err.Error()}
	}

	spec, err := buildRequest(o)
	if err != nil {
		return err
	}

	log := zap.NewNop()
	if profile.Debug {
		devLog, logErr := zap.NewDevelopment()
		if logErr == nil {
			log = devLog
			defer func() {
				_ = log.Sync()
			}()
		}
	}

	apiClient, err := client.New(
		client.WithHost(profile.Host),
		client.WithAPIKey(profile.APIKey),
		client.WithCredentials(profile.Username, profile.Password),
		client.WithSSL(profile.UseSSL, profile.VerifySSL),
		client.WithTimeout(profile.Timeout),
		client.WithLogger(log),
	)
	if err != nil {
		return &config.ValidationError{Reason: err.Error()}
	}

	ctx := cmd.Context()
	envelope, _, err := apiClient.Do(ctx, spec)
	defer func() {
		_ = apiClient.Close(ctx)
	}()
	if err != nil {
		return err
	}

	// Render into a buffer first so an interrupted run never leaves a
	// half-written table on stdout.
	var buf bytes.Buffer
	tableSpec := output.TableSpec{MaxWidth: o.tableMaxWidth}
	if o.tableFields != "" {
		for _, f := range strings.Split(o.tableFields, ",") {
			if f = strings.TrimSpace(f); f != "" {
				tableSpec.Fields = append(tableSpec.Fields, f)
			}
		}
	}
	if err := output.Write(&buf, format, envelope, tableSpec); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// resolveProfile merges flags, environment, optional config file, and
// defaults into a connection profile. An explicitly given config file must
// exist; the probed default path is optional.
func resolveProfile(o *options) (*config.Profile, error) {
	var file *config.FileValues
	switch {
	case o.configPath != "":
		loaded, err := config.LoadFile(o.configPath)
		if err != nil {
			return nil, err
		}
		file = loaded
	default:
		if path := config.DefaultConfigPath(); path != "" {
			if _, err := os.Stat(path); err == nil {
				loaded, err := config.LoadFile(path)
				if err != nil {
					return nil, err
				}
				file = loaded
			}
		}
	}

	return config.Resolve(config.Overrides{
		Host:      o.host,
		Username:  o.username,
		Password:  o.password,
		APIKey:    o.apikey,
		NoSSL:     o.noSSL,
		VerifySSL: o.verifySSL,
		Timeout:   o.timeout,
		Debug:     o.debug,
	}, file)
}

func buildRequest(o *options) (client.RequestSpec, error) {
	method := strings.ToLower(o.method)
	switch method {
	case "get", "post", "put", "delete":
	default:
		return client.RequestSpec{}, &config.ValidationError{Reason: fmt.Sprintf("unsupported HTTP method: %s", o.method)}
	}

	spec := client.RequestSpec{
		Method:   method,
		Endpoint: o.endpoint,
	}

	for _, q := range o.query {
		key, value, found := strings.Cut(q, "=")
		if !found || key == "" {
			return client.RequestSpec{}, &config.ValidationError{Reason: fmt.Sprintf("query parameter %q is not key=value", q)}
		}
		spec.Query = append(spec.Query, client.QueryParam{Key: key, Value: value})
	}

	if o.data != "" {
		var body any
		if err := json.Unmarshal([]byte(o.data), &body); err != nil {
			return client.RequestSpec{}, &config.ValidationError{Reason: fmt.Sprintf("invalid JSON data: %v", err)}
		}
		spec.Body = body
	}

	return spec, nil
}
