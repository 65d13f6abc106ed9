package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrMissingConfig is returned when a stage runs without a required setting.
var ErrMissingConfig = errors.New("config: missing required setting")

// Configs holds every setting of every stage. Keys use underscores; the
// matching flag uses hyphens and the matching environment variable is the
// upper-cased key (hf_token <-> --hf-token <-> HF_TOKEN).
type Configs struct {
	// App configuration
	AppName            string  `mapstructure:"app_name"`
	AppEnv             string  `mapstructure:"app_env"`
	LogLevel           string  `mapstructure:"log_level"`
	MetricAddr         string  `mapstructure:"metric_addr"`
	MetricSamplingRate float64 `mapstructure:"metric_sampling_rate"`

	// Repository hub configuration
	HubURL             string `mapstructure:"hub_url"`
	HFToken            string `mapstructure:"hf_token"`
	S3Endpoint         string `mapstructure:"s3_endpoint"`
	S3Region           string `mapstructure:"s3_region"`
	S3AccessKeyID      string `mapstructure:"s3_access_key_id"`
	S3SecretAccessKey  string `mapstructure:"s3_secret_access_key"`
	GCSCredentialsFile string `mapstructure:"gcs_credentials_file"`
	Private            bool   `mapstructure:"private"`

	// Dataset configuration
	DatasetRepo       string `mapstructure:"dataset_repo"`
	LocalPath         string `mapstructure:"local_path"`
	PathInRepo        string `mapstructure:"path_in_repo"`
	DatasetPathInRepo string `mapstructure:"dataset_path_in_repo"`
	Target            string `mapstructure:"target"`

	// Training configuration
	ArtifactsDir string  `mapstructure:"artifacts_dir"`
	ModelOutDir  string  `mapstructure:"model_out_dir"`
	Seed         int64   `mapstructure:"seed"`
	TestSize     float64 `mapstructure:"test_size"`
	MlflowURI    string  `mapstructure:"mlflow_uri"`
	Experiment   string  `mapstructure:"experiment"`
	RunName      string  `mapstructure:"run_name"`

	// Publishing configuration
	ModelRepo string `mapstructure:"model_repo"`
	SpaceID   string `mapstructure:"space_id"`
	Folder    string `mapstructure:"folder"`
	SDK       string `mapstructure:"sdk"`
	AppPort   int    `mapstructure:"app_port"`

	// Serving configuration
	Addr              string `mapstructure:"addr"`
	BundleDir         string `mapstructure:"bundle_dir"`
	CacheDir          string `mapstructure:"cache_dir"`
	PredictionCacheMB int    `mapstructure:"prediction_cache_mb"`
}

// aliases are extra environment names accepted for a key.
var aliases = map[string][]string{
	"model_repo": {"MODEL_REPO", "HF_MODEL_REPO"},
}

// Load reads flags and environment into a Configs. A flag set on the command
// line wins over the environment, which wins over the flag default.
func Load(flags *pflag.FlagSet) (*Configs, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	for _, key := range Keys() {
		names := append([]string{key}, aliases[key]...)
		if err := v.BindEnv(names...); err != nil {
			return nil, fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}

	var bindErr error
	if flags != nil {
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(FlagKey(f.Name), f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("config: bind flag %s: %w", f.Name, err)
			}
		})
	}
	if bindErr != nil {
		return nil, bindErr
	}

	cfg := &Configs{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// FlagKey maps a flag name to its config key.
func FlagKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// Keys lists every config key in declaration order.
func Keys() []string {
	t := reflect.TypeOf(Configs{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" {
			keys = append(keys, tag)
		}
	}
	return keys
}

// Require returns ErrMissingConfig naming every key that holds its zero value.
func (c *Configs) Require(keys ...string) error {
	rv := reflect.ValueOf(c).Elem()
	t := rv.Type()
	byKey := make(map[string]reflect.Value, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		byKey[t.Field(i).Tag.Get("mapstructure")] = rv.Field(i)
	}

	var missing []string
	for _, k := range keys {
		f, ok := byKey[k]
		if !ok {
			return fmt.Errorf("config: unknown key %q", k)
		}
		if f.IsZero() {
			missing = append(missing, "--"+strings.ReplaceAll(k, "_", "-")+" / "+strings.ToUpper(k))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}
