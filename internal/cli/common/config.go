package common

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/pressplay/gametracker/internal/staging"
)

// Load reads the config file (when given) and layers GAMETRACKER_* env
// overrides on top. Defaults keep a bare invocation working against a
// local sqlite file and a local staging directory.
func Load(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("GAMETRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("staging.driver", "file")
	v.SetDefault("staging.base_dir", "data/staging")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// StagingConfig builds the staging config from viper, falling back to
// STAGING_* env vars for anything unset.
func StagingConfig(v *viper.Viper) staging.Config {
	c := staging.FromEnv()
	if s := v.GetString("staging.driver"); s != "" {
		c.Driver = s
	}
	if s := v.GetString("staging.bucket"); s != "" {
		c.Bucket = s
	}
	if s := v.GetString("staging.region"); s != "" {
		c.Region = s
	}
	if s := v.GetString("staging.endpoint"); s != "" {
		c.Endpoint = s
	}
	if s := v.GetString("staging.access_key"); s != "" {
		c.AccessKey = s
	}
	if s := v.GetString("staging.secret_key"); s != "" {
		c.SecretKey = s
	}
	if s := v.GetString("staging.base_dir"); s != "" {
		c.BaseDir = s
	}
	if v.IsSet("staging.force_path_style") {
		c.ForcePathStyle = v.GetBool("staging.force_path_style")
	}
	return c
}
