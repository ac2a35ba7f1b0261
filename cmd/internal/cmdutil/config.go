package cmdutil

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	cfg     = newConfig()
)

// envBindings are settings read from environment variables without the ARGO_
// prefix, as issued by the platforms themselves.
var envBindings = map[string]string{
	"domo.client_id":      "DOMO_CLIENT_ID",
	"domo.client_secret":  "DOMO_CLIENT_SECRET",
	"domo.api_host":       "DOMO_API_HOST",
	"snowflake.account":   "SNOWFLAKE_ACCOUNT",
	"snowflake.user":      "SNOWFLAKE_USER",
	"snowflake.password":  "SNOWFLAKE_PASSWORD",
	"snowflake.database":  "SNOWFLAKE_DATABASE",
	"snowflake.schema":    "SNOWFLAKE_SCHEMA",
	"snowflake.warehouse": "SNOWFLAKE_WAREHOUSE",
	"snowflake.role":      "SNOWFLAKE_ROLE",
}

func newConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("argo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			panic(err)
		}
	}
	return v
}

// Config holds settings merged from flags, the environment and the optional
// config file, in that order of precedence.
func Config() *viper.Viper {
	return cfg
}

func RegisterConfigFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is $HOME/.argo.yaml if present)",
	)
}

// InitConfig reads the config file. A missing default config file is not an
// error.
func InitConfig() error {
	if cfgFile != "" {
		cfg.SetConfigFile(cfgFile)
		return cfg.ReadInConfig()
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	cfg.AddConfigPath(home)
	cfg.SetConfigType("yaml")
	cfg.SetConfigName(".argo")
	if err := cfg.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}
	return nil
}
