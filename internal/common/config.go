package common

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// OpenDBFromConfig connects using the POSTGRES_* keys of a dotenv file, overridden by the environment.
// It serves the command line tools, which need nothing else from the configuration.
func OpenDBFromConfig(configFile string) (*sql.DB, error) {
	v := viper.New()
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "postgres")
	v.SetDefault("POSTGRES_DB", "blogcms")

	v.SetConfigFile(configFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	return NewDB(v.GetString("POSTGRES_HOST"), v.GetString("POSTGRES_PORT"), v.GetString("POSTGRES_USER"), v.GetString("POSTGRES_PASSWORD"), v.GetString("POSTGRES_DB"), 2, 2, time.Minute)
}
