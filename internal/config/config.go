package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	OplogPath     string
	SnapshotPath  string
	PGDSN         string
	RPCURL        string
	LogLevel      string
	Owner         string
	Operator      string
	Custody       string
	FeeRecipient  string
	RewardAsset   string
	RewardRate    string
	StartTick     uint64
	EndTick       uint64
	DefaultFeeBps uint32
	FeeTiers      []string
	Feeds         []string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("oplog", "./data/oplog.jsonl")
	v.SetDefault("snapshot", "./data/snapshot.json")
	v.SetDefault("reward-rate", "0")
	v.SetDefault("end-tick", uint64(1<<62))
	v.SetDefault("default-fee-bps", uint32(250))
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		OplogPath:     v.GetString("oplog"),
		SnapshotPath:  v.GetString("snapshot"),
		PGDSN:         v.GetString("pg-dsn"),
		RPCURL:        v.GetString("rpc"),
		LogLevel:      v.GetString("log-level"),
		Owner:         v.GetString("owner"),
		Operator:      v.GetString("operator"),
		Custody:       v.GetString("custody"),
		FeeRecipient:  v.GetString("fee-recipient"),
		RewardAsset:   v.GetString("reward-asset"),
		RewardRate:    v.GetString("reward-rate"),
		StartTick:     v.GetUint64("start-tick"),
		EndTick:       v.GetUint64("end-tick"),
		DefaultFeeBps: uint32(v.GetUint32("default-fee-bps")),
		FeeTiers:      getStringSlice(v, "fee-tier"),
		Feeds:         getStringSlice(v, "price-feed"),
	}

	return cfg, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
