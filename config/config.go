package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/LanXuage/astrascan/common/constant"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ScanConfig is fixed for the duration of one scan.
type ScanConfig struct {
	MaxConcurrency    int           `mapstructure:"max_concurrency" json:"max_concurrency"`       // in-flight fingerprint probes
	Workers           int           `mapstructure:"workers" json:"workers"`                       // harvest pool width
	ChannelWorkers    int           `mapstructure:"channel_workers" json:"channel_workers"`       // channel probe pool width
	BatchSize         int           `mapstructure:"batch_size" json:"batch_size"`                 // targets dispatched per batch
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout" json:"connection_timeout"` // fingerprint probe timeout
	PlaylistTimeout   time.Duration `mapstructure:"playlist_timeout" json:"playlist_timeout"`
	ChannelTimeout    time.Duration `mapstructure:"channel_timeout" json:"channel_timeout"`
	PoolSize          int           `mapstructure:"pool_size" json:"pool_size"` // idle connections per host
	DispatchDelay     time.Duration `mapstructure:"dispatch_delay" json:"dispatch_delay"`
	BatchPause        time.Duration `mapstructure:"batch_pause" json:"batch_pause"`
	Signature         string        `mapstructure:"signature" json:"signature"`
	WaitHarvests      bool          `mapstructure:"wait_harvests" json:"wait_harvests"`
}

func Default() ScanConfig {
	return ScanConfig{
		MaxConcurrency:    3000,
		Workers:           200,
		ChannelWorkers:    20,
		BatchSize:         1000,
		ConnectionTimeout: 500 * time.Millisecond,
		PlaylistTimeout:   5 * time.Second,
		ChannelTimeout:    2 * time.Second,
		PoolSize:          50,
		DispatchDelay:     time.Millisecond,
		BatchPause:        100 * time.Millisecond,
		Signature:         constant.DEFAULT_SIGNATURE,
		WaitHarvests:      true,
	}
}

func (c ScanConfig) Validate() error {
	positive := []struct {
		name  string
		value int64
	}{
		{"max_concurrency", int64(c.MaxConcurrency)},
		{"workers", int64(c.Workers)},
		{"channel_workers", int64(c.ChannelWorkers)},
		{"batch_size", int64(c.BatchSize)},
		{"pool_size", int64(c.PoolSize)},
		{"connection_timeout", int64(c.ConnectionTimeout)},
		{"playlist_timeout", int64(c.PlaylistTimeout)},
		{"channel_timeout", int64(c.ChannelTimeout)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return fmt.Errorf("invalid config: %s must be positive", p.name)
		}
	}
	if c.DispatchDelay < 0 || c.BatchPause < 0 {
		return fmt.Errorf("invalid config: pacing delays must not be negative")
	}
	if c.Signature == "" {
		return fmt.Errorf("invalid config: signature must not be empty")
	}
	return nil
}

// SetDefaults registers the defaults under the "scanner" key.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("scanner.max_concurrency", d.MaxConcurrency)
	v.SetDefault("scanner.workers", d.Workers)
	v.SetDefault("scanner.channel_workers", d.ChannelWorkers)
	v.SetDefault("scanner.batch_size", d.BatchSize)
	v.SetDefault("scanner.connection_timeout", d.ConnectionTimeout)
	v.SetDefault("scanner.playlist_timeout", d.PlaylistTimeout)
	v.SetDefault("scanner.channel_timeout", d.ChannelTimeout)
	v.SetDefault("scanner.pool_size", d.PoolSize)
	v.SetDefault("scanner.dispatch_delay", d.DispatchDelay)
	v.SetDefault("scanner.batch_pause", d.BatchPause)
	v.SetDefault("scanner.signature", d.Signature)
	v.SetDefault("scanner.wait_harvests", d.WaitHarvests)
}

type document struct {
	Scanner ScanConfig `mapstructure:"scanner"`
}

// SecondsToDurationHook decodes plain numbers into durations as seconds,
// so `"playlist_timeout": 5` means five seconds. Duration strings such as
// "500ms" are left to StringToTimeDurationHookFunc.
func SecondsToDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != durationType || f == durationType {
			return data, nil
		}
		switch n := data.(type) {
		case float64:
			return time.Duration(n * float64(time.Second)), nil
		case float32:
			return time.Duration(float64(n) * float64(time.Second)), nil
		case int:
			return time.Duration(n) * time.Second, nil
		case int64:
			return time.Duration(n) * time.Second, nil
		case int32:
			return time.Duration(n) * time.Second, nil
		case uint:
			return time.Duration(n) * time.Second, nil
		case uint64:
			return time.Duration(n) * time.Second, nil
		}
		return data, nil
	}
}

// FromViper decodes the "scanner" section, including bound flags and
// environment overrides, and validates the result.
func FromViper(v *viper.Viper) (ScanConfig, error) {
	doc := document{Scanner: Default()}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		SecondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&doc, hook); err != nil {
		return doc.Scanner, fmt.Errorf("decode scanner config: %w", err)
	}
	if err := doc.Scanner.Validate(); err != nil {
		return doc.Scanner, err
	}
	return doc.Scanner, nil
}
