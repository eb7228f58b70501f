package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/wfunc/stemarena/combat"
	"github.com/wfunc/stemarena/network"
	"github.com/wfunc/stemarena/room"
	"github.com/wfunc/stemarena/timer"
)

// EnvPrefix 环境变量前缀，例如 ARENA_SERVER_HTTP_ADDRESS
const EnvPrefix = "ARENA"

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Game   GameConfig   `mapstructure:"game"`
	Combat CombatConfig `mapstructure:"combat"`
	Timer  TimerConfig  `mapstructure:"timer"`
}

type ServerConfig struct {
	HTTPAddress  string        `mapstructure:"http_address"`
	RPCAddress   string        `mapstructure:"rpc_address"`
	Codec        string        `mapstructure:"codec"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	SendQueue    int           `mapstructure:"send_queue"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type GameConfig struct {
	MaxRounds         int           `mapstructure:"max_rounds"`
	GraceDelay        time.Duration `mapstructure:"grace_delay"`
	CooldownDelay     time.Duration `mapstructure:"cooldown_delay"`
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	SettlementTimeout time.Duration `mapstructure:"settlement_timeout"`
	Budgets           BudgetConfig  `mapstructure:"budgets"`
}

// BudgetConfig 各阶段倒计时（秒），键名与协议里的阶段名一致
type BudgetConfig struct {
	Bodmas   int `mapstructure:"bodmas"`
	Chemical int `mapstructure:"chemical"`
	Blocks   int `mapstructure:"blocks"`
}

type CombatConfig struct {
	BaseDamage      int `mapstructure:"base_damage"`
	ComboThreshold  int `mapstructure:"combo_threshold"`
	ComboBonus      int `mapstructure:"combo_bonus"`
	CorrectEnergy   int `mapstructure:"correct_energy"`
	WrongPenalty    int `mapstructure:"wrong_penalty"`
	ReactionEnergy  int `mapstructure:"reaction_energy"`
	ReactionPenalty int `mapstructure:"reaction_penalty"`
}

type TimerConfig struct {
	Resolution time.Duration `mapstructure:"resolution"`
}

// SetDefaults registers every key so env overrides work without a file.
func SetDefaults(v *viper.Viper) {
	game := room.DefaultSettings()
	tuning := combat.DefaultTuning()

	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.codec", "json")
	v.SetDefault("server.read_limit", 4096)
	v.SetDefault("server.ping_interval", "30s")
	v.SetDefault("server.send_queue", 64)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("game.max_rounds", game.MaxRounds)
	v.SetDefault("game.grace_delay", game.GraceDelay)
	v.SetDefault("game.cooldown_delay", game.CooldownDelay)
	v.SetDefault("game.tick_interval", game.TickInterval)
	v.SetDefault("game.settlement_timeout", game.SettlementTimeout)
	v.SetDefault("game.budgets.bodmas", game.Budgets.Arithmetic)
	v.SetDefault("game.budgets.chemical", game.Budgets.Reaction)
	v.SetDefault("game.budgets.blocks", game.Budgets.Shield)

	v.SetDefault("combat.base_damage", tuning.BaseDamage)
	v.SetDefault("combat.combo_threshold", tuning.ComboThreshold)
	v.SetDefault("combat.combo_bonus", tuning.ComboBonus)
	v.SetDefault("combat.correct_energy", tuning.CorrectEnergy)
	v.SetDefault("combat.wrong_penalty", tuning.WrongPenalty)
	v.SetDefault("combat.reaction_energy", tuning.ReactionEnergy)
	v.SetDefault("combat.reaction_penalty", tuning.ReactionPenalty)

	v.SetDefault("timer.resolution", timer.DefaultResolution)
}

// Loader reads config.yaml (optional), .env (optional) and ARENA_*
// variables, later sources winning.
type Loader struct {
	v *viper.Viper
}

// NewLoader looks for config.yaml in the directory path. A path with a file
// extension names the config file itself, which then has to exist.
func NewLoader(path string) *Loader {
	v := viper.New()
	SetDefaults(v)

	switch {
	case path == "":
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	case filepath.Ext(path) != "" && filepath.Ext(path) != ".":
		v.SetConfigFile(path)
	default:
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Load returns the merged configuration. A missing config file is fine; a
// broken one is not.
func (l *Loader) Load() (*Config, error) {
	// .env 只补充尚未设置的环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return l.decode()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// File is the config file in use, empty when running on defaults.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch calls fn with the new configuration whenever the config file
// changes. Invalid edits are logged by the caller through onError and
// otherwise ignored.
func (l *Loader) Watch(fn func(*Config), onError func(error)) {
	if l.File() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		fn(cfg)
	})
	l.v.WatchConfig()
}

// LoadConfig 读取 path 下的 config.yaml
func LoadConfig(path string) (*Config, error) {
	return NewLoader(path).Load()
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.HTTPAddress == "" {
		errs = append(errs, errors.New("server.http_address is required"))
	}
	if _, err := network.CodecByName(c.Server.Codec); err != nil {
		errs = append(errs, fmt.Errorf("server.codec: %w", err))
	}
	if c.Server.ReadLimit <= network.HeaderSize {
		errs = append(errs, fmt.Errorf("server.read_limit must exceed %d", network.HeaderSize))
	}
	if c.Server.SendQueue < 1 {
		errs = append(errs, errors.New("server.send_queue must be at least 1"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	g := c.Game
	if g.MaxRounds < 1 {
		errs = append(errs, errors.New("game.max_rounds must be at least 1"))
	}
	if g.TickInterval <= 0 {
		errs = append(errs, errors.New("game.tick_interval must be positive"))
	}
	if g.GraceDelay < 0 || g.CooldownDelay < 0 || g.SettlementTimeout < 0 {
		errs = append(errs, errors.New("game delays must not be negative"))
	}
	if g.Budgets.Bodmas < 1 || g.Budgets.Chemical < 1 || g.Budgets.Blocks < 1 {
		errs = append(errs, errors.New("game.budgets must be at least 1"))
	}
	cb := c.Combat
	for key, v := range map[string]int{
		"base_damage":      cb.BaseDamage,
		"combo_threshold":  cb.ComboThreshold,
		"combo_bonus":      cb.ComboBonus,
		"correct_energy":   cb.CorrectEnergy,
		"wrong_penalty":    cb.WrongPenalty,
		"reaction_energy":  cb.ReactionEnergy,
		"reaction_penalty": cb.ReactionPenalty,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("combat.%s must not be negative", key))
		}
	}
	if c.Timer.Resolution <= 0 {
		errs = append(errs, errors.New("timer.resolution must be positive"))
	}
	return errors.Join(errs...)
}

// RoomSettings converts the game and combat sections.
func (c *Config) RoomSettings() room.Settings {
	return room.Settings{
		MaxRounds:         c.Game.MaxRounds,
		GraceDelay:        c.Game.GraceDelay,
		CooldownDelay:     c.Game.CooldownDelay,
		TickInterval:      c.Game.TickInterval,
		SettlementTimeout: c.Game.SettlementTimeout,
		Budgets: room.Budgets{
			Arithmetic: c.Game.Budgets.Bodmas,
			Reaction:   c.Game.Budgets.Chemical,
			Shield:     c.Game.Budgets.Blocks,
		},
		Tuning: combat.Tuning{
			BaseDamage:      c.Combat.BaseDamage,
			ComboThreshold:  c.Combat.ComboThreshold,
			ComboBonus:      c.Combat.ComboBonus,
			CorrectEnergy:   c.Combat.CorrectEnergy,
			WrongPenalty:    c.Combat.WrongPenalty,
			ReactionEnergy:  c.Combat.ReactionEnergy,
			ReactionPenalty: c.Combat.ReactionPenalty,
		},
	}
}
