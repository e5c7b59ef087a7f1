package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	serverURL  string
	playerName string
	roomCode   string
	rounds     int
	brushColor string
	brushSize  int
	dialWait   time.Duration
	noQR       bool
	verbose    bool
	version    bool
}

func (c *Config) validate() error {
	if c.playerName == "" {
		return errors.New("--name is required")
	}
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server url must use ws or wss, got %q", u.Scheme)
	}
	if c.rounds < 1 {
		return fmt.Errorf("invalid round count: %d", c.rounds)
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SKETCHPARTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "sketchparty",
		Short:         "Terminal client for sketchparty, the multiplayer draw-and-guess game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.serverURL, "server", "s", "ws://localhost:8080/ws", "game server websocket url (env: SKETCHPARTY_SERVER)")
	fs.StringVarP(&cfg.playerName, "name", "n", "", "display name to play under (env: SKETCHPARTY_NAME)")
	fs.StringVarP(&cfg.roomCode, "join", "j", "", "six-character room code to join; omit to create a room (env: SKETCHPARTY_JOIN)")
	fs.IntVarP(&cfg.rounds, "rounds", "r", 3, "rounds per game when hosting (env: SKETCHPARTY_ROUNDS)")
	fs.StringVar(&cfg.brushColor, "color", "", "initial brush color as #rrggbb, or random (env: SKETCHPARTY_COLOR)")
	fs.IntVar(&cfg.brushSize, "brush-size", 0, "initial brush size, 1-20 (env: SKETCHPARTY_BRUSH_SIZE)")
	fs.DurationVar(&cfg.dialWait, "dial-wait", 10*time.Second, "how long to wait for the first connection (env: SKETCHPARTY_DIAL_WAIT)")
	fs.BoolVar(&cfg.noQR, "no-qr", false, "skip the QR invite code after creating a room (env: SKETCHPARTY_NO_QR)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: SKETCHPARTY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: SKETCHPARTY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("sketchparty v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
