package command

import (
	"crypto/tls"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	cliconfig "github.com/yndnr/respd-go/internal/cli/config"
	"github.com/yndnr/respd-go/internal/cli/connection"
	"github.com/yndnr/respd-go/internal/cli/output"
	"github.com/yndnr/respd-go/internal/cli/repl"
	"github.com/yndnr/respd-go/internal/infra/buildinfo"
	"github.com/yndnr/respd-go/internal/infra/tlsroots"
	"github.com/yndnr/respd-go/internal/protocol/resp"
)

func init() {
	// -h is the host flag.
	cli.HelpFlag = &cli.BoolFlag{Name: "help", Usage: "show help"}
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:            "respd-cli",
		Usage:           "command line client for respd",
		UsageText:       "respd-cli [options] [command [arg ...]]",
		Version:         buildinfo.Get().Version,
		Flags:           globalFlags(),
		HideHelpCommand: true,
		Action:          run,
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Aliases: []string{"h"},
			Usage:   "server hostname",
			EnvVars: []string{"RESPD_HOST"},
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "server port",
			EnvVars: []string{"RESPD_PORT"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: raw, json, yaml",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "dial and request timeout",
		},
		&cli.BoolFlag{
			Name:  "tls",
			Usage: "connect using TLS",
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "skip TLS certificate verification",
		},
		&cli.StringFlag{
			Name:  "cacert",
			Usage: "CA certificate file to verify the server",
		},
		&cli.StringFlag{
			Name:  "cert",
			Usage: "client certificate file",
		},
		&cli.StringFlag{
			Name:  "key",
			Usage: "client private key file",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "CLI configuration file",
			Value: cliconfig.DefaultConfigPath(),
		},
	}
}

// GlobalFlags are the resolved connection and output settings.
type GlobalFlags struct {
	Host    string
	Port    int
	Output  output.Format
	Timeout time.Duration
	TLS     bool
	// Insecure skips certificate verification.
	Insecure bool
	CACert   string
	Cert     string
	Key      string

	HistoryFile string
}

// Addr returns host:port.
func (f *GlobalFlags) Addr() string {
	return net.JoinHostPort(f.Host, strconv.Itoa(f.Port))
}

// ParseGlobalFlags merges the configuration file with explicitly set
// flags.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	cfg, err := cliconfig.Load(c.String("config"))
	if err != nil {
		return nil, err
	}

	if c.IsSet("host") {
		cfg.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("tls") {
		cfg.TLS.Enabled = c.Bool("tls")
	}
	if c.IsSet("insecure") {
		cfg.TLS.Insecure = c.Bool("insecure")
	}
	for flag, field := range map[string]*string{
		"cacert": &cfg.TLS.CACert,
		"cert":   &cfg.TLS.Cert,
		"key":    &cfg.TLS.Key,
	} {
		if c.IsSet(flag) {
			*field = c.String(flag)
		}
	}

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return nil, err
	}
	history := cfg.HistoryFile
	if history == "" {
		history = filepath.Join(cliconfig.DefaultDir(), "history")
	}

	return &GlobalFlags{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Output:      format,
		Timeout:     cfg.Timeout,
		TLS:         cfg.TLS.Enabled,
		Insecure:    cfg.TLS.Insecure,
		CACert:      cfg.TLS.CACert,
		Cert:        cfg.TLS.Cert,
		Key:         cfg.TLS.Key,
		HistoryFile: history,
	}, nil
}

// NewClient creates a client from the resolved flags.
func NewClient(f *GlobalFlags) (*connection.Client, error) {
	opts := connection.Options{Timeout: f.Timeout}
	if f.TLS {
		var roots *tlsroots.Pool
		if f.CACert != "" {
			pool, err := tlsroots.LoadPool(f.CACert)
			if err != nil {
				return nil, err
			}
			roots = pool
		}
		opts.TLS = tlsroots.ClientConfig(roots, f.Host, f.Insecure)
		if f.Cert != "" || f.Key != "" {
			pair, err := tls.LoadX509KeyPair(f.Cert, f.Key)
			if err != nil {
				return nil, fmt.Errorf("load client certificate: %w", err)
			}
			opts.TLS.Certificates = []tls.Certificate{pair}
		}
	}
	return connection.NewClient(f.Addr(), opts), nil
}

func run(c *cli.Context) error {
	flags, err := ParseGlobalFlags(c)
	if err != nil {
		return err
	}

	client, err := NewClient(flags)
	if err != nil {
		return err
	}
	defer client.Close()
	formatter := output.NewFormatter(flags.Output)

	if c.NArg() > 0 {
		reply, err := client.Do(c.Args().Slice()...)
		if err != nil {
			return fmt.Errorf("could not connect to %s: %w", client.Addr(), err)
		}
		if err := formatter.Format(c.App.Writer, reply); err != nil {
			return err
		}
		if _, ok := reply.(*resp.ErrorReply); ok {
			return cli.Exit("", 1)
		}
		return nil
	}

	return runREPL(c, client, formatter, flags.HistoryFile)
}

func runREPL(c *cli.Context, client *connection.Client, formatter output.Formatter, historyFile string) error {
	history := repl.NewHistory(historyFile)
	if err := history.Load(); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "warning: load history: %v\n", err)
	}
	defer func() {
		if err := history.Save(); err != nil {
			fmt.Fprintf(c.App.ErrWriter, "warning: save history: %v\n", err)
		}
	}()

	r := repl.New(c.App.Reader, c.App.Writer,
		func(args []string) error {
			reply, err := client.Do(args...)
			if err != nil {
				return err
			}
			return formatter.Format(c.App.Writer, reply)
		},
		repl.WithHistory(history),
		repl.WithCompleter(repl.NewCompleter(commandNames(client))),
	)
	return r.Run()
}

// commandNames asks the server for its command list. A failure leaves
// completion empty.
func commandNames(client *connection.Client) []string {
	reply, err := client.Do("COMMAND", "LIST")
	if err != nil {
		return nil
	}
	arr, ok := reply.(*resp.MultiBulkReply)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(arr.Items))
	for _, item := range arr.Items {
		if b, ok := item.(*resp.BulkReply); ok && b.Data != nil {
			names = append(names, strings.ToLower(string(b.Data)))
		}
	}
	return names
}
