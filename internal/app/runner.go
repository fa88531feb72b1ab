package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/molted-work/molted-cli/internal/api"
	"github.com/molted-work/molted-cli/internal/config"
	"github.com/molted-work/molted-cli/internal/credential"
	clierr "github.com/molted-work/molted-cli/internal/errors"
	"github.com/molted-work/molted-cli/internal/httpx"
	"github.com/molted-work/molted-cli/internal/logging"
	"github.com/molted-work/molted-cli/internal/model"
	"github.com/molted-work/molted-cli/internal/out"
	"github.com/molted-work/molted-cli/internal/policy"
	"github.com/molted-work/molted-cli/internal/schema"
	"github.com/molted-work/molted-cli/internal/store"
	"github.com/molted-work/molted-cli/internal/version"
)

type Runner struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithIO(os.Stdin, os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return NewRunnerWithIO(os.Stdin, stdout, stderr)
}

func NewRunnerWithIO(stdin io.Reader, stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

// runtimeState is built once per Run. Settings, logger, store and API client
// are constructed here and passed down; nothing reads process globals later.
type runtimeState struct {
	runner       *Runner
	flags        config.GlobalFlags
	settings     config.Settings
	log          zerolog.Logger
	store        *store.Store
	root         *cobra.Command
	lastCommand  string
	lastWarnings []string
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r, log: zerolog.Nop()}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetIn(r.stdin)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.ExecuteContext(context.Background())
	err = normalizeRunError(err)
	defer state.closeStore()
	if err == nil {
		return 0
	}

	state.renderError("", err, state.lastWarnings)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Agent-first CLI for the molted job marketplace",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeValidation, "load configuration", err)
			}
			s.settings = settings
			if s.flags.Verbose {
				s.log = logging.Console(s.runner.stderr, settings.LogLevel)
			} else {
				s.log = logging.New(s.runner.stderr, settings.LogLevel)
			}

			path := trimRootPath(cmd.CommandPath())
			s.lastCommand = path
			return policy.CheckCommandAllowed(settings.EnableCommands, path)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeValidation, "parse flags", err)
	})

	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	cmd.PersistentFlags().BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	cmd.PersistentFlags().StringVar(&s.flags.Select, "select", "", "Select fields from data (comma-separated, dotted paths allowed)")
	cmd.PersistentFlags().BoolVar(&s.flags.ResultsOnly, "results-only", false, "Output only data payload")
	cmd.PersistentFlags().StringVar(&s.flags.EnableCommands, "enable-commands", "", "Allowlist command paths (comma-separated)")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Per-command timeout (e.g. 15s)")
	cmd.PersistentFlags().StringVar(&s.flags.APIURL, "api-url", "", "Marketplace API base URL")
	cmd.PersistentFlags().StringVar(&s.flags.APIKey, "api-key", "", "Marketplace API key")
	cmd.PersistentFlags().StringVar(&s.flags.PrivateKey, "private-key", "", "Wallet private key (0x + 64 hex)")
	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().BoolVarP(&s.flags.Verbose, "verbose", "v", false, "Write debug logs to stderr")

	cmd.AddCommand(s.newSchemaCommand())
	cmd.AddCommand(s.newWhoamiCommand())
	cmd.AddCommand(s.newJobsCommand())
	cmd.AddCommand(s.newMessagesCommand())
	cmd.AddCommand(s.newHistoryCommand())
	cmd.AddCommand(s.newHireCommand())
	cmd.AddCommand(s.newAuthCommand())
	cmd.AddCommand(s.newWalletCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) newSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [command path]",
		Short: "Print machine-readable command schema",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := schema.Build(s.root, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), data, nil)
		},
	}
	return cmd
}

// commandContext bounds one command by the configured timeout and by
// SIGINT/SIGTERM.
func (s *runtimeState) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	sigCtx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(sigCtx, s.settings.Timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// openStore returns the credential store. With create unset a missing store
// file yields nil so read-only commands never create an empty database.
func (s *runtimeState) openStore(create bool) (*store.Store, error) {
	if s.store != nil {
		return s.store, nil
	}
	if !create && !store.Exists(s.settings.StorePath) {
		return nil, nil
	}
	st, err := store.Open(s.settings.StorePath, s.settings.StoreLockPath)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "open credential store", err)
	}
	s.store = st
	return st, nil
}

func (s *runtimeState) closeStore() {
	if s.store != nil {
		_ = s.store.Close()
		s.store = nil
	}
}

func (s *runtimeState) resolver() (*credential.Resolver, error) {
	st, err := s.openStore(false)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return credential.NewResolver(nil, s.log), nil
	}
	return credential.NewResolver(st, s.log), nil
}

func (s *runtimeState) resolveCredential() (credential.Credential, error) {
	r, err := s.resolver()
	if err != nil {
		return credential.Credential{}, err
	}
	return r.Resolve(credential.InputsFromSettings(s.settings))
}

func (s *runtimeState) apiClient(cred credential.Credential) (*api.Client, error) {
	httpClient := httpx.New(s.settings.Timeout, version.UserAgent(), s.log)
	return api.New(s.settings.APIURL, cred, httpClient)
}

// authedClient resolves credentials and builds the API client in one step.
func (s *runtimeState) authedClient() (*api.Client, credential.Credential, error) {
	cred, err := s.resolveCredential()
	if err != nil {
		return nil, credential.Credential{}, err
	}
	client, err := s.apiClient(cred)
	if err != nil {
		return nil, credential.Credential{}, err
	}
	return client, cred, nil
}

func (s *runtimeState) emitSuccess(commandPath string, data any, warnings []string) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Error:    nil,
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
		},
	}
	return out.Render(s.runner.stdout, env, s.settings)
}

func (s *runtimeState) renderError(commandPath string, err error, warnings []string) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	cErr := clierr.Classify(err)
	message := cErr.Message
	if cErr.Cause != nil && cErr.Kind != clierr.KindNotFound && cErr.Kind != clierr.KindConflict {
		message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
	}
	s.log.Debug().Str("command", commandPath).Str("type", string(cErr.Kind)).Err(err).Msg("command failed")

	settings := s.settings
	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	settings.ResultsOnly = false
	settings.SelectFields = nil
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Error: &model.ErrorBody{
			Code:    int(cErr.Code),
			Type:    string(cErr.Kind),
			Message: message,
			Details: cErr.Details(),
		},
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
		},
	}
	_ = out.Render(s.runner.stderr, env, settings)
}

func newRequestID() string {
	return uuid.NewString()
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	return clierr.Classify(err)
}
