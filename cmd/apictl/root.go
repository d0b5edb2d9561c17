package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/apiclient/api"
	"github.com/adamwoolhether/apiclient/config"
	"github.com/adamwoolhether/apiclient/dispatch"
)

// serverError is whatever JSON object the API returned on failure.
type serverError map[string]any

func (e serverError) Error() string {
	b, err := json.Marshal(map[string]any(e))
	if err != nil {
		return "server error"
	}
	return "server error: " + string(b)
}

// app is the state shared by every command of one invocation.
type app struct {
	errOut io.Writer

	cfgFile string
	baseURL string
	token   string
	headers []string
	verbose bool

	logger *slog.Logger
	loop   *dispatch.Loop
	pool   *dispatch.Pool
	client *api.Client[serverError]
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{errOut: errOut}

	root := &cobra.Command{
		Use:   "apictl",
		Short: "Call envelope JSON APIs",
		Long: `apictl sends requests to APIs that wrap every response in a
{"success", "errors", "token"} envelope, printing the decoded payload
or the classified error.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup() },
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ~/.apiclient/config.yaml)")
	flags.StringVar(&a.baseURL, "base-url", "", "API base URL, overriding the config file")
	flags.StringVar(&a.token, "token", "", "bearer token, overriding the config file")
	flags.StringArrayVarP(&a.headers, "header", "H", nil, "extra header as Name=Value, repeatable")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log requests and responses")

	root.AddCommand(
		newFetchCmd(a, "get"),
		newFetchCmd(a, "post"),
		newFetchCmd(a, "put"),
		newDownloadCmd(a),
	)

	return root
}

func (a *app) setup() error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path, a.errOut)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.token != "" {
		cfg.AuthToken = a.token
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if len(a.headers) > 0 {
		extra, err := parsePairs(a.headers)
		if err != nil {
			return fmt.Errorf("parsing headers: %w", err)
		}
		cfg.Headers = maps.Clone(cfg.Headers)
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(extra))
		}
		maps.Copy(cfg.Headers, extra)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	a.logger = cfg.Logger(a.errOut)
	a.loop = dispatch.NewLoop(dispatch.WithLogger(a.logger))
	a.pool = dispatch.NewPool(cfg.Workers, dispatch.WithLogger(a.logger))

	opts, err := cfg.APIOptions(a.logger)
	if err != nil {
		return err
	}
	opts = append(opts,
		api.WithMainExecutor(a.loop),
		api.WithWorkerExecutor(a.pool),
		api.WithDelegate(api.DelegateFunc(func() {
			fmt.Fprintln(a.errOut, "session expired: refresh the token with --token or auth_token")
		})),
	)

	a.client, err = api.New[serverError](cfg.BaseURL, opts...)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	return nil
}

// teardown stops the executors once a command finished.
func (a *app) teardown() {
	if a.pool != nil {
		a.pool.Shutdown()
		a.pool.Wait()
	}
	if a.loop != nil {
		a.loop.Close()
	}
}

// await starts a call and runs the main loop on the calling goroutine
// until its result is delivered or ctx ends.
func await[T any](ctx context.Context, loop *dispatch.Loop, start func(ctx context.Context, fn func(T, error)) *api.Call) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		result    T
		resultErr error
		delivered bool
	)
	call := start(ctx, func(v T, err error) {
		result, resultErr, delivered = v, err, true
		cancel()
	})

	_ = loop.Run(ctx)

	if !delivered {
		call.Cancel()
		var zero T
		return zero, context.Cause(ctx)
	}

	return result, resultErr
}

func parsePairs(pairs []string) (map[string]string, error) {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%q is not Name=Value", p)
		}
		m[k] = v
	}

	return m, nil
}
