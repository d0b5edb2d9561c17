package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/apiclient/api"
)

type fetchFlags struct {
	query   []string
	keyPath string
	data    string
}

func (f *fetchFlags) callOptions() ([]api.CallOption, error) {
	var opts []api.CallOption

	if len(f.query) > 0 {
		items := make([]api.QueryItem, 0, len(f.query))
		for _, q := range f.query {
			name, value, ok := strings.Cut(q, "=")
			if !ok || name == "" {
				return nil, fmt.Errorf("query %q is not name=value", q)
			}
			items = append(items, api.QueryItem{Name: name, Value: value})
		}
		opts = append(opts, api.WithQueryItems(items...))
	}

	if f.data != "" {
		var params map[string]any
		if err := json.Unmarshal([]byte(f.data), &params); err != nil {
			return nil, fmt.Errorf("parsing --data: %w", err)
		}
		opts = append(opts, api.WithParams(params))
	}

	return opts, nil
}

func newFetchCmd(a *app, name string) *cobra.Command {
	method := strings.ToUpper(name)
	var flags fetchFlags

	cmd := &cobra.Command{
		Use:   name + " <endpoint>",
		Short: fmt.Sprintf("Send a %s request and print the payload", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.teardown()

			opts, err := flags.callOptions()
			if err != nil {
				return err
			}
			opts = append(opts, api.WithKeyPath(flags.keyPath))

			endpoint := args[0]
			op := fetchOp(method)

			payload, err := await(cmd.Context(), a.loop, func(ctx context.Context, fn func(json.RawMessage, error)) *api.Call {
				return op(ctx, a.client, endpoint, fn, opts...)
			})
			if err != nil {
				return fmt.Errorf("%s %s: %w", method, endpoint, err)
			}

			return printJSON(cmd, payload)
		},
	}

	cmd.Flags().StringArrayVarP(&flags.query, "query", "q", nil, "query item as name=value, repeatable, order kept")
	cmd.Flags().StringVarP(&flags.keyPath, "keypath", "k", api.DefaultKeyPath, `payload location in the body, "" for the whole body`)
	if method != http.MethodGet {
		cmd.Flags().StringVarP(&flags.data, "data", "d", "", "JSON object sent as the request body")
	}

	return cmd
}

type fetchFunc func(context.Context, *api.Client[serverError], string, func(json.RawMessage, error), ...api.CallOption) *api.Call

func fetchOp(method string) fetchFunc {
	switch method {
	case http.MethodPost:
		return api.Post[json.RawMessage, serverError]
	case http.MethodPut:
		return api.Put[json.RawMessage, serverError]
	default:
		return api.Get[json.RawMessage, serverError]
	}
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}

	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	return nil
}
