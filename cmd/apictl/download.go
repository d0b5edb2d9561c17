package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/apiclient/api"
	"github.com/adamwoolhether/apiclient/client/download"
)

func newDownloadCmd(a *app) *cobra.Command {
	var (
		method   string
		data     string
		sha256ex string
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "download <endpoint> <destination>",
		Short: "Stream a response body to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.teardown()

			endpoint, dest := args[0], args[1]

			flags := fetchFlags{data: data}
			opts, err := flags.callOptions()
			if err != nil {
				return err
			}
			opts = append(opts, api.WithMethod(strings.ToUpper(method)))
			if sha256ex != "" {
				opts = append(opts, api.WithChecksum(sha256.New(), sha256ex))
			}
			if progress {
				opts = append(opts, api.WithProgress(func(p download.Progress) {
					if p.Expected > 0 {
						fmt.Fprintf(a.errOut, "\r%d/%d bytes (%.0f%%)", p.Received, p.Expected, p.Fraction()*100)
						return
					}
					fmt.Fprintf(a.errOut, "\r%d bytes", p.Received)
				}))
			}

			_, err = await(cmd.Context(), a.loop, func(ctx context.Context, fn func(struct{}, error)) *api.Call {
				return a.client.Download(ctx, endpoint, dest, func(err error) { fn(struct{}{}, err) }, opts...)
			})
			if progress {
				fmt.Fprintln(a.errOut)
			}
			if err != nil {
				return fmt.Errorf("download %s: %w", endpoint, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", dest)

			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method: GET, POST or PUT")
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON object sent as the request body")
	cmd.Flags().StringVar(&sha256ex, "sha256", "", "expected hex SHA-256 of the file")
	cmd.Flags().BoolVar(&progress, "progress", false, "print progress to stderr")

	return cmd
}
