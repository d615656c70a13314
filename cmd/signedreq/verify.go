package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vitalvas/signedrequests/replay"
	"github.com/vitalvas/signedrequests/signedreq"
)

func newVerifyCmd(a *app) *cobra.Command {
	var (
		method  string
		data    string
		headers []string
	)

	cmd := &cobra.Command{
		Use:   "verify URL",
		Short: "Verify a signed request described by flags",
		Long: `Verify rebuilds the request from the URL, method, body and headers and runs
the same checks as the server middleware: tolerance window, signature and
replay cache. The replay cache is empty for every invocation.`,
		Example: `  signedreq verify -X POST -d '{"test":"test"}' \
    -H 'X-SIGNED-ID: <id>' \
    -H 'X-SIGNED-TIMESTAMP: <timestamp>' \
    -H 'X-Signature-Algorithm: sha256' \
    -H 'X-Signature: <signature>' \
    https://localhost`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := a.resolveProfile()
			if err != nil {
				return err
			}

			var body io.Reader
			if data != "" {
				body = strings.NewReader(data)
			}

			req, err := http.NewRequestWithContext(cmd.Context(), strings.ToUpper(method), args[0], body)
			if err != nil {
				return err
			}

			for _, h := range headers {
				name, value, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
				}

				req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
			}

			err = signedreq.VerifyRequest(req, signedreq.VerifyConfig{
				Profile: profile,
				Cache:   replay.NewMemory(0),
				Logger:  a.logger,
			})
			if err != nil {
				return fmt.Errorf("request rejected with HTTP %d: %w", signedreq.StatusCode(err), err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "signature valid")

			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "request", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header as \"Name: value\"; repeatable")

	return cmd
}
