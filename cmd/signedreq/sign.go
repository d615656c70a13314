package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vitalvas/signedrequests/signedreq"
)

func newSignCmd(a *app) *cobra.Command {
	var (
		method  string
		data    string
		send    bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sign URL",
		Short: "Sign a request and print the signing headers",
		Long: `Sign builds the request described by the flags, signs it with the selected
profile and prints the id, timestamp, algorithm and signature headers.

With --send the signed request is sent and the response is printed instead.`,
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

			cfg := signedreq.SignConfig{Profile: profile}

			if send {
				client := &http.Client{
					Transport: signedreq.NewTransport(nil, cfg),
					Timeout:   timeout,
				}

				return sendRequest(cmd.OutOrStdout(), client, req)
			}

			signed, err := signedreq.SignRequest(req, cfg)
			if err != nil {
				return err
			}

			a.logger.Debug("request signed", zap.String("profile", profile.Name), zap.String("method", signed.Method))

			printSignedHeaders(cmd.OutOrStdout(), signed.Header, profile.WithDefaults())

			return nil
		},
	}

	cmd.Flags().StringVarP(&method, "request", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().BoolVar(&send, "send", false, "send the signed request and print the response")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout with --send")

	return cmd
}

// printSignedHeaders writes the signing headers in curl -H friendly form.
func printSignedHeaders(w io.Writer, header http.Header, profile signedreq.Profile) {
	for _, name := range []string{
		profile.IDHeader,
		profile.TimestampHeader,
		profile.AlgorithmHeader,
		profile.SignatureHeader,
	} {
		fmt.Fprintf(w, "%s: %s\n", name, header.Get(name))
	}
}

func sendRequest(w io.Writer, client *http.Client, req *http.Request) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintln(w, resp.Status)

	if _, err := io.Copy(w, resp.Body); err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server answered %s", resp.Status)
	}

	return nil
}
