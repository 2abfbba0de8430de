package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const settingsPath = "/api/v1/rewrite/settings"

func newSettingsCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or change the rewrite settings of a running search service",
	}
	cmd.PersistentFlags().StringVar(&server, "server", "http://localhost:8080", "Search service base URL")

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the active rewrite settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doSettings(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, server, nil)
		},
	})
	cmd.AddCommand(newSettingsSetCmd(&server))
	return cmd
}

func newSettingsSetCmd(server *string) *cobra.Command {
	var (
		mode            string
		termCountCutoff int
		docCountPercent float64
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the active rewrite settings",
		Long: `Only the flags given are sent; the service keeps the current value of the
others. Thresholds outside their documented range are accepted and logged
by the service.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := make(map[string]any)
			if cmd.Flags().Changed("mode") {
				body["mode"] = mode
			}
			if cmd.Flags().Changed("term-count-cutoff") {
				body["term_count_cutoff"] = termCountCutoff
			}
			if cmd.Flags().Changed("doc-count-percent") {
				body["doc_count_percent"] = docCountPercent
			}
			if len(body) == 0 {
				return fmt.Errorf("nothing to change: pass --mode, --term-count-cutoff or --doc-count-percent")
			}
			return doSettings(cmd.Context(), cmd.OutOrStdout(), http.MethodPut, *server, body)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Rewrite mode (auto, filter, scoring_boolean)")
	cmd.Flags().IntVar(&termCountCutoff, "term-count-cutoff", 0, "Terms collected before falling back to the filter")
	cmd.Flags().Float64Var(&docCountPercent, "doc-count-percent", 0, "Percent of documents visited before falling back to the filter")
	return cmd
}

func doSettings(ctx context.Context, out io.Writer, method, server string, body map[string]any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding settings: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(server, "/")+settingsPath, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling search service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return fmt.Errorf("search service returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("search service returned %d", resp.StatusCode)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		_, err = out.Write(data)
		return err
	}
	_, err = fmt.Fprintln(out, pretty.String())
	return err
}
