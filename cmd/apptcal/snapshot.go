package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	"apptcal/internal/capture"
	appLog "apptcal/internal/log"
)

func newSnapshotCmd() *cobra.Command {
	var (
		pageURL   string
		output    string
		timeout   time.Duration
		noSandbox bool
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Bind the calendar of a running instance in a headless browser and report",
		Long: `Open the calendar page of a running apptcal in headless Chromium, bind
the widget from Go and report the rendered entries, their tooltips and where a
click on the first entry leads. With --output, also save a PNG of the page.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			if pageURL == "" {
				pageURL = selfURL(conf.Listen) + "/calendrier"
			}
			if conf.BasicAuth != nil && conf.BasicAuth.Username != "" {
				pageURL = withBasicAuth(pageURL, conf.BasicAuth.Username, conf.BasicAuth.Password)
			}

			opts := capture.Options{
				URL:     pageURL,
				Width:   conf.Preview.Width,
				Height:  conf.Preview.Height,
				Timeout: timeout,
			}
			if noSandbox {
				opts.ExecAllocatorOptions = append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)
			}

			report, err := capture.ProbeCalendar(cmd.Context(), opts, conf.Calendar)
			if err != nil {
				return err
			}
			if !report.Mounted {
				return fmt.Errorf("calendar mount element #%s not found", conf.Calendar.MountID)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}

			if output != "" {
				if err := capture.CaptureCalendarPNG(cmd.Context(), opts, output); err != nil {
					return err
				}
				appLog.Info("calendar snapshot written", "path", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pageURL, "url", "", "Calendar page URL (default: the configured listen address)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Also write a PNG screenshot to this path")
	cmd.Flags().DurationVar(&timeout, "timeout", capture.DefaultTimeout, "Browser run timeout")
	cmd.Flags().BoolVar(&noSandbox, "no-sandbox", false, "Disable the Chromium sandbox (containers)")
	return cmd
}
