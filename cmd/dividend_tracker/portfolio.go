package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dividend_tracker/internal/bot"
	"dividend_tracker/internal/chart"
	"dividend_tracker/internal/presenter"
	"dividend_tracker/internal/tracker"

	"github.com/spf13/cobra"
)

var (
	incomeCSV bool
	chartOut  string

	addCmd = &cobra.Command{
		Use:   "add SYMBOL...",
		Short: "Track one or more stocks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, sym := range args {
				pos, err := tr.AddPosition(cmd.Context(), sym)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), bot.Describe(err, tracker.NormalizeSymbol(sym)))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (yield %s)\n", pos.Symbol, presenter.Percent(pos.DividendYield))
			}
			return nil
		},
	}

	removeCmd = &cobra.Command{
		Use:   "remove ROW",
		Short: "Stop tracking the stock at ROW (as numbered by list)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := rowArg(args[0])
			if err != nil {
				return err
			}
			return tr.RemovePosition(cmd.Context(), idx)
		},
	}

	sharesCmd = &cobra.Command{
		Use:   "shares ROW COUNT",
		Short: "Set the share count of the stock at ROW",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := rowArg(args[0])
			if err != nil {
				return err
			}
			return tr.SetShares(cmd.Context(), idx, args[1])
		},
	}

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Show tracked stocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			positions := tr.Positions()
			md := pres.PositionList(positions, tracker.IncomeRows(positions))
			return printMarkdown(cmd, md+"\n\n"+pres.Summary(tr.Summary()))
		},
	}

	incomeCmd = &cobra.Command{
		Use:   "income",
		Short: "Show estimated annual income per stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			if incomeCSV {
				return presenter.WriteIncomeCSV(cmd.OutOrStdout(), tr.Income())
			}
			return printMarkdown(cmd, pres.IncomeTable(tr.Income()))
		},
	}

	chartCmd = &cobra.Command{
		Use:   "chart",
		Short: "Render the income bar chart",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := chart.DefaultOptions()
			if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(chartOut)), "."); ext != "" {
				opts.Format = ext
			}
			var buf bytes.Buffer
			if err := chart.Render(&buf, tr.Income(), opts); err != nil {
				return err
			}
			if err := os.WriteFile(chartOut, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("write chart: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", chartOut)
			return nil
		},
	}
)

func init() {
	incomeCmd.Flags().BoolVar(&incomeCSV, "csv", false, "write CSV instead of a table")
	chartCmd.Flags().StringVarP(&chartOut, "out", "o", "income.png", "output file; the extension selects the format")
}

// rowArg converts a 1-based row number to a position index.
func rowArg(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("row must be a number: %q", s)
	}
	return n - 1, nil
}

func printMarkdown(cmd *cobra.Command, md string) error {
	out, err := presenter.RenderMarkdown(md, style, 100)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
