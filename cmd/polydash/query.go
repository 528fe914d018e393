package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/newthinker/polydash/internal/app"
	"github.com/newthinker/polydash/internal/band"
	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/core"
	"github.com/newthinker/polydash/internal/dashboard"
	"github.com/newthinker/polydash/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bot status and headline KPIs",
	RunE:  runStatus,
}

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "List signals",
	RunE:  runSignals,
}

var walletsCmd = &cobra.Command{
	Use:   "wallets",
	Short: "List monitored wallets and consensus events",
	RunE:  runWallets,
}

var (
	signalsDirection string
	signalsResult    string
	signalsSort      string
	signalsOrder     string
	signalsPage      int
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(walletsCmd)

	signalsCmd.Flags().StringVar(&signalsDirection, "direction", "ALL", "UP, DOWN or ALL")
	signalsCmd.Flags().StringVar(&signalsResult, "result", "ALL", "WIN, LOSS or ALL")
	signalsCmd.Flags().StringVar(&signalsSort, "sort", "timestamp", "sort column")
	signalsCmd.Flags().StringVar(&signalsOrder, "order", "desc", "asc or desc")
	signalsCmd.Flags().IntVar(&signalsPage, "page", 1, "page number, starting at 1")
}

// withSource handles config, logging and client setup for one-shot commands.
func withSource(cmd *cobra.Command, fn func(ctx context.Context, src client.Source) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer log.Sync()

	c, err := app.NewClient(cfg, log.Named("client"), nil)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(cmd)
	defer cancel()

	if err := fn(ctx, c); err != nil {
		log.Debug("command failed", zap.String("command", cmd.Name()), zap.Error(err))
		return err
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withSource(cmd, func(ctx context.Context, src client.Source) error {
		var (
			status core.Status
			kpis   core.KPIs
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			status, err = src.Status(gctx)
			return err
		})
		g.Go(func() (err error) {
			kpis, err = src.KPIs(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}
		return printStatus(cmd.OutOrStdout(), status, dashboard.BandKPIs(kpis))
	})
}

func runSignals(cmd *cobra.Command, args []string) error {
	key, ok := pipeline.ParseSortKey(signalsSort)
	if !ok {
		return core.WrapError(core.ErrBadRequest, fmt.Errorf("unknown sort column %q", signalsSort))
	}
	st := pipeline.SortState{Key: key, Order: pipeline.ParseOrder(signalsOrder)}
	page := max(signalsPage-1, 0)

	return withSource(cmd, func(ctx context.Context, src client.Source) error {
		q := pipeline.Query(pipeline.ParseDirection(signalsDirection), pipeline.ParseResult(signalsResult), page)
		p, err := src.Signals(ctx, q)
		if err != nil {
			return err
		}
		return printSignals(cmd.OutOrStdout(), pipeline.BuildTable(p, page, st))
	})
}

func runWallets(cmd *cobra.Command, args []string) error {
	return withSource(cmd, func(ctx context.Context, src client.Source) error {
		var (
			wallets   []core.BasketWallet
			consensus []core.ConsensusSignal
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			wallets, err = src.Baskets(gctx)
			return err
		})
		g.Go(func() (err error) {
			consensus, err = src.Consensus(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}
		return printWallets(cmd.OutOrStdout(), wallets, consensus)
	})
}

func printStatus(out io.Writer, s core.Status, k dashboard.KPICards) error {
	state := "STOPPED"
	if s.BotRunning {
		state = "RUNNING"
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Bot:\t%s\n", state)
	fmt.Fprintf(w, "Version:\t%s\n", s.Version)
	fmt.Fprintf(w, "Uptime:\t%s\n", band.FormatUptime(s.UptimeSeconds))
	fmt.Fprintf(w, "Signals:\t%d\n", k.TotalSignals)
	fmt.Fprintf(w, "Win rate:\t%.1f%%\t[%s]\n", k.WinRate, k.WinRateLevel)
	fmt.Fprintf(w, "PnL:\t%+.2f\n", k.PnLTotal)
	fmt.Fprintf(w, "PnL after fees:\t%+.2f\n", k.PnLPostFees)
	fmt.Fprintf(w, "Max drawdown:\t%.2f\t[%s]\n", k.DrawdownMax, k.DrawdownLevel)
	fmt.Fprintf(w, "Avg PnL:\t%+.2f\n", k.AvgPnL)
	return w.Flush()
}

func printSignals(out io.Writer, t pipeline.Table) error {
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(out, "No signals found.")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tDIR\tSCORE\tCONF\tBTC\tDELTA %\tROI %\tPNL\tRESULT")
	fmt.Fprintln(w, "----\t---\t-----\t----\t---\t-------\t-----\t---\t------")
	for _, s := range t.Rows {
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%.0f%%\t%.2f\t%+.2f\t%+.2f\t%+.2f\t%s\n",
			s.Timestamp.UTC().Format(time.DateTime),
			s.Direction,
			s.Score,
			band.Confidence(s.Confidence),
			s.BTCPrice,
			s.DeltaPct,
			s.ROI(),
			s.NetProfit(),
			s.Outcome(),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\nPage %d of %d (%d signals, sorted by %s %s)\n",
		t.Page+1, max(t.Pages, 1), t.Total, t.Sort.Key, t.Sort.Order)
	return err
}

func printWallets(out io.Writer, wallets []core.BasketWallet, consensus []core.ConsensusSignal) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WALLET\tDIRECTION\tAMOUNT\tTRADES\tLAST TRADE")
	for _, b := range wallets {
		last := "never"
		if b.LastTrade != nil {
			last = b.LastTrade.UTC().Format(time.DateTime)
		}
		name := b.WalletShort
		if name == "" {
			name = b.Wallet
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%s\n", name, orDash(string(b.Direction)), b.Amount, b.TradeCount, last)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	widget := dashboard.NewConsensusWidget(consensus, len(wallets))
	if widget.Latest == nil {
		_, err := fmt.Fprintln(out, "\nConsensus: no events")
		return err
	}
	_, err := fmt.Fprintf(out, "\nConsensus: %s %d/%d wallets [%s] %s\n",
		widget.Latest.Direction, widget.Latest.Wallets, widget.Total, widget.Level,
		strings.TrimSpace(widget.Latest.Market))
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
