package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tradeArena/internal/adapters/httpapi"
	"tradeArena/internal/app"
	"tradeArena/internal/domain"
	"tradeArena/internal/strategy"
	"tradeArena/internal/utils"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "arena",
		Short: "Trade arena - constrained portfolio execution for trading agents",
		Long: `arena screens trade directives emitted by autonomous agents against each agent's
constraint profile and applies the admitted ones to its simulated portfolio.
Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newRoundCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newAdvanceCmd())
	rootCmd.AddCommand(newAgentCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newProfilesCmd())
	rootCmd.AddCommand(newQuoteCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

// withRuntime wires the application for the duration of fn.
func withRuntime(fn func(ctx context.Context, rt *runtime) error) error {
	rt, err := bootstrap()
	if err != nil {
		return err
	}
	defer rt.close()
	return fn(context.Background(), rt)
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Seed the default agent roster",
		Long: `Create the five baseline agents and five free agents, each holding only starting cash.
Existing agents are left untouched unless --reset is given, which wipes all arena data first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reset, _ := cmd.Flags().GetBool("reset")
			cashFlag, _ := cmd.Flags().GetString("cash")
			return withRuntime(func(ctx context.Context, rt *runtime) error {
				cash := rt.cfg.StartingCash
				if cashFlag != "" {
					parsed, err := decimal.NewFromString(cashFlag)
					if err != nil {
						return fmt.Errorf("invalid --cash value %q: %w", cashFlag, err)
					}
					cash = parsed
				}
				created, err := rt.service.SeedRoster(ctx, cash, reset)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Seeded %d agent(s) with %s cash each\n", len(created), cash.StringFixed(2))
				for _, a := range created {
					fmt.Fprintf(out, "  %-8s %-14s %s\n", a.ID, a.Archetype, a.Name)
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("reset", false, "Delete all agents, trades and snapshots before seeding")
	cmd.Flags().String("cash", "", "Starting cash per agent (defaults to STARTING_CASH)")
	return cmd
}

func newRoundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "round",
		Short: "Process one round of agent output",
		Long: `Read an agent's raw output, extract its TRADE directives, validate each against the
agent's profile and apply the admitted ones in order. The arena must be running and
--round must be the open round; leave it out to play the open round.
Example: arena round --agent turtle --file turtle.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID, _ := cmd.Flags().GetString("agent")
			round, _ := cmd.Flags().GetInt("round")
			file, _ := cmd.Flags().GetString("file")
			if round < 0 {
				return fmt.Errorf("--round must not be negative")
			}

			output, err := readOutput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			return withRuntime(func(ctx context.Context, rt *runtime) error {
				report, err := rt.service.RunRound(ctx, agentID, round, output)
				if err != nil {
					return err
				}
				printReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}
	cmd.Flags().String("agent", "", "Agent id")
	cmd.Flags().Int("round", 0, "Round number, 0 for the open round")
	cmd.Flags().String("file", "-", "File holding the agent output, - for stdin")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

func readOutput(stdin io.Reader, file string) (string, error) {
	var data []byte
	var err error
	if file == "" || file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read agent output: %w", err)
	}
	return string(data), nil
}

func printReport(out io.Writer, r *app.RoundReport) {
	fmt.Fprintf(out, "Agent %s, round %d: %d proposal(s), %d executed, %d rejected",
		r.AgentID, r.Round, r.Proposals, len(r.Executions), len(r.Rejections))
	if r.Truncated > 0 {
		fmt.Fprintf(out, ", %d ignored over the cap", r.Truncated)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, e := range r.Executions {
		fmt.Fprintf(w, "  EXECUTED\t%s %s %s @ %s\t\n", e.Side, e.Shares, e.Symbol, e.Price.StringFixed(2))
	}
	for _, rej := range r.Rejections {
		fmt.Fprintf(w, "  REJECTED\t%s %s %s @ %s\t[%s] %s\n", rej.Side, rej.Shares, rej.Symbol, rej.Price.StringFixed(2), rej.Category, rej.Reason)
	}
	w.Flush()
	if r.Unpriced > 0 {
		fmt.Fprintf(out, "%d proposal(s) lacked market data\n", r.Unpriced)
	}
	fmt.Fprintf(out, "Cash %s, equity %s\n", r.Cash.StringFixed(2), r.Equity.StringFixed(2))
	if r.Portfolio != nil && len(r.Portfolio.Positions) > 0 {
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, symbol := range r.Portfolio.Symbols() {
			p := r.Portfolio.Positions[symbol]
			fmt.Fprintf(w, "  %s\t%s\t@ %s\t%s\n", symbol, p.Shares, p.AvgCost.StringFixed(2), p.MarketValue().StringFixed(2))
		}
		w.Flush()
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [running|paused]",
		Short: "Show the arena status, or pause and resume play",
		Long: `Without an argument, print the game status and the open round.
With "paused", rounds are refused until the arena is set back to "running".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var status domain.GameStatus
			if len(args) == 1 {
				parsed, ok := domain.ParseGameStatus(args[0])
				if !ok {
					return fmt.Errorf("unknown status %q, want running or paused", args[0])
				}
				status = parsed
			}
			return withRuntime(func(ctx context.Context, rt *runtime) error {
				var state *domain.ArenaState
				var err error
				if status == "" {
					state, err = rt.service.ArenaState(ctx)
				} else {
					state, err = rt.service.SetStatus(ctx, status)
				}
				if err != nil {
					return err
				}
				printState(cmd.OutOrStdout(), state)
				return nil
			})
		},
	}
}

func newAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Open the next round",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(ctx context.Context, rt *runtime) error {
				state, err := rt.service.AdvanceRound(ctx)
				if err != nil {
					return err
				}
				printState(cmd.OutOrStdout(), state)
				return nil
			})
		},
	}
}

func printState(out io.Writer, state *domain.ArenaState) {
	if state.Round == 0 {
		fmt.Fprintf(out, "Arena %s, no round opened yet\n", state.Status)
		return
	}
	fmt.Fprintf(out, "Arena %s, round %d open\n", state.Status, state.Round)
}

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage individual agents",
	}
	cmd.AddCommand(newAgentToggleCmd("enable", true))
	cmd.AddCommand(newAgentToggleCmd("disable", false))
	return cmd
}

func newAgentToggleCmd(verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " AGENT",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(ctx context.Context, rt *runtime) error {
				agent, err := rt.service.SetAgentEnabled(ctx, args[0], enabled)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Agent %s %sd\n", agent.ID, verb)
				return nil
			})
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(ctx context.Context, rt *runtime) error {
				srv := httpapi.New(httpapi.Config{
					Addr:           rt.cfg.HTTPAddr,
					Log:            rt.logger.Zerolog(),
					Arena:          rt.service,
					AllowedOrigins: rt.cfg.CORSAllowedOrigins,
					StartingCash:   rt.cfg.StartingCash,
				})

				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				errCh := make(chan error, 1)
				go func() {
					errCh <- srv.Start()
				}()

				select {
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return err
				case <-ctx.Done():
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
}

func newLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank agents by total equity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(func(ctx context.Context, rt *runtime) error {
				standings, err := rt.service.Leaderboard(ctx)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
				fmt.Fprintln(w, "#\tAgent\tArchetype\tCash\tEquity\tReturn %\tPositions\t")
				for _, s := range standings {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t\n",
						s.Rank, s.Name, s.Archetype, s.Cash.StringFixed(2), s.Equity.StringFixed(2), s.ReturnPct.StringFixed(2), s.Positions)
				}
				return w.Flush()
			})
		},
	}
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List constraint profiles and their rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printProfiles(cmd.OutOrStdout(), strategy.NewCatalog().Profiles())
			return nil
		},
	}
}

func printProfiles(out io.Writer, profiles []*strategy.Profile) {
	for _, p := range profiles {
		fmt.Fprintf(out, "%s (%s, %s)\n", p.Name, p.ID, p.Kind)
		for _, rule := range p.Rules {
			fmt.Fprintf(out, "  - %s\n", rule)
		}
	}
}

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Look up reference prices from the configured source",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withYield, _ := cmd.Flags().GetBool("yield")
			return withRuntime(func(ctx context.Context, rt *runtime) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				for _, symbol := range args {
					symbol = strings.ToUpper(symbol)
					price, ok, err := rt.service.Quote(ctx, symbol)
					switch {
					case err != nil:
						fmt.Fprintf(w, "%s\terror: %v\t", symbol, err)
					case !ok:
						fmt.Fprintf(w, "%s\tunavailable\t", symbol)
					default:
						fmt.Fprintf(w, "%s\t%s\t", symbol, price.StringFixed(2))
					}
					if withYield {
						lookupCtx, cancel := context.WithTimeout(ctx, rt.cfg.QuoteTimeout)
						y, ok, err := rt.yields.DividendYield(lookupCtx, symbol)
						cancel()
						switch {
						case err != nil:
							fmt.Fprint(w, "yield error")
						case !ok:
							fmt.Fprint(w, "yield unavailable")
						default:
							fmt.Fprintf(w, "yield %s%%", y.Mul(decimal.NewFromInt(100)).StringFixed(2))
						}
					}
					fmt.Fprintln(w)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().Bool("yield", false, "Also show the trailing dividend yield")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the execution history as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return withRuntime(func(ctx context.Context, rt *runtime) error {
				execs, err := rt.service.AllExecutions(ctx)
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					return utils.WriteExecutionsCSV(cmd.OutOrStdout(), execs)
				}
				if err := utils.WriteExecutionsToCSV(execs, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d execution(s) to %s\n", len(execs), out)
				return nil
			})
		},
	}
	cmd.Flags().StringP("out", "o", "-", "Output file, - for stdout")
	return cmd
}
