package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/banshee-data/yardwatch/internal/api"
	"github.com/banshee-data/yardwatch/internal/report"
	"github.com/banshee-data/yardwatch/internal/statusrpc"
	"github.com/banshee-data/yardwatch/internal/timeutil"
	"github.com/banshee-data/yardwatch/internal/yard"
)

const defaultServerAddr = "http://localhost:8080"

// remoteOptions are shared by the commands that talk to a running server.
type remoteOptions struct {
	Addr    string
	Timeout time.Duration
}

func (o *remoteOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Addr, "addr", defaultServerAddr, "base URL of the yardwatch server")
	cmd.Flags().DurationVar(&o.Timeout, "timeout", 5*time.Second, "request timeout")
}

func (o *remoteOptions) client(cmd *cobra.Command) (*api.Client, context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.Timeout)
	return api.NewClient(o.Addr, nil), ctx, cancel
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	opts := &remoteOptions{}
	var perf bool

	cmd := &cobra.Command{
		Use:          "status",
		Short:        "Show the yard picture from a running server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := opts.client(cmd)
			defer cancel()

			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			writeStatus(cmd.OutOrStdout(), st)

			if !perf {
				return nil
			}
			sum, err := c.Performance(ctx)
			if err != nil {
				return err
			}
			writeSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&perf, "performance", false, "also print the dwell summary")

	return cmd
}

// NewClearCommand creates the clear command.
func NewClearCommand() *cobra.Command {
	opts := &remoteOptions{}

	cmd := &cobra.Command{
		Use:          "clear <section>",
		Short:        "Acknowledge a trail-through alert",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := opts.client(cmd)
			defer cancel()

			cleared, err := c.ClearTrailThrough(ctx, args[0])
			if err != nil {
				return err
			}
			if cleared {
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Trail-through on %s cleared\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "No open trail-through on %s\n", args[0])
			}
			return nil
		},
	}
	opts.bind(cmd)

	return cmd
}

// NewResetCommand creates the reset command.
func NewResetCommand() *cobra.Command {
	opts := &remoteOptions{}
	var user string

	cmd := &cobra.Command{
		Use:          "reset [section]",
		Short:        "Reset one section, or the whole yard",
		Long:         "Clears the tracked state of a section, or of every section when none is named. The user must hold a reset role.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := opts.client(cmd)
			defer cancel()

			var section string
			if len(args) == 1 {
				section = args[0]
			}
			if err := c.Reset(ctx, user, section); err != nil {
				return err
			}
			if section == "" {
				section = "all sections"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Reset %s\n", section)
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVarP(&user, "user", "u", "", "user requesting the reset")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// NewWatchCommand creates the watch command, which follows the gRPC status
// stream.
func NewWatchCommand() *cobra.Command {
	var addr string
	var once bool

	cmd := &cobra.Command{
		Use:          "watch",
		Short:        "Follow the yard status over gRPC",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := statusrpc.Dial(addr)
			if err != nil {
				return err
			}
			defer cc.Close()
			c := statusrpc.NewClient(cc)
			out := cmd.OutOrStdout()

			if once {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				defer cancel()
				st, err := c.Get(ctx)
				if err != nil {
					return err
				}
				writeStatus(out, st)
				return nil
			}

			return c.Watch(cmd.Context(), func(st yard.Status) error {
				writeStatus(out, st)
				fmt.Fprintln(out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "grpc-addr", "localhost:50051", "address of the gRPC status stream")
	cmd.Flags().BoolVar(&once, "once", false, "print the current status and exit")

	return cmd
}

func writeStatus(out io.Writer, st yard.Status) {
	if st.TS == 0 {
		fmt.Fprintln(out, "No status published yet")
		return
	}
	fmt.Fprintf(out, "Status at %s (%s)\n\n",
		timeutil.Unix(st.TS).Format(time.RFC3339), humanize.Time(timeutil.Unix(st.TS)))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tSTATUS\tDIR\tENGINE\tTORPEDO\tLABEL")
	for _, r := range st.Sections {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.SectionID, r.Status, r.Direction, r.EngineAxles, r.TorpedoAxles, r.TorpedoStatus)
	}
	tw.Flush()
}

func writeSummary(out io.Writer, s report.Summary) {
	fmt.Fprintf(out, "\nVehicles: %s  in yard: %d  unloading: %d  unloaded: %.0f%%\n",
		humanize.Comma(int64(s.Vehicles)), s.InYard, s.Unloading, 100*s.UnloadedRate)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DWELL\tN\tMEAN\tP50\tP90\tMAX")
	for _, row := range []struct {
		name string
		d    report.DwellStats
	}{{"yard", s.YardDwell}, {"unload", s.UnloadDwell}} {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", row.name, row.d.Count,
			dwell(row.d.Mean), dwell(row.d.P50), dwell(row.d.P90), dwell(row.d.Max))
	}
	tw.Flush()
}

func dwell(seconds float64) string {
	return (time.Duration(seconds) * time.Second).Round(time.Second).String()
}
