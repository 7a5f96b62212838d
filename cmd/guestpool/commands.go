package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-arndt/guestpool/internal/spawn"
	"github.com/p-arndt/guestpool/internal/store"
)

var errNoFreeGuest = errors.New("no free guest")

func newAllocateCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "allocate",
		Short: "Print a guest identity that has no live server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, ok, err := get().service.AllocateFreeGuest(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				return errNoFreeGuest
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
}

func newRunningCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "running",
		Short: "List users with a live notebook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, id := range get().service.ListRunningIdentities(cmd.Context()) {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newSeedCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <guest> <notebook>",
		Short: "Copy a stored notebook into a guest's volume",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get().service.SeedNotebook(cmd.Context(), args[0], args[1])
		},
	}
}

func newCollectCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Remove guest volumes no running container uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := get().service.CollectOrphanVolumes(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d volume(s)\n", n)
			return err
		},
	}
}

type spawnOptions struct {
	notebook string
	next     string
}

func newSpawnCmd(get func() *app) *cobra.Command {
	opts := &spawnOptions{}
	cmd := &cobra.Command{
		Use:   "spawn [guest]",
		Short: "Start a guest notebook container, seeding a notebook first if requested",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identity, notebook, err := resolveSpawnTarget(args, opts)
			if err != nil {
				return err
			}
			id, err := get().spawner.Start(cmd.Context(), identity, notebook)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.notebook, "notebook", "", "notebook file to seed before starting")
	cmd.Flags().StringVar(&opts.next, "next", "", "hub redirect URL carrying the user and notebook")
	return cmd
}

// resolveSpawnTarget picks the guest and notebook from the positional
// argument and flags. Explicit values win over those parsed from --next.
func resolveSpawnTarget(args []string, opts *spawnOptions) (identity, notebook string, err error) {
	if len(args) == 1 {
		identity = args[0]
	}
	notebook = opts.notebook
	if opts.next != "" {
		if identity == "" {
			identity = spawn.IdentityFromNext(opts.next)
		}
		if notebook == "" {
			notebook = spawn.NotebookFromNext(opts.next)
		}
	}
	if identity == "" {
		return "", "", errors.New("no guest given and none found in --next")
	}
	return identity, notebook, nil
}

func newStopCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <guest>",
		Short: "Remove a guest's notebook container, keeping its volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := get().spawner.Stop(cmd.Context(), args[0])
			if errors.Is(err, spawn.ErrNotRunning) {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s was not running\n", args[0])
			}
			return err
		},
	}
}

type historyOptions struct {
	limit    int
	identity string
	asJSON   bool
}

func newHistoryCmd(get func() *app) *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent allocation, seed, collect, spawn and stop events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := get().store
			var (
				events []*store.Event
				err    error
			)
			if opts.identity != "" {
				events, err = st.EventsForIdentity(opts.identity, opts.limit)
			} else {
				events, err = st.RecentEvents(opts.limit)
			}
			if err != nil {
				return err
			}

			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(events)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tKIND\tGUEST\tOK\tDETAIL")
			for _, ev := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n",
					ev.CreatedAt.Local().Format(time.DateTime), ev.Kind, ev.Identity, ev.OK, strings.ReplaceAll(ev.Detail, "\n", " "))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "maximum number of events")
	cmd.Flags().StringVar(&opts.identity, "guest", "", "only events for this guest")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print events as JSON")
	return cmd
}
