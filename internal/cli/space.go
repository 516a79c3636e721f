package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/accented-ai/quadsparql/internal/apperr"
)

func newSpaceCommand(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "space",
		Short: "Manage spaces (per-tenant table sets)",
	}

	cmd.AddCommand(
		newSpaceCreateCommand(ctx),
		newSpaceDropCommand(ctx),
		newSpaceListCommand(ctx),
	)

	return cmd
}

func newSpaceCreateCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "create <space-id>",
		Short: "Provision a new space's tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.CreateSpace(ctx, args[0]); err != nil {
				return apperr.Wrap(apperr.KindUnknown, "create space", err)
			}

			fmt.Printf("space %q created\n", args[0])

			return nil
		},
	}
}

func newSpaceDropCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "drop <space-id>",
		Short: "Drop a space and all of its tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.DropSpace(ctx, args[0]); err != nil {
				return apperr.Wrap(apperr.KindUnknown, "drop space", err)
			}

			fmt.Printf("space %q dropped\n", args[0])

			return nil
		},
	}
}

func newSpaceListCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every provisioned space",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			eng, err := newEngine(ctx)
			if err != nil {
				return err
			}
			defer eng.Close()

			ids, err := eng.ListSpaces(ctx)
			if err != nil {
				return apperr.Wrap(apperr.KindUnknown, "list spaces", err)
			}

			for _, id := range ids {
				fmt.Println(id)
			}

			return nil
		},
	}
}
